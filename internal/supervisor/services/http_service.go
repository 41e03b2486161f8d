// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPServer is the lifecycle subset of *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// DrainFunc waits for work started by requests to finish. The SOS
// service's Shutdown is one: it stops escalation timers and waits for
// in-flight notification fan-outs.
type DrainFunc func(ctx context.Context) error

// HTTPServerService runs the API server under supervision.
//
// On cancellation the server stops accepting requests first, then the
// drain function runs. Both share one shutdown timeout.
//
//	server := &http.Server{Addr: ":8080", Handler: router}
//	svc := services.NewHTTPServerService(server, 10*time.Second, sosService.Shutdown)
//	tree.AddAPIService(svc)
type HTTPServerService struct {
	server          HTTPServer
	drain           DrainFunc
	shutdownTimeout time.Duration
	name            string
}

// NewHTTPServerService creates the service. A non-positive timeout means
// 10s; drain may be nil.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration, drain DrainFunc) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		drain:           drain,
		shutdownTimeout: shutdownTimeout,
		name:            "api-server",
	}
}

// Serve implements suture.Service. It returns ctx.Err() after a clean
// shutdown and an error when the server fails or cannot stop in time.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// ctx is already canceled; shutdown needs its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh

		if h.drain != nil {
			if err := h.drain(shutdownCtx); err != nil {
				return fmt.Errorf("drain after shutdown failed: %w", err)
			}
		}
		return ctx.Err()
	}
}

// String implements fmt.Stringer for suture's logs.
func (h *HTTPServerService) String() string {
	return h.name
}
