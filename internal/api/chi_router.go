// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/traveal/internal/auth"
	"github.com/tomtom215/traveal/internal/middleware"
	"github.com/tomtom215/traveal/internal/models"
)

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	middleware    *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router.
func NewRouter(handler *Handler, authMiddleware *auth.Middleware, chiMw *ChiMiddleware) *Router {
	if chiMw == nil {
		chiMw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		middleware:    authMiddleware,
		chiMiddleware: chiMw,
	}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, &models.APIError{Code: models.ErrCodeNotFound, Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, &models.APIError{Code: models.ErrCodeValidation, Message: "method not allowed"})
	})

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
	})

	r.Handle("/metrics", promhttp.Handler())

	// WebSocket push subscription. Browsers cannot set headers on the
	// handshake, so the JWT may come from the token query parameter.
	r.Route("/api/v1/ws", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(chiMiddleware(router.middleware.Authenticate))
		r.Get("/", router.handler.WebSocket)
	})

	router.registerSOSRoutes(r)

	return r
}

// registerSOSRoutes adds the authenticated SOS API.
func (router *Router) registerSOSRoutes(r chi.Router) {
	r.Route("/api/v1/sos", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(middleware.Compression)
		r.Use(chiMiddleware(router.middleware.Authenticate))

		// Profile
		r.Post("/profile", router.handler.UpsertProfile)
		r.Get("/profile", router.handler.GetProfile)
		r.Post("/contacts", router.handler.AddContact)
		r.Put("/settings", router.handler.UpdateSettings)

		// Route monitoring
		r.Post("/monitoring/start", router.handler.StartMonitoring)
		r.Get("/monitoring/{monitoringID}", router.handler.GetMonitoring)
		r.Post("/monitoring/{monitoringID}/location", router.handler.UpdateLocation)
		r.Post("/monitoring/{monitoringID}/end", router.handler.EndMonitoring)

		// Alerts
		r.Post("/alert/trigger", router.handler.TriggerAlert)
		r.With(router.chiMiddleware.RateLimitVerify()).
			Post("/alert/{alertID}/verify", router.handler.VerifyPassword)
		r.Post("/alert/{alertID}/cancel", router.handler.CancelAlert)
		r.Get("/alerts/active", router.handler.ListActiveAlerts)

		r.Post("/test/voice", router.handler.TestVoice)
	})
}
