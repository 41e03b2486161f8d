// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package services

import (
	"context"
)

// ContextRunner is anything with a context-bound run loop, such as
// *websocket.Hub.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// PushHubService supervises the in-app push hub. Connected clients are
// closed when the hub stops.
type PushHubService struct {
	hub  ContextRunner
	name string
}

// NewPushHubService wraps hub.
func NewPushHubService(hub ContextRunner) *PushHubService {
	return &PushHubService{hub: hub, name: "push-hub"}
}

// Serve implements suture.Service.
func (p *PushHubService) Serve(ctx context.Context) error {
	return p.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture's logs.
func (p *PushHubService) String() string {
	return p.name
}
