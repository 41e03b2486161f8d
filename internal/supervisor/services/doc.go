// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

// Package services adapts components with other lifecycles to
// suture.Service: the HTTP server's ListenAndServe and Shutdown pair, and
// context-bound run loops such as the push hub. Components that already
// have a Serve(ctx) error method, like the event recorder and the
// retention sweeper, are added to the tree directly.
package services
