// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tomtom215/traveal/internal/models"
	"github.com/tomtom215/traveal/internal/store"
)

// healthProbeUser never owns a profile; looking it up exercises the store.
const healthProbeUser = "__health_probe__"

// storeCheck reports the store healthy when a lookup completes. A missing
// profile is the expected answer.
type storeCheck struct {
	profiles store.ProfileStore
}

func (storeCheck) Name() string { return "store" }

func (c storeCheck) Check(ctx context.Context) error {
	_, err := c.profiles.GetProfileByUser(ctx, healthProbeUser)
	if err == nil || errors.Is(err, models.ErrNotFound) {
		return nil
	}
	return err
}

// breakerSource exposes the notification channel breaker states.
type breakerSource interface {
	BreakerStates() map[string]string
}

// breakerCheck fails while any notification channel's breaker is open.
type breakerCheck struct {
	dispatcher breakerSource
}

func (breakerCheck) Name() string { return "notify" }

func (c breakerCheck) Check(context.Context) error {
	var open []string
	for channel, state := range c.dispatcher.BreakerStates() {
		if state == "open" {
			open = append(open, channel)
		}
	}
	if len(open) == 0 {
		return nil
	}
	sort.Strings(open)
	return fmt.Errorf("circuit open: %s", strings.Join(open, ", "))
}
