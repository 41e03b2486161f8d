// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

// Package events carries SOS lifecycle events over an in-process watermill
// bus. Producers publish and move on; the Recorder persists every event as
// an ActionLog and forwards public status changes to the user's devices.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/traveal/internal/logging"
	"github.com/tomtom215/traveal/internal/metrics"
)

// Topic is the single topic all SOS lifecycle events are published on.
const Topic = "sos.events"

// DefaultBufferSize is the per-subscriber output buffer.
const DefaultBufferSize int64 = 256

// Event is one SOS lifecycle step. Status carries the alert's public
// status where one applies.
type Event struct {
	ID           string            `json:"id"`
	Action       string            `json:"action"`
	UserID       string            `json:"user_id"`
	AlertID      string            `json:"alert_id,omitempty"`
	MonitoringID string            `json:"monitoring_id,omitempty"`
	Status       string            `json:"status,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
	OccurredAt   time.Time         `json:"occurred_at"`
}

// Bus publishes events on a gochannel pub/sub.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter
}

// NewLogger adapts the process logger for watermill.
func NewLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger())
}

// NewBus creates an in-process bus. Events published while no subscriber
// is running are dropped.
func NewBus(bufferSize int64) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	logger := NewLogger()
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: bufferSize,
		}, logger),
		logger: logger,
	}
}

// Publish emits e without waiting for consumers. Missing ids and
// timestamps are filled in. Failures are logged, never returned, so an
// unavailable audit trail cannot block an SOS operation.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(e)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("action", e.Action).Msg("Failed to encode SOS event")
		return
	}

	msg := message.NewMessage(e.ID, payload)
	msg.Metadata.Set("action", e.Action)
	if rid := logging.RequestIDFromContext(ctx); rid != "" {
		msg.Metadata.Set("request_id", rid)
	}

	if err := b.pubsub.Publish(Topic, msg); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("action", e.Action).Msg("Failed to publish SOS event")
		return
	}
	metrics.EventsPublished.WithLabelValues(e.Action).Inc()
}

// Subscriber exposes the bus for consumers.
func (b *Bus) Subscriber() message.Subscriber {
	return b.pubsub
}

// Logger returns the watermill logger used by the bus.
func (b *Bus) Logger() watermill.LoggerAdapter {
	return b.logger
}

// Close stops delivery to all subscribers.
func (b *Bus) Close() error {
	if err := b.pubsub.Close(); err != nil {
		return fmt.Errorf("close event bus: %w", err)
	}
	return nil
}

// decode parses a bus message.
func decode(msg *message.Message) (Event, error) {
	var e Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return Event{}, fmt.Errorf("decode event %s: %w", msg.UUID, err)
	}
	return e, nil
}
