// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/traveal/internal/logging"
	"github.com/tomtom215/traveal/internal/metrics"
	"github.com/tomtom215/traveal/internal/models"
	"github.com/tomtom215/traveal/internal/store"
)

// LiveNotifier pushes messages to a user's connected devices.
type LiveNotifier interface {
	Publish(userID, messageType string, data interface{})
}

// AlertUpdate is the live message sent when one of the user's alerts
// changes public status.
type AlertUpdate struct {
	AlertID string `json:"alert_id"`
	Status  string `json:"status"`
}

// alertUpdateMessage is the live message type for AlertUpdate.
const alertUpdateMessage = "alert_update"

// liveActions are forwarded to the user's devices. Everything else stays
// in the server-side log. Escalation is never pushed: the device may be in
// a coercer's hands.
var liveActions = map[string]bool{
	models.ActionAlertTriggered:   true,
	models.ActionPasswordVerified: true,
	models.ActionAlertCancelled:   true,
}

// RecorderConfig tunes the consumer router.
type RecorderConfig struct {
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	CloseTimeout         time.Duration
}

// DefaultRecorderConfig returns the production settings.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		CloseTimeout:         10 * time.Second,
	}
}

// Recorder consumes the bus, writes each event to the action log and
// forwards public alert status changes to the live hub.
//
// Serve builds a fresh watermill router on every call, so the supervisor
// can restart it after a failure.
type Recorder struct {
	bus     *Bus
	logs    store.ActionLogStore
	live    LiveNotifier
	cfg     RecorderConfig
	once    sync.Once
	running chan struct{}
}

// NewRecorder creates a Recorder. live may be nil.
func NewRecorder(bus *Bus, logs store.ActionLogStore, live LiveNotifier, cfg RecorderConfig) *Recorder {
	if cfg.RetryMaxRetries < 0 {
		cfg.RetryMaxRetries = 0
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = DefaultRecorderConfig().CloseTimeout
	}
	return &Recorder{
		bus:     bus,
		logs:    logs,
		live:    live,
		cfg:     cfg,
		running: make(chan struct{}),
	}
}

// Running is closed once the first router is subscribed and consuming.
func (r *Recorder) Running() <-chan struct{} {
	return r.running
}

// Serve implements suture.Service.
func (r *Recorder) Serve(ctx context.Context) error {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: r.cfg.CloseTimeout}, r.bus.Logger())
	if err != nil {
		return fmt.Errorf("create watermill router: %w", err)
	}

	// Outermost first: failures that survive the retries are logged and
	// acked so a bad event cannot be redelivered forever.
	retry := middleware.Retry{
		MaxRetries:      r.cfg.RetryMaxRetries,
		InitialInterval: r.cfg.RetryInitialInterval,
		Logger:          r.bus.Logger(),
	}
	router.AddMiddleware(dropFailed, middleware.Recoverer, retry.Middleware)
	router.AddConsumerHandler("action-log-recorder", Topic, r.bus.Subscriber(), r.handle)

	go func() {
		select {
		case <-router.Running():
			r.once.Do(func() { close(r.running) })
		case <-ctx.Done():
		}
	}()

	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("action log recorder: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (r *Recorder) String() string {
	return "action-log-recorder"
}

func (r *Recorder) handle(msg *message.Message) error {
	e, err := decode(msg)
	if err != nil {
		return err
	}

	entry := &models.ActionLog{
		ID:           e.ID,
		Action:       e.Action,
		AlertID:      e.AlertID,
		MonitoringID: e.MonitoringID,
		UserID:       e.UserID,
		Details:      e.Details,
		Timestamp:    e.OccurredAt,
	}
	if e.Status != "" {
		if entry.Details == nil {
			entry.Details = make(map[string]string, 1)
		}
		entry.Details["status"] = e.Status
	}

	if err := r.logs.AppendActionLog(msg.Context(), entry); err != nil {
		return fmt.Errorf("append action log: %w", err)
	}
	metrics.EventsConsumed.WithLabelValues("recorded").Inc()

	if r.live != nil && liveActions[e.Action] && e.AlertID != "" && e.Status != "" {
		r.live.Publish(e.UserID, alertUpdateMessage, AlertUpdate{AlertID: e.AlertID, Status: e.Status})
	}
	return nil
}

// dropFailed acknowledges messages whose handler still fails after retries.
func dropFailed(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		out, err := h(msg)
		if err != nil {
			metrics.EventsConsumed.WithLabelValues("dropped").Inc()
			logging.Error().
				Err(err).
				Str("message_uuid", msg.UUID).
				Str("action", msg.Metadata.Get("action")).
				Msg("Dropping SOS event after retries")
			return nil, nil
		}
		return out, nil
	}
}
