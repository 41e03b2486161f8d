// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/traveal/internal/logging"
	"github.com/tomtom215/traveal/internal/metrics"
)

// SweepResult counts the records removed by one retention pass.
type SweepResult struct {
	Monitoring int
	Alerts     int
	ActionLogs int
}

// Sweeper periodically deletes ended monitoring sessions, terminal alerts
// and action log entries older than the retention age. Active sessions and
// triggered alerts are never touched.
type Sweeper struct {
	store     Store
	schedule  string
	retention time.Duration
	now       func() time.Time
}

// NewSweeper creates a Sweeper. schedule is a standard cron expression or a
// descriptor such as "@every 1h".
func NewSweeper(s Store, schedule string, retention time.Duration) (*Sweeper, error) {
	if retention <= 0 {
		return nil, errors.New("store: retention must be positive")
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("store: invalid retention schedule %q: %w", schedule, err)
	}
	return &Sweeper{store: s, schedule: schedule, retention: retention, now: time.Now}, nil
}

// Sweep runs one retention pass.
func (w *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	cutoff := w.now().Add(-w.retention)
	var res SweepResult
	var err error

	if res.Monitoring, err = w.store.DeleteEndedMonitoringBefore(ctx, cutoff); err != nil {
		return res, fmt.Errorf("sweep monitoring: %w", err)
	}
	if res.Alerts, err = w.store.DeleteTerminalAlertsBefore(ctx, cutoff); err != nil {
		return res, fmt.Errorf("sweep alerts: %w", err)
	}
	if res.ActionLogs, err = w.store.DeleteActionLogsBefore(ctx, cutoff); err != nil {
		return res, fmt.Errorf("sweep action logs: %w", err)
	}

	metrics.RetentionDeleted.WithLabelValues("monitoring").Add(float64(res.Monitoring))
	metrics.RetentionDeleted.WithLabelValues("alert").Add(float64(res.Alerts))
	metrics.RetentionDeleted.WithLabelValues("action_log").Add(float64(res.ActionLogs))
	return res, nil
}

// Serve runs the cron schedule until ctx is cancelled. It implements
// suture.Service.
func (w *Sweeper) Serve(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{})), cron.WithLogger(cronLogger{}))
	_, err := c.AddFunc(w.schedule, func() {
		res, err := w.Sweep(ctx)
		if err != nil {
			logging.Error().Err(err).Msg("Retention sweep failed")
			return
		}
		logging.Info().
			Int("monitoring", res.Monitoring).
			Int("alerts", res.Alerts).
			Int("action_logs", res.ActionLogs).
			Msg("Retention sweep completed")
	})
	if err != nil {
		return fmt.Errorf("schedule retention sweep: %w", err)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (w *Sweeper) String() string {
	return "retention-sweeper"
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug().Str("component", "cron").Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logging.Error().Str("component", "cron").Err(err).Fields(keysAndValues).Msg(msg)
}
