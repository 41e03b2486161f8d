// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package notify

import (
	"context"
	"errors"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tomtom215/traveal/internal/geo"
	"github.com/tomtom215/traveal/internal/logging"
	"github.com/tomtom215/traveal/internal/metrics"
	"github.com/tomtom215/traveal/internal/models"
)

// Dispatcher defaults.
const (
	DefaultMaxConcurrency = 4
	DefaultChannelTimeout = 5 * time.Second
	DefaultContactDelay   = 250 * time.Millisecond
)

// errChannelDisabled marks a channel with no configured sender.
var errChannelDisabled = errors.New("channel not configured")

// Options configures a Dispatcher. A nil sender disables its channel.
type Options struct {
	SMS         SMSSender
	Email       EmailSender
	Push        PushSender
	Authorities AuthorityReporter

	MaxConcurrency int
	ChannelTimeout time.Duration
	// ContactDelay spaces out successive contacts. Zero disables pacing.
	ContactDelay time.Duration
	// FuzzRadiusMeters blurs locations sent to contacts and authorities.
	// Zero sends the exact location.
	FuzzRadiusMeters float64
	Breaker          BreakerSettings
}

// Dispatcher fans notifications out across contacts and channels.
type Dispatcher struct {
	opts     Options
	breakers map[string]*breaker
	now      func() time.Time
}

// NewDispatcher creates a Dispatcher. Zero numeric options take defaults;
// a negative ContactDelay is treated as zero.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	if opts.ChannelTimeout <= 0 {
		opts.ChannelTimeout = DefaultChannelTimeout
	}
	if opts.ContactDelay < 0 {
		opts.ContactDelay = 0
	}
	if opts.Breaker == (BreakerSettings{}) {
		opts.Breaker = DefaultBreakerSettings()
	}

	d := &Dispatcher{
		opts:     opts,
		breakers: make(map[string]*breaker),
		now:      time.Now,
	}
	for _, name := range []string{string(ChannelSMS), string(ChannelEmail), string(ChannelPush), authoritiesBreaker} {
		d.breakers[name] = newBreaker(name, opts.Breaker)
	}
	return d
}

// BreakerStates reports the state of every channel breaker.
func (d *Dispatcher) BreakerStates() map[string]string {
	out := make(map[string]string, len(d.breakers))
	for name, b := range d.breakers {
		out[name] = b.state().String()
	}
	return out
}

// Dispatch notifies contacts in ascending priority order on every
// applicable channel: SMS when a phone is present, email when an address is
// present, push when the contact is linked to a user. Inactive or
// unreachable contacts are skipped. Failures are recorded, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, contacts []models.EmergencyContact, loc models.Location, alertType models.AlertType, channels []Channel) FanoutResult {
	if len(channels) == 0 {
		channels = AllChannels
	}
	ordered := dispatchOrder(contacts)
	loc = d.blur(loc)
	at := d.now()

	results := make([]ContactResult, len(ordered))
	plans := make([][]Channel, len(ordered))
	for i, c := range ordered {
		plans[i] = d.channelsFor(c, channels)
		results[i] = ContactResult{
			ContactID: c.ID,
			Name:      c.Name,
			Channels:  make([]ChannelResult, len(plans[i])),
		}
	}

	var g errgroup.Group
	g.SetLimit(d.opts.MaxConcurrency)
	pace := d.limiter()

	for i, c := range ordered {
		if err := pace.Wait(ctx); err != nil {
			for j := i; j < len(ordered); j++ {
				for k, ch := range plans[j] {
					results[j].Channels[k] = ChannelResult{Channel: ch, Error: err.Error()}
				}
			}
			break
		}

		msg := buildAlertMessage(c, loc, alertType, at)
		for k, ch := range plans[i] {
			g.Go(func() error {
				results[i].Channels[k] = d.deliver(ctx, ch, c, msg)
				return nil
			})
		}
	}
	_ = g.Wait()

	res := aggregate(results)
	logging.Ctx(ctx).Info().
		Str("alert_type", string(alertType)).
		Int("contacts", len(ordered)).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Msg("SOS notification dispatch completed")
	return res
}

// SendStatusUpdate tells a previously notified contact how the alert ended.
// It returns true when at least one channel succeeded.
func (d *Dispatcher) SendStatusUpdate(ctx context.Context, contact models.EmergencyContact, status models.AlertStatus, loc *models.Location) bool {
	if !contact.Dispatchable() {
		return false
	}
	if loc != nil {
		blurred := d.blur(*loc)
		loc = &blurred
	}
	msg := buildStatusMessage(contact, status, loc)
	plan := d.channelsFor(contact, AllChannels)
	results := make([]ChannelResult, len(plan))

	var g errgroup.Group
	g.SetLimit(d.opts.MaxConcurrency)
	for k, ch := range plan {
		g.Go(func() error {
			results[k] = d.deliver(ctx, ch, contact, msg)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Sent {
			return true
		}
	}
	return false
}

// ReportToAuthorities forwards an escalated or duress alert. Failures come
// back as a DependencyFailure for the caller to log.
func (d *Dispatcher) ReportToAuthorities(ctx context.Context, report AuthorityReport) error {
	if d.opts.Authorities == nil {
		return models.NewDependencyFailure(authoritiesBreaker, errChannelDisabled)
	}
	report.Location = d.blur(report.Location)
	if report.ReportedAt.IsZero() {
		report.ReportedAt = d.now().UTC()
	}

	callCtx, cancel := context.WithTimeout(ctx, d.opts.ChannelTimeout)
	defer cancel()

	start := time.Now()
	err := d.breakers[authoritiesBreaker].do(func() error {
		return d.opts.Authorities.ReportAlert(callCtx, report)
	})
	metrics.RecordDelivery(authoritiesBreaker, time.Since(start), err)
	if err != nil {
		return models.NewDependencyFailure(authoritiesBreaker, err)
	}
	logging.Ctx(ctx).Info().Str("alert_id", report.AlertID).Msg("Alert reported to authorities")
	return nil
}

// deliver performs one channel call under its breaker and timeout.
func (d *Dispatcher) deliver(ctx context.Context, ch Channel, c models.EmergencyContact, msg alertMessage) ChannelResult {
	callCtx, cancel := context.WithTimeout(ctx, d.opts.ChannelTimeout)
	defer cancel()

	start := time.Now()
	err := d.breakers[string(ch)].do(func() error {
		switch ch {
		case ChannelSMS:
			return d.opts.SMS.SendSMS(callCtx, c.Phone, msg.SMS)
		case ChannelEmail:
			return d.opts.Email.SendEmail(callCtx, c.Email, msg.Subject, msg.EmailBody)
		case ChannelPush:
			return d.opts.Push.SendPush(callCtx, c.LinkedUserID, msg.PushTitle, msg.PushBody, msg.PushData)
		}
		return errChannelDisabled
	})
	metrics.RecordDelivery(string(ch), time.Since(start), err)

	if err != nil {
		failure := models.NewDependencyFailure(string(ch), err)
		logging.Ctx(ctx).Warn().
			Err(failure).
			Str("contact_id", c.ID).
			Str("recipient", recipient(ch, c)).
			Msg("Notification channel failed")
		return ChannelResult{Channel: ch, Error: failure.Error()}
	}
	logging.Ctx(ctx).Debug().
		Str("channel", string(ch)).
		Str("contact_id", c.ID).
		Str("recipient", recipient(ch, c)).
		Msg("Notification delivered")
	return ChannelResult{Channel: ch, Sent: true}
}

// channelsFor returns the requested channels the contact can be reached on.
func (d *Dispatcher) channelsFor(c models.EmergencyContact, requested []Channel) []Channel {
	var out []Channel
	for _, ch := range requested {
		switch {
		case ch == ChannelSMS && c.Phone != "" && d.opts.SMS != nil:
			out = append(out, ch)
		case ch == ChannelEmail && c.Email != "" && d.opts.Email != nil:
			out = append(out, ch)
		case ch == ChannelPush && c.LinkedUserID != "" && d.opts.Push != nil:
			out = append(out, ch)
		}
	}
	return out
}

func (d *Dispatcher) limiter() *rate.Limiter {
	if d.opts.ContactDelay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d.opts.ContactDelay), 1)
}

func (d *Dispatcher) blur(loc models.Location) models.Location {
	if d.opts.FuzzRadiusMeters <= 0 {
		return loc
	}
	p := geo.FuzzyLocation(loc.Latitude, loc.Longitude, d.opts.FuzzRadiusMeters)
	return models.Location{
		Latitude:  p.Lat,
		Longitude: p.Lng,
		Timestamp: geo.RoundTime(loc.Timestamp, time.Minute),
	}
}

// dispatchOrder returns the dispatchable contacts sorted by priority.
func dispatchOrder(contacts []models.EmergencyContact) []models.EmergencyContact {
	out := make([]models.EmergencyContact, 0, len(contacts))
	for _, c := range contacts {
		if c.Dispatchable() {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

func aggregate(results []ContactResult) FanoutResult {
	res := FanoutResult{Contacts: results}
	for i := range results {
		for _, ch := range results[i].Channels {
			if ch.Sent {
				results[i].Sent++
			} else {
				results[i].Failed++
			}
		}
		res.Sent += results[i].Sent
		res.Failed += results[i].Failed
	}
	return res
}

func recipient(ch Channel, c models.EmergencyContact) string {
	switch ch {
	case ChannelSMS:
		return logging.MaskPhone(c.Phone)
	case ChannelEmail:
		return logging.MaskEmail(c.Email)
	default:
		return c.LinkedUserID
	}
}
