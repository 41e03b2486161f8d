// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package notify

import (
	"fmt"

	"github.com/tomtom215/traveal/internal/config"
	"github.com/tomtom215/traveal/internal/logging"
)

// FromConfig builds dispatcher options from configuration. live is the push
// sender used by the websocket provider and may be nil when that provider is
// not selected.
func FromConfig(cfg config.NotifyConfig, live PushSender) (Options, error) {
	opts := Options{
		MaxConcurrency:   cfg.MaxConcurrency,
		ChannelTimeout:   cfg.ChannelTimeout,
		ContactDelay:     cfg.ContactDelay,
		FuzzRadiusMeters: cfg.FuzzRadiusMeters,
		Breaker: BreakerSettings{
			MaxRequests:  cfg.Breaker.MaxRequests,
			Interval:     cfg.Breaker.Interval,
			Timeout:      cfg.Breaker.Timeout,
			FailureRatio: cfg.Breaker.FailureRatio,
			MinRequests:  cfg.Breaker.MinRequests,
		},
	}

	switch cfg.SMS.Provider {
	case "log":
		opts.SMS = LogSender{}
	case "http":
		opts.SMS = NewHTTPSMSSender(gateway(cfg.SMS, cfg))
	default:
		return Options{}, fmt.Errorf("unknown sms provider %q", cfg.SMS.Provider)
	}

	switch cfg.Email.Provider {
	case "log":
		opts.Email = LogSender{}
	case "smtp":
		sender, err := NewSMTPSender(SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
			UseTLS:   cfg.Email.UseTLS,
			Timeout:  cfg.ChannelTimeout,
		})
		if err != nil {
			return Options{}, fmt.Errorf("email channel: %w", err)
		}
		opts.Email = sender
	default:
		return Options{}, fmt.Errorf("unknown email provider %q", cfg.Email.Provider)
	}

	switch cfg.Push.Provider {
	case "log":
		opts.Push = LogSender{}
	case "http":
		opts.Push = NewHTTPPushSender(gateway(cfg.Push, cfg))
	case "websocket":
		if live == nil {
			return Options{}, fmt.Errorf("websocket push provider requires a live connection hub")
		}
		opts.Push = live
	default:
		return Options{}, fmt.Errorf("unknown push provider %q", cfg.Push.Provider)
	}

	switch cfg.Authorities.Provider {
	case "log":
		opts.Authorities = LogSender{}
	case "webhook":
		opts.Authorities = NewWebhookReporter(gateway(cfg.Authorities, cfg))
	default:
		return Options{}, fmt.Errorf("unknown authorities provider %q", cfg.Authorities.Provider)
	}

	logging.Info().
		Str("sms", cfg.SMS.Provider).
		Str("email", cfg.Email.Provider).
		Str("push", cfg.Push.Provider).
		Str("authorities", cfg.Authorities.Provider).
		Msg("Notification channels configured")
	return opts, nil
}

func gateway(g config.GatewayConfig, cfg config.NotifyConfig) GatewayConfig {
	return GatewayConfig{
		BaseURL: g.URL,
		APIKey:  g.APIKey,
		Sender:  g.Sender,
		Timeout: cfg.ChannelTimeout,
	}
}
