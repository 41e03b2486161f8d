// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

// GatewayConfig configures an HTTP gateway client.
type GatewayConfig struct {
	BaseURL string
	APIKey  string
	// Sender is the SMS sender id. Unused by the other gateways.
	Sender  string
	Timeout time.Duration
}

// gatewayResponse is the common gateway reply body.
type gatewayResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// newGatewayClient builds a resty client. Retries are left to the circuit
// breaker and the caller's timeout.
func newGatewayClient(cfg GatewayConfig) *resty.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultChannelTimeout
	}
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	if cfg.APIKey != "" {
		c.SetAuthToken(cfg.APIKey)
	}
	return c
}

// post sends body to path and maps non-2xx replies to errors.
func post(ctx context.Context, c *resty.Client, path string, body interface{}) error {
	var reply gatewayResponse
	resp, err := c.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&reply).
		SetError(&reply).
		Post(path)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	if resp.IsError() {
		if reply.Message != "" {
			return fmt.Errorf("gateway returned %d: %s", resp.StatusCode(), reply.Message)
		}
		return fmt.Errorf("gateway returned %d", resp.StatusCode())
	}
	return nil
}

// HTTPSMSSender sends SMS through a JSON HTTP gateway.
type HTTPSMSSender struct {
	client *resty.Client
	sender string
}

// NewHTTPSMSSender creates an SMS gateway client.
func NewHTTPSMSSender(cfg GatewayConfig) *HTTPSMSSender {
	return &HTTPSMSSender{client: newGatewayClient(cfg), sender: cfg.Sender}
}

// SendSMS implements SMSSender.
func (s *HTTPSMSSender) SendSMS(ctx context.Context, to, message string) error {
	return post(ctx, s.client, "/messages", map[string]string{
		"to":      to,
		"from":    s.sender,
		"message": message,
	})
}

// HTTPPushSender sends push notifications through a JSON HTTP gateway.
type HTTPPushSender struct {
	client *resty.Client
}

// NewHTTPPushSender creates a push gateway client.
func NewHTTPPushSender(cfg GatewayConfig) *HTTPPushSender {
	return &HTTPPushSender{client: newGatewayClient(cfg)}
}

// SendPush implements PushSender.
func (s *HTTPPushSender) SendPush(ctx context.Context, userID, title, body string, data map[string]string) error {
	return post(ctx, s.client, "/push", map[string]interface{}{
		"user_id": userID,
		"title":   title,
		"body":    body,
		"data":    data,
	})
}

// WebhookReporter posts authority reports to a webhook.
type WebhookReporter struct {
	client *resty.Client
}

// NewWebhookReporter creates an authority webhook client. BaseURL is the
// full webhook URL.
func NewWebhookReporter(cfg GatewayConfig) *WebhookReporter {
	return &WebhookReporter{client: newGatewayClient(cfg)}
}

// ReportAlert implements AuthorityReporter.
func (r *WebhookReporter) ReportAlert(ctx context.Context, report AuthorityReport) error {
	return post(ctx, r.client, "", report)
}
