// Package notify batches asset exit events and delivers digest alerts to a
// WhatsApp gateway. Delivery is best effort and at most once: a failed send
// is logged and its batch dropped, never retried.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const fonnteSendURL = "https://api.fonnte.com/send"

// Notifier is the outbound message gateway.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

// FonnteClient sends WhatsApp messages through the Fonnte HTTP API using a
// device token.
type FonnteClient struct {
	endpoint string
	token    string
	target   string
	http     *http.Client
}

// NewFonnteClient builds a client for the hosted Fonnte API.
func NewFonnteClient(token, target string) *FonnteClient {
	return &FonnteClient{
		endpoint: fonnteSendURL,
		token:    token,
		target:   target,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// NewFonnteClientWithEndpoint is used by tests to point at a local server.
func NewFonnteClientWithEndpoint(endpoint, token, target string) *FonnteClient {
	c := NewFonnteClient(token, target)
	c.endpoint = endpoint
	return c
}

type fonnteResponse struct {
	Status bool   `json:"status"`
	Reason string `json:"reason"`
}

func (c *FonnteClient) Send(ctx context.Context, message string) error {
	form := url.Values{
		"target":  {c.target},
		"message": {message},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read notification response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notification gateway status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed fonnteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("decode notification response: %w", err)
	}
	if !parsed.Status {
		return fmt.Errorf("notification rejected: %s", parsed.Reason)
	}
	return nil
}

// NoopNotifier is used when WhatsApp credentials are not configured.
type NoopNotifier struct {
	logger *slog.Logger
}

func NewNoopNotifier(logger *slog.Logger) *NoopNotifier {
	logger.Info("whatsapp notifications disabled, set FONNTE_TOKEN and WHATSAPP_PHONE to enable")
	return &NoopNotifier{logger: logger}
}

func (n *NoopNotifier) Send(_ context.Context, message string) error {
	n.logger.Debug("notification suppressed", "message", message)
	return nil
}
