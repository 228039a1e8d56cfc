package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tubecast/internal/config"
)

const userAgent = "Tubecast/0.1.0"

// Notifier sends a text message to a recipient identity.
type Notifier interface {
	Send(ctx context.Context, recipient, text string) error
}

// NewFromConfig builds a notifier backed by the messaging gateway when a
// send URL is configured. Otherwise a noop implementation is returned so
// callers never need nil checks.
func NewFromConfig(cfg *config.Config) Notifier {
	sendURL := strings.TrimSpace(cfg.Messaging.SendURL)
	if sendURL == "" {
		return noopNotifier{}
	}

	timeout := time.Duration(cfg.Messaging.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &gatewayNotifier{
		sendURL:   sendURL,
		authToken: strings.TrimSpace(cfg.Messaging.AuthToken),
		client:    &http.Client{Timeout: timeout},
	}
}

type gatewayNotifier struct {
	sendURL   string
	authToken string
	client    *http.Client
}

type outboundMessage struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

func (n *gatewayNotifier) Send(ctx context.Context, recipient, text string) error {
	if n == nil || n.client == nil {
		return nil
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return fmt.Errorf("notify: empty recipient")
	}

	body, err := json.Marshal(outboundMessage{To: recipient, Body: text})
	if err != nil {
		return fmt.Errorf("encode outbound message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.sendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	if n.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+n.authToken)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopNotifier struct{}

func (noopNotifier) Send(context.Context, string, string) error { return nil }
