package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tubecast/internal/config"
	"tubecast/internal/notify"
)

func TestNewFromConfigReturnsNoopWhenUnconfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Messaging.SendURL = ""
	n := notify.NewFromConfig(&cfg)
	if err := n.Send(context.Background(), "whatsapp:+15550001111", "hello"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestGatewayNotifierPostsJSON(t *testing.T) {
	var captured struct {
		auth        string
		contentType string
		to          string
		body        string
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		captured.auth = r.Header.Get("Authorization")
		captured.contentType = r.Header.Get("Content-Type")
		var msg struct {
			To   string `json:"to"`
			Body string `json:"body"`
		}
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		captured.to = msg.To
		captured.body = msg.Body
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Messaging.SendURL = server.URL
	cfg.Messaging.AuthToken = "secret-token"
	cfg.Messaging.RequestTimeout = 5

	n := notify.NewFromConfig(&cfg)
	if err := n.Send(context.Background(), "whatsapp:+15550001111", "Uploading video..."); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if captured.auth != "Bearer secret-token" {
		t.Fatalf("authorization header = %q", captured.auth)
	}
	if captured.contentType != "application/json" {
		t.Fatalf("content type = %q", captured.contentType)
	}
	if captured.to != "whatsapp:+15550001111" || captured.body != "Uploading video..." {
		t.Fatalf("payload = %+v", captured)
	}
}

func TestGatewayNotifierReportsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Messaging.SendURL = server.URL

	n := notify.NewFromConfig(&cfg)
	err := n.Send(context.Background(), "whatsapp:+15550001111", "hello")
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestGatewayNotifierRejectsEmptyRecipient(t *testing.T) {
	cfg := config.Default()
	cfg.Messaging.SendURL = "http://localhost:9"

	n := notify.NewFromConfig(&cfg)
	if err := n.Send(context.Background(), "  ", "hello"); err == nil {
		t.Fatal("expected error for empty recipient")
	}
}
