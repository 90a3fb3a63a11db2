package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestWebhookChannelSend(t *testing.T) {
	var received webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	channel := NewWebhookChannel(srv.URL+"/api/webhooks/123/secret", time.Second, testLogger())
	note := Notification{
		Username:  "bot",
		Title:     "Doodle #7 sold!",
		Color:     0x0099ff,
		Fields:    []Field{{Name: "Amount", Value: "1Ξ"}},
		Footer:    Footer{Text: "Sold on OpenSea"},
		Timestamp: time.Date(2021, 2, 1, 12, 0, 0, 0, time.UTC),
	}

	if err := channel.Send(context.Background(), note); err != nil {
		t.Fatalf("send should succeed: %v", err)
	}
	if received.Username != "bot" {
		t.Fatalf("username not forwarded: %#v", received)
	}
	if len(received.Embeds) != 1 || received.Embeds[0].Title != "Doodle #7 sold!" {
		t.Fatalf("embed not forwarded: %#v", received.Embeds)
	}
	if received.Embeds[0].Timestamp != "2021-02-01T12:00:00Z" {
		t.Fatalf("timestamp not rendered as RFC3339: %q", received.Embeds[0].Timestamp)
	}
}

func TestWebhookChannelSendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	channel := NewWebhookChannel(srv.URL, time.Second, testLogger())
	if err := channel.Send(context.Background(), Notification{Title: "x"}); err == nil {
		t.Fatal("a 4xx response should be a delivery error")
	}
}

func TestWebhookChannelValidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("validation should use GET, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	channel := NewWebhookChannel(srv.URL+"/api/webhooks/123/secret", time.Second, testLogger())
	if err := channel.Validate(context.Background()); err != nil {
		t.Fatalf("validation should succeed: %v", err)
	}
}

func TestWebhookChannelValidateAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	channel := NewWebhookChannel(srv.URL+"/api/webhooks/123/bad", time.Second, testLogger())
	err := channel.Validate(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestChannelLabelHidesToken(t *testing.T) {
	label := channelLabel("https://discord.test/api/webhooks/123456/supersecret")
	if label != "webhook-123456" {
		t.Fatalf("unexpected label %q", label)
	}
}
