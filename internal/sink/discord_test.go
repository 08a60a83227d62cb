package sink

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fattits30-dev/error-tracker/internal/tracker"
)

func TestDiscord_DeliverAlert(t *testing.T) {
	var received discordWebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatal(err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := NewDiscord(server.URL)
	err := d.Deliver(tracker.Alert{
		Kind:      "DatabaseError",
		Message:   "Connection timeout after <NUM>s",
		Severity:  tracker.SeverityCritical,
		Count:     20,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(received.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(received.Embeds))
	}
	if received.Embeds[0].Title != "DatabaseError ×20 [critical]" {
		t.Fatalf("unexpected title %q", received.Embeds[0].Title)
	}
	if received.Embeds[0].Color != 0xFF0000 {
		t.Fatalf("expected red for critical, got %d", received.Embeds[0].Color)
	}
}

func TestDiscord_SeverityColors(t *testing.T) {
	tests := []struct {
		severity tracker.Severity
		color    int
	}{
		{tracker.SeverityCritical, 0xFF0000},
		{tracker.SeverityError, 0xE74C3C},
		{tracker.SeverityWarning, 0xFFA500},
		{tracker.SeverityInfo, 0x3498DB},
	}
	for _, tt := range tests {
		var received discordWebhookPayload
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&received)
			w.WriteHeader(http.StatusNoContent)
		}))

		d := NewDiscord(server.URL)
		d.Deliver(tracker.Alert{Kind: "E", Message: "m", Severity: tt.severity, Count: 10, Timestamp: time.Now()})
		server.Close()

		if received.Embeds[0].Color != tt.color {
			t.Fatalf("severity %s: expected color %d, got %d", tt.severity, tt.color, received.Embeds[0].Color)
		}
	}
}

func TestDiscord_EmptyURL_Noop(t *testing.T) {
	d := NewDiscord("")
	if err := d.Deliver(tracker.Alert{Kind: "E", Message: "m"}); err != nil {
		t.Fatal("empty URL should be a no-op, not an error")
	}
}

func TestDiscord_ServerErrorSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	d := NewDiscord(server.URL)
	if err := d.Deliver(tracker.Alert{Kind: "E", Message: "m"}); err == nil {
		t.Fatal("5xx from the webhook should be an error")
	}
}
