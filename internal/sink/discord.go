package sink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fattits30-dev/error-tracker/internal/tracker"
)

// Discord posts alerts to a Discord webhook as colored embeds.
type Discord struct {
	webhookURL string
	client     *http.Client
}

// NewDiscord builds a Discord sink. An empty webhook URL makes Deliver a
// no-op so the sink can always be wired unconditionally.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

func severityColor(s tracker.Severity) int {
	switch s {
	case tracker.SeverityCritical:
		return 0xFF0000 // red
	case tracker.SeverityError:
		return 0xE74C3C // dark red
	case tracker.SeverityWarning:
		return 0xFFA500 // orange
	default:
		return 0x3498DB // blue
	}
}

func (d *Discord) Deliver(a tracker.Alert) error {
	if d.webhookURL == "" {
		return nil
	}

	desc := a.Message
	if a.Component != "" {
		desc = fmt.Sprintf("%s\nComponent: %s", desc, a.Component)
	}
	payload := discordWebhookPayload{
		Embeds: []discordEmbed{{
			Title:       fmt.Sprintf("%s ×%d [%s]", a.Kind, a.Count, a.Severity),
			Description: desc,
			Color:       severityColor(a.Severity),
			Timestamp:   a.Timestamp.UTC().Format(time.RFC3339),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord webhook POST: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("discord webhook returned %d", resp.StatusCode)
	}
	return nil
}
