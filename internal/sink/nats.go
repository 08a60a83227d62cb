package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/fattits30-dev/error-tracker/internal/tracker"
)

// NATS publishes alerts to a JetStream ERRORS stream so downstream
// consumers (notification fan-out, dashboards) can pick them up durably.
type NATS struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewNATS connects to NATS and ensures the ERRORS stream exists.
func NewNATS(natsURL string) (*NATS, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "ERRORS",
		Subjects:  []string{"errors.alert.>"},
		Retention: jetstream.LimitsPolicy,
		MaxMsgs:   1000000,
		MaxBytes:  1024 * 1024 * 1024, // 1GB
		MaxAge:    7 * 24 * time.Hour, // 7 days
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		slog.Warn("failed to create ERRORS stream (may already exist)", "error", err)
	}

	return &NATS{nc: nc, js: js}, nil
}

func (s *NATS) Close() {
	s.nc.Close()
}

// Deliver publishes the alert as JSON on errors.alert.<severity>.
func (s *NATS) Deliver(a tracker.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	subject := fmt.Sprintf("errors.alert.%s", a.Severity)
	if _, err := s.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	slog.Debug("published alert", "subject", subject, "fingerprint", a.Fingerprint)
	return nil
}
