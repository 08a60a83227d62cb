// Package sink provides alert sink implementations for the tracker engine:
// NATS JetStream fan-out, Discord webhooks, sqlite history and a live
// websocket feed. All sinks fail soft; a broken sink never affects
// ingestion.
package sink

import (
	"errors"

	"github.com/fattits30-dev/error-tracker/internal/tracker"
)

// Multi fans one alert out to several sinks. Every sink is attempted; the
// joined error reports which ones failed.
type Multi []tracker.Sink

func (m Multi) Deliver(a tracker.Alert) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
