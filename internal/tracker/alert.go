package tracker

import (
	"time"

	"github.com/google/uuid"
)

// Alert is the record emitted to the configured sink when a group crosses
// an occurrence threshold.
type Alert struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Kind        string    `json:"kind"`
	Message     string    `json:"message"`
	Component   string    `json:"component,omitempty"`
	Severity    Severity  `json:"severity"`
	Count       uint64    `json:"count"`
	Timestamp   time.Time `json:"timestamp"`
}

// Sink receives alert records. Implementations live outside the engine;
// delivery failures are logged and swallowed, never surfaced to ingestion.
type Sink interface {
	Deliver(Alert) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Alert) error

func (f SinkFunc) Deliver(a Alert) error { return f(a) }

// alertState lives inside a group's shard entry and enforces the stride,
// the cooldown, and idempotency against re-evaluating the same count.
type alertState struct {
	lastCount uint64
	lastFired time.Time
}

// shouldFire reports whether an alert fires at the given occurrence count,
// and records the firing if so. Fires only on exact stride multiples, at
// most once per count value, and never within the cooldown of the previous
// alert for this group.
func (a *alertState) shouldFire(count uint64, now time.Time, stride int, cooldown time.Duration) bool {
	if stride <= 0 || count == 0 || count%uint64(stride) != 0 {
		return false
	}
	if count == a.lastCount {
		return false
	}
	if !a.lastFired.IsZero() && now.Sub(a.lastFired) < cooldown {
		return false
	}
	a.lastCount = count
	a.lastFired = now
	return true
}

func newAlert(g *group, now time.Time) Alert {
	return Alert{
		ID:          uuid.NewString(),
		Fingerprint: g.fingerprint,
		Kind:        g.kind,
		Message:     g.message,
		Component:   g.component,
		Severity:    g.severity,
		Count:       g.count,
		Timestamp:   now,
	}
}
