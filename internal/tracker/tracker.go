// Package tracker implements an in-process error aggregation engine: it
// collapses semantically-similar error events into fingerprinted groups,
// controls volume with per-severity sampling and windowed rate limits,
// keeps rolling occurrence metrics, and fires threshold alerts with a
// per-group cooldown.
package tracker

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Tracker is the engine facade. Construct one at startup and share it by
// reference; Track is safe for concurrent use from any number of
// goroutines and never panics or blocks for long (the per-group critical
// section is a handful of field updates).
type Tracker struct {
	cfg   atomic.Pointer[Config]
	store *groupStore
	sink  Sink

	// OnNewGroup and OnAlert are optional hooks invoked synchronously after
	// the corresponding transition. Set them before the tracker is shared.
	OnNewGroup func(GroupSummary)
	OnAlert    func(Alert)

	globalMu sync.Mutex
	global   windowCounter

	totalSeen        atomic.Uint64
	totalAccepted    atomic.Uint64
	droppedSampling  atomic.Uint64
	droppedRateLimit atomic.Uint64
	alertsTriggered  atomic.Uint64
	groupCount       atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New builds a Tracker with the given config and alert sink. A nil sink
// disables delivery but not alert accounting. If cfg.SweepInterval is
// positive a background retention sweeper runs until Close.
func New(cfg Config, sink Sink) *Tracker {
	cfg = cfg.withDefaults()
	t := &Tracker{
		store: newGroupStore(),
		sink:  sink,
		done:  make(chan struct{}),
	}
	t.cfg.Store(&cfg)
	if cfg.SweepInterval > 0 {
		t.wg.Add(1)
		go t.sweepLoop(cfg.SweepInterval)
	}
	return t
}

// Track ingests one raw error event. It never returns an error and never
// panics: malformed input is coerced to defaults and internal failures are
// logged and swallowed, so the host's own error handling is never
// destabilized by the tracker.
func (t *Tracker) Track(e Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tracker: recovered panic in Track", "panic", r)
		}
	}()

	cfg := t.cfg.Load()
	t.totalSeen.Add(1)

	if e.Message == "" {
		e.Message = "(no message)"
	}
	if e.Severity < SeverityDebug || e.Severity > SeverityCritical {
		e.Severity = SeverityError
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	normalized := Normalize(e.Message)
	fp := Fingerprint(e.Kind, normalized, e.Location, e.Context.Component)

	if !shouldSample(cfg.SampleRates, e.Severity) {
		t.droppedSampling.Add(1)
		return
	}

	now := e.Timestamp
	t.globalMu.Lock()
	globalOK := t.global.allow(now, cfg.RateLimitWindow, cfg.MaxEventsGlobal)
	t.globalMu.Unlock()

	var (
		limited bool
		created bool
		fire    bool
		newGrp  GroupSummary
		alert   Alert
	)
	t.store.withEntry(fp, func(en *entry) {
		en.lastTouched = now
		// The group counter advances even when the global cap already
		// rejected the event, so both windows observe the same traffic.
		groupOK := en.rl.allow(now, cfg.RateLimitWindow, cfg.MaxEventsPerGroup)
		if !globalOK || !groupOK {
			limited = true
			return
		}
		if en.group == nil {
			en.group = newGroup(fp, e, normalized, cfg.MaxSamples)
			created = true
			newGrp = en.group.summary(false)
		} else {
			en.group.record(e)
		}
		if en.alerts.shouldFire(en.group.count, now, cfg.AlertStride, cfg.AlertCooldown) {
			fire = true
			alert = newAlert(en.group, now)
		}
	})

	if limited {
		t.droppedRateLimit.Add(1)
		return
	}
	t.totalAccepted.Add(1)
	if created {
		t.groupCount.Add(1)
		if t.OnNewGroup != nil {
			t.OnNewGroup(newGrp)
		}
	}
	if fire {
		t.emit(alert)
	}
}

// emit delivers one alert outside any shard lock. Sink failures are
// non-fatal to ingestion.
func (t *Tracker) emit(a Alert) {
	t.alertsTriggered.Add(1)
	if t.OnAlert != nil {
		t.OnAlert(a)
	}
	if t.sink == nil {
		return
	}
	if err := t.sink.Deliver(a); err != nil {
		slog.Error("tracker: alert delivery failed", "error", err,
			"fingerprint", a.Fingerprint, "count", a.Count)
	}
}

// Stats are the O(1) counters maintained on the ingestion path.
type Stats struct {
	TotalSeen          uint64 `json:"total_seen"`
	TotalAccepted      uint64 `json:"total_accepted"`
	DroppedBySampling  uint64 `json:"dropped_by_sampling"`
	DroppedByRateLimit uint64 `json:"dropped_by_rate_limit"`
	GroupCount         int    `json:"group_count"`
	AlertsTriggered    uint64 `json:"alerts_triggered"`
}

func (t *Tracker) Stats() Stats {
	return Stats{
		TotalSeen:          t.totalSeen.Load(),
		TotalAccepted:      t.totalAccepted.Load(),
		DroppedBySampling:  t.droppedSampling.Load(),
		DroppedByRateLimit: t.droppedRateLimit.Load(),
		GroupCount:         int(t.groupCount.Load()),
		AlertsTriggered:    t.alertsTriggered.Load(),
	}
}

// ClearGroups drops all aggregate state immediately.
func (t *Tracker) ClearGroups() {
	removed := t.store.clear()
	t.groupCount.Add(-int64(removed))
}

// Cleanup evicts every group idle past the retention TTL as of now,
// together with its rate-limit and alert state, and returns how many
// groups were removed. Safe to run concurrently with ingestion.
func (t *Tracker) Cleanup(now time.Time) int {
	cfg := t.cfg.Load()
	removed := t.store.sweep(now.Add(-cfg.RetentionTTL))
	t.groupCount.Add(-int64(removed))
	if removed > 0 {
		slog.Info("tracker: retention sweep", "removed", removed)
	}
	return removed
}

// Configure atomically swaps the active config. In-flight Track calls
// finish under the config they loaded; existing sample rings keep their
// old capacity.
func (t *Tracker) Configure(cfg Config) {
	cfg = cfg.withDefaults()
	t.cfg.Store(&cfg)
}

// Config returns a copy of the active configuration.
func (t *Tracker) Config() Config {
	return *t.cfg.Load()
}

// Close stops the background sweeper. The tracker remains usable for
// ingestion afterwards; Close only ends maintenance.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() { close(t.done) })
	t.wg.Wait()
}

func (t *Tracker) sweepLoop(interval time.Duration) {
	defer t.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.Cleanup(time.Now())
		case <-t.done:
			return
		}
	}
}
