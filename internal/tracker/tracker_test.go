package tracker

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// testConfig keeps everything and disables background maintenance so tests
// control time explicitly.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SampleRates = map[Severity]float64{
		SeverityCritical: 1.0,
		SeverityError:    1.0,
		SeverityWarning:  1.0,
		SeverityInfo:     1.0,
		SeverityDebug:    1.0,
	}
	cfg.MaxEventsPerGroup = 100000
	cfg.MaxEventsGlobal = 1000000
	cfg.SweepInterval = 0
	return cfg
}

type captureSink struct {
	mu     sync.Mutex
	alerts []Alert
}

func (c *captureSink) Deliver(a Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, a)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}

func TestTracker_EquivalentEventsShareGroup(t *testing.T) {
	tr := New(testConfig(), nil)
	defer tr.Close()

	tr.Track(Event{Kind: "DatabaseError", Message: "Connection timeout after 30s to host 10.0.0.5", Severity: SeverityError})
	tr.Track(Event{Kind: "DatabaseError", Message: "Connection timeout after 12s to host 10.0.0.9", Severity: SeverityError})

	stats := tr.Stats()
	if stats.GroupCount != 1 {
		t.Fatalf("expected 1 group, got %d", stats.GroupCount)
	}
	snap, err := tr.Metrics(WindowAll)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.TopGroups) != 1 || snap.TopGroups[0].Count != 2 {
		t.Fatalf("expected one group with count 2, got %+v", snap.TopGroups)
	}
}

func TestTracker_DistinctKindsSeparateGroups(t *testing.T) {
	tr := New(testConfig(), nil)
	defer tr.Close()

	tr.Track(Event{Kind: "DatabaseError", Message: "boom", Severity: SeverityError})
	tr.Track(Event{Kind: "NetworkError", Message: "boom", Severity: SeverityError})

	if got := tr.Stats().GroupCount; got != 2 {
		t.Fatalf("expected 2 groups, got %d", got)
	}
}

func TestTracker_SamplingRateZeroDropsAll(t *testing.T) {
	cfg := testConfig()
	cfg.SampleRates[SeverityDebug] = 0.0
	tr := New(cfg, nil)
	defer tr.Close()

	for i := 0; i < 10; i++ {
		tr.Track(Event{Kind: "Noise", Message: "debug spam", Severity: SeverityDebug})
	}

	stats := tr.Stats()
	if stats.DroppedBySampling != 10 {
		t.Fatalf("expected 10 dropped by sampling, got %d", stats.DroppedBySampling)
	}
	if stats.GroupCount != 0 {
		t.Fatalf("sampled-out events must not create groups, got %d", stats.GroupCount)
	}
}

func TestTracker_SamplingRateOneKeepsAll(t *testing.T) {
	tr := New(testConfig(), nil)
	defer tr.Close()

	for i := 0; i < 20; i++ {
		tr.Track(Event{Kind: "E", Message: "always kept", Severity: SeverityError})
	}
	stats := tr.Stats()
	if stats.TotalAccepted != 20 || stats.DroppedBySampling != 0 {
		t.Fatalf("rate 1.0 should keep everything: %+v", stats)
	}
}

func TestTracker_PerGroupRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEventsPerGroup = 10
	tr := New(cfg, nil)
	defer tr.Close()

	now := time.Now()
	for i := 0; i < 15; i++ {
		tr.Track(Event{Kind: "E", Message: "storm", Severity: SeverityError, Timestamp: now})
	}

	stats := tr.Stats()
	if stats.TotalAccepted != 10 {
		t.Fatalf("expected 10 accepted, got %d", stats.TotalAccepted)
	}
	if stats.DroppedByRateLimit != 5 {
		t.Fatalf("expected 5 dropped by rate limit, got %d", stats.DroppedByRateLimit)
	}
}

func TestTracker_RateLimitWindowResets(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEventsPerGroup = 2
	cfg.RateLimitWindow = time.Minute
	tr := New(cfg, nil)
	defer tr.Close()

	now := time.Now()
	for i := 0; i < 5; i++ {
		tr.Track(Event{Kind: "E", Message: "m", Severity: SeverityError, Timestamp: now})
	}
	for i := 0; i < 5; i++ {
		tr.Track(Event{Kind: "E", Message: "m", Severity: SeverityError, Timestamp: now.Add(time.Minute)})
	}

	if got := tr.Stats().TotalAccepted; got != 4 {
		t.Fatalf("expected 2 accepted per window, got %d total", got)
	}
}

func TestTracker_GlobalRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEventsGlobal = 5
	tr := New(cfg, nil)
	defer tr.Close()

	now := time.Now()
	for i := 0; i < 8; i++ {
		// Distinct fingerprints so the per-group cap never trips.
		tr.Track(Event{Kind: fmt.Sprintf("E%d", i), Message: "m", Severity: SeverityError, Timestamp: now})
	}

	stats := tr.Stats()
	if stats.TotalAccepted != 5 || stats.DroppedByRateLimit != 3 {
		t.Fatalf("expected 5 accepted / 3 limited, got %+v", stats)
	}
}

func TestTracker_AlertsAtStrideWithCooldownElapsed(t *testing.T) {
	cfg := testConfig()
	cfg.AlertStride = 10
	cfg.AlertCooldown = 5 * time.Minute
	sink := &captureSink{}
	tr := New(cfg, sink)
	defer tr.Close()

	now := time.Now()
	for i := 1; i <= 30; i++ {
		// Spread the crossings past each other's cooldown.
		tr.Track(Event{Kind: "E", Message: "m", Severity: SeverityError,
			Timestamp: now.Add(time.Duration(i) * time.Minute)})
	}

	if sink.count() != 3 {
		t.Fatalf("expected alerts at counts 10, 20, 30; got %d", sink.count())
	}
	if got := tr.Stats().AlertsTriggered; got != 3 {
		t.Fatalf("stats should record 3 alerts, got %d", got)
	}
}

func TestTracker_AlertCooldownSuppressesCrossings(t *testing.T) {
	cfg := testConfig()
	cfg.AlertStride = 10
	cfg.AlertCooldown = 5 * time.Minute
	sink := &captureSink{}
	tr := New(cfg, sink)
	defer tr.Close()

	now := time.Now()
	for i := 1; i <= 30; i++ {
		tr.Track(Event{Kind: "E", Message: "m", Severity: SeverityError, Timestamp: now})
	}

	if sink.count() != 1 {
		t.Fatalf("crossings inside the cooldown should be suppressed, got %d alerts", sink.count())
	}
}

func TestTracker_AlertCarriesGroupState(t *testing.T) {
	cfg := testConfig()
	cfg.AlertStride = 2
	sink := &captureSink{}
	tr := New(cfg, sink)
	defer tr.Close()

	tr.Track(Event{Kind: "PaymentError", Message: "charge failed for user 42", Severity: SeverityCritical, Context: Context{Component: "billing"}})
	tr.Track(Event{Kind: "PaymentError", Message: "charge failed for user 77", Severity: SeverityCritical, Context: Context{Component: "billing"}})

	if sink.count() != 1 {
		t.Fatalf("expected 1 alert, got %d", sink.count())
	}
	a := sink.alerts[0]
	if a.Kind != "PaymentError" || a.Count != 2 || a.Severity != SeverityCritical || a.Component != "billing" {
		t.Fatalf("alert missing group state: %+v", a)
	}
	if a.ID == "" || a.Fingerprint == "" {
		t.Fatalf("alert should carry id and fingerprint: %+v", a)
	}
}

func TestTracker_SinkFailureDoesNotAffectIngestion(t *testing.T) {
	cfg := testConfig()
	cfg.AlertStride = 1
	tr := New(cfg, SinkFunc(func(Alert) error { return errors.New("sink down") }))
	defer tr.Close()

	for i := 0; i < 5; i++ {
		tr.Track(Event{Kind: "E", Message: "m", Severity: SeverityError})
	}

	stats := tr.Stats()
	if stats.TotalAccepted != 5 {
		t.Fatalf("sink failures must not affect ingestion: %+v", stats)
	}
}

func TestTracker_MalformedInputCoerced(t *testing.T) {
	tr := New(testConfig(), nil)
	defer tr.Close()

	tr.Track(Event{Kind: "E", Message: "", Severity: Severity(99)})

	stats := tr.Stats()
	if stats.TotalAccepted != 1 || stats.GroupCount != 1 {
		t.Fatalf("malformed input should still be tracked: %+v", stats)
	}
	snap, _ := tr.Metrics(WindowAll)
	if snap.TopGroups[0].Severity != SeverityError {
		t.Fatalf("unknown severity should coerce to error, got %s", snap.TopGroups[0].Severity)
	}
}

func TestTracker_SampleRingBounded(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSamples = 10
	tr := New(cfg, nil)
	defer tr.Close()

	now := time.Now()
	for i := 0; i < 11; i++ {
		tr.Track(Event{Kind: "E", Message: fmt.Sprintf("boom %d", i), Severity: SeverityError,
			Timestamp: now.Add(time.Duration(i) * time.Second)})
	}

	snap, _ := tr.Metrics(WindowAll)
	samples := snap.RecentSamples
	if len(samples) != 10 {
		t.Fatalf("expected 10 retained samples, got %d", len(samples))
	}
	for _, s := range samples {
		if s.Message == "boom 0" {
			t.Fatal("oldest sample should have been evicted")
		}
	}
	if samples[0].Message != "boom 10" {
		t.Fatalf("newest sample should be first, got %s", samples[0].Message)
	}
}

func TestTracker_CleanupEvictsIdleGroups(t *testing.T) {
	tr := New(testConfig(), nil)
	defer tr.Close()

	now := time.Now()
	tr.Track(Event{Kind: "Old", Message: "stale", Severity: SeverityError, Timestamp: now.Add(-25 * time.Hour)})
	tr.Track(Event{Kind: "Fresh", Message: "active", Severity: SeverityError, Timestamp: now})

	if got := tr.Stats().GroupCount; got != 2 {
		t.Fatalf("expected 2 groups before cleanup, got %d", got)
	}

	removed := tr.Cleanup(now)
	if removed != 1 {
		t.Fatalf("expected 1 group removed, got %d", removed)
	}
	if got := tr.Stats().GroupCount; got != 1 {
		t.Fatalf("group_count should drop to 1, got %d", got)
	}

	// The surviving group is the active one.
	snap, _ := tr.Metrics(WindowAll)
	if snap.TopGroups[0].Kind != "Fresh" {
		t.Fatalf("active group should survive, got %s", snap.TopGroups[0].Kind)
	}
}

func TestTracker_ClearGroups(t *testing.T) {
	tr := New(testConfig(), nil)
	defer tr.Close()

	tr.Track(Event{Kind: "A", Message: "m", Severity: SeverityError})
	tr.Track(Event{Kind: "B", Message: "m", Severity: SeverityError})
	tr.ClearGroups()

	if got := tr.Stats().GroupCount; got != 0 {
		t.Fatalf("expected 0 groups after clear, got %d", got)
	}
}

func TestTracker_ConcurrentSameFingerprintNoLostUpdates(t *testing.T) {
	tr := New(testConfig(), nil)
	defer tr.Close()

	const goroutines = 20
	const perGoroutine = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				tr.Track(Event{Kind: "E", Message: "hot path failure", Severity: SeverityError})
			}
		}()
	}
	wg.Wait()

	snap, _ := tr.Metrics(WindowAll)
	if len(snap.TopGroups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(snap.TopGroups))
	}
	if got := snap.TopGroups[0].Count; got != goroutines*perGoroutine {
		t.Fatalf("lost updates: expected %d, got %d", goroutines*perGoroutine, got)
	}
}

func TestTracker_ConcurrentMixedFingerprints(t *testing.T) {
	tr := New(testConfig(), nil)
	defer tr.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 30; j++ {
				tr.Track(Event{Kind: fmt.Sprintf("E%d", n), Message: "m", Severity: SeverityError})
			}
		}(i)
	}
	wg.Wait()

	stats := tr.Stats()
	if stats.GroupCount != 10 || stats.TotalAccepted != 300 {
		t.Fatalf("expected 10 groups / 300 accepted, got %+v", stats)
	}
}

func TestTracker_OnNewGroupHook(t *testing.T) {
	tr := New(testConfig(), nil)
	defer tr.Close()

	var mu sync.Mutex
	var created []GroupSummary
	tr.OnNewGroup = func(g GroupSummary) {
		mu.Lock()
		created = append(created, g)
		mu.Unlock()
	}

	tr.Track(Event{Kind: "A", Message: "m", Severity: SeverityError})
	tr.Track(Event{Kind: "A", Message: "m", Severity: SeverityError})
	tr.Track(Event{Kind: "B", Message: "m", Severity: SeverityError})

	mu.Lock()
	defer mu.Unlock()
	if len(created) != 2 {
		t.Fatalf("hook should fire once per new group, got %d", len(created))
	}
}

func TestTracker_ConfigureSwapsAtomically(t *testing.T) {
	tr := New(testConfig(), nil)
	defer tr.Close()

	cfg := tr.Config()
	cfg.SampleRates = map[Severity]float64{SeverityDebug: 0.0}
	tr.Configure(cfg)

	tr.Track(Event{Kind: "E", Message: "m", Severity: SeverityDebug})
	if got := tr.Stats().DroppedBySampling; got != 1 {
		t.Fatalf("reconfigured sampling should apply, got %d dropped", got)
	}
}
