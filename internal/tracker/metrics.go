package tracker

import (
	"fmt"
	"sort"
	"time"
)

// Window selects the time range of a metrics snapshot.
type Window string

const (
	WindowHour Window = "1h"
	WindowDay  Window = "24h"
	WindowAll  Window = "all"
)

// ParseWindow maps a query string to a Window. Unknown values are a caller
// error, unlike ingestion which never rejects.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case WindowHour, WindowDay, WindowAll:
		return Window(s), nil
	case "":
		return WindowAll, nil
	default:
		return "", fmt.Errorf("unknown metrics window %q (want 1h, 24h or all)", s)
	}
}

func (w Window) duration() time.Duration {
	switch w {
	case WindowHour:
		return time.Hour
	case WindowDay:
		return 24 * time.Hour
	default:
		return 0
	}
}

// KindStat is one row of the distribution-by-kind breakdown.
type KindStat struct {
	Kind    string  `json:"kind"`
	Count   uint64  `json:"count"`
	Percent float64 `json:"percent"`
}

// MetricsSnapshot is a windowed, read-only summary over the group store.
// Totals are computed at group-count granularity: a group whose last
// occurrence falls inside the window contributes its whole count.
type MetricsSnapshot struct {
	Window      Window    `json:"window"`
	GeneratedAt time.Time `json:"generated_at"`
	GroupCount  int       `json:"group_count"`
	TotalErrors uint64    `json:"total_errors"`
	// MeanSecondsSinceLast averages, over the in-window groups, how long
	// ago each group last occurred.
	MeanSecondsSinceLast float64        `json:"mean_seconds_since_last"`
	RatePerSecond        float64        `json:"rate_per_second"`
	AffectedUsers        int            `json:"affected_users"`
	ByKind               []KindStat     `json:"by_kind"`
	TopGroups            []GroupSummary `json:"top_groups"`
	RecentSamples        []Sample       `json:"recent_samples"`
}

// Metrics computes a snapshot for the given window without mutating any
// state. The scan is last_seen-bounded: concurrent writers may land an
// event mid-scan, which is acceptable per the engine's consistency model.
func (t *Tracker) Metrics(w Window) (MetricsSnapshot, error) {
	if _, err := ParseWindow(string(w)); err != nil {
		return MetricsSnapshot{}, err
	}

	now := time.Now()
	var since time.Time
	if d := w.duration(); d > 0 {
		since = now.Add(-d)
	}

	cfg := t.cfg.Load()
	snap := MetricsSnapshot{Window: w, GeneratedAt: now}

	users := make(map[string]struct{})
	byKind := make(map[string]uint64)
	var groups []GroupSummary
	var samples []Sample
	var idleSeconds float64
	earliest := now

	t.store.forEachGroup(func(g *group) {
		if !since.IsZero() && g.lastSeen.Before(since) {
			return
		}
		s := g.summary(true)
		groups = append(groups, s)
		snap.TotalErrors += s.Count
		byKind[s.Kind] += s.Count
		for u := range g.users {
			users[u] = struct{}{}
		}
		for _, smp := range s.Samples {
			if since.IsZero() || !smp.Timestamp.Before(since) {
				samples = append(samples, smp)
			}
		}
		if s.FirstSeen.Before(earliest) {
			earliest = s.FirstSeen
		}
		idleSeconds += now.Sub(s.LastSeen).Seconds()
	})

	snap.GroupCount = len(groups)
	snap.AffectedUsers = len(users)
	if snap.GroupCount > 0 {
		snap.MeanSecondsSinceLast = idleSeconds / float64(snap.GroupCount)
	}

	// Rate: occurrences per second over the window, or over the observed
	// lifetime for the all-time window.
	elapsed := w.duration()
	if elapsed == 0 {
		elapsed = now.Sub(earliest)
	}
	if elapsed > 0 && snap.TotalErrors > 0 {
		snap.RatePerSecond = float64(snap.TotalErrors) / elapsed.Seconds()
	}

	snap.ByKind = make([]KindStat, 0, len(byKind))
	for kind, count := range byKind {
		pct := 0.0
		if snap.TotalErrors > 0 {
			pct = float64(count) / float64(snap.TotalErrors) * 100
		}
		snap.ByKind = append(snap.ByKind, KindStat{Kind: kind, Count: count, Percent: pct})
	}
	sort.Slice(snap.ByKind, func(i, j int) bool {
		if snap.ByKind[i].Count != snap.ByKind[j].Count {
			return snap.ByKind[i].Count > snap.ByKind[j].Count
		}
		return snap.ByKind[i].Kind < snap.ByKind[j].Kind
	})

	sort.Slice(groups, func(i, j int) bool { return groups[i].Count > groups[j].Count })
	if len(groups) > cfg.TopGroups {
		groups = groups[:cfg.TopGroups]
	}
	// Top groups carry aggregate state only; samples are reported separately.
	for i := range groups {
		groups[i].Samples = nil
	}
	snap.TopGroups = groups

	sort.Slice(samples, func(i, j int) bool { return samples[i].Timestamp.After(samples[j].Timestamp) })
	if len(samples) > cfg.RecentSamples {
		samples = samples[:cfg.RecentSamples]
	}
	snap.RecentSamples = samples

	return snap, nil
}
