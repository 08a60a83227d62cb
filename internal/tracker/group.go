package tracker

import "time"

// sampleRing is a fixed-capacity circular buffer of retained event samples.
// It never allocates per insert; the oldest sample is overwritten once the
// ring is full. Not self-synchronizing: callers hold the owning shard lock.
type sampleRing struct {
	data []Sample
	head int
	full bool
}

func newSampleRing(capacity int) *sampleRing {
	return &sampleRing{data: make([]Sample, capacity)}
}

func (r *sampleRing) add(s Sample) {
	r.data[r.head] = s
	r.head = (r.head + 1) % len(r.data)
	if r.head == 0 {
		r.full = true
	}
}

func (r *sampleRing) len() int {
	if r.full {
		return len(r.data)
	}
	return r.head
}

// all returns the retained samples oldest first.
func (r *sampleRing) all() []Sample {
	n := r.len()
	if n == 0 {
		return nil
	}
	start := 0
	if r.full {
		start = r.head
	}
	out := make([]Sample, n)
	for i := 0; i < n; i++ {
		out[i] = r.data[(start+i)%len(r.data)]
	}
	return out
}

// group is the mutable aggregate for one fingerprint. It is owned by its
// shard entry and only touched under the shard lock; readers get a
// GroupSummary copy instead.
type group struct {
	fingerprint string
	kind        string
	message     string // normalized representative message
	location    string
	component   string
	severity    Severity
	firstSeen   time.Time
	lastSeen    time.Time
	count       uint64
	samples     *sampleRing
	users       map[string]struct{}
}

func newGroup(fp string, e Event, normalized string, maxSamples int) *group {
	g := &group{
		fingerprint: fp,
		kind:        e.Kind,
		message:     normalized,
		location:    e.Location,
		component:   e.Context.Component,
		severity:    e.Severity,
		firstSeen:   e.Timestamp,
		lastSeen:    e.Timestamp,
		samples:     newSampleRing(maxSamples),
	}
	g.record(e)
	return g
}

// record folds one accepted event into the aggregate: count, last seen,
// severity escalation, sample ring and affected-user set.
func (g *group) record(e Event) {
	g.count++
	g.lastSeen = e.Timestamp
	if e.Severity > g.severity {
		g.severity = e.Severity
	}
	g.samples.add(Sample{
		Message:   e.Message,
		Severity:  e.Severity,
		Location:  e.Location,
		UserID:    e.Context.UserID,
		Timestamp: e.Timestamp,
	})
	if e.Context.UserID != "" {
		if g.users == nil {
			g.users = make(map[string]struct{})
		}
		g.users[e.Context.UserID] = struct{}{}
	}
}

// GroupSummary is a read-only copy of a group's aggregate state, safe to
// hold outside the shard lock.
type GroupSummary struct {
	Fingerprint   string    `json:"fingerprint"`
	Kind          string    `json:"kind"`
	Message       string    `json:"message"`
	Location      string    `json:"location,omitempty"`
	Component     string    `json:"component,omitempty"`
	Severity      Severity  `json:"severity"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	Count         uint64    `json:"count"`
	AffectedUsers int       `json:"affected_users"`
	Samples       []Sample  `json:"samples,omitempty"`
}

func (g *group) summary(withSamples bool) GroupSummary {
	s := GroupSummary{
		Fingerprint:   g.fingerprint,
		Kind:          g.kind,
		Message:       g.message,
		Location:      g.location,
		Component:     g.component,
		Severity:      g.severity,
		FirstSeen:     g.firstSeen,
		LastSeen:      g.lastSeen,
		Count:         g.count,
		AffectedUsers: len(g.users),
	}
	if withSamples {
		s.Samples = g.samples.all()
	}
	return s
}
