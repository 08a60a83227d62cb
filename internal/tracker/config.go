package tracker

import "time"

// Config tunes the whole engine. The zero value of any field falls back to
// its default, so callers can set only what they care about. A Config is
// copied on Configure and never mutated by the engine afterwards.
type Config struct {
	// SampleRates maps severity to the probability [0,1] that an event of
	// that severity is recorded at all.
	SampleRates map[Severity]float64

	// RateLimitWindow is the fixed window over which the per-group and
	// global event caps apply.
	RateLimitWindow time.Duration
	// MaxEventsPerGroup caps accepted events per fingerprint per window.
	MaxEventsPerGroup int
	// MaxEventsGlobal caps accepted events across all fingerprints per window.
	MaxEventsGlobal int

	// AlertStride fires an alert every Nth occurrence of a group.
	AlertStride int
	// AlertCooldown is the minimum gap between two alerts for one group.
	AlertCooldown time.Duration

	// RetentionTTL is how long an idle group survives before the sweeper
	// evicts it.
	RetentionTTL time.Duration
	// SweepInterval is how often the background sweeper runs. Zero disables
	// the background goroutine; Cleanup can still be called on demand.
	SweepInterval time.Duration

	// MaxSamples bounds the per-group sample ring.
	MaxSamples int

	// TopGroups and RecentSamples bound the metrics snapshot.
	TopGroups     int
	RecentSamples int
}

// DefaultConfig returns the engine defaults: keep everything at error level
// and above, sample the noisy severities down, 100 events per group and
// 1000 overall per 60s window, alert every 10th occurrence with a 5 minute
// cooldown, and evict groups idle for 24 hours.
func DefaultConfig() Config {
	return Config{
		SampleRates: map[Severity]float64{
			SeverityCritical: 1.0,
			SeverityError:    1.0,
			SeverityWarning:  0.5,
			SeverityInfo:     0.1,
			SeverityDebug:    0.01,
		},
		RateLimitWindow:   60 * time.Second,
		MaxEventsPerGroup: 100,
		MaxEventsGlobal:   1000,
		AlertStride:       10,
		AlertCooldown:     5 * time.Minute,
		RetentionTTL:      24 * time.Hour,
		SweepInterval:     time.Hour,
		MaxSamples:        10,
		TopGroups:         10,
		RecentSamples:     20,
	}
}

// withDefaults fills unset fields and clamps sampling rates into [0,1].
// Explicit zero sampling rates are kept: rate 0 means "drop everything".
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.SampleRates == nil {
		c.SampleRates = def.SampleRates
	}
	rates := make(map[Severity]float64, len(c.SampleRates))
	for sev, rate := range c.SampleRates {
		if rate < 0 {
			rate = 0
		}
		if rate > 1 {
			rate = 1
		}
		rates[sev] = rate
	}
	c.SampleRates = rates
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = def.RateLimitWindow
	}
	if c.MaxEventsPerGroup <= 0 {
		c.MaxEventsPerGroup = def.MaxEventsPerGroup
	}
	if c.MaxEventsGlobal <= 0 {
		c.MaxEventsGlobal = def.MaxEventsGlobal
	}
	if c.AlertStride <= 0 {
		c.AlertStride = def.AlertStride
	}
	if c.AlertCooldown <= 0 {
		c.AlertCooldown = def.AlertCooldown
	}
	if c.RetentionTTL <= 0 {
		c.RetentionTTL = def.RetentionTTL
	}
	if c.MaxSamples <= 0 {
		c.MaxSamples = def.MaxSamples
	}
	if c.TopGroups <= 0 {
		c.TopGroups = def.TopGroups
	}
	if c.RecentSamples <= 0 {
		c.RecentSamples = def.RecentSamples
	}
	return c
}
