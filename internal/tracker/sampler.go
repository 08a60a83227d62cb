package tracker

import "math/rand"

// shouldSample decides whether an event of the given severity is recorded,
// by drawing a uniform value against the configured per-severity rate.
// Severities without a configured rate are always kept.
func shouldSample(rates map[Severity]float64, sev Severity) bool {
	rate, ok := rates[sev]
	if !ok || rate >= 1 {
		return true
	}
	if rate <= 0 {
		return false
	}
	return rand.Float64() < rate
}
