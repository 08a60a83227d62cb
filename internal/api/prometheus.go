package api

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fattits30-dev/error-tracker/internal/tracker"
)

// StatsCollector exports the tracker's O(1) counters as Prometheus
// metrics. It reads Stats() at scrape time, so it adds no work to the
// ingestion path.
type StatsCollector struct {
	tracker *tracker.Tracker

	seen      *prometheus.Desc
	accepted  *prometheus.Desc
	sampled   *prometheus.Desc
	limited   *prometheus.Desc
	groups    *prometheus.Desc
	alerts    *prometheus.Desc
}

func NewStatsCollector(t *tracker.Tracker) *StatsCollector {
	return &StatsCollector{
		tracker: t,
		seen: prometheus.NewDesc("errortracker_events_seen_total",
			"Total events handed to the tracker.", nil, nil),
		accepted: prometheus.NewDesc("errortracker_events_accepted_total",
			"Events that passed sampling and rate limiting.", nil, nil),
		sampled: prometheus.NewDesc("errortracker_events_dropped_sampling_total",
			"Events dropped by the sampler.", nil, nil),
		limited: prometheus.NewDesc("errortracker_events_dropped_ratelimit_total",
			"Events dropped by the rate limiter.", nil, nil),
		groups: prometheus.NewDesc("errortracker_groups",
			"Live error groups in memory.", nil, nil),
		alerts: prometheus.NewDesc("errortracker_alerts_triggered_total",
			"Alerts fired since start.", nil, nil),
	}
}

func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.seen
	ch <- c.accepted
	ch <- c.sampled
	ch <- c.limited
	ch <- c.groups
	ch <- c.alerts
}

func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.tracker.Stats()
	ch <- prometheus.MustNewConstMetric(c.seen, prometheus.CounterValue, float64(s.TotalSeen))
	ch <- prometheus.MustNewConstMetric(c.accepted, prometheus.CounterValue, float64(s.TotalAccepted))
	ch <- prometheus.MustNewConstMetric(c.sampled, prometheus.CounterValue, float64(s.DroppedBySampling))
	ch <- prometheus.MustNewConstMetric(c.limited, prometheus.CounterValue, float64(s.DroppedByRateLimit))
	ch <- prometheus.MustNewConstMetric(c.groups, prometheus.GaugeValue, float64(s.GroupCount))
	ch <- prometheus.MustNewConstMetric(c.alerts, prometheus.CounterValue, float64(s.AlertsTriggered))
}
