package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// StatsSource provides health stats on demand.
type StatsSource interface {
	AllStats() map[string]domain.HealthStats
}

// HealthCollector exports the health registry at scrape time, so the exported
// success rate is always derived from the current counters.
type HealthCollector struct {
	source StatsSource

	successRate *prometheus.Desc
	attempts    *prometheus.Desc
}

// NewHealthCollector creates a collector over source.
func NewHealthCollector(source StatsSource) *HealthCollector {
	return &HealthCollector{
		source: source,
		successRate: prometheus.NewDesc(
			"dispatcher_backend_success_rate",
			"Backend success rate (successes / total attempts)",
			[]string{"backend"}, nil,
		),
		attempts: prometheus.NewDesc(
			"dispatcher_backend_recorded_attempts",
			"Attempts recorded in the health registry",
			[]string{"backend", "result"}, nil,
		),
	}
}

func (c *HealthCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.successRate
	ch <- c.attempts
}

func (c *HealthCollector) Collect(ch chan<- prometheus.Metric) {
	for id, s := range c.source.AllStats() {
		ch <- prometheus.MustNewConstMetric(c.successRate, prometheus.GaugeValue, s.SuccessRate(), id)
		ch <- prometheus.MustNewConstMetric(c.attempts, prometheus.CounterValue, float64(s.Successes), id, "success")
		ch <- prometheus.MustNewConstMetric(c.attempts, prometheus.CounterValue, float64(s.Failures), id, "failure")
	}
}
