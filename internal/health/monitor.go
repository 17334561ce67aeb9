package health

import (
	"github.com/vietddude/dispatcher/internal/backend"
	"github.com/vietddude/dispatcher/internal/core/domain"
)

// StatsSource provides per-backend health counters.
type StatsSource interface {
	Stats(backendID string) domain.HealthStats
}

// Thresholds decide when a backend's success rate is reported as degraded or
// critical. Rates are only judged once MinAttempts have been recorded.
type Thresholds struct {
	Degraded    float64
	Critical    float64
	MinAttempts int64
}

// DefaultThresholds are used when a Monitor is created with zero thresholds.
var DefaultThresholds = Thresholds{
	Degraded:    0.8,
	Critical:    0.3,
	MinAttempts: 10,
}

// Monitor builds health reports from the backend registry and health stats.
// Reports are advisory; they never influence routing.
type Monitor struct {
	backends   *backend.Registry
	stats      StatsSource
	thresholds Thresholds
}

// NewMonitor creates a new health monitor.
func NewMonitor(backends *backend.Registry, stats StatsSource, thresholds Thresholds) *Monitor {
	if thresholds == (Thresholds{}) {
		thresholds = DefaultThresholds
	}
	return &Monitor{
		backends:   backends,
		stats:      stats,
		thresholds: thresholds,
	}
}

// CheckHealth reports the status of every registered backend.
func (m *Monitor) CheckHealth() HealthReport {
	report := HealthReport{
		SystemStatus: StatusHealthy,
		Backends:     make(map[string]BackendHealth),
	}

	enabledCount := 0
	criticalCount := 0

	for _, info := range m.backends.List() {
		stats := m.stats.Stats(info.ID)
		h := BackendHealth{
			BackendID: info.ID,
			Enabled:   info.Enabled,
			Stats:     stats,
			Status:    m.evaluate(stats),
		}

		if !info.Enabled {
			h.Status = StatusDisabled
		} else {
			enabledCount++
			switch h.Status {
			case StatusCritical:
				criticalCount++
				report.SystemStatus = StatusDegraded
			case StatusDegraded:
				report.SystemStatus = StatusDegraded
			}
		}

		report.Backends[info.ID] = h
	}

	// Nothing can be dispatched
	if enabledCount == 0 || criticalCount == enabledCount {
		report.SystemStatus = StatusCritical
	}

	return report
}

func (m *Monitor) evaluate(s domain.HealthStats) SystemStatus {
	if s.TotalAttempts < m.thresholds.MinAttempts {
		return StatusHealthy
	}

	rate := s.SuccessRate()
	switch {
	case rate < m.thresholds.Critical:
		return StatusCritical
	case rate < m.thresholds.Degraded:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}
