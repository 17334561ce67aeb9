package domain

import "encoding/json"

// HealthStats holds cumulative counters for one backend. The success rate is
// derived on read and never stored.
type HealthStats struct {
	Successes     int64 `json:"successes"`
	Failures      int64 `json:"failures"`
	TotalAttempts int64 `json:"total_attempts"`
}

// SuccessRate returns Successes/TotalAttempts, or 0 when nothing was attempted.
func (s HealthStats) SuccessRate() float64 {
	if s.TotalAttempts == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.TotalAttempts)
}

// MarshalJSON adds the derived success_rate to the counters.
func (s HealthStats) MarshalJSON() ([]byte, error) {
	type counters HealthStats
	return json.Marshal(struct {
		counters
		SuccessRate float64 `json:"success_rate"`
	}{counters(s), s.SuccessRate()})
}
