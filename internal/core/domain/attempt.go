package domain

import "time"

// AttemptRecord describes one invocation of one backend.
type AttemptRecord struct {
	BackendID     string      `json:"backend_id"`
	AttemptNumber int         `json:"attempt_number"` // 1-based within the backend
	StartedAt     time.Time   `json:"started_at"`
	EndedAt       time.Time   `json:"ended_at"`
	Outcome       OutcomeKind `json:"outcome"`
	Error         string      `json:"error,omitempty"` // set iff Outcome != OutcomeSuccess
}

// Duration returns how long the attempt took.
func (a AttemptRecord) Duration() time.Duration {
	return a.EndedAt.Sub(a.StartedAt)
}
