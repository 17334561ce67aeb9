package domain

import "time"

// ExecutionResult is the final outcome of one dispatch.
type ExecutionResult struct {
	TaskID         string          `json:"task_id"`
	Success        bool            `json:"success"`
	WinningBackend string          `json:"winning_backend,omitempty"`
	Result         any             `json:"result,omitempty"`
	FallbackChain  []string        `json:"fallback_chain"`
	Attempts       []AttemptRecord `json:"attempts"`
	TotalAttempts  int             `json:"total_attempts"`
	StartedAt      time.Time       `json:"started_at"`
	EndedAt        time.Time       `json:"ended_at"`
}

// AttemptsFor counts the attempts made against a backend.
func (r *ExecutionResult) AttemptsFor(backendID string) int {
	n := 0
	for _, a := range r.Attempts {
		if a.BackendID == backendID {
			n++
		}
	}
	return n
}

// LastAttempt returns the final attempt, if any.
func (r *ExecutionResult) LastAttempt() (AttemptRecord, bool) {
	if len(r.Attempts) == 0 {
		return AttemptRecord{}, false
	}
	return r.Attempts[len(r.Attempts)-1], true
}
