package domain

import (
	"encoding/json"
	"time"
)

// Task is a unit of work submitted for dispatch. It is treated as immutable
// once handed to the dispatcher.
type Task struct {
	ID       string          `json:"id"`
	Kind     string          `json:"kind"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Deadline time.Time       `json:"deadline,omitzero"`
}

// HasDeadline reports whether the task carries a deadline.
func (t Task) HasDeadline() bool {
	return !t.Deadline.IsZero()
}

// Expired reports whether the deadline has passed at now.
func (t Task) Expired(now time.Time) bool {
	return t.HasDeadline() && !now.Before(t.Deadline)
}
