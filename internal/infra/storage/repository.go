package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// DefaultListLimit applies when ListRecent is called with a non-positive limit.
const DefaultListLimit = 50

var (
	// ErrExecutionNotFound is returned when no execution exists for a task id
	ErrExecutionNotFound = errors.New("execution not found")
)

// Execution is the persisted form of one dispatch.
type Execution struct {
	TaskID         string                 `json:"task_id" db:"task_id"`
	Kind           string                 `json:"kind" db:"kind"`
	Success        bool                   `json:"success" db:"success"`
	WinningBackend string                 `json:"winning_backend,omitempty" db:"winning_backend"`
	FallbackChain  []string               `json:"fallback_chain"`
	Attempts       []domain.AttemptRecord `json:"attempts"`
	TotalAttempts  int                    `json:"total_attempts" db:"total_attempts"`
	Error          string                 `json:"error,omitempty" db:"error"`
	StartedAt      time.Time              `json:"started_at" db:"started_at"`
	EndedAt        time.Time              `json:"ended_at" db:"ended_at"`
}

// NewExecution builds the record for a finished dispatch. err is the
// dispatch-level error, if any.
func NewExecution(task domain.Task, res *domain.ExecutionResult, err error) *Execution {
	e := &Execution{
		TaskID:         res.TaskID,
		Kind:           task.Kind,
		Success:        res.Success,
		WinningBackend: res.WinningBackend,
		FallbackChain:  res.FallbackChain,
		Attempts:       res.Attempts,
		TotalAttempts:  res.TotalAttempts,
		StartedAt:      res.StartedAt,
		EndedAt:        res.EndedAt,
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Duration returns the wall time of the dispatch.
func (e *Execution) Duration() time.Duration {
	return e.EndedAt.Sub(e.StartedAt)
}

// ExecutionRepository handles execution history storage
type ExecutionRepository interface {
	// Save stores an execution, replacing any previous one with the same task id
	Save(ctx context.Context, exec *Execution) error

	// Get retrieves an execution by task id
	Get(ctx context.Context, taskID string) (*Execution, error)

	// ListRecent returns the newest executions first, at most limit of them
	ListRecent(ctx context.Context, limit int) ([]*Execution, error)

	// DeleteBefore removes executions that ended before the cutoff
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
