package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/infra/storage"
)

// ExecutionRepo implements storage.ExecutionRepository using PostgreSQL.
type ExecutionRepo struct {
	db *DB
}

// NewExecutionRepo creates a new PostgreSQL execution repository.
func NewExecutionRepo(db *DB) *ExecutionRepo {
	return &ExecutionRepo{db: db}
}

// executionRow mirrors the executions table. JSONB columns travel as bytes.
type executionRow struct {
	TaskID         string    `db:"task_id"`
	Kind           string    `db:"kind"`
	Success        bool      `db:"success"`
	WinningBackend string    `db:"winning_backend"`
	FallbackChain  []byte    `db:"fallback_chain"`
	Attempts       []byte    `db:"attempts"`
	TotalAttempts  int       `db:"total_attempts"`
	Error          string    `db:"error"`
	StartedAt      time.Time `db:"started_at"`
	EndedAt        time.Time `db:"ended_at"`
}

func toRow(e *storage.Execution) (*executionRow, error) {
	chain := e.FallbackChain
	if chain == nil {
		chain = []string{}
	}
	attempts := e.Attempts
	if attempts == nil {
		attempts = []domain.AttemptRecord{}
	}

	chainJSON, err := json.Marshal(chain)
	if err != nil {
		return nil, fmt.Errorf("marshal fallback chain: %w", err)
	}
	attemptsJSON, err := json.Marshal(attempts)
	if err != nil {
		return nil, fmt.Errorf("marshal attempts: %w", err)
	}

	return &executionRow{
		TaskID:         e.TaskID,
		Kind:           e.Kind,
		Success:        e.Success,
		WinningBackend: e.WinningBackend,
		FallbackChain:  chainJSON,
		Attempts:       attemptsJSON,
		TotalAttempts:  e.TotalAttempts,
		Error:          e.Error,
		StartedAt:      e.StartedAt.UTC(),
		EndedAt:        e.EndedAt.UTC(),
	}, nil
}

func (row *executionRow) toExecution() (*storage.Execution, error) {
	e := &storage.Execution{
		TaskID:         row.TaskID,
		Kind:           row.Kind,
		Success:        row.Success,
		WinningBackend: row.WinningBackend,
		TotalAttempts:  row.TotalAttempts,
		Error:          row.Error,
		StartedAt:      row.StartedAt,
		EndedAt:        row.EndedAt,
	}
	if err := json.Unmarshal(row.FallbackChain, &e.FallbackChain); err != nil {
		return nil, fmt.Errorf("unmarshal fallback chain: %w", err)
	}
	if err := json.Unmarshal(row.Attempts, &e.Attempts); err != nil {
		return nil, fmt.Errorf("unmarshal attempts: %w", err)
	}
	return e, nil
}

// Save upserts an execution by task id.
func (r *ExecutionRepo) Save(ctx context.Context, exec *storage.Execution) error {
	row, err := toRow(exec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO executions (task_id, kind, success, winning_backend, fallback_chain, attempts,
			total_attempts, error, started_at, ended_at)
		VALUES (:task_id, :kind, :success, :winning_backend, :fallback_chain, :attempts,
			:total_attempts, :error, :started_at, :ended_at)
		ON CONFLICT (task_id) DO UPDATE SET
			kind = EXCLUDED.kind,
			success = EXCLUDED.success,
			winning_backend = EXCLUDED.winning_backend,
			fallback_chain = EXCLUDED.fallback_chain,
			attempts = EXCLUDED.attempts,
			total_attempts = EXCLUDED.total_attempts,
			error = EXCLUDED.error,
			started_at = EXCLUDED.started_at,
			ended_at = EXCLUDED.ended_at
	`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}
	return nil
}

// Get retrieves an execution by task id.
func (r *ExecutionRepo) Get(ctx context.Context, taskID string) (*storage.Execution, error) {
	query := `
		SELECT task_id, kind, success, winning_backend, fallback_chain, attempts,
			total_attempts, error, started_at, ended_at
		FROM executions
		WHERE task_id = $1
	`

	var row executionRow
	err := r.db.GetContext(ctx, &row, query, taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrExecutionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}
	return row.toExecution()
}

// ListRecent returns the newest executions first.
func (r *ExecutionRepo) ListRecent(ctx context.Context, limit int) ([]*storage.Execution, error) {
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}
	query := `
		SELECT task_id, kind, success, winning_backend, fallback_chain, attempts,
			total_attempts, error, started_at, ended_at
		FROM executions
		ORDER BY started_at DESC, task_id
		LIMIT $1
	`

	var rows []executionRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	out := make([]*storage.Execution, 0, len(rows))
	for i := range rows {
		e, err := rows[i].toExecution()
		if err != nil {
			return nil, fmt.Errorf("execution %s: %w", rows[i].TaskID, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// DeleteBefore removes executions that ended before cutoff.
func (r *ExecutionRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM executions WHERE ended_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete executions: %w", err)
	}
	return res.RowsAffected()
}
