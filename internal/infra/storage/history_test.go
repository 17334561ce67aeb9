package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

type stubRepo struct {
	mu    sync.Mutex
	saved []*Execution
	err   error
	ctxOK bool
}

func (s *stubRepo) Save(ctx context.Context, exec *Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxOK = ctx.Err() == nil
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, exec)
	return nil
}

func (s *stubRepo) Get(context.Context, string) (*Execution, error) {
	return nil, ErrExecutionNotFound
}

func (s *stubRepo) ListRecent(context.Context, int) ([]*Execution, error) { return nil, nil }

func (s *stubRepo) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, nil }

func sampleResult() *domain.ExecutionResult {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return &domain.ExecutionResult{
		TaskID:         "t1",
		Success:        true,
		WinningBackend: "b",
		FallbackChain:  []string{"a", "b"},
		Attempts: []domain.AttemptRecord{
			{BackendID: "a", AttemptNumber: 1, Outcome: domain.OutcomeTerminalFailure, Error: "nope"},
			{BackendID: "b", AttemptNumber: 1, Outcome: domain.OutcomeSuccess},
		},
		TotalAttempts: 2,
		StartedAt:     start,
		EndedAt:       start.Add(250 * time.Millisecond),
	}
}

func TestNewExecution(t *testing.T) {
	task := domain.Task{ID: "t1", Kind: "summarize"}

	e := NewExecution(task, sampleResult(), nil)
	if e.TaskID != "t1" || e.Kind != "summarize" || !e.Success || e.WinningBackend != "b" {
		t.Errorf("Unexpected execution: %+v", e)
	}
	if e.TotalAttempts != 2 || len(e.Attempts) != 2 || e.Error != "" {
		t.Errorf("Unexpected attempts: %+v", e)
	}
	if e.Duration() != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", e.Duration())
	}

	failed := NewExecution(task, &domain.ExecutionResult{TaskID: "t1"}, fmt.Errorf("dispatch: %w", domain.ErrNoAvailableBackends))
	if failed.Error == "" {
		t.Error("Expected dispatch error to be recorded")
	}
}

func TestHistoryObserver_SavesEvenAfterCancel(t *testing.T) {
	repo := &stubRepo{}
	obs := NewHistoryObserver(repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	obs.OnResult(ctx, domain.Task{ID: "t1", Kind: "k"}, sampleResult(), context.Canceled)

	if len(repo.saved) != 1 {
		t.Fatalf("Expected 1 saved execution, got %d", len(repo.saved))
	}
	if !repo.ctxOK {
		t.Error("Expected save context to be detached from the cancelled dispatch")
	}
	if repo.saved[0].Error == "" {
		t.Error("Expected cancellation to be recorded")
	}
}

func TestHistoryObserver_SaveErrorIsSwallowed(t *testing.T) {
	repo := &stubRepo{err: errors.New("db down")}
	obs := NewHistoryObserver(repo, nil)

	// Must not panic
	obs.OnAttempt(context.Background(), domain.Task{}, domain.AttemptRecord{})
	obs.OnResult(context.Background(), domain.Task{ID: "t1"}, sampleResult(), nil)
}
