package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/dispatcher/internal/infra/storage"
)

// ExecutionRepo keeps execution history in process memory.
type ExecutionRepo struct {
	mu    sync.RWMutex
	execs map[string]*storage.Execution
}

func NewExecutionRepo() *ExecutionRepo {
	return &ExecutionRepo{
		execs: make(map[string]*storage.Execution),
	}
}

// clone copies exec so callers never share slices with the store.
func clone(exec *storage.Execution) *storage.Execution {
	cp := *exec
	cp.FallbackChain = slices.Clone(exec.FallbackChain)
	cp.Attempts = slices.Clone(exec.Attempts)
	return &cp
}

func (r *ExecutionRepo) Save(ctx context.Context, exec *storage.Execution) error {
	cp := clone(exec)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.execs[exec.TaskID] = cp
	return nil
}

func (r *ExecutionRepo) Get(ctx context.Context, taskID string) (*storage.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exec, ok := r.execs[taskID]
	if !ok {
		return nil, storage.ErrExecutionNotFound
	}
	return clone(exec), nil
}

func (r *ExecutionRepo) ListRecent(ctx context.Context, limit int) ([]*storage.Execution, error) {
	r.mu.RLock()
	out := make([]*storage.Execution, 0, len(r.execs))
	for _, exec := range r.execs {
		out = append(out, clone(exec))
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *storage.Execution) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.TaskID, b.TaskID)
	})

	if limit <= 0 {
		limit = storage.DefaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ExecutionRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, exec := range r.execs {
		if exec.EndedAt.Before(cutoff) {
			delete(r.execs, id)
			n++
		}
	}
	return n, nil
}
