package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/infra/storage"
	"github.com/vietddude/dispatcher/internal/infra/storage/memory"
)

func TestPruner_DeletesOlderThanRetention(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewExecutionRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_ = repo.Save(ctx, &storage.Execution{TaskID: "old", EndedAt: now.Add(-48 * time.Hour)})
	_ = repo.Save(ctx, &storage.Execution{TaskID: "recent", EndedAt: now.Add(-time.Hour)})

	p := NewPruner(24*time.Hour, repo, nil)
	p.now = func() time.Time { return now }
	p.prune(ctx)

	if _, err := repo.Get(ctx, "old"); !errors.Is(err, storage.ErrExecutionNotFound) {
		t.Error("Expected old execution to be pruned")
	}
	if _, err := repo.Get(ctx, "recent"); err != nil {
		t.Errorf("Expected recent execution to remain: %v", err)
	}
}

func TestPruner_DisabledReturnsImmediately(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewPruner(0, memory.NewExecutionRepo(), nil).Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected Start to return when retention is disabled")
	}
}

type staticStats map[string]domain.HealthStats

func (s staticStats) AllStats() map[string]domain.HealthStats { return s }

type recordingSink struct {
	mu    sync.Mutex
	saves []map[string]domain.HealthStats
	err   error
}

func (r *recordingSink) SaveStats(_ context.Context, stats map[string]domain.HealthStats, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saves = append(r.saves, stats)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func TestSnapshotter_SavesPeriodicallyAndOnShutdown(t *testing.T) {
	src := staticStats{"a": {Successes: 1, TotalAttempts: 1}}
	sink := &recordingSink{}
	s := NewSnapshotter(10*time.Millisecond, src, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for sink.count() < 2 {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for snapshots")
		case <-time.After(5 * time.Millisecond):
		}
	}

	before := sink.count()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if sink.count() != before+1 {
		t.Errorf("Expected a final snapshot on shutdown, got %d -> %d", before, sink.count())
	}
}

func TestSnapshotter_SaveErrorIsNotFatal(t *testing.T) {
	s := NewSnapshotter(time.Second, staticStats{}, &recordingSink{err: errors.New("redis down")}, nil)
	s.Save(context.Background())
}

func TestSnapshotter_DisabledInterval(t *testing.T) {
	s := NewSnapshotter(0, staticStats{}, &recordingSink{}, nil)
	if err := s.Run(context.Background()); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}
