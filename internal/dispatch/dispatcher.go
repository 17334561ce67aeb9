package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/dispatcher/internal/backend"
	"github.com/vietddude/dispatcher/internal/core/domain"
	"github.com/vietddude/dispatcher/internal/dispatch/chain"
	"github.com/vietddude/dispatcher/internal/dispatch/clock"
	"github.com/vietddude/dispatcher/internal/dispatch/health"
	"github.com/vietddude/dispatcher/internal/dispatch/retry"
)

// Config holds the collaborators of a Dispatcher.
type Config struct {
	// Backends is the registration source (required).
	Backends *backend.Registry

	// Health receives one record per attempt. A fresh registry is created if nil.
	Health *health.Registry

	// DefaultOrder is the fallback chain used when a call has no override.
	DefaultOrder []string

	// Policy is normalized; the zero value means 3 attempts with 100ms base delay.
	Policy retry.Policy

	Clock    clock.Clock
	Logger   *slog.Logger
	Observer Observer
}

// Dispatcher executes tasks against a fallback chain of backends.
type Dispatcher struct {
	backends     *backend.Registry
	health       *health.Registry
	defaultOrder []string
	policy       retry.Policy
	clock        clock.Clock
	logger       *slog.Logger
	observer     Observer
}

// New creates a Dispatcher.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Backends == nil {
		return nil, fmt.Errorf("dispatcher: backend registry is required")
	}

	reg := cfg.Health
	if reg == nil {
		reg = health.NewRegistry()
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var observer Observer = nopObserver{}
	if cfg.Observer != nil {
		observer = cfg.Observer
	}

	order := make([]string, len(cfg.DefaultOrder))
	copy(order, cfg.DefaultOrder)

	return &Dispatcher{
		backends:     cfg.Backends,
		health:       reg,
		defaultOrder: order,
		policy:       cfg.Policy.Normalize(),
		clock:        clk,
		logger:       logger,
		observer:     observer,
	}, nil
}

// Health returns the registry the dispatcher records into.
func (d *Dispatcher) Health() *health.Registry {
	return d.health
}

// Policy returns the effective retry policy.
func (d *Dispatcher) Policy() retry.Policy {
	return d.policy
}

// AllStats returns health stats for every backend attempted so far.
func (d *Dispatcher) AllStats() map[string]domain.HealthStats {
	return d.health.AllStats()
}

// run accumulates the state of one Execute call.
type run struct {
	task     domain.Task
	chain    []string
	attempts []domain.AttemptRecord
	result   any
	winner   string
}

func (r *run) tried(id string) {
	if n := len(r.chain); n == 0 || r.chain[n-1] != id {
		r.chain = append(r.chain, id)
	}
}

// Execute dispatches task.
//
// The returned result is never nil. err is nil both on success and when every
// backend legitimately failed (Success == false); it wraps
// domain.ErrNoAvailableBackends when the chain resolved empty,
// domain.ErrDeadlineExceeded when the task deadline passed before an attempt,
// or the context error when ctx ended during backoff. In those cases the
// result holds the attempts completed so far.
func (d *Dispatcher) Execute(
	ctx context.Context,
	task domain.Task,
	override []string,
) (*domain.ExecutionResult, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	logger := d.logger.With("task_id", task.ID, "kind", task.Kind)
	startedAt := d.clock.Now()
	r := &run{task: task}

	// Snapshot so toggles during this dispatch do not affect it.
	enabled, invokers := d.backends.Snapshot()

	order, err := chain.Resolve(d.defaultOrder, override, enabled)
	if err != nil {
		logger.Warn("No backend available for task", "override", override)
		return d.finish(ctx, r, startedAt, fmt.Errorf("dispatch task %s: %w", task.ID, err))
	}

	logger.Debug("Dispatching task", "chain", order, "max_retries", d.policy.MaxRetries)

	for _, id := range order {
		invoker := invokers[id]

	attempts:
		for attempt := 1; attempt <= d.policy.MaxRetries; attempt++ {
			if task.Expired(d.clock.Now()) {
				return d.abortDeadline(ctx, r, startedAt, logger, id, attempt)
			}

			if err := ctx.Err(); err != nil {
				return d.abortContext(ctx, r, startedAt, logger, id, attempt, err)
			}

			if delay := d.policy.DelayBefore(attempt); delay > 0 {
				if err := d.clock.Sleep(ctx, delay); err != nil {
					return d.abortContext(ctx, r, startedAt, logger, id, attempt, err)
				}
				// The backoff itself may have run past the deadline.
				if task.Expired(d.clock.Now()) {
					return d.abortDeadline(ctx, r, startedAt, logger, id, attempt)
				}
			}

			r.tried(id)
			outcome := d.attempt(ctx, r, id, attempt, invoker)

			switch outcome.Kind {
			case domain.OutcomeSuccess:
				r.winner = id
				r.result = outcome.Result
				logger.Info("Task succeeded", "backend", id, "attempt", attempt,
					"total_attempts", len(r.attempts))
				return d.finish(ctx, r, startedAt, nil)

			case domain.OutcomeTerminalFailure:
				logger.Warn("Terminal failure, advancing chain", "backend", id,
					"attempt", attempt, "error", outcome.Err)
				break attempts

			case domain.OutcomeTransientFailure:
				if attempt == d.policy.MaxRetries {
					logger.Warn("Backend exhausted, advancing chain", "backend", id,
						"attempts", attempt, "error", outcome.Err)
				} else {
					logger.Debug("Transient failure, retrying", "backend", id,
						"attempt", attempt, "error", outcome.Err)
				}
			}
		}
	}

	logger.Warn("All backends failed", "chain", r.chain, "total_attempts", len(r.attempts))
	return d.finish(ctx, r, startedAt, nil)
}

// attempt invokes one backend once and records the outcome.
func (d *Dispatcher) attempt(
	ctx context.Context,
	r *run,
	backendID string,
	attempt int,
	invoker backend.Invoker,
) domain.Outcome {
	start := d.clock.Now()
	outcome := invoker.Invoke(ctx, r.task)
	end := d.clock.Now()

	// Outcomes built without the constructors still need an error, and an
	// unknown kind must not consume the retry budget.
	switch outcome.Kind {
	case domain.OutcomeSuccess:
	case domain.OutcomeTransientFailure:
		outcome = domain.TransientFailure(outcome.Err)
	case domain.OutcomeTerminalFailure:
		outcome = domain.TerminalFailure(outcome.Err)
	default:
		outcome = domain.TerminalFailure(fmt.Errorf("backend returned unknown outcome %v", outcome.Kind))
	}

	rec := domain.AttemptRecord{
		BackendID:     backendID,
		AttemptNumber: attempt,
		StartedAt:     start,
		EndedAt:       end,
		Outcome:       outcome.Kind,
	}
	if !outcome.OK() {
		rec.Error = outcome.Err.Error()
	}

	r.attempts = append(r.attempts, rec)
	d.health.Record(backendID, outcome.Kind)
	d.observer.OnAttempt(ctx, r.task, rec)

	return outcome
}

func (d *Dispatcher) abortDeadline(
	ctx context.Context,
	r *run,
	startedAt time.Time,
	logger *slog.Logger,
	backendID string,
	attempt int,
) (*domain.ExecutionResult, error) {
	logger.Warn("Task deadline exceeded", "backend", backendID, "attempt", attempt,
		"deadline", r.task.Deadline, "completed_attempts", len(r.attempts))
	err := fmt.Errorf("dispatch task %s: %w", r.task.ID, domain.ErrDeadlineExceeded)
	return d.finish(ctx, r, startedAt, err)
}

func (d *Dispatcher) abortContext(
	ctx context.Context,
	r *run,
	startedAt time.Time,
	logger *slog.Logger,
	backendID string,
	attempt int,
	cause error,
) (*domain.ExecutionResult, error) {
	logger.Warn("Dispatch cancelled", "backend", backendID, "attempt", attempt,
		"completed_attempts", len(r.attempts), "error", cause)
	err := fmt.Errorf("dispatch task %s: %w", r.task.ID, cause)
	return d.finish(ctx, r, startedAt, err)
}

// finish builds the immutable result and notifies observers.
func (d *Dispatcher) finish(
	ctx context.Context,
	r *run,
	startedAt time.Time,
	err error,
) (*domain.ExecutionResult, error) {
	res := &domain.ExecutionResult{
		TaskID:         r.task.ID,
		Success:        r.winner != "",
		WinningBackend: r.winner,
		Result:         r.result,
		FallbackChain:  r.chain,
		Attempts:       r.attempts,
		TotalAttempts:  len(r.attempts),
		StartedAt:      startedAt,
		EndedAt:        d.clock.Now(),
	}
	if res.FallbackChain == nil {
		res.FallbackChain = []string{}
	}
	if res.Attempts == nil {
		res.Attempts = []domain.AttemptRecord{}
	}

	d.observer.OnResult(ctx, r.task, res, err)
	return res, err
}
