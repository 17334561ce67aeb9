package dispatch

import (
	"context"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// Observer receives dispatch events. Calls are synchronous and happen after
// the health registry was updated; observers cannot change the outcome.
type Observer interface {
	OnAttempt(ctx context.Context, task domain.Task, rec domain.AttemptRecord)
	OnResult(ctx context.Context, task domain.Task, res *domain.ExecutionResult, err error)
}

// MultiObserver fans events out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnAttempt(ctx context.Context, task domain.Task, rec domain.AttemptRecord) {
	for _, o := range m {
		o.OnAttempt(ctx, task, rec)
	}
}

func (m MultiObserver) OnResult(
	ctx context.Context,
	task domain.Task,
	res *domain.ExecutionResult,
	err error,
) {
	for _, o := range m {
		o.OnResult(ctx, task, res, err)
	}
}

type nopObserver struct{}

func (nopObserver) OnAttempt(context.Context, domain.Task, domain.AttemptRecord) {}
func (nopObserver) OnResult(context.Context, domain.Task, *domain.ExecutionResult, error) {
}
