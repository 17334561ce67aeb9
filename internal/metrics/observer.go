package metrics

import (
	"context"
	"errors"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// Dispatch results as exported in the "result" label.
const (
	ResultSuccess          = "success"
	ResultExhausted        = "exhausted"
	ResultNoBackends       = "no_backends"
	ResultDeadlineExceeded = "deadline_exceeded"
	ResultCancelled        = "cancelled"
)

// Kind labels used for tasks outside the configured set.
const (
	KindOther   = "other"
	KindUnknown = "unknown"
)

// Observer exports dispatch events as Prometheus metrics. Task kinds come from
// callers, so only configured kinds are exported as-is.
type Observer struct {
	kinds map[string]struct{}
}

// NewObserver creates a metrics observer. Kinds not listed are reported as
// "other" and an empty kind as "unknown".
func NewObserver(knownKinds ...string) *Observer {
	kinds := make(map[string]struct{}, len(knownKinds))
	for _, k := range knownKinds {
		if k != "" {
			kinds[k] = struct{}{}
		}
	}
	return &Observer{kinds: kinds}
}

// KindLabel maps a task kind onto the bounded label set.
func (o *Observer) KindLabel(kind string) string {
	if kind == "" {
		return KindUnknown
	}
	if _, ok := o.kinds[kind]; ok {
		return kind
	}
	return KindOther
}

func (o *Observer) OnAttempt(_ context.Context, _ domain.Task, rec domain.AttemptRecord) {
	AttemptsTotal.WithLabelValues(rec.BackendID, rec.Outcome.String()).Inc()
	AttemptLatency.WithLabelValues(rec.BackendID).Observe(rec.Duration().Seconds())
}

func (o *Observer) OnResult(
	_ context.Context,
	task domain.Task,
	res *domain.ExecutionResult,
	err error,
) {
	kind := o.KindLabel(task.Kind)
	DispatchesTotal.WithLabelValues(kind, ResultLabel(res, err)).Inc()
	DispatchAttempts.WithLabelValues(kind).Observe(float64(res.TotalAttempts))
	if len(res.FallbackChain) > 1 {
		FallbacksTotal.WithLabelValues(kind).Inc()
	}
}

// ResultLabel names the terminal state of a dispatch.
func ResultLabel(res *domain.ExecutionResult, err error) string {
	switch {
	case errors.Is(err, domain.ErrNoAvailableBackends):
		return ResultNoBackends
	case errors.Is(err, domain.ErrDeadlineExceeded):
		return ResultDeadlineExceeded
	case err != nil:
		return ResultCancelled
	case res != nil && res.Success:
		return ResultSuccess
	default:
		return ResultExhausted
	}
}
