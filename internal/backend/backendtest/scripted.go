// Package backendtest provides scripted backends for tests.
package backendtest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vietddude/dispatcher/internal/core/domain"
)

// ErrTransient and ErrTerminal are the default errors used by the helpers.
var (
	ErrTransient = errors.New("transient: upstream timeout")
	ErrTerminal  = errors.New("terminal: task kind not supported")
)

// Scripted returns outcomes from a fixed script, one per call. Once the
// script is exhausted the last outcome repeats.
type Scripted struct {
	mu      sync.Mutex
	script  []domain.Outcome
	calls   int
	tasks   []domain.Task
	latency time.Duration
	onCall  func(call int)
}

// NewScripted creates a backend following script.
func NewScripted(script ...domain.Outcome) *Scripted {
	return &Scripted{script: script}
}

// AlwaysTransient fails transiently forever.
func AlwaysTransient() *Scripted {
	return NewScripted(domain.TransientFailure(ErrTransient))
}

// AlwaysTerminal fails terminally forever.
func AlwaysTerminal() *Scripted {
	return NewScripted(domain.TerminalFailure(ErrTerminal))
}

// AlwaysSucceed succeeds with result on every call.
func AlwaysSucceed(result any) *Scripted {
	return NewScripted(domain.Success(result))
}

// WithLatency makes every call block for d (real time).
func (s *Scripted) WithLatency(d time.Duration) *Scripted {
	s.latency = d
	return s
}

// OnCall registers a hook run at the start of every call with its 1-based index.
func (s *Scripted) OnCall(fn func(call int)) *Scripted {
	s.onCall = fn
	return s
}

// Invoke returns the next scripted outcome.
func (s *Scripted) Invoke(ctx context.Context, task domain.Task) domain.Outcome {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.tasks = append(s.tasks, task)
	var out domain.Outcome
	switch {
	case len(s.script) == 0:
		out = domain.Success(nil)
	case call <= len(s.script):
		out = s.script[call-1]
	default:
		out = s.script[len(s.script)-1]
	}
	fn := s.onCall
	s.mu.Unlock()

	if fn != nil {
		fn(call)
	}
	if s.latency > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(s.latency):
		}
	}
	return out
}

// Calls returns how many times Invoke ran.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Tasks returns the tasks passed to Invoke, in order.
func (s *Scripted) Tasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}
