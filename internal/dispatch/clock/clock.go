// Package clock abstracts time so backoff can run on a virtual clock in tests.
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock supplies the current time and a cancellable sleep.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Real is the wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Sleep waits for d or until ctx is done.
func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Virtual is a manually driven clock. Sleep returns immediately after
// advancing the clock by d, so backoff sequences run instantly.
type Virtual struct {
	mu     sync.Mutex
	now    time.Time
	slept  []time.Duration
	onTick func(now time.Time)
}

// NewVirtual creates a virtual clock starting at start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Sleep advances the clock by d.
func (v *Virtual) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	v.slept = append(v.slept, d)
	v.mu.Unlock()
	v.Advance(d)
	return nil
}

// Advance moves the clock forward.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	if d > 0 {
		v.now = v.now.Add(d)
	}
	now, fn := v.now, v.onTick
	v.mu.Unlock()

	if fn != nil {
		fn(now)
	}
}

// Slept returns every duration passed to Sleep, in order.
func (v *Virtual) Slept() []time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]time.Duration, len(v.slept))
	copy(out, v.slept)
	return out
}

// OnAdvance registers a hook called after every Advance.
func (v *Virtual) OnAdvance(fn func(now time.Time)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onTick = fn
}
