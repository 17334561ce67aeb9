// Package retry computes per-backend attempt plans and classifies errors into
// transient and terminal failures.
package retry

import "time"

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 100 * time.Millisecond
)

// Policy defines how many attempts a single backend gets and how long to
// wait before each one.
type Policy struct {
	MaxRetries int           // attempts per backend, including the first
	BaseDelay  time.Duration // wait before attempt 2; doubles afterwards
	MaxDelay   time.Duration // cap on any single delay; 0 = no cap
}

// Step is one planned attempt.
type Step struct {
	Attempt int
	Delay   time.Duration
}

// Default returns the documented policy: 3 attempts, 100ms base delay.
func Default() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
	}
}

// Normalize returns Default for a zero Policy and otherwise repairs invalid
// fields: non-positive MaxRetries and negative delays.
func (p Policy) Normalize() Policy {
	if p == (Policy{}) {
		return Default()
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay < 0 {
		p.MaxDelay = 0
	}
	return p
}

// Plan returns the attempt sequence 1..MaxRetries with the delay to wait
// before each attempt.
func (p Policy) Plan() []Step {
	if p.MaxRetries <= 0 {
		return nil
	}
	steps := make([]Step, 0, p.MaxRetries)
	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		steps = append(steps, Step{Attempt: attempt, Delay: p.DelayBefore(attempt)})
	}
	return steps
}

// DelayBefore returns the wait before the given 1-based attempt:
// 0 for the first, BaseDelay*2^(n-2) afterwards.
func (p Policy) DelayBefore(attempt int) time.Duration {
	if attempt <= 1 || p.BaseDelay <= 0 {
		return 0
	}

	delay := p.BaseDelay
	for i := 2; i < attempt; i++ {
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
		// Saturate instead of overflowing on absurd attempt counts.
		if delay > time.Duration(1<<62)/2 {
			return time.Duration(1<<63 - 1)
		}
		delay *= 2
	}

	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Total returns the sum of all planned delays.
func (p Policy) Total() time.Duration {
	var total time.Duration
	for _, s := range p.Plan() {
		total += s.Delay
	}
	return total
}
