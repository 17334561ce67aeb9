package retry

import (
	"testing"
	"time"
)

func TestPolicy_DefaultPlan(t *testing.T) {
	plan := Default().Plan()

	want := []Step{
		{Attempt: 1, Delay: 0},
		{Attempt: 2, Delay: 100 * time.Millisecond},
		{Attempt: 3, Delay: 200 * time.Millisecond},
	}
	if len(plan) != len(want) {
		t.Fatalf("expected %d steps, got %d", len(want), len(plan))
	}
	for i := range want {
		if plan[i] != want[i] {
			t.Errorf("step %d: expected %+v, got %+v", i, want[i], plan[i])
		}
	}
}

func TestPolicy_DelayBefore(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		attempt int
		expect  time.Duration
	}{
		{"first attempt never waits", Policy{MaxRetries: 5, BaseDelay: time.Second}, 1, 0},
		{"second waits base", Policy{MaxRetries: 5, BaseDelay: time.Second}, 2, time.Second},
		{"fourth doubles twice", Policy{MaxRetries: 5, BaseDelay: time.Second}, 4, 4 * time.Second},
		{"capped", Policy{MaxRetries: 10, BaseDelay: time.Second, MaxDelay: 3 * time.Second}, 6, 3 * time.Second},
		{"zero base", Policy{MaxRetries: 3}, 3, 0},
		{"huge attempt saturates", Policy{MaxRetries: 200, BaseDelay: time.Second}, 200, time.Duration(1<<63 - 1)},
	}

	for _, tt := range tests {
		if got := tt.policy.DelayBefore(tt.attempt); got != tt.expect {
			t.Errorf("%s: DelayBefore(%d) = %v, want %v", tt.name, tt.attempt, got, tt.expect)
		}
	}
}

func TestPolicy_SingleAttemptMeansNoRetries(t *testing.T) {
	plan := Policy{MaxRetries: 1, BaseDelay: time.Second}.Plan()
	if len(plan) != 1 || plan[0].Delay != 0 {
		t.Errorf("expected one immediate attempt, got %+v", plan)
	}
}

func TestPolicy_Normalize(t *testing.T) {
	p := Policy{MaxRetries: 0, BaseDelay: -1, MaxDelay: -5}.Normalize()
	if p.MaxRetries != DefaultMaxRetries {
		t.Errorf("expected default max retries, got %d", p.MaxRetries)
	}
	if p.BaseDelay != DefaultBaseDelay {
		t.Errorf("expected default base delay, got %v", p.BaseDelay)
	}
	if p.MaxDelay != 0 {
		t.Errorf("expected uncapped delay, got %v", p.MaxDelay)
	}

	if got := (Policy{}).Normalize(); got != Default() {
		t.Errorf("expected zero policy to normalize to default, got %+v", got)
	}
	if got := (Policy{MaxRetries: 2}).Normalize(); got.BaseDelay != 0 {
		t.Errorf("explicit zero base delay must be kept, got %v", got.BaseDelay)
	}

	if got := (Policy{MaxRetries: 0}).Plan(); got != nil {
		t.Errorf("expected empty plan, got %+v", got)
	}
}

func TestPolicy_Total(t *testing.T) {
	if got := Default().Total(); got != 300*time.Millisecond {
		t.Errorf("expected 300ms total backoff, got %v", got)
	}
}
