package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestVirtual_SleepAdvances(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v := NewVirtual(start)

	if err := v.Sleep(context.Background(), 150*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := v.Now().Sub(start); got != 150*time.Millisecond {
		t.Errorf("expected clock advanced by 150ms, got %v", got)
	}
	if slept := v.Slept(); len(slept) != 1 || slept[0] != 150*time.Millisecond {
		t.Errorf("unexpected sleep log: %v", slept)
	}
}

func TestVirtual_SleepHonoursCancel(t *testing.T) {
	v := NewVirtual(time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := v.Sleep(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestReal_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := Real{}.Sleep(ctx, time.Minute)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("sleep did not return on cancellation")
	}
}
