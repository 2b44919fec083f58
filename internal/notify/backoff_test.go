package notify

import (
	"context"
	"testing"
	"time"
)

func TestBackoffPolicy_Delay(t *testing.T) {
	p := BackoffPolicy{Base: 2 * time.Second, Multiplier: 2, Max: 60 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{3, 16 * time.Second},
		{4, 32 * time.Second},
		{5, 60 * time.Second},
		{10, 60 * time.Second},
	}

	for _, tc := range tests {
		if got := p.Delay(tc.attempt); got != tc.want {
			t.Errorf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestBackoffPolicy_Jitter(t *testing.T) {
	p := BackoffPolicy{Base: 10 * time.Second, Multiplier: 2, Max: time.Minute, JitterFrac: 0.2}

	for i := 0; i < 50; i++ {
		d := p.Delay(0)
		if d < 10*time.Second || d > 12*time.Second {
			t.Fatalf("jittered delay %v outside [10s, 12s]", d)
		}
	}
}

func TestTimerSleeper_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := TimerSleeper{}.Sleep(ctx, time.Minute)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestClassification(t *testing.T) {
	transient := Transient(context.DeadlineExceeded)
	permanent := Permanent(context.DeadlineExceeded)
	unclassified := context.DeadlineExceeded

	if !IsTransient(transient) {
		t.Fatal("wrapped transient error should retry")
	}
	if IsTransient(permanent) {
		t.Fatal("wrapped permanent error should not retry")
	}
	if !IsTransient(unclassified) {
		t.Fatal("unclassified errors default to retryable")
	}
}
