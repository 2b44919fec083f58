package notify

import (
	"context"
	"math/rand"
	"time"
)

// BackoffPolicy computes retry delays: base × multiplier^attempt,
// capped at max, plus a small random jitter. Pure function of the
// attempt number so the retry schedule is unit-testable without real
// time delays.
type BackoffPolicy struct {
	Base       time.Duration
	Multiplier float64
	Max        time.Duration
	// JitterFrac is the fraction of the computed delay added as random
	// jitter, e.g. 0.2 adds up to 20%.
	JitterFrac float64

	// rnd is injected for deterministic tests; nil uses the global source.
	rnd *rand.Rand
}

// Delay returns the sleep before retry number attempt (0-based: the
// delay after the first failed try is Delay(0)).
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	d := float64(p.Base)
	for i := 0; i < attempt; i++ {
		d *= p.Multiplier
		if d >= float64(p.Max) {
			break
		}
	}
	if d > float64(p.Max) {
		d = float64(p.Max)
	}
	if p.JitterFrac > 0 {
		d += d * p.JitterFrac * p.random()
	}
	return time.Duration(d)
}

func (p BackoffPolicy) random() float64 {
	if p.rnd != nil {
		return p.rnd.Float64()
	}
	return rand.Float64()
}

// Sleeper abstracts the backoff sleep so tests run without waiting.
// Sleep returns ctx.Err() if the context is cancelled first.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper is the production Sleeper: a cooperative timer wait that
// never blocks other goroutines.
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
