package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/clinicq/patient-queue/internal/notify"
)

// KindLimiters holds one token bucket limiter per intent kind.
// Each limiter enforces a steady-state rate against the SMS gateway.
// Splitting by kind keeps a backlog of check-in confirmations from
// consuming the budget urgent "you're being called" messages need.
// Burst equals the rate so no extra burst capacity accumulates.
type KindLimiters struct {
	limiters map[notify.IntentKind]*rate.Limiter
}

// New creates a KindLimiters with ratePerSec tokens per second per kind.
func New(ratePerSec int) *KindLimiters {
	r := rate.Limit(ratePerSec)
	burst := ratePerSec

	return &KindLimiters{
		limiters: map[notify.IntentKind]*rate.Limiter{
			notify.KindCallNow:      rate.NewLimiter(r, burst),
			notify.KindGetReady:     rate.NewLimiter(r, burst),
			notify.KindConfirmation: rate.NewLimiter(r, burst),
		},
	}
}

// Wait blocks until the kind's limiter grants a token. Called by each
// delivery worker immediately before sending to the provider. Returns a
// non-nil error only if ctx is cancelled while waiting.
func (kl *KindLimiters) Wait(ctx context.Context, kind notify.IntentKind) error {
	return kl.limiters[kind].Wait(ctx)
}
