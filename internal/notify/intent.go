package notify

import (
	"context"
	"errors"
	"fmt"
)

// IntentKind identifies the templated message a send intent carries.
type IntentKind string

const (
	// KindCallNow tells the patron they are being called right now.
	KindCallNow IntentKind = "call_now"
	// KindGetReady warns the patron they are within the ready threshold.
	KindGetReady IntentKind = "get_ready"
	// KindConfirmation acknowledges a successful check-in.
	KindConfirmation IntentKind = "check_in_confirmation"
)

// Intent is one "send message to patron" request produced by the
// notifier and consumed by the delivery workers.
type Intent struct {
	Kind     IntentKind
	PatronID string
	Address  string
	Body     string
}

// ErrQueueFull is returned by the non-blocking Enqueue when the target
// urgency tier is saturated; the intent is dropped (delivery is a best-
// effort side channel and must never block queue mutations).
var ErrQueueFull = errors.New("intent queue is at capacity")

// IntentQueue dispatches intents to one of three buffered channels by
// urgency. "You're being called" must never wait behind a backlog of
// check-in confirmations, so workers drain tiers in strict order:
// call_now, then get_ready, then confirmations.
type IntentQueue struct {
	call    chan Intent
	ready   chan Intent
	confirm chan Intent
}

func NewIntentQueue() *IntentQueue {
	return &IntentQueue{
		call:    make(chan Intent, 256),
		ready:   make(chan Intent, 512),
		confirm: make(chan Intent, 1024),
	}
}

// Enqueue places an intent on its urgency tier without blocking.
func (q *IntentQueue) Enqueue(in Intent) error {
	var target chan Intent
	switch in.Kind {
	case KindCallNow:
		target = q.call
	case KindGetReady:
		target = q.ready
	case KindConfirmation:
		target = q.confirm
	default:
		return fmt.Errorf("unknown intent kind %q", in.Kind)
	}
	select {
	case target <- in:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue blocks until an intent is available or ctx is cancelled.
//
// The double-select pattern guarantees urgent tiers are served first:
// a non-blocking pass drains call_now, then get_ready, before the
// goroutine enters a fair blocking select across all tiers. Returns
// (Intent{}, false) when ctx is cancelled.
func (q *IntentQueue) Dequeue(ctx context.Context) (Intent, bool) {
	select {
	case in := <-q.call:
		return in, true
	default:
	}
	select {
	case in := <-q.call:
		return in, true
	case in := <-q.ready:
		return in, true
	default:
	}

	select {
	case in := <-q.call:
		return in, true
	case in := <-q.ready:
		return in, true
	case in := <-q.confirm:
		return in, true
	case <-ctx.Done():
		return Intent{}, false
	}
}

// Depths returns the number of intents waiting in each tier.
func (q *IntentQueue) Depths() (call, ready, confirm int) {
	return len(q.call), len(q.ready), len(q.confirm)
}
