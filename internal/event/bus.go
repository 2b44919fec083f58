package event

import (
	"sync"

	"go.uber.org/zap"

	"github.com/clinicq/patient-queue/internal/domain"
)

// Bus fans committed domain events out to in-process subscribers (the
// broadcast dispatcher and the notifier). Publish is non-blocking: a
// subscriber whose buffer is full drops the event with a warning.
// Delivery is at-most-once; clients reconcile through the read APIs,
// so a dropped live event is a latency problem, not a correctness one.
type Bus struct {
	mu     sync.RWMutex
	subs   []*Subscription
	logger *zap.Logger
}

// Subscription is one subscriber's buffered event feed.
type Subscription struct {
	name string
	ch   chan domain.Event
}

// Events is the receive side of the subscription. Consumers range over
// it in their own Run loop and stop when their context is cancelled.
func (s *Subscription) Events() <-chan domain.Event { return s.ch }

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers a named subscriber with the given buffer size.
// Call during startup wiring, before any Publish.
func (b *Bus) Subscribe(name string, buffer int) *Subscription {
	sub := &Subscription{name: name, ch: make(chan domain.Event, buffer)}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
	return sub
}

// Publish delivers each event to every subscriber without blocking the
// caller. Called by the queue service after its transaction commits, off
// the mutating request's critical path.
func (b *Bus) Publish(events ...domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, e := range events {
		for _, sub := range b.subs {
			select {
			case sub.ch <- e:
			default:
				b.logger.Warn("subscriber buffer full, dropping event",
					zap.String("subscriber", sub.name),
					zap.String("kind", string(e.Kind())),
				)
			}
		}
	}
}
