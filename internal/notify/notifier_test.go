package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/clinicq/patient-queue/internal/domain"
	"github.com/clinicq/patient-queue/internal/event"
)

func TestNotifier_Handle(t *testing.T) {
	newNotifier := func() (*Notifier, *IntentQueue) {
		q := NewIntentQueue()
		return NewNotifier(nil, q, 3, zap.NewNop()), q
	}
	mustDequeue := func(t *testing.T, q *IntentQueue) Intent {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		in, ok := q.Dequeue(ctx)
		if !ok {
			t.Fatal("expected an intent")
		}
		return in
	}

	t.Run("checked_in produces confirmation", func(t *testing.T) {
		n, q := newNotifier()
		n.handle(domain.CheckedInEvent{
			PatronID:             "p1",
			PatronName:           "Ana Diaz",
			PatronPhone:          "5551234567",
			Position:             4,
			EstimatedWaitMinutes: 45,
		})

		in := mustDequeue(t, q)
		if in.Kind != KindConfirmation || in.Address != "5551234567" {
			t.Fatalf("unexpected intent %+v", in)
		}
		if !strings.Contains(in.Body, "position 4") || !strings.Contains(in.Body, "45 minutes") {
			t.Fatalf("body missing position or estimate: %q", in.Body)
		}
	})

	t.Run("checked_in inside threshold also produces get_ready", func(t *testing.T) {
		n, q := newNotifier()
		n.handle(domain.CheckedInEvent{
			PatronID:             "p1",
			PatronName:           "Ana Diaz",
			PatronPhone:          "5551234567",
			Position:             2,
			EstimatedWaitMinutes: 15,
		})

		// The get_ready tier outranks confirmations, so it dequeues first.
		first := mustDequeue(t, q)
		if first.Kind != KindGetReady {
			t.Fatalf("first kind = %s, want get_ready", first.Kind)
		}
		if !strings.Contains(first.Body, "number 2") {
			t.Fatalf("body missing position: %q", first.Body)
		}
		second := mustDequeue(t, q)
		if second.Kind != KindConfirmation {
			t.Fatalf("second kind = %s, want confirmation", second.Kind)
		}
	})

	t.Run("called produces call_now", func(t *testing.T) {
		n, q := newNotifier()
		n.handle(domain.CalledEvent{PatronID: "p1", PatronPhone: "5551234567"})

		in := mustDequeue(t, q)
		if in.Kind != KindCallNow {
			t.Fatalf("kind = %s, want call_now", in.Kind)
		}
	})

	t.Run("position update inside threshold produces get_ready", func(t *testing.T) {
		n, q := newNotifier()
		n.handle(domain.PositionUpdatedEvent{PatronID: "p1", PatronPhone: "5551234567", Position: 3})

		in := mustDequeue(t, q)
		if in.Kind != KindGetReady {
			t.Fatalf("kind = %s, want get_ready", in.Kind)
		}
		if !strings.Contains(in.Body, "number 3") {
			t.Fatalf("body missing new position: %q", in.Body)
		}
	})

	t.Run("position update outside threshold is silent", func(t *testing.T) {
		n, q := newNotifier()
		n.handle(domain.PositionUpdatedEvent{PatronID: "p1", Position: 4})

		call, ready, confirm := q.Depths()
		if call+ready+confirm != 0 {
			t.Fatalf("expected no intents, got depths %d/%d/%d", call, ready, confirm)
		}
	})

	t.Run("terminal and refresh events are silent", func(t *testing.T) {
		n, q := newNotifier()
		n.handle(domain.CompletedEvent{PatronID: "p1"})
		n.handle(domain.NoShowEvent{PatronID: "p1"})
		n.handle(domain.QueueRefreshedEvent{})

		call, ready, confirm := q.Depths()
		if call+ready+confirm != 0 {
			t.Fatalf("expected no intents, got depths %d/%d/%d", call, ready, confirm)
		}
	})
}

func TestNotifier_RunStopsOnCancel(t *testing.T) {
	bus := event.NewBus(zap.NewNop())
	sub := bus.Subscribe("notifier", 8)
	n := NewNotifier(sub, NewIntentQueue(), 3, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Run(ctx)
		close(done)
	}()

	bus.Publish(domain.CalledEvent{PatronID: "p1", PatronPhone: "5551234567"})
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier did not stop after cancellation")
	}
}
