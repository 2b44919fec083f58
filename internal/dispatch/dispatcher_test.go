package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/clinicq/patient-queue/internal/domain"
	"github.com/clinicq/patient-queue/internal/event"
	"github.com/clinicq/patient-queue/internal/ws"
)

// fakeBroadcaster records every broadcast in order. Mutex-guarded so the
// Run test can poll from another goroutine.
type fakeBroadcaster struct {
	mu   sync.Mutex
	sent []broadcast
}

type broadcast struct {
	room string
	env  ws.Envelope
}

func (f *fakeBroadcaster) Broadcast(room string, message []byte) {
	var env ws.Envelope
	_ = json.Unmarshal(message, &env)
	f.mu.Lock()
	f.sent = append(f.sent, broadcast{room: room, env: env})
	f.mu.Unlock()
}

func (f *fakeBroadcaster) byRoom(room string) []ws.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ws.Envelope
	for _, b := range f.sent {
		if b.room == room {
			out = append(out, b.env)
		}
	}
	return out
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newDispatcher() (*Dispatcher, *fakeBroadcaster) {
	fb := &fakeBroadcaster{}
	return New(nil, fb, 3, zap.NewNop()), fb
}

func TestDispatcher_CheckedIn(t *testing.T) {
	t.Run("outside threshold", func(t *testing.T) {
		d, fb := newDispatcher()

		d.dispatch(domain.CheckedInEvent{
			PatronID:             "p1",
			PatronName:           "Ana Diaz",
			PatronPhone:          "5551234567",
			Position:             5,
			EstimatedWaitMinutes: 60,
		})

		staff := fb.byRoom(ws.RoomStaff)
		if len(staff) != 1 || staff[0].Type != ws.MsgNewPatient {
			t.Fatalf("staff got %+v, want one new_patient", staff)
		}
		var detail map[string]any
		if err := json.Unmarshal(staff[0].Payload, &detail); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if detail["patron_name"] != "Ana Diaz" || detail["position"] != float64(5) {
			t.Fatalf("staff payload missing detail: %v", detail)
		}
		if _, leaked := detail["patron_phone"]; leaked {
			t.Fatal("phone number must not be broadcast")
		}

		patients := fb.byRoom(ws.RoomPatients)
		if len(patients) != 1 || patients[0].Type != ws.MsgQueueUpdate {
			t.Fatalf("patients got %+v, want one queue_update", patients)
		}
		var generic map[string]any
		_ = json.Unmarshal(patients[0].Payload, &generic)
		if _, leaked := generic["patron_name"]; leaked {
			t.Fatal("patient-facing update must stay generic")
		}
		if fb.count() != 2 {
			t.Fatalf("expected 2 broadcasts, got %d", fb.count())
		}
	})

	t.Run("inside threshold also pings the private room", func(t *testing.T) {
		d, fb := newDispatcher()

		d.dispatch(domain.CheckedInEvent{
			PatronID:             "p1",
			PatronName:           "Ana Diaz",
			PatronPhone:          "5551234567",
			Position:             2,
			EstimatedWaitMinutes: 15,
		})

		private := fb.byRoom(ws.PatronRoom("p1"))
		if len(private) != 1 || private[0].Type != ws.MsgGetReady {
			t.Fatalf("private room got %+v, want one get_ready", private)
		}
		var payload map[string]any
		_ = json.Unmarshal(private[0].Payload, &payload)
		if payload["position"] != float64(2) {
			t.Fatalf("get_ready position = %v, want 2", payload["position"])
		}
		if fb.count() != 3 {
			t.Fatalf("expected 3 broadcasts, got %d", fb.count())
		}
	})
}

func TestDispatcher_Called(t *testing.T) {
	d, fb := newDispatcher()

	d.dispatch(domain.CalledEvent{PatronID: "p1", PatronName: "Ana Diaz", Position: 1})

	private := fb.byRoom(ws.PatronRoom("p1"))
	if len(private) != 1 || private[0].Type != ws.MsgPatientCalled {
		t.Fatalf("private room got %+v, want one patient_called", private)
	}

	patients := fb.byRoom(ws.RoomPatients)
	if len(patients) != 1 {
		t.Fatal("patients room should get the generic update")
	}
	var generic map[string]any
	_ = json.Unmarshal(patients[0].Payload, &generic)
	if _, leaked := generic["patron_name"]; leaked {
		t.Fatal("patient-facing update must not carry the name")
	}

	staff := fb.byRoom(ws.RoomStaff)
	if len(staff) != 1 {
		t.Fatal("staff room should get the update")
	}
	var detail map[string]any
	_ = json.Unmarshal(staff[0].Payload, &detail)
	if detail["patron_name"] != "Ana Diaz" {
		t.Fatalf("staff payload name = %v, want Ana Diaz", detail["patron_name"])
	}
}

func TestDispatcher_Terminal(t *testing.T) {
	tests := []struct {
		name       string
		event      domain.Event
		wantChange string
	}{
		{"completed", domain.CompletedEvent{PatronID: "p1"}, "patient_completed"},
		{"no show", domain.NoShowEvent{PatronID: "p1"}, "patient_no_show"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, fb := newDispatcher()
			d.dispatch(tc.event)

			for _, room := range []string{ws.RoomPatients, ws.RoomStaff} {
				msgs := fb.byRoom(room)
				if len(msgs) != 1 || msgs[0].Type != ws.MsgQueueUpdate {
					t.Fatalf("room %s got %+v, want one queue_update", room, msgs)
				}
				var payload map[string]any
				_ = json.Unmarshal(msgs[0].Payload, &payload)
				if payload["change"] != tc.wantChange {
					t.Fatalf("change = %v, want %s", payload["change"], tc.wantChange)
				}
			}
			if fb.count() != 2 {
				t.Fatalf("expected exactly 2 broadcasts, got %d", fb.count())
			}
		})
	}
}

func TestDispatcher_PositionUpdated(t *testing.T) {
	t.Run("outside threshold gets position_update only", func(t *testing.T) {
		d, fb := newDispatcher()
		d.dispatch(domain.PositionUpdatedEvent{PatronID: "p1", Position: 5, EstimatedWaitMinutes: 60})

		private := fb.byRoom(ws.PatronRoom("p1"))
		if len(private) != 1 || private[0].Type != ws.MsgPositionUpdate {
			t.Fatalf("private room got %+v, want one position_update", private)
		}
		if fb.count() != 1 {
			t.Fatalf("expected 1 broadcast, got %d", fb.count())
		}
	})

	t.Run("inside threshold also gets get_ready", func(t *testing.T) {
		d, fb := newDispatcher()
		d.dispatch(domain.PositionUpdatedEvent{PatronID: "p1", Position: 3, EstimatedWaitMinutes: 30})

		private := fb.byRoom(ws.PatronRoom("p1"))
		if len(private) != 2 {
			t.Fatalf("private room got %d messages, want 2", len(private))
		}
		if private[0].Type != ws.MsgPositionUpdate || private[1].Type != ws.MsgGetReady {
			t.Fatalf("unexpected sequence %s, %s", private[0].Type, private[1].Type)
		}
	})
}

func TestDispatcher_QueueRefreshed(t *testing.T) {
	d, fb := newDispatcher()
	d.dispatch(domain.QueueRefreshedEvent{
		Entries: []domain.QueueEntryView{
			{QueueEntry: domain.QueueEntry{Position: 1}, PatronName: "Ana Diaz"},
		},
	})

	staff := fb.byRoom(ws.RoomStaff)
	if len(staff) != 1 || staff[0].Type != ws.MsgQueueRefresh {
		t.Fatalf("staff got %+v, want one queue_refresh", staff)
	}
	if fb.count() != 1 {
		t.Fatal("refresh must go to staff only")
	}
}

func TestDispatcher_RunConsumesFromBus(t *testing.T) {
	bus := event.NewBus(zap.NewNop())
	sub := bus.Subscribe("dispatcher", 8)
	fb := &fakeBroadcaster{}
	d := New(sub, fb, 3, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	bus.Publish(domain.CalledEvent{PatronID: "p1", Position: 1})

	deadline := time.After(2 * time.Second)
	for {
		if len(fb.byRoom(ws.PatronRoom("p1"))) > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for dispatch")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop after cancellation")
	}
}
