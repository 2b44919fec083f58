package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/clinicq/patient-queue/internal/domain"
	"github.com/clinicq/patient-queue/internal/event"
	"github.com/clinicq/patient-queue/internal/ws"
)

// Broadcaster is the room fan-out surface the dispatcher writes to.
// Satisfied by *ws.Hub; tests substitute a recording fake.
type Broadcaster interface {
	Broadcast(room string, message []byte)
}

// Dispatcher maps committed domain events to room broadcasts. Pure
// mapping: no business logic, no retries. Delivery is best-effort and
// at-most-once per connection; the queue read APIs are the correctness
// backstop for anything missed.
type Dispatcher struct {
	sub               *event.Subscription
	broadcaster       Broadcaster
	getReadyThreshold int
	logger            *zap.Logger
}

func New(
	sub *event.Subscription,
	broadcaster Broadcaster,
	getReadyThreshold int,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		sub:               sub,
		broadcaster:       broadcaster,
		getReadyThreshold: getReadyThreshold,
		logger:            logger,
	}
}

// Run consumes events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("broadcast dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("broadcast dispatcher stopping")
			return
		case e := <-d.sub.Events():
			d.dispatch(e)
		}
	}
}

// dispatch switches exhaustively over the closed set of event variants.
func (d *Dispatcher) dispatch(e domain.Event) {
	switch ev := e.(type) {
	case domain.CheckedInEvent:
		d.broadcaster.Broadcast(ws.RoomStaff, mustEncode(ws.MsgNewPatient, map[string]any{
			"patron_id":              ev.PatronID,
			"patron_name":            ev.PatronName,
			"position":               ev.Position,
			"estimated_wait_minutes": ev.EstimatedWaitMinutes,
		}))
		d.broadcaster.Broadcast(ws.RoomPatients, mustEncode(ws.MsgQueueUpdate, map[string]any{
			"change": "patient_joined",
		}))
		// A short line puts new arrivals inside the threshold right away.
		if ev.Position <= d.getReadyThreshold {
			d.broadcaster.Broadcast(ws.PatronRoom(ev.PatronID), mustEncode(ws.MsgGetReady, map[string]any{
				"message":  "You're almost up — please get ready",
				"position": ev.Position,
			}))
		}

	case domain.CalledEvent:
		d.broadcaster.Broadcast(ws.PatronRoom(ev.PatronID), mustEncode(ws.MsgPatientCalled, map[string]any{
			"message":  "It's your turn — please come to the front desk",
			"position": ev.Position,
		}))
		// Patient-facing copy stays generic; only staff see the name.
		d.broadcaster.Broadcast(ws.RoomPatients, mustEncode(ws.MsgQueueUpdate, map[string]any{
			"change": "patient_called",
		}))
		d.broadcaster.Broadcast(ws.RoomStaff, mustEncode(ws.MsgQueueUpdate, map[string]any{
			"change":      "patient_called",
			"patron_name": ev.PatronName,
		}))

	case domain.CompletedEvent:
		d.broadcastCompletion("patient_completed", ev.PatronID)

	case domain.NoShowEvent:
		d.broadcastCompletion("patient_no_show", ev.PatronID)

	case domain.PositionUpdatedEvent:
		room := ws.PatronRoom(ev.PatronID)
		d.broadcaster.Broadcast(room, mustEncode(ws.MsgPositionUpdate, map[string]any{
			"position":               ev.Position,
			"estimated_wait_minutes": ev.EstimatedWaitMinutes,
		}))
		if ev.Position <= d.getReadyThreshold {
			d.broadcaster.Broadcast(room, mustEncode(ws.MsgGetReady, map[string]any{
				"message":  "You're almost up — please get ready",
				"position": ev.Position,
			}))
		}

	case domain.QueueRefreshedEvent:
		d.broadcaster.Broadcast(ws.RoomStaff, mustEncode(ws.MsgQueueRefresh, map[string]any{
			"queue": ev.Entries,
		}))

	default:
		d.logger.Warn("unmapped event kind", zap.String("kind", string(e.Kind())))
	}
}

func (d *Dispatcher) broadcastCompletion(change, patronID string) {
	msg := mustEncode(ws.MsgQueueUpdate, map[string]any{
		"change":    change,
		"patron_id": patronID,
	})
	d.broadcaster.Broadcast(ws.RoomPatients, msg)
	d.broadcaster.Broadcast(ws.RoomStaff, msg)
}

// mustEncode delegates to the ws envelope encoder; these payloads are
// maps of scalars and cannot fail to marshal.
func mustEncode(msgType string, payload any) []byte {
	b, err := ws.Encode(msgType, payload)
	if err != nil {
		b, _ = ws.Encode(msgType, nil)
	}
	return b
}
