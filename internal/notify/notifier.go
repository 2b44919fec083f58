package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clinicq/patient-queue/internal/domain"
	"github.com/clinicq/patient-queue/internal/event"
)

// Notifier turns committed domain events into send intents. It runs off
// the mutating call's critical path: a full intent queue drops the
// message with a warning rather than blocking anything upstream.
type Notifier struct {
	sub               *event.Subscription
	q                 *IntentQueue
	getReadyThreshold int
	logger            *zap.Logger
}

func NewNotifier(
	sub *event.Subscription,
	q *IntentQueue,
	getReadyThreshold int,
	logger *zap.Logger,
) *Notifier {
	return &Notifier{sub: sub, q: q, getReadyThreshold: getReadyThreshold, logger: logger}
}

// Run consumes events until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	n.logger.Info("notifier started")
	for {
		select {
		case <-ctx.Done():
			n.logger.Info("notifier stopping")
			return
		case e := <-n.sub.Events():
			n.handle(e)
		}
	}
}

func (n *Notifier) handle(e domain.Event) {
	switch ev := e.(type) {
	case domain.CheckedInEvent:
		n.enqueue(Intent{
			Kind:     KindConfirmation,
			PatronID: ev.PatronID,
			Address:  ev.PatronPhone,
			Body: fmt.Sprintf(
				"Hi %s, you're checked in at position %d. Estimated wait: %d minutes.",
				ev.PatronName, ev.Position, ev.EstimatedWaitMinutes,
			),
		})
		// A short line puts new arrivals inside the threshold right away.
		if ev.Position <= n.getReadyThreshold {
			n.enqueue(Intent{
				Kind:     KindGetReady,
				PatronID: ev.PatronID,
				Address:  ev.PatronPhone,
				Body: fmt.Sprintf(
					"You're now number %d in line. Please get ready.",
					ev.Position,
				),
			})
		}

	case domain.CalledEvent:
		n.enqueue(Intent{
			Kind:     KindCallNow,
			PatronID: ev.PatronID,
			Address:  ev.PatronPhone,
			Body:     "It's your turn! Please come to the front desk now.",
		})

	case domain.PositionUpdatedEvent:
		if ev.Position > n.getReadyThreshold {
			return
		}
		n.enqueue(Intent{
			Kind:     KindGetReady,
			PatronID: ev.PatronID,
			Address:  ev.PatronPhone,
			Body: fmt.Sprintf(
				"You're now number %d in line. Please get ready.",
				ev.Position,
			),
		})

	case domain.CompletedEvent, domain.NoShowEvent, domain.QueueRefreshedEvent:
		// No outbound message for these kinds.

	default:
		n.logger.Warn("unmapped event kind", zap.String("kind", string(e.Kind())))
	}
}

func (n *Notifier) enqueue(in Intent) {
	if err := n.q.Enqueue(in); err != nil {
		n.logger.Warn("dropping notification intent",
			zap.String("kind", string(in.Kind)),
			zap.String("patron_id", in.PatronID),
			zap.Error(err),
		)
	}
}
