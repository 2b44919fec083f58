package domain

import "time"

// EventKind tags a domain event variant.
type EventKind string

const (
	EventCheckedIn       EventKind = "checked_in"
	EventCalled          EventKind = "called"
	EventCompleted       EventKind = "completed"
	EventNoShow          EventKind = "no_show"
	EventPositionUpdated EventKind = "position_updated"
	EventQueueRefreshed  EventKind = "queue_refreshed"
)

// Event is an immutable fact describing a committed queue mutation.
// The set of implementations is closed: one struct per EventKind.
// The dispatcher switches exhaustively over the concrete types to decide
// which rooms receive the event; the notifier does the same to build
// outbound message intents. Events are side effects only, never persisted.
type Event interface {
	Kind() EventKind
	OccurredAt() time.Time
}

// CheckedInEvent fires after a patron joins the queue.
type CheckedInEvent struct {
	PatronID             string
	PatronName           string
	PatronPhone          string
	Position             int
	EstimatedWaitMinutes int
	Timestamp            time.Time
}

func (e CheckedInEvent) Kind() EventKind       { return EventCheckedIn }
func (e CheckedInEvent) OccurredAt() time.Time { return e.Timestamp }

// CalledEvent fires when the front-desk calls the next patron.
type CalledEvent struct {
	PatronID    string
	PatronName  string
	PatronPhone string
	Position    int
	Timestamp   time.Time
}

func (e CalledEvent) Kind() EventKind       { return EventCalled }
func (e CalledEvent) OccurredAt() time.Time { return e.Timestamp }

// CompletedEvent fires when a called patron's service finishes.
type CompletedEvent struct {
	PatronID  string
	Timestamp time.Time
}

func (e CompletedEvent) Kind() EventKind       { return EventCompleted }
func (e CompletedEvent) OccurredAt() time.Time { return e.Timestamp }

// NoShowEvent fires when a waiting or called patron is marked absent.
type NoShowEvent struct {
	PatronID  string
	Timestamp time.Time
}

func (e NoShowEvent) Kind() EventKind       { return EventNoShow }
func (e NoShowEvent) OccurredAt() time.Time { return e.Timestamp }

// PositionUpdatedEvent fires once per entry whose position actually
// changed during recalculation. Addressed to that patron's private room.
type PositionUpdatedEvent struct {
	PatronID             string
	PatronPhone          string
	Position             int
	EstimatedWaitMinutes int
	Timestamp            time.Time
}

func (e PositionUpdatedEvent) Kind() EventKind       { return EventPositionUpdated }
func (e PositionUpdatedEvent) OccurredAt() time.Time { return e.Timestamp }

// QueueRefreshedEvent carries the full current ordered queue to staff.
type QueueRefreshedEvent struct {
	Entries   []QueueEntryView
	Timestamp time.Time
}

func (e QueueRefreshedEvent) Kind() EventKind       { return EventQueueRefreshed }
func (e QueueRefreshedEvent) OccurredAt() time.Time { return e.Timestamp }
