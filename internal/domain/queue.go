package domain

import "time"

// EntryStatus tracks the lifecycle of a queue entry.
// Transitions are one-directional: waiting → called → completed,
// or waiting/called → no_show. Nothing ever returns to waiting.
type EntryStatus string

const (
	StatusWaiting   EntryStatus = "waiting"
	StatusCalled    EntryStatus = "called"
	StatusCompleted EntryStatus = "completed"
	StatusNoShow    EntryStatus = "no_show"
)

func (s EntryStatus) IsValid() bool {
	switch s {
	case StatusWaiting, StatusCalled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Active reports whether the entry still occupies a position in the line.
func (s EntryStatus) Active() bool {
	return s == StatusWaiting || s == StatusCalled
}

// Patron is the identity of a person waiting. Immutable after creation.
type Patron struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// QueueEntry is one occupancy of the line by a patron.
// Position is 1-based and dense among active entries; it is meaningless
// once the entry reaches a terminal status.
type QueueEntry struct {
	ID                   string      `json:"id"`
	PatronID             string      `json:"patron_id"`
	Position             int         `json:"position"`
	Status               EntryStatus `json:"status"`
	AppointmentTime      string      `json:"appointment_time"`
	CheckInTime          time.Time   `json:"check_in_time"`
	EstimatedWaitMinutes int         `json:"estimated_wait_minutes"`
	CalledAt             *time.Time  `json:"called_at,omitempty"`
	CompletedAt          *time.Time  `json:"completed_at,omitempty"`
}

// QueueEntryView joins an entry with its patron for read APIs and the
// staff queue_refreshed broadcast.
type QueueEntryView struct {
	QueueEntry
	PatronName  string `json:"patron_name"`
	PatronPhone string `json:"patron_phone"`
}

// QueueStatus is the getPosition response for a single patron.
// PatientsAhead is recounted live at read time rather than derived from
// the stored position, tolerating staleness between writes.
type QueueStatus struct {
	Position             int         `json:"position"`
	Status               EntryStatus `json:"status"`
	PatientsAhead        int         `json:"patients_ahead"`
	EstimatedWaitMinutes int         `json:"estimated_wait_minutes"`
}

// QueueStats aggregates wait-time statistics over completed entries.
// All values are whole minutes; the average rounds to nearest.
type QueueStats struct {
	TotalWaiting       int `json:"total_waiting"`
	TotalCalled        int `json:"total_called"`
	TotalCompleted     int `json:"total_completed"`
	AverageWaitMinutes int `json:"average_wait_minutes"`
	LongestWaitMinutes int `json:"longest_wait_minutes"`
}

// CallNextResult is the outcome of callNextPatient. An empty queue is a
// normal result (Success=false, Message set), not an error.
type CallNextResult struct {
	Success    bool   `json:"success"`
	PatronID   string `json:"patron_id,omitempty"`
	PatronName string `json:"patron_name,omitempty"`
	Position   int    `json:"position,omitempty"`
	Message    string `json:"message,omitempty"`
}

// PositionChange records one entry whose position moved during
// recalculation. Emitted as a position_updated event per change.
type PositionChange struct {
	PatronID             string
	PatronPhone          string
	Position             int
	EstimatedWaitMinutes int
}

// EstimatedWait derives the wait estimate for a position given the
// configured per-patient service time. Position 1 is being served next,
// so it waits zero.
func EstimatedWait(position, serviceTimeMinutes int) int {
	if position < 1 {
		return 0
	}
	return (position - 1) * serviceTimeMinutes
}
