package domain

import "time"

// AttemptOutcome is the terminal result of a notification delivery.
type AttemptOutcome string

const (
	OutcomeSent   AttemptOutcome = "sent"
	OutcomeFailed AttemptOutcome = "failed"
)

// NotificationAttempt is the audit record of one delivery, written after
// the retry loop settles. Attempts counts every try including the final
// one. Audit only: never read back to drive queue state.
type NotificationAttempt struct {
	ID          string         `json:"id"`
	PatronID    string         `json:"patron_id"`
	Address     string         `json:"address"`
	Body        string         `json:"body"`
	Outcome     AttemptOutcome `json:"outcome"`
	ProviderRef string         `json:"provider_ref,omitempty"`
	Attempts    int            `json:"attempts"`
	LastError   string         `json:"last_error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
