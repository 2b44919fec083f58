package repository

import (
	"context"

	"github.com/clinicq/patient-queue/internal/domain"
)

// QueueRepository defines all persistence operations for patrons and
// queue entries. The pgx implementation is in pg_queue_repo.go.
// Tests use a hand-written mock (mock_queue_repo.go).
//
// The mutating methods each run inside a single database transaction;
// concurrent callers are serialized by the store's isolation, not by
// application-level locking.
type QueueRepository interface {
	// CheckIn atomically creates the patron and their queue entry.
	// It rejects with domain.ErrDuplicateEntry when an active entry
	// already exists for the same stored phone string, and assigns the
	// entry the next dense position, filling in entry.Position and
	// entry.EstimatedWaitMinutes before returning.
	CheckIn(ctx context.Context, patron *domain.Patron, entry *domain.QueueEntry, serviceTimeMinutes int) error

	// CallNext transitions the lowest-position waiting entry to called
	// and stamps CalledAt. Returns domain.ErrNotFound when no entry is
	// waiting; callers treat that as a normal empty-queue outcome.
	CallNext(ctx context.Context) (*domain.QueueEntry, *domain.Patron, error)

	// Transition moves the patron's single active entry to a terminal
	// status (completed or no_show), stamps CompletedAt, and recalculates
	// dense positions for the remaining active entries within the same
	// transaction. Returns the closed entry and one PositionChange per
	// entry whose position actually moved.
	Transition(ctx context.Context, patronID string, to domain.EntryStatus, serviceTimeMinutes int) (*domain.QueueEntry, []domain.PositionChange, error)

	// ActiveEntryByPatron returns the patron's waiting or called entry,
	// or domain.ErrNotFound.
	ActiveEntryByPatron(ctx context.Context, patronID string) (*domain.QueueEntry, error)

	// CountAhead counts waiting entries strictly ahead of the given
	// position. Recomputed live at read time.
	CountAhead(ctx context.Context, position int) (int, error)

	// ListActive returns all waiting and called entries joined with their
	// patrons, ordered by position.
	ListActive(ctx context.Context) ([]domain.QueueEntryView, error)

	// Stats aggregates counts and wait-time statistics over completed entries.
	Stats(ctx context.Context) (*domain.QueueStats, error)
}
