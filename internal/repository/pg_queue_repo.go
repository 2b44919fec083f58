package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicq/patient-queue/internal/domain"
)

// checkInLockID keys the advisory lock serializing concurrent check-ins.
// The duplicate-phone check and the MAX(position) read must not
// interleave with another insert, and with an empty queue there are no
// rows to lock, so FOR UPDATE cannot cover this path.
const checkInLockID = 815001

type pgQueueRepository struct {
	pool *pgxpool.Pool
}

// NewPgQueueRepository returns a QueueRepository backed by PostgreSQL.
func NewPgQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &pgQueueRepository{pool: pool}
}

func (r *pgQueueRepository) CheckIn(
	ctx context.Context,
	patron *domain.Patron,
	entry *domain.QueueEntry,
	serviceTimeMinutes int,
) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin check-in: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Held until commit; released automatically on rollback.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, checkInLockID); err != nil {
		return fmt.Errorf("acquire check-in lock: %w", err)
	}

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM queue_entries e
			JOIN patrons p ON p.id = e.patron_id
			WHERE p.phone = $1 AND e.status IN ('waiting','called')
		)`, patron.Phone).Scan(&exists)
	if err != nil {
		return fmt.Errorf("duplicate check: %w", err)
	}
	if exists {
		return domain.ErrDuplicateEntry
	}

	var lastPosition int
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(position), 0) FROM queue_entries
		WHERE status IN ('waiting','called')`).Scan(&lastPosition)
	if err != nil {
		return fmt.Errorf("last position: %w", err)
	}
	entry.Position = lastPosition + 1
	entry.EstimatedWaitMinutes = domain.EstimatedWait(entry.Position, serviceTimeMinutes)

	_, err = tx.Exec(ctx, `
		INSERT INTO patrons (id, name, phone, created_at)
		VALUES ($1,$2,$3,$4)`,
		patron.ID, patron.Name, patron.Phone, patron.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert patron: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO queue_entries
			(id, patron_id, position, status, appointment_time,
			 check_in_time, estimated_wait_minutes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		entry.ID, entry.PatronID, entry.Position, entry.Status,
		entry.AppointmentTime, entry.CheckInTime, entry.EstimatedWaitMinutes,
	)
	if err != nil {
		return fmt.Errorf("insert queue entry: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *pgQueueRepository) CallNext(ctx context.Context) (*domain.QueueEntry, *domain.Patron, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin call-next: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row := tx.QueryRow(ctx, `
		SELECT e.id, e.patron_id, e.position, e.status, e.appointment_time,
		       e.check_in_time, e.estimated_wait_minutes, e.called_at, e.completed_at,
		       p.id, p.name, p.phone, p.created_at
		FROM queue_entries e
		JOIN patrons p ON p.id = e.patron_id
		WHERE e.status = 'waiting'
		ORDER BY e.position ASC
		LIMIT 1
		FOR UPDATE OF e`)

	entry, patron, err := scanEntryWithPatron(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("select next waiting: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		UPDATE queue_entries SET status = 'called', called_at = $2
		WHERE id = $1`, entry.ID, now)
	if err != nil {
		return nil, nil, fmt.Errorf("mark called: %w", err)
	}
	entry.Status = domain.StatusCalled
	entry.CalledAt = &now

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return entry, patron, nil
}

func (r *pgQueueRepository) Transition(
	ctx context.Context,
	patronID string,
	to domain.EntryStatus,
	serviceTimeMinutes int,
) (*domain.QueueEntry, []domain.PositionChange, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row := tx.QueryRow(ctx, `
		SELECT id, patron_id, position, status, appointment_time,
		       check_in_time, estimated_wait_minutes, called_at, completed_at
		FROM queue_entries
		WHERE patron_id = $1 AND status IN ('waiting','called')
		FOR UPDATE`, patronID)

	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("select active entry: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		UPDATE queue_entries SET status = $2, completed_at = $3
		WHERE id = $1`, entry.ID, to, now)
	if err != nil {
		return nil, nil, fmt.Errorf("close entry: %w", err)
	}
	entry.Status = to
	entry.CompletedAt = &now

	changes, err := recalcPositions(ctx, tx, serviceTimeMinutes)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return entry, changes, nil
}

// recalcPositions re-reads the remaining active entries in their current
// order and reassigns dense positions 1..N, preserving relative order.
// Runs inside the caller's transaction so readers never observe gaps.
func recalcPositions(ctx context.Context, tx pgx.Tx, serviceTimeMinutes int) ([]domain.PositionChange, error) {
	rows, err := tx.Query(ctx, `
		SELECT e.id, e.patron_id, e.position, p.phone
		FROM queue_entries e
		JOIN patrons p ON p.id = e.patron_id
		WHERE e.status IN ('waiting','called')
		ORDER BY e.position ASC
		FOR UPDATE OF e`)
	if err != nil {
		return nil, fmt.Errorf("select active set: %w", err)
	}

	type activeRow struct {
		entryID  string
		patronID string
		position int
		phone    string
	}
	var active []activeRow
	for rows.Next() {
		var a activeRow
		if err := rows.Scan(&a.entryID, &a.patronID, &a.position, &a.phone); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan active row: %w", err)
		}
		active = append(active, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var changes []domain.PositionChange
	for i, a := range active {
		newPos := i + 1
		if newPos == a.position {
			continue
		}
		estimate := domain.EstimatedWait(newPos, serviceTimeMinutes)
		_, err := tx.Exec(ctx, `
			UPDATE queue_entries SET position = $2, estimated_wait_minutes = $3
			WHERE id = $1`, a.entryID, newPos, estimate)
		if err != nil {
			return nil, fmt.Errorf("update position: %w", err)
		}
		changes = append(changes, domain.PositionChange{
			PatronID:             a.patronID,
			PatronPhone:          a.phone,
			Position:             newPos,
			EstimatedWaitMinutes: estimate,
		})
	}
	return changes, nil
}

func (r *pgQueueRepository) ActiveEntryByPatron(ctx context.Context, patronID string) (*domain.QueueEntry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, patron_id, position, status, appointment_time,
		       check_in_time, estimated_wait_minutes, called_at, completed_at
		FROM queue_entries
		WHERE patron_id = $1 AND status IN ('waiting','called')`, patronID)

	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select active entry: %w", err)
	}
	return entry, nil
}

func (r *pgQueueRepository) CountAhead(ctx context.Context, position int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM queue_entries
		WHERE status = 'waiting' AND position < $1`, position).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count ahead: %w", err)
	}
	return n, nil
}

func (r *pgQueueRepository) ListActive(ctx context.Context) ([]domain.QueueEntryView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.id, e.patron_id, e.position, e.status, e.appointment_time,
		       e.check_in_time, e.estimated_wait_minutes, e.called_at, e.completed_at,
		       p.name, p.phone
		FROM queue_entries e
		JOIN patrons p ON p.id = e.patron_id
		WHERE e.status IN ('waiting','called')
		ORDER BY e.position ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active: %w", err)
	}
	defer rows.Close()

	var views []domain.QueueEntryView
	for rows.Next() {
		var v domain.QueueEntryView
		err := rows.Scan(
			&v.ID, &v.PatronID, &v.Position, &v.Status, &v.AppointmentTime,
			&v.CheckInTime, &v.EstimatedWaitMinutes, &v.CalledAt, &v.CompletedAt,
			&v.PatronName, &v.PatronPhone,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry view: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func (r *pgQueueRepository) Stats(ctx context.Context) (*domain.QueueStats, error) {
	var s domain.QueueStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'waiting'),
			COUNT(*) FILTER (WHERE status = 'called'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COALESCE(ROUND(AVG(FLOOR(EXTRACT(EPOCH FROM completed_at - check_in_time) / 60))
				FILTER (WHERE status = 'completed')), 0),
			COALESCE(MAX(FLOOR(EXTRACT(EPOCH FROM completed_at - check_in_time) / 60))
				FILTER (WHERE status = 'completed'), 0)
		FROM queue_entries`).Scan(
		&s.TotalWaiting, &s.TotalCalled, &s.TotalCompleted,
		&s.AverageWaitMinutes, &s.LongestWaitMinutes,
	)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	return &s, nil
}

// ---- helpers ----

func scanEntry(row pgx.Row) (*domain.QueueEntry, error) {
	var e domain.QueueEntry
	err := row.Scan(
		&e.ID, &e.PatronID, &e.Position, &e.Status, &e.AppointmentTime,
		&e.CheckInTime, &e.EstimatedWaitMinutes, &e.CalledAt, &e.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEntryWithPatron(row pgx.Row) (*domain.QueueEntry, *domain.Patron, error) {
	var e domain.QueueEntry
	var p domain.Patron
	err := row.Scan(
		&e.ID, &e.PatronID, &e.Position, &e.Status, &e.AppointmentTime,
		&e.CheckInTime, &e.EstimatedWaitMinutes, &e.CalledAt, &e.CompletedAt,
		&p.ID, &p.Name, &p.Phone, &p.CreatedAt,
	)
	if err != nil {
		return nil, nil, err
	}
	return &e, &p, nil
}
