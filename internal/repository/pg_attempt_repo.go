package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicq/patient-queue/internal/domain"
)

type pgAttemptRepository struct {
	pool *pgxpool.Pool
}

// NewPgAttemptRepository returns an AttemptRepository backed by PostgreSQL.
func NewPgAttemptRepository(pool *pgxpool.Pool) AttemptRepository {
	return &pgAttemptRepository{pool: pool}
}

func (r *pgAttemptRepository) Record(ctx context.Context, a *domain.NotificationAttempt) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification_attempts
			(id, patron_id, address, body, outcome, provider_ref, attempts, last_error, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.PatronID, a.Address, a.Body, a.Outcome,
		a.ProviderRef, a.Attempts, a.LastError, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification attempt: %w", err)
	}
	return nil
}

func (r *pgAttemptRepository) ListRecent(ctx context.Context, limit int) ([]*domain.NotificationAttempt, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patron_id, address, body, outcome, provider_ref, attempts, last_error, created_at
		FROM notification_attempts
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var result []*domain.NotificationAttempt
	for rows.Next() {
		var a domain.NotificationAttempt
		err := rows.Scan(
			&a.ID, &a.PatronID, &a.Address, &a.Body, &a.Outcome,
			&a.ProviderRef, &a.Attempts, &a.LastError, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		result = append(result, &a)
	}
	return result, rows.Err()
}
