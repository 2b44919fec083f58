package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicq/patient-queue/internal/domain"
)

type pgSessionRepository struct {
	pool *pgxpool.Pool
}

// NewPgSessionRepository returns a SessionRepository backed by PostgreSQL.
func NewPgSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &pgSessionRepository{pool: pool}
}

func (r *pgSessionRepository) StaffByUsername(ctx context.Context, username string) (*domain.Staff, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM staff WHERE username = $1`, username)

	var s domain.Staff
	err := row.Scan(&s.ID, &s.Username, &s.PasswordHash, &s.Role, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select staff: %w", err)
	}
	return &s, nil
}

func (r *pgSessionRepository) CreateSession(ctx context.Context, s *domain.StaffSession) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff_sessions (token, staff_id, username, role, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.Token, s.StaffID, s.Username, s.Role, s.CreatedAt, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *pgSessionRepository) SessionByToken(ctx context.Context, token string) (*domain.StaffSession, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT token, staff_id, username, role, created_at, expires_at
		FROM staff_sessions WHERE token = $1`, token)

	var s domain.StaffSession
	err := row.Scan(&s.Token, &s.StaffID, &s.Username, &s.Role, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	return &s, nil
}

func (r *pgSessionRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM staff_sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
