package repository

import (
	"context"

	"github.com/clinicq/patient-queue/internal/domain"
)

// SessionRepository manages staff accounts and their login sessions.
// Session tokens authenticate both the staff HTTP endpoints and the
// websocket handshake.
type SessionRepository interface {
	// StaffByUsername returns the staff account, or domain.ErrNotFound.
	StaffByUsername(ctx context.Context, username string) (*domain.Staff, error)

	// CreateSession persists a new login session.
	CreateSession(ctx context.Context, s *domain.StaffSession) error

	// SessionByToken returns the session for the token, or
	// domain.ErrNotFound. Expiry is checked by the caller so the clock
	// stays outside the repository.
	SessionByToken(ctx context.Context, token string) (*domain.StaffSession, error)

	// DeleteSession removes the session (logout). Deleting an unknown
	// token is not an error.
	DeleteSession(ctx context.Context, token string) error
}
