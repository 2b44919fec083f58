package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicq/patient-queue/internal/domain"
	"github.com/clinicq/patient-queue/internal/repository"
)

// AuthService issues and validates staff sessions. Session tokens are
// opaque UUIDs with a fixed TTL; both the HTTP staff endpoints and the
// websocket handshake validate through this service.
type AuthService struct {
	sessions   repository.SessionRepository
	sessionTTL time.Duration
	logger     *zap.Logger
}

func NewAuthService(
	sessions repository.SessionRepository,
	sessionTTL time.Duration,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{sessions: sessions, sessionTTL: sessionTTL, logger: logger}
}

// Login verifies the credentials and creates a new session.
// Unknown usernames and wrong passwords both map to ErrInvalidCredentials
// so the response does not leak which half was wrong.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.StaffSession, error) {
	staff, err := s.sessions.StaffByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("look up staff: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	session := &domain.StaffSession{
		Token:     uuid.New().String(),
		StaffID:   staff.ID,
		Username:  staff.Username,
		Role:      staff.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("staff logged in", zap.String("username", staff.Username))
	return session, nil
}

// Validate resolves a session token to its active session.
// Missing tokens map to ErrAuthentication, expired ones to ErrSessionExpired.
func (s *AuthService) Validate(ctx context.Context, token string) (*domain.StaffSession, error) {
	if token == "" {
		return nil, domain.ErrAuthentication
	}
	session, err := s.sessions.SessionByToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrAuthentication
	}
	if err != nil {
		return nil, fmt.Errorf("look up session: %w", err)
	}
	if session.Expired(time.Now().UTC()) {
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

// Logout deletes the session. Unknown tokens are a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteSession(ctx, token)
}
