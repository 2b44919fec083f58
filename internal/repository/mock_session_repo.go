package repository

import (
	"context"
	"sync"

	"github.com/clinicq/patient-queue/internal/domain"
)

// MockSessionRepository is an in-memory SessionRepository for unit tests.
type MockSessionRepository struct {
	mu       sync.RWMutex
	staff    map[string]*domain.Staff        // by username
	sessions map[string]*domain.StaffSession // by token
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		staff:    make(map[string]*domain.Staff),
		sessions: make(map[string]*domain.StaffSession),
	}
}

// AddStaff seeds a staff account for tests.
func (m *MockSessionRepository) AddStaff(s *domain.Staff) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc := *s
	m.staff[s.Username] = &sc
}

func (m *MockSessionRepository) StaffByUsername(_ context.Context, username string) (*domain.Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.staff[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	sc := *s
	return &sc, nil
}

func (m *MockSessionRepository) CreateSession(_ context.Context, s *domain.StaffSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc := *s
	m.sessions[s.Token] = &sc
	return nil
}

func (m *MockSessionRepository) SessionByToken(_ context.Context, token string) (*domain.StaffSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	sc := *s
	return &sc, nil
}

func (m *MockSessionRepository) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}
