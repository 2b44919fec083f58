package repository

import (
	"context"
	"sync"

	"github.com/clinicq/patient-queue/internal/domain"
)

// MockAttemptRepository is an in-memory AttemptRepository for unit tests.
type MockAttemptRepository struct {
	mu       sync.RWMutex
	attempts []*domain.NotificationAttempt
}

func NewMockAttemptRepository() *MockAttemptRepository {
	return &MockAttemptRepository{}
}

func (m *MockAttemptRepository) Record(_ context.Context, a *domain.NotificationAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ac := *a
	m.attempts = append(m.attempts, &ac)
	return nil
}

func (m *MockAttemptRepository) ListRecent(_ context.Context, limit int) ([]*domain.NotificationAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.NotificationAttempt
	for i := len(m.attempts) - 1; i >= 0 && len(result) < limit; i-- {
		ac := *m.attempts[i]
		result = append(result, &ac)
	}
	return result, nil
}

// All returns every recorded attempt in insertion order.
func (m *MockAttemptRepository) All() []*domain.NotificationAttempt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.NotificationAttempt, len(m.attempts))
	copy(out, m.attempts)
	return out
}
