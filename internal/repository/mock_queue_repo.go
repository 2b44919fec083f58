package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clinicq/patient-queue/internal/domain"
)

// MockQueueRepository is a hand-written, in-memory implementation of
// QueueRepository used in unit tests. No mock-generation library needed.
// It mirrors the transactional semantics of the pg implementation under
// a single mutex.
type MockQueueRepository struct {
	mu      sync.RWMutex
	patrons map[string]*domain.Patron
	entries map[string]*domain.QueueEntry

	// Optional error overrides — set in tests to simulate failure paths.
	CheckInErr    error
	CallNextErr   error
	TransitionErr error
}

func NewMockQueueRepository() *MockQueueRepository {
	return &MockQueueRepository{
		patrons: make(map[string]*domain.Patron),
		entries: make(map[string]*domain.QueueEntry),
	}
}

func (m *MockQueueRepository) CheckIn(
	_ context.Context,
	patron *domain.Patron,
	entry *domain.QueueEntry,
	serviceTimeMinutes int,
) error {
	if m.CheckInErr != nil {
		return m.CheckInErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if !e.Status.Active() {
			continue
		}
		if p, ok := m.patrons[e.PatronID]; ok && p.Phone == patron.Phone {
			return domain.ErrDuplicateEntry
		}
	}

	last := 0
	for _, e := range m.entries {
		if e.Status.Active() && e.Position > last {
			last = e.Position
		}
	}
	entry.Position = last + 1
	entry.EstimatedWaitMinutes = domain.EstimatedWait(entry.Position, serviceTimeMinutes)

	pc := *patron
	ec := *entry
	m.patrons[patron.ID] = &pc
	m.entries[entry.ID] = &ec
	return nil
}

func (m *MockQueueRepository) CallNext(_ context.Context) (*domain.QueueEntry, *domain.Patron, error) {
	if m.CallNextErr != nil {
		return nil, nil, m.CallNextErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var next *domain.QueueEntry
	for _, e := range m.entries {
		if e.Status != domain.StatusWaiting {
			continue
		}
		if next == nil || e.Position < next.Position {
			next = e
		}
	}
	if next == nil {
		return nil, nil, domain.ErrNotFound
	}

	now := time.Now().UTC()
	next.Status = domain.StatusCalled
	next.CalledAt = &now

	ec := *next
	pc := *m.patrons[next.PatronID]
	return &ec, &pc, nil
}

func (m *MockQueueRepository) Transition(
	_ context.Context,
	patronID string,
	to domain.EntryStatus,
	serviceTimeMinutes int,
) (*domain.QueueEntry, []domain.PositionChange, error) {
	if m.TransitionErr != nil {
		return nil, nil, m.TransitionErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var target *domain.QueueEntry
	for _, e := range m.entries {
		if e.PatronID == patronID && e.Status.Active() {
			target = e
			break
		}
	}
	if target == nil {
		return nil, nil, domain.ErrNotFound
	}

	now := time.Now().UTC()
	target.Status = to
	target.CompletedAt = &now

	active := m.activeSorted()
	var changes []domain.PositionChange
	for i, e := range active {
		newPos := i + 1
		if newPos == e.Position {
			continue
		}
		e.Position = newPos
		e.EstimatedWaitMinutes = domain.EstimatedWait(newPos, serviceTimeMinutes)
		changes = append(changes, domain.PositionChange{
			PatronID:             e.PatronID,
			PatronPhone:          m.patrons[e.PatronID].Phone,
			Position:             newPos,
			EstimatedWaitMinutes: e.EstimatedWaitMinutes,
		})
	}

	ec := *target
	return &ec, changes, nil
}

func (m *MockQueueRepository) ActiveEntryByPatron(_ context.Context, patronID string) (*domain.QueueEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries {
		if e.PatronID == patronID && e.Status.Active() {
			ec := *e
			return &ec, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockQueueRepository) CountAhead(_ context.Context, position int) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, e := range m.entries {
		if e.Status == domain.StatusWaiting && e.Position < position {
			n++
		}
	}
	return n, nil
}

func (m *MockQueueRepository) ListActive(_ context.Context) ([]domain.QueueEntryView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var views []domain.QueueEntryView
	for _, e := range m.activeSorted() {
		p := m.patrons[e.PatronID]
		views = append(views, domain.QueueEntryView{
			QueueEntry:  *e,
			PatronName:  p.Name,
			PatronPhone: p.Phone,
		})
	}
	return views, nil
}

func (m *MockQueueRepository) Stats(_ context.Context) (*domain.QueueStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var s domain.QueueStats
	var totalWait, completed int
	for _, e := range m.entries {
		switch e.Status {
		case domain.StatusWaiting:
			s.TotalWaiting++
		case domain.StatusCalled:
			s.TotalCalled++
		case domain.StatusCompleted:
			s.TotalCompleted++
			waited := int(e.CompletedAt.Sub(e.CheckInTime).Minutes())
			totalWait += waited
			completed++
			if waited > s.LongestWaitMinutes {
				s.LongestWaitMinutes = waited
			}
		}
	}
	if completed > 0 {
		s.AverageWaitMinutes = (totalWait + completed/2) / completed
	}
	return &s, nil
}

// activeSorted returns pointers to the live active entries ordered by
// their current position. Callers must hold the lock.
func (m *MockQueueRepository) activeSorted() []*domain.QueueEntry {
	var active []*domain.QueueEntry
	for _, e := range m.entries {
		if e.Status.Active() {
			active = append(active, e)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Position < active[j].Position })
	return active
}
