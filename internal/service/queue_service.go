package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicq/patient-queue/internal/domain"
	"github.com/clinicq/patient-queue/internal/event"
	"github.com/clinicq/patient-queue/internal/repository"
)

// QueueService is the queue engine. All mutation rules (validation,
// duplicate rejection, status transitions, position recalculation) live
// here and in the repository's transactions; HTTP handlers and the
// websocket layer depend on this service, not on each other.
//
// Events are published only after the repository transaction has
// committed and never on the error path, so a broadcast or notification
// failure can never be mistaken for a mutation failure.
type QueueService struct {
	repo        repository.QueueRepository
	bus         *event.Bus
	serviceTime int // minutes of expected service per position
	logger      *zap.Logger
}

func NewQueueService(
	repo repository.QueueRepository,
	bus *event.Bus,
	serviceTimeMinutes int,
	logger *zap.Logger,
) *QueueService {
	return &QueueService{
		repo:        repo,
		bus:         bus,
		serviceTime: serviceTimeMinutes,
		logger:      logger,
	}
}

// CheckIn validates the request, creates the patron and their entry at
// the back of the line, and emits a checked_in event.
func (s *QueueService) CheckIn(ctx context.Context, req domain.CheckInRequest) (*domain.QueueEntry, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	patron := &domain.Patron{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Phone:     req.Phone,
		CreatedAt: now,
	}
	entry := &domain.QueueEntry{
		ID:              uuid.New().String(),
		PatronID:        patron.ID,
		Status:          domain.StatusWaiting,
		AppointmentTime: req.AppointmentTime,
		CheckInTime:     now,
	}

	if err := s.repo.CheckIn(ctx, patron, entry, s.serviceTime); err != nil {
		if errors.Is(err, domain.ErrDuplicateEntry) {
			return nil, err
		}
		return nil, fmt.Errorf("check in: %w", err)
	}

	s.bus.Publish(domain.CheckedInEvent{
		PatronID:             patron.ID,
		PatronName:           patron.Name,
		PatronPhone:          patron.Phone,
		Position:             entry.Position,
		EstimatedWaitMinutes: entry.EstimatedWaitMinutes,
		Timestamp:            now,
	})
	return entry, nil
}

// CallNext transitions the lowest-position waiting entry to called.
// An empty queue is a normal outcome, not an error.
func (s *QueueService) CallNext(ctx context.Context) (*domain.CallNextResult, error) {
	entry, patron, err := s.repo.CallNext(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.CallNextResult{
			Success: false,
			Message: "No patients waiting in queue",
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("call next: %w", err)
	}

	s.bus.Publish(domain.CalledEvent{
		PatronID:    patron.ID,
		PatronName:  patron.Name,
		PatronPhone: patron.Phone,
		Position:    entry.Position,
		Timestamp:   *entry.CalledAt,
	})
	return &domain.CallNextResult{
		Success:    true,
		PatronID:   patron.ID,
		PatronName: patron.Name,
		Position:   entry.Position,
	}, nil
}

// MarkCompleted closes the patron's active entry as completed and shifts
// everyone behind them forward.
func (s *QueueService) MarkCompleted(ctx context.Context, patronID string) error {
	return s.transition(ctx, patronID, domain.StatusCompleted)
}

// MarkNoShow closes the patron's active entry as a no-show and shifts
// everyone behind them forward.
func (s *QueueService) MarkNoShow(ctx context.Context, patronID string) error {
	return s.transition(ctx, patronID, domain.StatusNoShow)
}

func (s *QueueService) transition(ctx context.Context, patronID string, to domain.EntryStatus) error {
	entry, changes, err := s.repo.Transition(ctx, patronID, to, s.serviceTime)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("transition to %s: %w", to, err)
	}

	events := make([]domain.Event, 0, len(changes)+1)
	if to == domain.StatusCompleted {
		events = append(events, domain.CompletedEvent{PatronID: patronID, Timestamp: *entry.CompletedAt})
	} else {
		events = append(events, domain.NoShowEvent{PatronID: patronID, Timestamp: *entry.CompletedAt})
	}
	for _, c := range changes {
		events = append(events, domain.PositionUpdatedEvent{
			PatronID:             c.PatronID,
			PatronPhone:          c.PatronPhone,
			Position:             c.Position,
			EstimatedWaitMinutes: c.EstimatedWaitMinutes,
			Timestamp:            *entry.CompletedAt,
		})
	}
	s.bus.Publish(events...)
	return nil
}

// Position returns the patron's current standing. The patients-ahead
// count is recomputed live rather than derived from the stored position,
// tolerating staleness between writes; the stored position remains
// authoritative for ordering during mutation.
func (s *QueueService) Position(ctx context.Context, patronID string) (*domain.QueueStatus, error) {
	entry, err := s.repo.ActiveEntryByPatron(ctx, patronID)
	if err != nil {
		return nil, err
	}
	ahead, err := s.repo.CountAhead(ctx, entry.Position)
	if err != nil {
		return nil, fmt.Errorf("count ahead: %w", err)
	}
	return &domain.QueueStatus{
		Position:             entry.Position,
		Status:               entry.Status,
		PatientsAhead:        ahead,
		EstimatedWaitMinutes: entry.EstimatedWaitMinutes,
	}, nil
}

// Queue returns the full active queue ordered by position.
func (s *QueueService) Queue(ctx context.Context) ([]domain.QueueEntryView, error) {
	return s.repo.ListActive(ctx)
}

// Stats aggregates queue counters and wait-time statistics.
func (s *QueueService) Stats(ctx context.Context) (*domain.QueueStats, error) {
	return s.repo.Stats(ctx)
}

// PublishRefresh emits a queue_refreshed event carrying the full ordered
// queue. Driven by the refresh worker for the staff dashboard.
func (s *QueueService) PublishRefresh(ctx context.Context) error {
	entries, err := s.repo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active: %w", err)
	}
	s.bus.Publish(domain.QueueRefreshedEvent{
		Entries:   entries,
		Timestamp: time.Now().UTC(),
	})
	return nil
}
