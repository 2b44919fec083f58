package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/clinicq/patient-queue/internal/domain"
	"github.com/clinicq/patient-queue/internal/event"
	"github.com/clinicq/patient-queue/internal/repository"
	"github.com/clinicq/patient-queue/internal/service"
)

const testServiceTime = 15

// newQueueService wires the service against the in-memory repository and
// a bus with one test subscription, so tests can assert both the returned
// values and the events that reached subscribers.
func newQueueService(t *testing.T) (*service.QueueService, *repository.MockQueueRepository, *event.Subscription) {
	t.Helper()
	repo := repository.NewMockQueueRepository()
	bus := event.NewBus(zap.NewNop())
	sub := bus.Subscribe("test", 64)
	svc := service.NewQueueService(repo, bus, testServiceTime, zap.NewNop())
	return svc, repo, sub
}

func checkInReq(name, phone string) domain.CheckInRequest {
	return domain.CheckInRequest{Name: name, Phone: phone, AppointmentTime: "10:00 AM"}
}

// drain collects every event currently buffered on the subscription.
func drain(sub *event.Subscription) []domain.Event {
	var events []domain.Event
	for {
		select {
		case e := <-sub.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func TestQueueService_CheckIn(t *testing.T) {
	t.Run("assigns dense positions and estimates", func(t *testing.T) {
		svc, _, sub := newQueueService(t)
		ctx := context.Background()

		phones := []string{"5550000001", "5550000002", "5550000003"}
		for i, phone := range phones {
			entry, err := svc.CheckIn(ctx, checkInReq("Ana Diaz", phone))
			if err != nil {
				t.Fatalf("check in %d: %v", i+1, err)
			}
			wantPos := i + 1
			if entry.Position != wantPos {
				t.Fatalf("entry %d: position = %d, want %d", i+1, entry.Position, wantPos)
			}
			wantEst := (wantPos - 1) * testServiceTime
			if entry.EstimatedWaitMinutes != wantEst {
				t.Fatalf("entry %d: estimate = %d, want %d", i+1, entry.EstimatedWaitMinutes, wantEst)
			}
			if entry.Status != domain.StatusWaiting {
				t.Fatalf("entry %d: status = %s, want waiting", i+1, entry.Status)
			}
		}

		events := drain(sub)
		if len(events) != 3 {
			t.Fatalf("expected 3 events, got %d", len(events))
		}
		for i, e := range events {
			ci, ok := e.(domain.CheckedInEvent)
			if !ok {
				t.Fatalf("event %d: expected CheckedInEvent, got %T", i, e)
			}
			if ci.Position != i+1 {
				t.Fatalf("event %d: position = %d, want %d", i, ci.Position, i+1)
			}
		}
	})

	t.Run("rejects duplicate active phone", func(t *testing.T) {
		svc, _, sub := newQueueService(t)
		ctx := context.Background()

		if _, err := svc.CheckIn(ctx, checkInReq("Ana Diaz", "5550000001")); err != nil {
			t.Fatalf("first check in: %v", err)
		}
		drain(sub)

		_, err := svc.CheckIn(ctx, checkInReq("Ana Diaz", "5550000001"))
		if !errors.Is(err, domain.ErrDuplicateEntry) {
			t.Fatalf("expected ErrDuplicateEntry, got %v", err)
		}
		if events := drain(sub); len(events) != 0 {
			t.Fatalf("expected no events on rejected check in, got %d", len(events))
		}
	})

	t.Run("allows re-admission after terminal status", func(t *testing.T) {
		svc, _, _ := newQueueService(t)
		ctx := context.Background()

		first, err := svc.CheckIn(ctx, checkInReq("Ana Diaz", "5550000001"))
		if err != nil {
			t.Fatalf("first check in: %v", err)
		}
		if err := svc.MarkCompleted(ctx, first.PatronID); err != nil {
			t.Fatalf("mark completed: %v", err)
		}

		second, err := svc.CheckIn(ctx, checkInReq("Ana Diaz", "5550000001"))
		if err != nil {
			t.Fatalf("expected re-admission to succeed, got %v", err)
		}
		if second.Position != 1 {
			t.Fatalf("re-admitted position = %d, want 1", second.Position)
		}
	})

	t.Run("rejects invalid request without touching the repository", func(t *testing.T) {
		svc, _, sub := newQueueService(t)

		_, err := svc.CheckIn(context.Background(), checkInReq("", "5550000001"))
		if _, ok := domain.IsValidation(err); !ok {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if events := drain(sub); len(events) != 0 {
			t.Fatalf("expected no events, got %d", len(events))
		}
	})
}

// Concurrent check-ins must be serialized by the repository: positions
// stay a dense unique 1..N sequence and a phone number never holds two
// active entries, no matter how the calls interleave.
func TestQueueService_ConcurrentCheckIns(t *testing.T) {
	svc, repo, _ := newQueueService(t)
	ctx := context.Background()

	const patrons = 8
	var wg sync.WaitGroup
	errs := make(chan error, patrons*2)
	for i := 0; i < patrons; i++ {
		phone := fmt.Sprintf("55512340%02d", i)
		// Each patron races a double submission of the same form.
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.CheckIn(ctx, checkInReq("Ana Diaz", phone)); err != nil {
					errs <- err
				}
			}()
		}
	}
	wg.Wait()
	close(errs)

	rejected := 0
	for err := range errs {
		if !errors.Is(err, domain.ErrDuplicateEntry) {
			t.Fatalf("unexpected check-in error: %v", err)
		}
		rejected++
	}
	if rejected != patrons {
		t.Fatalf("duplicate rejections = %d, want %d", rejected, patrons)
	}

	views, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(views) != patrons {
		t.Fatalf("active entries = %d, want %d", len(views), patrons)
	}
	positions := make(map[int]bool, patrons)
	phones := make(map[string]bool, patrons)
	for _, v := range views {
		if positions[v.Position] {
			t.Fatalf("position %d assigned twice", v.Position)
		}
		positions[v.Position] = true
		if phones[v.PatronPhone] {
			t.Fatalf("phone %s holds two active entries", v.PatronPhone)
		}
		phones[v.PatronPhone] = true
	}
	for p := 1; p <= patrons; p++ {
		if !positions[p] {
			t.Fatalf("dense sequence broken: no entry at position %d", p)
		}
	}
}

func TestQueueService_CallNext(t *testing.T) {
	t.Run("empty queue is a normal outcome", func(t *testing.T) {
		svc, _, sub := newQueueService(t)

		res, err := svc.CallNext(context.Background())
		if err != nil {
			t.Fatalf("expected no error on empty queue, got %v", err)
		}
		if res.Success {
			t.Fatal("expected success=false on empty queue")
		}
		if res.Message == "" {
			t.Fatal("expected a message on empty queue")
		}
		if events := drain(sub); len(events) != 0 {
			t.Fatalf("expected no events, got %d", len(events))
		}
	})

	t.Run("calls the lowest waiting position", func(t *testing.T) {
		svc, _, sub := newQueueService(t)
		ctx := context.Background()

		first, _ := svc.CheckIn(ctx, checkInReq("Ana Diaz", "5550000001"))
		svc.CheckIn(ctx, checkInReq("Ben Ortiz", "5550000002"))
		drain(sub)

		res, err := svc.CallNext(ctx)
		if err != nil {
			t.Fatalf("call next: %v", err)
		}
		if !res.Success {
			t.Fatal("expected success=true")
		}
		if res.PatronID != first.PatronID {
			t.Fatalf("called patron = %s, want %s", res.PatronID, first.PatronID)
		}
		if res.Position != 1 {
			t.Fatalf("called position = %d, want 1", res.Position)
		}

		events := drain(sub)
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		called, ok := events[0].(domain.CalledEvent)
		if !ok || called.PatronID != first.PatronID {
			t.Fatalf("unexpected event %+v", events[0])
		}
	})

	t.Run("called patron keeps their position until resolved", func(t *testing.T) {
		svc, _, _ := newQueueService(t)
		ctx := context.Background()

		svc.CheckIn(ctx, checkInReq("Ana Diaz", "5550000001"))
		second, _ := svc.CheckIn(ctx, checkInReq("Ben Ortiz", "5550000002"))

		if _, err := svc.CallNext(ctx); err != nil {
			t.Fatalf("call next: %v", err)
		}

		status, err := svc.Position(ctx, second.PatronID)
		if err != nil {
			t.Fatalf("position: %v", err)
		}
		if status.Position != 2 {
			t.Fatalf("second patron position = %d, want 2 while first is called", status.Position)
		}

		// Calling again picks the next waiting entry, not the called one.
		res, err := svc.CallNext(ctx)
		if err != nil {
			t.Fatalf("second call next: %v", err)
		}
		if res.PatronID != second.PatronID {
			t.Fatalf("second call picked %s, want %s", res.PatronID, second.PatronID)
		}
	})
}

func TestQueueService_Transitions(t *testing.T) {
	t.Run("completion shifts everyone behind forward", func(t *testing.T) {
		svc, _, sub := newQueueService(t)
		ctx := context.Background()

		a, _ := svc.CheckIn(ctx, checkInReq("Ana Diaz", "5550000001"))
		b, _ := svc.CheckIn(ctx, checkInReq("Ben Ortiz", "5550000002"))
		c, _ := svc.CheckIn(ctx, checkInReq("Cara Lima", "5550000003"))
		svc.CallNext(ctx)
		drain(sub)

		if err := svc.MarkCompleted(ctx, a.PatronID); err != nil {
			t.Fatalf("mark completed: %v", err)
		}

		events := drain(sub)
		if len(events) != 3 {
			t.Fatalf("expected completed + 2 position updates, got %d events", len(events))
		}
		if _, ok := events[0].(domain.CompletedEvent); !ok {
			t.Fatalf("first event should be CompletedEvent, got %T", events[0])
		}
		wantMoves := map[string]int{b.PatronID: 1, c.PatronID: 2}
		for _, e := range events[1:] {
			pu, ok := e.(domain.PositionUpdatedEvent)
			if !ok {
				t.Fatalf("expected PositionUpdatedEvent, got %T", e)
			}
			want, known := wantMoves[pu.PatronID]
			if !known {
				t.Fatalf("position update for unexpected patron %s", pu.PatronID)
			}
			if pu.Position != want {
				t.Fatalf("patron %s moved to %d, want %d", pu.PatronID, pu.Position, want)
			}
			if pu.EstimatedWaitMinutes != (want-1)*testServiceTime {
				t.Fatalf("patron %s estimate = %d, want %d", pu.PatronID, pu.EstimatedWaitMinutes, (want-1)*testServiceTime)
			}
			delete(wantMoves, pu.PatronID)
		}
		if len(wantMoves) != 0 {
			t.Fatalf("missing position updates for %v", wantMoves)
		}

		status, err := svc.Position(ctx, b.PatronID)
		if err != nil {
			t.Fatalf("position: %v", err)
		}
		if status.Position != 1 || status.PatientsAhead != 0 {
			t.Fatalf("expected b at front with none ahead, got %+v", status)
		}
	})

	t.Run("no-show shifts positions the same way", func(t *testing.T) {
		svc, _, sub := newQueueService(t)
		ctx := context.Background()

		a, _ := svc.CheckIn(ctx, checkInReq("Ana Diaz", "5550000001"))
		b, _ := svc.CheckIn(ctx, checkInReq("Ben Ortiz", "5550000002"))
		drain(sub)

		if err := svc.MarkNoShow(ctx, a.PatronID); err != nil {
			t.Fatalf("mark no-show: %v", err)
		}

		events := drain(sub)
		if len(events) != 2 {
			t.Fatalf("expected no_show + 1 position update, got %d events", len(events))
		}
		if _, ok := events[0].(domain.NoShowEvent); !ok {
			t.Fatalf("first event should be NoShowEvent, got %T", events[0])
		}
		pu := events[1].(domain.PositionUpdatedEvent)
		if pu.PatronID != b.PatronID || pu.Position != 1 {
			t.Fatalf("unexpected position update %+v", pu)
		}
	})

	t.Run("unknown patron yields ErrNotFound", func(t *testing.T) {
		svc, _, _ := newQueueService(t)
		err := svc.MarkCompleted(context.Background(), "no-such-patron")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("no position events when nobody moved", func(t *testing.T) {
		svc, _, sub := newQueueService(t)
		ctx := context.Background()

		svc.CheckIn(ctx, checkInReq("Ana Diaz", "5550000001"))
		tail, _ := svc.CheckIn(ctx, checkInReq("Ben Ortiz", "5550000002"))
		drain(sub)

		// Removing the tail entry leaves position 1 untouched.
		if err := svc.MarkNoShow(ctx, tail.PatronID); err != nil {
			t.Fatalf("mark no-show: %v", err)
		}
		events := drain(sub)
		if len(events) != 1 {
			t.Fatalf("expected only the no_show event, got %d", len(events))
		}
	})
}

func TestQueueService_Position(t *testing.T) {
	svc, _, _ := newQueueService(t)
	ctx := context.Background()

	svc.CheckIn(ctx, checkInReq("Ana Diaz", "5550000001"))
	b, _ := svc.CheckIn(ctx, checkInReq("Ben Ortiz", "5550000002"))

	status, err := svc.Position(ctx, b.PatronID)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if status.Position != 2 || status.PatientsAhead != 1 {
		t.Fatalf("got %+v, want position 2 with 1 ahead", status)
	}
	if status.EstimatedWaitMinutes != testServiceTime {
		t.Fatalf("estimate = %d, want %d", status.EstimatedWaitMinutes, testServiceTime)
	}

	_, err = svc.Position(ctx, "no-such-patron")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQueueService_PublishRefresh(t *testing.T) {
	svc, _, sub := newQueueService(t)
	ctx := context.Background()

	svc.CheckIn(ctx, checkInReq("Ana Diaz", "5550000001"))
	svc.CheckIn(ctx, checkInReq("Ben Ortiz", "5550000002"))
	drain(sub)

	if err := svc.PublishRefresh(ctx); err != nil {
		t.Fatalf("publish refresh: %v", err)
	}
	events := drain(sub)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	qr, ok := events[0].(domain.QueueRefreshedEvent)
	if !ok {
		t.Fatalf("expected QueueRefreshedEvent, got %T", events[0])
	}
	if len(qr.Entries) != 2 {
		t.Fatalf("expected 2 entries in refresh, got %d", len(qr.Entries))
	}
	if qr.Entries[0].Position != 1 || qr.Entries[1].Position != 2 {
		t.Fatalf("refresh entries out of order: %+v", qr.Entries)
	}
}

func TestQueueService_RepositoryFailure(t *testing.T) {
	svc, repo, sub := newQueueService(t)
	repo.CheckInErr = errors.New("connection reset")

	_, err := svc.CheckIn(context.Background(), checkInReq("Ana Diaz", "5550000001"))
	if err == nil {
		t.Fatal("expected error")
	}
	if events := drain(sub); len(events) != 0 {
		t.Fatalf("expected no events on failed mutation, got %d", len(events))
	}
}
