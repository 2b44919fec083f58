package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicq/patient-queue/internal/domain"
	"github.com/clinicq/patient-queue/internal/repository"
)

// Limiter gates outbound sends. Implemented by ratelimiter.KindLimiters.
type Limiter interface {
	Wait(ctx context.Context, kind IntentKind) error
}

// MetricHooks carries the metric callbacks injected by main. Using a
// struct keeps the pool constructor signature clean.
type MetricHooks struct {
	OnSent   func(kind IntentKind, latency time.Duration)
	OnFailed func(kind IntentKind)
}

func (h *MetricHooks) fill() {
	if h.OnSent == nil {
		h.OnSent = func(IntentKind, time.Duration) {}
	}
	if h.OnFailed == nil {
		h.OnFailed = func(IntentKind) {}
	}
}

// Worker is a single goroutine that pulls intents from the queue,
// applies rate limiting, and delivers via the provider with bounded
// in-process retry. Retries block only this worker's current task;
// backoff sleeps are cooperative and never delay other deliveries.
//
// Delivery outcomes are recorded for audit and are invisible to the
// queue mutation that triggered them — a failed send never touches
// queue state.
type Worker struct {
	id         int
	q          *IntentQueue
	provider   Provider
	limiter    Limiter
	attempts   repository.AttemptRepository
	maxRetries int
	backoff    BackoffPolicy
	sleeper    Sleeper
	hooks      MetricHooks
	logger     *zap.Logger
}

func NewWorker(
	id int,
	q *IntentQueue,
	provider Provider,
	limiter Limiter,
	attempts repository.AttemptRepository,
	maxRetries int,
	backoff BackoffPolicy,
	sleeper Sleeper,
	hooks MetricHooks,
	logger *zap.Logger,
) *Worker {
	hooks.fill()
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}
	return &Worker{
		id: id, q: q, provider: provider, limiter: limiter,
		attempts: attempts, maxRetries: maxRetries,
		backoff: backoff, sleeper: sleeper, hooks: hooks, logger: logger,
	}
}

// Run blocks until ctx is cancelled, processing one intent per iteration.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("delivery worker started", zap.Int("id", w.id))
	for {
		in, ok := w.q.Dequeue(ctx)
		if !ok {
			w.logger.Info("delivery worker stopping", zap.Int("id", w.id))
			return
		}
		w.deliver(ctx, in)
	}
}

// deliver runs the bounded retry loop for one intent: up to maxRetries
// additional attempts after the first, retrying only transient failures,
// with exponential backoff between tries. Every settled delivery is
// recorded exactly once.
func (w *Worker) deliver(ctx context.Context, in Intent) {
	start := time.Now()
	log := w.logger.With(
		zap.String("kind", string(in.Kind)),
		zap.String("patron_id", in.PatronID),
	)

	var lastErr error
	tried := 0
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if err := w.limiter.Wait(ctx, in.Kind); err != nil {
			// ctx cancelled while waiting — worker is shutting down.
			return
		}

		tried++
		resp, err := w.provider.Send(ctx, in.Address, in.Body)
		if err == nil {
			w.record(in, domain.OutcomeSent, resp.MessageID, tried, nil)
			w.hooks.OnSent(in.Kind, time.Since(start))
			log.Info("notification sent",
				zap.String("provider_ref", resp.MessageID),
				zap.Int("attempts", tried),
			)
			return
		}

		lastErr = err
		if !IsTransient(err) {
			log.Warn("permanent delivery failure", zap.Error(err))
			break
		}
		if attempt == w.maxRetries {
			log.Warn("retries exhausted", zap.Error(err), zap.Int("attempts", tried))
			break
		}

		delay := w.backoff.Delay(attempt)
		log.Debug("transient delivery failure, backing off",
			zap.Error(err),
			zap.Duration("delay", delay),
		)
		if err := w.sleeper.Sleep(ctx, delay); err != nil {
			return
		}
	}

	w.record(in, domain.OutcomeFailed, "", tried, lastErr)
	w.hooks.OnFailed(in.Kind)
}

func (w *Worker) record(in Intent, outcome domain.AttemptOutcome, providerRef string, tried int, lastErr error) {
	a := &domain.NotificationAttempt{
		ID:          uuid.New().String(),
		PatronID:    in.PatronID,
		Address:     in.Address,
		Body:        in.Body,
		Outcome:     outcome,
		ProviderRef: providerRef,
		Attempts:    tried,
		CreatedAt:   time.Now().UTC(),
	}
	if lastErr != nil {
		a.LastError = lastErr.Error()
	}
	// Audit writes use a background context so a shutdown mid-delivery
	// still records the outcome.
	if err := w.attempts.Record(context.Background(), a); err != nil {
		w.logger.Error("failed to record notification attempt", zap.Error(err))
	}
}

// Pool manages the lifecycle of all delivery workers. All workers share
// the same intent queue; the queue's tiered dequeue handles urgency
// ordering internally.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

func NewPool(
	count int,
	q *IntentQueue,
	provider Provider,
	limiter Limiter,
	attempts repository.AttemptRepository,
	maxRetries int,
	backoff BackoffPolicy,
	logger *zap.Logger,
	hooks MetricHooks,
) *Pool {
	workers := make([]*Worker, count)
	for i := range workers {
		workers[i] = NewWorker(
			i, q, provider, limiter, attempts, maxRetries, backoff, nil, hooks,
			logger.With(zap.Int("worker_id", i)),
		)
	}
	return &Pool{workers: workers}
}

// Start launches all workers as goroutines. Cancelling ctx triggers a
// graceful shutdown of the entire pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned after ctx is cancelled.
func (p *Pool) Wait() {
	p.wg.Wait()
}
