package notify

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/veloship/leadrelay/internal/metrics"
)

// ErrQueueFull is returned when the in-process dispatch buffer is at
// capacity. Callers treat this as an operational event, not a client
// error.
var ErrQueueFull = errors.New("dispatch queue is full")

// ErrQueueClosed is returned when an event is enqueued after shutdown
// has begun.
var ErrQueueClosed = errors.New("dispatch queue is closed")

// Queue is the fire-and-forget trigger boundary. Form handlers submit
// the notify event here and return to the visitor without waiting on
// mail-provider latency.
type Queue interface {
	Enqueue(ctx context.Context, event SubmissionEvent) error
}

// DispatchGuard enforces at-most-one dispatch per triggering event
// across processes. A nil guard disables the check.
type DispatchGuard interface {
	Acquire(ctx context.Context, eventID string) (bool, error)
}

// QueueConfig tunes the in-process worker pool.
type QueueConfig struct {
	Workers int
	Buffer  int
}

// WorkerQueue is a bounded, supervised in-process dispatch queue.
// Events buffered here are lost if the process exits before the pool
// drains; deployments that cannot accept that window configure the SQS
// queue instead.
type WorkerQueue struct {
	dispatcher *Dispatcher
	guard      DispatchGuard
	events     chan SubmissionEvent
	logger     *zap.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewWorkerQueue creates the pool and starts its workers.
func NewWorkerQueue(dispatcher *Dispatcher, guard DispatchGuard, cfg QueueConfig, logger *zap.Logger) *WorkerQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}

	q := &WorkerQueue{
		dispatcher: dispatcher,
		guard:      guard,
		events:     make(chan SubmissionEvent, cfg.Buffer),
		logger:     logger,
	}

	q.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go q.worker()
	}

	logger.Info("dispatch queue started",
		zap.Int("workers", cfg.Workers),
		zap.Int("buffer", cfg.Buffer),
	)

	return q
}

// Enqueue submits an event for asynchronous dispatch. It never blocks:
// a full buffer is reported as ErrQueueFull.
func (q *WorkerQueue) Enqueue(ctx context.Context, event SubmissionEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.events <- event:
		metrics.SetQueueDepth(len(q.events))
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for buffered dispatches to
// drain.
func (q *WorkerQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.events)
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("dispatch queue drained")
}

func (q *WorkerQueue) worker() {
	defer q.wg.Done()
	for event := range q.events {
		metrics.SetQueueDepth(len(q.events))
		ProcessEvent(context.Background(), q.dispatcher, q.guard, event, q.logger)
	}
}

// ProcessEvent runs one queued event through the dedup guard and the
// dispatcher. It is shared by the in-process pool and the SQS consumer
// so both trigger paths behave identically. The returned error covers
// only dispatcher escalation (settings store or render failure); guard
// trouble is advisory and logged.
func ProcessEvent(ctx context.Context, dispatcher *Dispatcher, guard DispatchGuard, event SubmissionEvent, logger *zap.Logger) error {
	if guard != nil && event.SubmissionID != "" {
		acquired, err := guard.Acquire(ctx, event.SubmissionID)
		if err != nil {
			logger.Warn("dispatch guard unavailable, proceeding",
				zap.Error(err),
				zap.String("submission_id", event.SubmissionID),
			)
		} else if !acquired {
			logger.Info("dispatch already attempted for event, skipping",
				zap.String("form_type", event.FormType),
				zap.String("submission_id", event.SubmissionID),
			)
			return nil
		}
	}

	if _, err := dispatcher.Dispatch(ctx, event); err != nil {
		logger.Error("dispatch failed before recipient fan-out",
			zap.Error(err),
			zap.String("form_type", event.FormType),
			zap.String("submission_id", event.SubmissionID),
		)
		return err
	}
	return nil
}
