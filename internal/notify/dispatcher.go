package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/veloship/leadrelay/internal/db"
	"github.com/veloship/leadrelay/internal/mailer"
	"github.com/veloship/leadrelay/internal/metrics"
)

const transportNotConfigured = "email transport not configured"

// AttemptLogger persists one outcome record per (event, recipient).
// Implementations are best-effort: a failed audit write must never
// surface to the dispatch caller.
type AttemptLogger interface {
	Record(ctx context.Context, attempt *db.DispatchAttempt)
}

// Dispatcher is the engine's entry point: it resolves recipients,
// renders the message once, fans sends out concurrently, and records
// exactly one attempt per recipient. It is shared by every trigger path
// (HTTP intake and the queue consumers) so the merge logic exists once.
type Dispatcher struct {
	resolver    *Resolver
	transport   mailer.Transport // nil when no provider is configured
	attempts    AttemptLogger
	logger      *zap.Logger
	sendTimeout time.Duration
}

// NewDispatcher wires a dispatcher. transport may be nil; dispatches
// then record a failed attempt per intended recipient rather than
// silently dropping the event.
func NewDispatcher(resolver *Resolver, transport mailer.Transport, attempts AttemptLogger, sendTimeout time.Duration, logger *zap.Logger) *Dispatcher {
	if sendTimeout <= 0 {
		sendTimeout = 15 * time.Second
	}
	return &Dispatcher{
		resolver:    resolver,
		transport:   transport,
		attempts:    attempts,
		logger:      logger,
		sendTimeout: sendTimeout,
	}
}

// Dispatch processes one submission event end to end and returns the
// aggregate summary. The only errors it surfaces are settings-store
// failures and render failures, both of which occur before any
// recipient-specific work; everything after recipient resolution is
// captured per recipient and never escalated.
func (d *Dispatcher) Dispatch(ctx context.Context, event SubmissionEvent) (Summary, error) {
	start := time.Now()

	recipients, err := d.resolver.Resolve(ctx, event.FormType)
	if err != nil {
		return Summary{}, err
	}

	// Suppressed or nothing configured: a normal, successful outcome
	// with zero attempts and zero log writes.
	if len(recipients) == 0 {
		d.logger.Info("dispatch suppressed, no recipients resolved",
			zap.String("form_type", event.FormType),
			zap.String("submission_id", event.SubmissionID),
		)
		return Summary{}, nil
	}

	msg, err := Render(event.FormType, event.Payload)
	if err != nil {
		return Summary{}, err
	}

	var (
		mu      sync.Mutex
		summary = Summary{Attempted: len(recipients)}
		wg      sync.WaitGroup
	)

	// Fan-out: one independent send per recipient. A failure on one
	// recipient cannot cancel, delay or alter the outcome for another.
	for _, recipient := range recipients {
		wg.Add(1)
		go func(to string) {
			defer wg.Done()

			attempt := d.sendOne(ctx, event, to, msg)
			d.attempts.Record(ctx, attempt)
			metrics.RecordAttempt(event.FormType, attempt.Status)

			mu.Lock()
			if attempt.Status == db.AttemptStatusSent {
				summary.Sent++
			} else {
				summary.Failed++
			}
			mu.Unlock()
		}(recipient)
	}

	wg.Wait()

	metrics.RecordDispatch(event.FormType, time.Since(start))

	d.logger.Info("dispatch complete",
		zap.String("form_type", event.FormType),
		zap.String("submission_id", event.SubmissionID),
		zap.Int("attempted", summary.Attempted),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
	)

	return summary, nil
}

// sendOne attempts delivery to a single recipient and builds its attempt
// record. Once fan-out has begun the parent's cancellation no longer
// applies: every resolved recipient gets exactly one bounded attempt.
func (d *Dispatcher) sendOne(ctx context.Context, event SubmissionEvent, to string, msg *Message) *db.DispatchAttempt {
	attempt := &db.DispatchAttempt{
		FormType:       event.FormType,
		RecipientEmail: to,
		Subject:        msg.Subject,
	}
	if event.SubmissionID != "" {
		id := event.SubmissionID
		attempt.SubmissionID = &id
	}

	if d.transport == nil {
		reason := transportNotConfigured
		attempt.Status = db.AttemptStatusFailed
		attempt.ErrorMessage = &reason
		return attempt
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.sendTimeout)
	defer cancel()

	if _, err := d.transport.Send(sendCtx, to, msg.Subject, msg.HTML, msg.Text); err != nil {
		d.logger.Warn("send failed",
			zap.Error(err),
			zap.String("form_type", event.FormType),
			zap.String("recipient", to),
		)
		reason := err.Error()
		attempt.Status = db.AttemptStatusFailed
		attempt.ErrorMessage = &reason
		return attempt
	}

	now := time.Now().UTC()
	attempt.Status = db.AttemptStatusSent
	attempt.SentAt = &now
	return attempt
}
