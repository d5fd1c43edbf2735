package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/veloship/leadrelay/internal/db"
)

// AttemptStore is the narrow persistence contract the audit logger
// writes through.
type AttemptStore interface {
	InsertAttempt(ctx context.Context, attempt *db.DispatchAttempt) error
}

// StoreAttemptLogger records attempts in the database, best-effort.
// A failed write is reported on the operational log and swallowed:
// losing an audit record must not make the form-submission path fail.
type StoreAttemptLogger struct {
	store  AttemptStore
	logger *zap.Logger
}

// NewStoreAttemptLogger creates a database-backed attempt logger.
func NewStoreAttemptLogger(store AttemptStore, logger *zap.Logger) *StoreAttemptLogger {
	return &StoreAttemptLogger{
		store:  store,
		logger: logger,
	}
}

func (l *StoreAttemptLogger) Record(ctx context.Context, attempt *db.DispatchAttempt) {
	if err := l.store.InsertAttempt(ctx, attempt); err != nil {
		l.logger.Error("failed to record dispatch attempt",
			zap.Error(err),
			zap.String("form_type", attempt.FormType),
			zap.String("recipient", attempt.RecipientEmail),
			zap.String("status", attempt.Status),
		)
	}
}
