package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Repository handles database operations for settings, submissions and
// the dispatch-attempt log.
type Repository struct {
	db     *DB
	logger *zap.Logger
}

// NewRepository creates a new repository
func NewRepository(db *DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GlobalSettings returns the singleton notification settings row.
// Absence is a valid state and is reported as (nil, nil).
func (r *Repository) GlobalSettings(ctx context.Context) (*GlobalSettings, error) {
	query := `
		SELECT enabled, addresses, overrides_per_form, updated_at
		FROM notification_settings
		WHERE id = 1
	`

	var s GlobalSettings
	err := r.db.Pool().QueryRow(ctx, query).Scan(
		&s.Enabled,
		&s.Addresses,
		&s.OverridesPerForm,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query global settings: %w", err)
	}

	return &s, nil
}

// SaveGlobalSettings upserts the singleton notification settings row.
func (r *Repository) SaveGlobalSettings(ctx context.Context, s *GlobalSettings) error {
	query := `
		INSERT INTO notification_settings (id, enabled, addresses, overrides_per_form, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET enabled = $1, addresses = $2, overrides_per_form = $3, updated_at = NOW()
		RETURNING updated_at
	`

	err := r.db.Pool().QueryRow(ctx, query, s.Enabled, s.Addresses, s.OverridesPerForm).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert global settings: %w", err)
	}

	r.logger.Info("global notification settings saved",
		zap.Bool("enabled", s.Enabled),
		zap.Int("addresses", len(s.Addresses)),
		zap.Bool("overrides_per_form", s.OverridesPerForm),
	)

	return nil
}

// FormSettings returns the settings row for one form type, or (nil, nil)
// when no row exists.
func (r *Repository) FormSettings(ctx context.Context, formType string) (*FormSettings, error) {
	query := `
		SELECT form_type, enabled, addresses, subject_template, include_form_data, updated_at
		FROM form_notification_settings
		WHERE form_type = $1
	`

	var s FormSettings
	err := r.db.Pool().QueryRow(ctx, query, formType).Scan(
		&s.FormType,
		&s.Enabled,
		&s.Addresses,
		&s.SubjectTemplate,
		&s.IncludeFormData,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query form settings for %s: %w", formType, err)
	}

	return &s, nil
}

// SaveFormSettings upserts the settings row for one form type.
func (r *Repository) SaveFormSettings(ctx context.Context, s *FormSettings) error {
	query := `
		INSERT INTO form_notification_settings
			(form_type, enabled, addresses, subject_template, include_form_data, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (form_type) DO UPDATE
		SET enabled = $2, addresses = $3, subject_template = $4, include_form_data = $5, updated_at = NOW()
		RETURNING updated_at
	`

	err := r.db.Pool().QueryRow(ctx, query,
		s.FormType, s.Enabled, s.Addresses, s.SubjectTemplate, s.IncludeFormData,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert form settings for %s: %w", s.FormType, err)
	}

	r.logger.Info("form notification settings saved",
		zap.String("form_type", s.FormType),
		zap.Bool("enabled", s.Enabled),
		zap.Int("addresses", len(s.Addresses)),
	)

	return nil
}

// CreateSubmission inserts a new lead submission
func (r *Repository) CreateSubmission(ctx context.Context, sub *Submission) error {
	query := `
		INSERT INTO submissions (id, form_type, payload)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	err := r.db.Pool().QueryRow(ctx, query, sub.ID, sub.FormType, sub.Payload).Scan(&sub.CreatedAt)
	if err != nil {
		r.logger.Error("failed to create submission",
			zap.Error(err),
			zap.String("submission_id", sub.ID.String()),
		)
		return fmt.Errorf("insert submission: %w", err)
	}

	r.logger.Info("submission created",
		zap.String("submission_id", sub.ID.String()),
		zap.String("form_type", sub.FormType),
	)

	return nil
}

// GetSubmission retrieves a submission by ID
func (r *Repository) GetSubmission(ctx context.Context, id uuid.UUID) (*Submission, error) {
	query := `
		SELECT id, form_type, payload, created_at
		FROM submissions
		WHERE id = $1
	`

	var sub Submission
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&sub.ID,
		&sub.FormType,
		&sub.Payload,
		&sub.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("submission not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query submission: %w", err)
	}

	return &sub, nil
}

// InsertAttempt appends one dispatch attempt to the audit log.
// Attempt rows are immutable; there is no update path.
func (r *Repository) InsertAttempt(ctx context.Context, attempt *DispatchAttempt) error {
	query := `
		INSERT INTO dispatch_attempts (
			id, form_type, submission_id, recipient_email,
			subject, status, error_message, sent_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING created_at
	`

	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}

	err := r.db.Pool().QueryRow(
		ctx,
		query,
		attempt.ID,
		attempt.FormType,
		attempt.SubmissionID,
		attempt.RecipientEmail,
		attempt.Subject,
		attempt.Status,
		attempt.ErrorMessage,
		attempt.SentAt,
	).Scan(&attempt.CreatedAt)

	if err != nil {
		return fmt.Errorf("insert dispatch attempt: %w", err)
	}

	return nil
}

// ListAttempts retrieves dispatch attempts, newest first, optionally
// filtered by form type. formType may be empty.
func (r *Repository) ListAttempts(ctx context.Context, formType string, limit, offset int) ([]*DispatchAttempt, error) {
	query := `
		SELECT id, form_type, submission_id, recipient_email,
		       subject, status, error_message, sent_at, created_at
		FROM dispatch_attempts
		WHERE ($1 = '' OR form_type = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool().Query(ctx, query, formType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query dispatch attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*DispatchAttempt
	for rows.Next() {
		var a DispatchAttempt
		err := rows.Scan(
			&a.ID,
			&a.FormType,
			&a.SubmissionID,
			&a.RecipientEmail,
			&a.Subject,
			&a.Status,
			&a.ErrorMessage,
			&a.SentAt,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan dispatch attempt: %w", err)
		}
		attempts = append(attempts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return attempts, nil
}
