package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Form type constants. Every inbound lead belongs to exactly one of these.
const (
	FormQuote        = "quote"
	FormConsultation = "consultation"
	FormContact      = "contact"
)

// Dispatch attempt status constants
const (
	AttemptStatusSent   = "sent"
	AttemptStatusFailed = "failed"
)

// KnownFormType reports whether tag is one of the supported form types.
func KnownFormType(tag string) bool {
	return tag == FormQuote || tag == FormConsultation || tag == FormContact
}

// GlobalSettings is the singleton notification configuration edited from
// the admin settings screen. Addresses may contain `;`/`,`-separated
// entries; they are split and validated at resolution time, not here.
type GlobalSettings struct {
	Enabled          bool      `json:"enabled"`
	Addresses        []string  `json:"addresses"`
	OverridesPerForm bool      `json:"overrides_per_form"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FormSettings is the per-form-type notification configuration.
// At most one row exists per form type; absence means disabled.
type FormSettings struct {
	FormType        string    `json:"form_type"`
	Enabled         bool      `json:"enabled"`
	Addresses       []string  `json:"addresses"`
	SubjectTemplate *string   `json:"subject_template,omitempty"`
	IncludeFormData bool      `json:"include_form_data"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Submission is a persisted lead (quote, consultation or contact request).
type Submission struct {
	ID        uuid.UUID       `json:"id"`
	FormType  string          `json:"form_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// DispatchAttempt is one logged outcome of emailing one recipient for one
// triggering event. Rows are written once and never updated.
type DispatchAttempt struct {
	ID             uuid.UUID  `json:"id"`
	FormType       string     `json:"form_type"`
	SubmissionID   *string    `json:"submission_id,omitempty"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject"`
	Status         string     `json:"status"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
