package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veloship/leadrelay/internal/db"
	"github.com/veloship/leadrelay/internal/metrics"
	"github.com/veloship/leadrelay/internal/notify"
)

// Repository defines the database operations the API depends on.
type Repository interface {
	CreateSubmission(ctx context.Context, sub *db.Submission) error
	GlobalSettings(ctx context.Context) (*db.GlobalSettings, error)
	SaveGlobalSettings(ctx context.Context, s *db.GlobalSettings) error
	FormSettings(ctx context.Context, formType string) (*db.FormSettings, error)
	SaveFormSettings(ctx context.Context, s *db.FormSettings) error
	ListAttempts(ctx context.Context, formType string, limit, offset int) ([]*db.DispatchAttempt, error)
}

// SubmissionResponse is returned after accepting a lead.
type SubmissionResponse struct {
	ID string `json:"id"`
}

// ErrorResponse represents an error in problem+json format
type ErrorResponse struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Handler holds dependencies for API handlers
type Handler struct {
	logger *zap.Logger
	repo   Repository
	queue  notify.Queue
}

// NewHandler creates a new API handler
func NewHandler(logger *zap.Logger, repo Repository, queue notify.Queue) *Handler {
	return &Handler{
		logger: logger,
		repo:   repo,
		queue:  queue,
	}
}

// requiredFields lists the business-level fields a form must carry
// before a submission is accepted. Everything else is optional; the
// renderer fills gaps with an explicit placeholder.
var requiredFields = map[string][]string{
	db.FormQuote:        {"email", "origin", "destination"},
	db.FormConsultation: {"email", "service"},
	db.FormContact:      {"email", "message"},
}

// SubmitLead handles POST /v1/forms/{formType}. The submission is
// persisted and the notify event is fired through the dispatch queue;
// the response never waits on (or fails because of) mail delivery.
func (h *Handler) SubmitLead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	formType := chi.URLParam(r, "formType")
	if !db.KnownFormType(formType) {
		h.writeError(w, http.StatusNotFound, "unknown_form", "Unknown form type", "form type must be quote, consultation, or contact")
		return
	}

	var payload map[string]string
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	for _, field := range requiredFields[formType] {
		if strings.TrimSpace(payload[field]) == "" {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Missing required field", field+" is required")
			return
		}
	}

	if !notify.ValidAddress(strings.TrimSpace(payload["email"])) {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid email", "email must be a valid address")
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid payload", err.Error())
		return
	}

	sub := &db.Submission{
		ID:       uuid.New(),
		FormType: formType,
		Payload:  raw,
	}

	if err := h.repo.CreateSubmission(ctx, sub); err != nil {
		h.logger.Error("failed to create submission",
			zap.Error(err),
			zap.String("form_type", formType),
		)
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to store submission", "")
		return
	}

	metrics.RecordSubmission(formType)

	// Fire and forget: a queue hiccup is an operational problem, never
	// a reason to fail the visitor's submission.
	event := notify.SubmissionEvent{
		FormType:     formType,
		SubmissionID: sub.ID.String(),
		Payload:      payload,
	}
	if err := h.queue.Enqueue(ctx, event); err != nil {
		h.logger.Error("failed to enqueue notify event",
			zap.Error(err),
			zap.String("submission_id", sub.ID.String()),
			zap.String("form_type", formType),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(SubmissionResponse{ID: sub.ID.String()})
}

// GetGlobalSettings handles GET /v1/admin/notifications/global
func (h *Handler) GetGlobalSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.repo.GlobalSettings(r.Context())
	if err != nil {
		h.logger.Error("failed to load global settings", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to load settings", "")
		return
	}

	if settings == nil {
		h.writeError(w, http.StatusNotFound, "not_found", "Global settings not configured", "")
		return
	}

	h.writeJSON(w, http.StatusOK, settings)
}

// PutGlobalSettings handles PUT /v1/admin/notifications/global
func (h *Handler) PutGlobalSettings(w http.ResponseWriter, r *http.Request) {
	var settings db.GlobalSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	if err := h.repo.SaveGlobalSettings(r.Context(), &settings); err != nil {
		h.logger.Error("failed to save global settings", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to save settings", "")
		return
	}

	h.writeJSON(w, http.StatusOK, &settings)
}

// GetFormSettings handles GET /v1/admin/notifications/forms/{formType}
func (h *Handler) GetFormSettings(w http.ResponseWriter, r *http.Request) {
	formType := chi.URLParam(r, "formType")
	if !db.KnownFormType(formType) {
		h.writeError(w, http.StatusNotFound, "unknown_form", "Unknown form type", "")
		return
	}

	settings, err := h.repo.FormSettings(r.Context(), formType)
	if err != nil {
		h.logger.Error("failed to load form settings",
			zap.Error(err),
			zap.String("form_type", formType),
		)
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to load settings", "")
		return
	}

	if settings == nil {
		h.writeError(w, http.StatusNotFound, "not_found", "Form settings not configured", "")
		return
	}

	h.writeJSON(w, http.StatusOK, settings)
}

// PutFormSettings handles PUT /v1/admin/notifications/forms/{formType}
func (h *Handler) PutFormSettings(w http.ResponseWriter, r *http.Request) {
	formType := chi.URLParam(r, "formType")
	if !db.KnownFormType(formType) {
		h.writeError(w, http.StatusNotFound, "unknown_form", "Unknown form type", "")
		return
	}

	var settings db.FormSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}
	settings.FormType = formType

	if err := h.repo.SaveFormSettings(r.Context(), &settings); err != nil {
		h.logger.Error("failed to save form settings",
			zap.Error(err),
			zap.String("form_type", formType),
		)
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to save settings", "")
		return
	}

	h.writeJSON(w, http.StatusOK, &settings)
}

// ListAttempts handles GET /v1/admin/notifications/attempts
func (h *Handler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	formType := r.URL.Query().Get("form_type")
	if formType != "" && !db.KnownFormType(formType) {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Unknown form type", "")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid limit", "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid offset", "offset must be non-negative")
			return
		}
		offset = n
	}

	attempts, err := h.repo.ListAttempts(r.Context(), formType, limit, offset)
	if err != nil {
		h.logger.Error("failed to list dispatch attempts", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "database_error", "Failed to list attempts", "")
		return
	}

	if attempts == nil {
		attempts = []*db.DispatchAttempt{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"attempts": attempts,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, errType, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Type:   errType,
		Title:  title,
		Status: status,
		Detail: detail,
	})
}
