package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/veloship/leadrelay/internal/db"
	"github.com/veloship/leadrelay/internal/notify"
)

type fakeRepo struct {
	mu          sync.Mutex
	submissions []*db.Submission
	createErr   error

	global   *db.GlobalSettings
	form     map[string]*db.FormSettings
	attempts []*db.DispatchAttempt
	queryErr error
}

func (f *fakeRepo) CreateSubmission(ctx context.Context, sub *db.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.submissions = append(f.submissions, sub)
	return nil
}

func (f *fakeRepo) GlobalSettings(ctx context.Context) (*db.GlobalSettings, error) {
	return f.global, f.queryErr
}

func (f *fakeRepo) SaveGlobalSettings(ctx context.Context, s *db.GlobalSettings) error {
	f.global = s
	return f.queryErr
}

func (f *fakeRepo) FormSettings(ctx context.Context, formType string) (*db.FormSettings, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.form[formType], nil
}

func (f *fakeRepo) SaveFormSettings(ctx context.Context, s *db.FormSettings) error {
	if f.form == nil {
		f.form = make(map[string]*db.FormSettings)
	}
	f.form[s.FormType] = s
	return f.queryErr
}

func (f *fakeRepo) ListAttempts(ctx context.Context, formType string, limit, offset int) ([]*db.DispatchAttempt, error) {
	return f.attempts, f.queryErr
}

type fakeQueue struct {
	mu     sync.Mutex
	events []notify.SubmissionEvent
	err    error
}

func (f *fakeQueue) Enqueue(ctx context.Context, event notify.SubmissionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func newTestRouter(repo *fakeRepo, queue *fakeQueue) http.Handler {
	h := NewHandler(zap.NewNop(), repo, queue)

	r := chi.NewRouter()
	r.Post("/v1/forms/{formType}", h.SubmitLead)
	r.Get("/v1/admin/notifications/global", h.GetGlobalSettings)
	r.Put("/v1/admin/notifications/global", h.PutGlobalSettings)
	r.Get("/v1/admin/notifications/forms/{formType}", h.GetFormSettings)
	r.Put("/v1/admin/notifications/forms/{formType}", h.PutFormSettings)
	r.Get("/v1/admin/notifications/attempts", h.ListAttempts)
	return r
}

func TestSubmitLead(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{
			name:       "valid quote accepted",
			path:       "/v1/forms/quote",
			body:       `{"email":"a@x.com","origin":"Lisbon","destination":"Hamburg"}`,
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "valid contact accepted",
			path:       "/v1/forms/contact",
			body:       `{"email":"a@x.com","message":"help"}`,
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "unknown form type",
			path:       "/v1/forms/newsletter",
			body:       `{"email":"a@x.com"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "missing required field",
			path:       "/v1/forms/quote",
			body:       `{"email":"a@x.com","origin":"Lisbon"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid email",
			path:       "/v1/forms/contact",
			body:       `{"email":"not-an-email","message":"hi"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed json",
			path:       "/v1/forms/contact",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{}
			queue := &fakeQueue{}
			router := newTestRouter(repo, queue)

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}

			if tt.wantStatus == http.StatusAccepted {
				var resp SubmissionResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if resp.ID == "" {
					t.Error("response missing submission id")
				}
				if len(repo.submissions) != 1 {
					t.Errorf("persisted %d submissions, want 1", len(repo.submissions))
				}
				if len(queue.events) != 1 {
					t.Fatalf("enqueued %d events, want 1", len(queue.events))
				}
				if queue.events[0].SubmissionID != resp.ID {
					t.Errorf("event submission id %q does not match response %q", queue.events[0].SubmissionID, resp.ID)
				}
			} else {
				if len(repo.submissions) != 0 {
					t.Errorf("rejected request persisted a submission")
				}
				if len(queue.events) != 0 {
					t.Errorf("rejected request enqueued an event")
				}
				if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
					t.Errorf("error content type = %q", ct)
				}
			}
		})
	}
}

func TestSubmitLeadQueueFailureStillAccepted(t *testing.T) {
	repo := &fakeRepo{}
	queue := &fakeQueue{err: notify.ErrQueueFull}
	router := newTestRouter(repo, queue)

	body := `{"email":"a@x.com","message":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/forms/contact", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if len(repo.submissions) != 1 {
		t.Errorf("submission not persisted despite queue failure")
	}
}

func TestSubmitLeadDatabaseFailure(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("connection refused")}
	queue := &fakeQueue{}
	router := newTestRouter(repo, queue)

	body := `{"email":"a@x.com","message":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/forms/contact", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if len(queue.events) != 0 {
		t.Errorf("event enqueued for an unpersisted submission")
	}
}

func TestGlobalSettingsRoundTrip(t *testing.T) {
	repo := &fakeRepo{}
	router := newTestRouter(repo, &fakeQueue{})

	// Not configured yet.
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/notifications/global", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET before configuration: status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	// Configure.
	body := `{"enabled":true,"addresses":["ops@x.com"],"overrides_per_form":true}`
	req = httptest.NewRequest(http.MethodPut, "/v1/admin/notifications/global", bytes.NewReader([]byte(body)))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT: status = %d, body: %s", rec.Code, rec.Body.String())
	}

	// Read back.
	req = httptest.NewRequest(http.MethodGet, "/v1/admin/notifications/global", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET after configuration: status = %d", rec.Code)
	}

	var got db.GlobalSettings
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode settings: %v", err)
	}
	if !got.Enabled || !got.OverridesPerForm || len(got.Addresses) != 1 {
		t.Errorf("settings round trip mismatch: %+v", got)
	}
}

func TestFormSettings(t *testing.T) {
	repo := &fakeRepo{}
	router := newTestRouter(repo, &fakeQueue{})

	t.Run("unknown form type rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/notifications/forms/newsletter", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("path form type wins over body", func(t *testing.T) {
		body := `{"form_type":"contact","enabled":true,"addresses":["q@x.com"]}`
		req := httptest.NewRequest(http.MethodPut, "/v1/admin/notifications/forms/quote", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
		}
		if repo.form["quote"] == nil {
			t.Fatal("settings not stored under the path form type")
		}
	})
}

func TestListAttempts(t *testing.T) {
	reason := "mailbox unavailable"
	repo := &fakeRepo{
		attempts: []*db.DispatchAttempt{
			{FormType: db.FormQuote, RecipientEmail: "a@x.com", Status: db.AttemptStatusSent},
			{FormType: db.FormQuote, RecipientEmail: "b@x.com", Status: db.AttemptStatusFailed, ErrorMessage: &reason},
		},
	}
	router := newTestRouter(repo, &fakeQueue{})

	t.Run("lists attempts", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/notifications/attempts", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		var resp struct {
			Attempts []*db.DispatchAttempt `json:"attempts"`
			Limit    int                   `json:"limit"`
			Offset   int                   `json:"offset"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp.Attempts) != 2 {
			t.Errorf("attempts = %d, want 2", len(resp.Attempts))
		}
		if resp.Limit != 50 {
			t.Errorf("default limit = %d, want 50", resp.Limit)
		}
	})

	t.Run("invalid limit rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/notifications/attempts?limit=9999", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("unknown form type filter rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/notifications/attempts?form_type=newsletter", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("empty result is an empty list", func(t *testing.T) {
		empty := &fakeRepo{}
		router := newTestRouter(empty, &fakeQueue{})
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/notifications/attempts", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"attempts":[]`) {
			t.Errorf("empty result not rendered as []: %s", rec.Body.String())
		}
	})
}
