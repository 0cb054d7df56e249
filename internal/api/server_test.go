package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vietddude/remediator/internal/core/domain"
	"github.com/vietddude/remediator/internal/infra/storage/memory"
	"github.com/vietddude/remediator/internal/remediation/audit"
	"github.com/vietddude/remediator/internal/remediation/executor"
	"github.com/vietddude/remediator/internal/remediation/pipeline"
	"github.com/vietddude/remediator/internal/remediation/strategy"
	"github.com/vietddude/remediator/internal/remediation/verify"
)

// =============================================================================
// Helpers
// =============================================================================

func newTestServer(t *testing.T) (*Server, *audit.Store) {
	t.Helper()
	mem := memory.NewMemoryStorage()
	store := audit.NewStore(memory.NewErrorRepo(mem), memory.NewCorrectionRepo(mem), mem, audit.Config{HistoryLimit: 2})

	limits := strategy.DefaultLimits()
	limits.MaxUploadSize = 10_000_000
	verifier := verify.New(strategy.NewResolver(limits), executor.New(0, nil))

	return NewServer(0, pipeline.New(verifier, store, nil), store, nil), store
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return rec, out
}

type panickingHandler struct{}

func (panickingHandler) Handle(context.Context, *domain.Failure) pipeline.Result {
	panic("unexpected")
}

// =============================================================================
// POST /api/failures
// =============================================================================

func TestPostFailure_Corrected(t *testing.T) {
	s, _ := newTestServer(t)

	rec, body := do(t, s.Handler(), http.MethodPost, "/api/failures",
		`{"kind":"FileValidation","category":"RESOURCE","message":"File size exceeds limit","status_code":400,"context":{"file_size":11000000}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body["correction_attempted"] != true {
		t.Error("expected correction_attempted=true")
	}
	cr := body["correction_result"].(map[string]any)
	if cr["success"] != true || cr["action"] != "compress_file" {
		t.Errorf("unexpected correction result %v", cr)
	}
	if body["error_id"] == nil || body["correction_id"] == nil {
		t.Error("expected audit ids in response")
	}
}

func TestPostFailure_NoStrategyUsesFailureStatus(t *testing.T) {
	s, store := newTestServer(t)

	rec, body := do(t, s.Handler(), http.MethodPost, "/api/failures",
		`{"kind":"file_validation","message":"Invalid upload","status_code":415,"context":{}}`)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", rec.Code)
	}
	if body["correction_attempted"] != false || body["message"] != "Invalid upload" {
		t.Errorf("unexpected body %v", body)
	}

	corrections, _ := store.GetCorrectionHistory(context.Background(), 10)
	if len(corrections) != 0 {
		t.Errorf("expected no corrections, got %d", len(corrections))
	}
}

func TestPostFailure_DefaultStatusByKind(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		body string
		want int
	}{
		{`{"kind":"system","message":"Disk pressure","context":{"resource_usage":{"disk_usage":99}}}`, http.StatusInternalServerError},
		{`{"kind":"processing","message":"Decoder stalled","context":{"audio_quality":0.9,"sample_rate":44100}}`, http.StatusInternalServerError},
		{`{"kind":"optimization","message":"Loss diverged"}`, http.StatusInternalServerError},
		{`{"kind":"file_validation","message":"Upload rejected","context":{"file_extension":".wav"}}`, http.StatusBadRequest},
		{`{"kind":"system","message":"Disk pressure","status_code":503}`, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		rec, _ := do(t, s.Handler(), http.MethodPost, "/api/failures", tt.body)
		if rec.Code != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.body, tt.want, rec.Code)
		}
	}
}

func TestPostFailure_Validation(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"kind":`},
		{"unknown kind", `{"kind":"network","message":"timeout"}`},
		{"missing message", `{"kind":"processing"}`},
		{"bad status", `{"kind":"processing","message":"x","status_code":200}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, s.Handler(), http.MethodPost, "/api/failures", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("expected 422, got %d", rec.Code)
			}
			if body["error"] != "Validation error" {
				t.Errorf("unexpected body %v", body)
			}
		})
	}
}

func TestPostFailure_PanicIs500(t *testing.T) {
	mem := memory.NewMemoryStorage()
	store := audit.NewStore(memory.NewErrorRepo(mem), memory.NewCorrectionRepo(mem), mem, audit.Config{})
	s := NewServer(0, panickingHandler{}, store, nil)

	rec, body := do(t, s.Handler(), http.MethodPost, "/api/failures", `{"kind":"processing","message":"x"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if body["error"] != "Internal server error" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		res  pipeline.Result
		want int
	}{
		{pipeline.Result{Outcome: pipeline.OutcomeCorrected, StatusCode: 400}, http.StatusOK},
		{pipeline.Result{Outcome: pipeline.OutcomeUnresolved, StatusCode: 500}, http.StatusInternalServerError},
		{pipeline.Result{Outcome: pipeline.OutcomeUnresolved}, http.StatusBadRequest},
		{pipeline.Result{Outcome: pipeline.OutcomeNotAttempted, StatusCode: 413}, http.StatusRequestEntityTooLarge},
		{pipeline.Result{Outcome: pipeline.OutcomeError, StatusCode: 400}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.res); got != tt.want {
			t.Errorf("statusFor(%+v) = %d, want %d", tt.res, got, tt.want)
		}
	}
}

// =============================================================================
// History
// =============================================================================

func TestHistory(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	for _, body := range []string{
		`{"kind":"processing","message":"Low quality","context":{"audio_quality":0.5}}`,
		`{"kind":"processing","message":"Wrong rate","context":{"sample_rate":22050}}`,
		`{"kind":"optimization","message":"Diverged","context":{"model_params":{"lr":1}}}`,
	} {
		do(t, h, http.MethodPost, "/api/failures", body)
	}

	rec, body := do(t, h, http.MethodGet, "/api/errors", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	errs := body["errors"].([]any)
	if len(errs) != 2 {
		t.Fatalf("expected default limit of 2, got %d", len(errs))
	}
	if errs[0].(map[string]any)["message"] != "Diverged" {
		t.Errorf("expected newest first, got %v", errs[0])
	}

	_, body = do(t, h, http.MethodGet, "/api/corrections?limit=10", "")
	if got := len(body["corrections"].([]any)); got != 3 {
		t.Errorf("expected 3 corrections, got %d", got)
	}

	rec, _ = do(t, h, http.MethodGet, "/api/errors?limit=abc", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for bad limit, got %d", rec.Code)
	}
}

func TestErrorDetail(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	_, created := do(t, h, http.MethodPost, "/api/failures",
		`{"kind":"processing","category":"RUNTIME","message":"Low quality","context":{"audio_quality":0.5}}`)
	id := created["error_id"].(string)

	rec, body := do(t, h, http.MethodGet, "/api/errors/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["severity"] != "high" {
		t.Errorf("expected high severity, got %v", body["severity"])
	}
	correction := body["correction"].(map[string]any)
	if correction["action"] != "enhance_audio" {
		t.Errorf("unexpected correction %v", correction)
	}

	rec, _ = do(t, h, http.MethodGet, "/api/errors/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
