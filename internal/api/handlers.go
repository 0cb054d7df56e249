package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/vietddude/remediator/internal/core/domain"
	"github.com/vietddude/remediator/internal/remediation/pipeline"
)

// maxBodySize bounds a failure report body.
const maxBodySize = 1 << 20

// FailureRequest is the body of POST /api/failures.
type FailureRequest struct {
	Kind       string         `json:"kind"`
	Category   string         `json:"category,omitempty"`
	Message    string         `json:"message"`
	Code       string         `json:"code,omitempty"`
	Location   string         `json:"location,omitempty"`
	StatusCode int            `json:"status_code,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (req FailureRequest) validate() (domain.FailureKind, []fieldError) {
	var problems []fieldError
	kind, err := domain.ParseFailureKind(req.Kind)
	if err != nil {
		problems = append(problems, fieldError{Field: "kind", Message: err.Error()})
	}
	if strings.TrimSpace(req.Message) == "" {
		problems = append(problems, fieldError{Field: "message", Message: "message is required"})
	}
	if req.StatusCode != 0 && (req.StatusCode < 400 || req.StatusCode > 599) {
		problems = append(problems, fieldError{Field: "status_code", Message: "status_code must be a 4xx or 5xx code"})
	}
	return kind, problems
}

func (req FailureRequest) failure(kind domain.FailureKind) *domain.Failure {
	f := domain.NewFailure(kind, req.Message, req.Context).
		WithCategory(domain.ParseCategory(req.Category)).
		WithStatus(req.StatusCode)
	if req.Code != "" {
		f = f.WithCode(req.Code)
	}
	if req.Location != "" {
		f = f.WithLocation(req.Location)
	}
	return f
}

func (s *Server) handleFailure(w http.ResponseWriter, r *http.Request) {
	var req FailureRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:   "Validation error",
			Details: []fieldError{{Field: "body", Message: err.Error()}},
		})
		return
	}

	kind, problems := req.validate()
	if len(problems) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "Validation error", Details: problems})
		return
	}

	res := s.failures.Handle(r.Context(), req.failure(kind))
	writeJSON(w, statusFor(res), res)
}

// statusFor maps a pipeline result onto an HTTP status.
func statusFor(res pipeline.Result) int {
	switch res.Outcome {
	case pipeline.OutcomeCorrected:
		return http.StatusOK
	case pipeline.OutcomeError:
		return http.StatusInternalServerError
	}
	if res.StatusCode >= 400 && res.StatusCode <= 599 {
		return res.StatusCode
	}
	return http.StatusBadRequest
}

func (s *Server) handleErrorHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := s.limit(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "Validation error", Details: err.Error()})
		return
	}
	records, err := s.history.GetErrorHistory(r.Context(), limit)
	if err != nil {
		s.log.Error("Failed to read error history", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"errors": records, "limit": limit})
}

func (s *Server) handleCorrectionHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := s.limit(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "Validation error", Details: err.Error()})
		return
	}
	records, err := s.history.GetCorrectionHistory(r.Context(), limit)
	if err != nil {
		s.log.Error("Failed to read correction history", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"corrections": records, "limit": limit})
}

func (s *Server) handleErrorDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := s.history.GetError(r.Context(), id)
	if err != nil {
		s.log.Error("Failed to read error record", "error", err, "error_id", id)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("error record %s not found", id)})
		return
	}
	correction, err := s.history.GetCorrection(r.Context(), id)
	if err != nil {
		s.log.Error("Failed to read correction record", "error", err, "error_id", id)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"error":           rec,
		"severity":        rec.Category.Severity(),
		"possible_causes": rec.Category.PossibleCauses(),
		"correction":      correction,
	})
}

func (s *Server) limit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return s.history.DefaultLimit(), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return s.history.Limit(n), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
