package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/terra-clan/course-engine/internal/apperr"
	"github.com/terra-clan/course-engine/internal/health"
	"github.com/terra-clan/course-engine/internal/i18n"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeError(w, status, &apiError{Code: code, Message: message})
}

func writeError(w http.ResponseWriter, status int, e *apiError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(apiResponse{Success: false, Error: e}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// statusFor maps a failure kind to its HTTP status
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidState, apperr.KindAlreadyExists, apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondAppError renders err in the language of the request. Failures
// that are not domain errors are logged and reported as internal errors.
func (s *Server) respondAppError(w http.ResponseWriter, r *http.Request, op string, err error) {
	trans := s.messages.ForAcceptLanguage(r.Header.Get("Accept-Language"))

	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindInternal {
		slog.Error("request failed", "op", op, "error", err, "path", r.URL.Path)
		respondError(w, http.StatusInternalServerError, apperr.KindInternal.String(),
			s.messages.Translate(trans, i18n.KeyInternal))
		return
	}

	if e.Kind == apperr.KindUpstream {
		slog.Error("upstream failure", "op", op, "error", err)
	}

	writeError(w, statusFor(e.Kind), &apiError{
		Code:    e.Kind.String(),
		Message: s.messages.Translate(trans, e.Key, e.Args...),
		Fields:  e.Fields,
	})
}

// decodeJSON decodes the request body into v. Malformed bodies are
// reported as validation failures.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation(map[string]string{"body": "request body is required"})
		}
		return apperr.Validation(map[string]string{"body": "invalid JSON body: " + err.Error()})
	}
	return nil
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health == nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	results := s.svc.Health.CheckAll(r.Context())
	checks := make(map[string]string, len(results))
	for name, err := range results {
		if err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	if !health.Healthy(results) {
		writeError(w, http.StatusServiceUnavailable, &apiError{
			Code:    "not_ready",
			Message: "service not ready",
			Fields:  checks,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": checks,
	})
}
