package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fairyhunter13/internship-recommender/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain taxonomy onto HTTP. Typed errors fill details
// when the caller passes none.
func writeError(w http.ResponseWriter, r *http.Request, err error, details interface{}) {
	code := http.StatusInternalServerError
	codeStr := "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
		codeStr = "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
		codeStr = "NOT_FOUND"
	case errors.Is(err, domain.ErrValidation):
		code = http.StatusUnprocessableEntity
		codeStr = "VALIDATION_FAILED"
	case errors.Is(err, domain.ErrInsufficientData):
		code = http.StatusUnprocessableEntity
		codeStr = "INSUFFICIENT_DATA"
	case errors.Is(err, domain.ErrConflict):
		code = http.StatusConflict
		codeStr = "CONFLICT"
	case errors.Is(err, domain.ErrRateLimited):
		code = http.StatusTooManyRequests
		codeStr = "RATE_LIMITED"
	case errors.Is(err, domain.ErrServiceUnavailable):
		code = http.StatusServiceUnavailable
		codeStr = "SERVICE_UNAVAILABLE"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		code = http.StatusServiceUnavailable
		codeStr = "UPSTREAM_TIMEOUT"
	case errors.Is(err, domain.ErrSchemaInvalid):
		code = http.StatusServiceUnavailable
		codeStr = "SCHEMA_INVALID"
	case errors.Is(err, domain.ErrDataIntegrity):
		code = http.StatusServiceUnavailable
		codeStr = "DATA_INTEGRITY"
	case errors.Is(err, domain.ErrUpstream):
		code = http.StatusBadGateway
		codeStr = "UPSTREAM_ERROR"
	}
	if details == nil {
		details = detailsFor(err)
	}
	if code >= 500 {
		LoggerFrom(r).Error("request failed", "code", codeStr, "error", err)
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{Code: codeStr, Message: err.Error(), Details: details}})
}

func detailsFor(err error) interface{} {
	var ide *domain.InsufficientDataError
	if errors.As(err, &ide) {
		return map[string]any{"missing": ide.Missing}
	}
	var sve *domain.StepValidationError
	if errors.As(err, &sve) {
		return map[string]any{"step": sve.Step, "fields": sve.Fields}
	}
	var fte *FieldTooLongError
	if errors.As(err, &fte) {
		return map[string]any{"field": fte.Field, "max_bytes": fte.MaxBytes}
	}
	var se *domain.StatusError
	if errors.As(err, &se) {
		return map[string]any{"status": se.StatusCode}
	}
	return nil
}
