package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/sunil0336/MovieBuffs-sub000/pkg/errors"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/logger"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/validator"
)

// Envelope is the success response wrapper: {"success": true, "data": ...}.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorEnvelope is the error response wrapper. Error carries the human
// message, Code the stable machine-readable code.
type ErrorEnvelope struct {
	Success   bool              `json:"success"`
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status code. Encoding errors are
// dropped because the header is already sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes {"success": true, "data": data}.
func WriteData(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Envelope{Success: true, Data: data})
}

// WriteMessage writes {"success": true, "message": msg}.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, Envelope{Success: true, Message: msg})
}

// WriteError maps err to a status code and writes the error envelope.
// AppErrors keep their code and message; validator errors become a 400 with
// per-field messages; anything unrecognised is a 500 whose detail is logged,
// never returned. The request-scoped logger is preferred over fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logInternal(l, r, err)
		}
		WriteJSON(w, appErr.Status, ErrorEnvelope{
			Error:     appErr.Message,
			Code:      appErr.Code,
			Fields:    appErr.Fields,
			RequestID: requestID,
		})
		return
	}

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, ErrorEnvelope{
			Error:     "request validation failed",
			Code:      "VALIDATION_ERROR",
			Fields:    valErr.Fields(),
			RequestID: requestID,
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	env := ErrorEnvelope{Code: "INTERNAL_ERROR", Error: "an internal error occurred", RequestID: requestID}
	switch status {
	case http.StatusNotFound:
		env.Code, env.Error = "NOT_FOUND", "resource not found"
	case http.StatusConflict:
		env.Code, env.Error = "CONFLICT", "resource conflict"
	case http.StatusBadRequest:
		env.Code, env.Error = "INVALID_INPUT", err.Error()
	case http.StatusUnauthorized:
		env.Code, env.Error = "UNAUTHORIZED", "authentication required"
	case http.StatusForbidden:
		env.Code, env.Error = "FORBIDDEN", "not allowed"
	case http.StatusTooManyRequests:
		env.Code, env.Error = "RATE_LIMITED", "too many requests"
	case http.StatusServiceUnavailable:
		env.Code, env.Error = "UNAVAILABLE", "service unavailable"
	default:
		status = http.StatusInternalServerError
		logInternal(l, r, err)
	}
	WriteJSON(w, status, env)
}

// WriteBadRequest writes a 400 for a malformed request body or parameter.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteError(w, r, err, nil)
		return
	}
	WriteJSON(w, http.StatusBadRequest, ErrorEnvelope{
		Error:     err.Error(),
		Code:      "INVALID_INPUT",
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	})
}

func logInternal(l *slog.Logger, r *http.Request, err error) {
	l.ErrorContext(r.Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}
