package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sunil0336/MovieBuffs-sub000/pkg/errors"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/logger"
	"github.com/sunil0336/MovieBuffs-sub000/pkg/validator"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusCreated, map[string]string{"id": "r-1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"data":{"id":"r-1"}}`, rec.Body.String())
}

func TestWriteMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteMessage(rec, http.StatusOK, "review deleted")
	assert.JSONEq(t, `{"success":true,"message":"review deleted"}`, rec.Body.String())
}

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/movies/reviews/x", nil)
	req = req.WithContext(logger.WithCorrelationID(req.Context(), "req-1"))

	WriteError(rec, req, apperrors.NotFound("review", "x").WithCode("REVIEW_NOT_FOUND"), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeError(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "REVIEW_NOT_FOUND", env.Code)
	assert.Equal(t, "review with id x not found", env.Error)
	assert.Equal(t, "req-1", env.RequestID)
}

func TestWriteError_AppErrorFields(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	WriteError(rec, req, apperrors.Validation("invalid review", map[string]string{"rating": "must be between 1 and 10"}), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeError(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
	assert.Equal(t, "must be between 1 and 10", env.Fields["rating"])
}

func TestWriteError_ValidatorError(t *testing.T) {
	type body struct {
		Text string `json:"text" validate:"required"`
	}
	verr := validator.Validate(body{})
	require.Error(t, verr)

	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodPost, "/", nil), verr, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeError(t, rec)
	assert.Equal(t, "is required", env.Fields["text"])
}

func TestWriteError_WrappedSentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("get: %w", apperrors.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("create: %w", apperrors.ErrAlreadyExists), http.StatusConflict, "CONFLICT"},
		{fmt.Errorf("auth: %w", apperrors.ErrForbidden), http.StatusForbidden, "FORBIDDEN"},
		{fmt.Errorf("auth: %w", apperrors.ErrUnauthorized), http.StatusUnauthorized, "UNAUTHORIZED"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestWriteError_InternalIsLoggedNotLeaked(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), errors.New("pq: password authentication failed"), l)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", env.Code)
	assert.NotContains(t, env.Error, "password")
	assert.Contains(t, buf.String(), "password authentication failed")
}

func TestWriteError_PrefersRequestLogger(t *testing.T) {
	var scoped, fallback bytes.Buffer
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(logger.NewContext(req.Context(), slog.New(slog.NewJSONHandler(&scoped, nil))))

	WriteError(httptest.NewRecorder(), req, errors.New("boom"), slog.New(slog.NewJSONHandler(&fallback, nil)))

	assert.Contains(t, scoped.String(), "boom")
	assert.Empty(t, fallback.String())
}

func TestWriteBadRequest(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteBadRequest(rec, httptest.NewRequest(http.MethodPost, "/", nil), errors.New("decode request body: unexpected EOF"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeError(t, rec)
	assert.Equal(t, "INVALID_INPUT", env.Code)
	assert.Contains(t, env.Error, "unexpected EOF")
}
