package errors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{InvalidRange("bad"), http.StatusBadRequest},
		{Parse("bad", "line 2"), http.StatusUnprocessableEntity},
		{Load("missing"), http.StatusInternalServerError},
		{NotFound("gone"), http.StatusNotFound},
		{RateLimit("slow down"), http.StatusTooManyRequests},
		{ServiceUnavailable("busy"), http.StatusServiceUnavailable},
		{InternalWrap(fmt.Errorf("boom"), "failed"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode)
		})
	}
}

func TestHasCode(t *testing.T) {
	rangeErr := InvalidRange("start after end")

	assert.True(t, HasCode(rangeErr, CodeInvalidRange))
	assert.True(t, HasCode(fmt.Errorf("handler: %w", rangeErr), CodeInvalidRange))
	assert.True(t, HasCode(LoadWrap(rangeErr, "outer"), CodeInvalidRange))
	assert.False(t, HasCode(rangeErr, CodeLoad))
	assert.False(t, HasCode(fmt.Errorf("plain"), CodeLoad))
	assert.False(t, HasCode(nil, CodeLoad))
}

func TestWrap_Unwrap(t *testing.T) {
	err := LoadWrap(context.Canceled, "load cancelled")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "LOAD_ERROR: load cancelled")

	unavailable := ServiceUnavailableWrap(context.DeadlineExceeded, "too slow")
	assert.ErrorIs(t, unavailable, context.DeadlineExceeded)
	assert.Equal(t, http.StatusServiceUnavailable, unavailable.StatusCode)
}

func TestParse_Details(t *testing.T) {
	err := Parse("payment value is invalid", "line 4, column payment_value")
	assert.Equal(t, "line 4, column payment_value", err.Details)
}

func TestWriteError(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	w := httptest.NewRecorder()
	WriteError(w, logger, fmt.Errorf("wrapped: %w", InvalidRange("start after end")), "req-9")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp struct {
		Error struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"request_id"`
		} `json:"error"`
		Success bool `json:"success"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "INVALID_RANGE", resp.Error.Code)
	assert.Equal(t, "start after end", resp.Error.Message)
	assert.Equal(t, "req-9", resp.Error.RequestID)
	assert.Contains(t, logs.String(), `"level":"WARN"`)
}

func TestWriteError_UnknownError(t *testing.T) {
	var logs bytes.Buffer
	w := httptest.NewRecorder()
	WriteError(w, slog.New(slog.NewJSONHandler(&logs, nil)), fmt.Errorf("boom"), "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, w.Body.String(), "boom")
	assert.Contains(t, logs.String(), "boom", "the cause is logged")
	assert.Contains(t, logs.String(), `"level":"ERROR"`)
}

func TestWriteSuccessWithHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessWithHeaders(w, map[string]int{"records": 3}, map[string]string{"Cache-Control": "public, max-age=300"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=300", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"data":{"records":3},"success":true}`, w.Body.String())
}
