package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	messages []map[string]interface{}
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.messages = append(l.messages, fields)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"standard error kept", NewPromptRequiredError(), ErrCodePromptRequired},
		{"wrapped standard error", fmt.Errorf("outer: %w", NewNotFoundError("Company", "c1")), ErrCodeNotFound},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), ErrCodeAIRequestTimeout},
		{"plain error", fmt.Errorf("boom"), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.err).Code)
		})
	}
	assert.Nil(t, Normalize(nil))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrCodePromptRequired))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrCodeValidationFailed))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(ErrCodeUnauthenticated))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(ErrCodeForbidden))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrCodeNotFound))
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatus(ErrCodeAIRequestTimeout))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(ErrCodeSearchIndexUnavailable))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(ErrCodeModelCallFailed))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(ErrCodeConfigMissing))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(ErrCodeMaxIterationsExceeded))
}

func TestHandleHTTPError_HidesDetails(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/process", nil)
	h.HandleHTTPError(rec, req, NewModelCallFailedError(fmt.Errorf("upstream 502: secret stack")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Failed to process AI request", body["error"])
	assert.NotContains(t, rec.Body.String(), "secret stack")

	require.Len(t, log.messages, 1)
	assert.Equal(t, "MODEL_CALL_FAILED", log.messages[0]["errorCode"])
	assert.Equal(t, "AI", log.messages[0]["errorCategory"])
}

func TestHandleHTTPError_ValidationFields(t *testing.T) {
	h := NewErrorHandler(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/companies", nil)
	h.HandleHTTPError(rec, req, NewValidationError(map[string]string{"name": "must be at least 2 characters"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Equal(t, "must be at least 2 characters", body.Fields["name"])
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewForbiddenError("deal owner mismatch"))
	assert.True(t, Is(err, ErrCodeForbidden))
	assert.False(t, Is(err, ErrCodeNotFound))
	assert.False(t, Is(fmt.Errorf("plain"), ErrCodeForbidden))
}

func TestStandardError_MatchesByCode(t *testing.T) {
	sentinel := NewWebSearchTimeoutError()
	err := fmt.Errorf("search: %w", NewWebSearchTimeoutError())

	assert.ErrorIs(t, err, sentinel)
	assert.NotErrorIs(t, err, NewAIRequestTimeoutError())
}

func TestWebSearchFailed_KeepsCause(t *testing.T) {
	err := NewWebSearchFailedError(fmt.Errorf("provider: %w", context.DeadlineExceeded))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, ErrCodeWebSearchFailed, Normalize(err).Code)
	assert.Equal(t, "SEARCH", GetErrorCategory(err.Code))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Web search failed: status 502", Describe(NewWebSearchFailedError(fmt.Errorf("status 502"))))
	assert.Equal(t, "Web search timed out", Describe(NewWebSearchTimeoutError()))
	assert.Equal(t, "plain", Describe(fmt.Errorf("plain")))
}
