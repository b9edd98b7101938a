package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crm-assistant/internal/assistant/orchestrator"
	apperrors "crm-assistant/internal/common/errors"
	"crm-assistant/internal/common/logger"
	"crm-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assistantFunc func(ctx context.Context, caller models.Identity, prompt string) (*orchestrator.Result, error)

func (f assistantFunc) Run(ctx context.Context, caller models.Identity, prompt string) (*orchestrator.Result, error) {
	return f(ctx, caller, prompt)
}

func postPrompt(t *testing.T, h http.Handler, body string, identity bool) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/process", strings.NewReader(body))
	if identity {
		req = req.WithContext(WithIdentity(req.Context(), models.Identity{Subject: "user_abc"}))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestAIHandler_Success(t *testing.T) {
	var gotPrompt string
	var gotCaller models.Identity
	a := assistantFunc(func(ctx context.Context, caller models.Identity, prompt string) (*orchestrator.Result, error) {
		gotPrompt, gotCaller = prompt, caller
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return &orchestrator.Result{Output: "Saved 2 leads.", Iterations: 3}, nil
	})
	h := NewAIHandler(a, AIConfig{Timeout: time.Second, MaxIterations: 8}, logger.NewTestLogger(t))

	rec, out := postPrompt(t, h, `{"prompt":"  find robotics startups in Berlin "}`, true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Saved 2 leads.", out["output"])
	assert.Equal(t, "find robotics startups in Berlin", gotPrompt)
	assert.Equal(t, "user_abc", gotCaller.Subject)
}

func TestAIHandler_PromptRequired(t *testing.T) {
	called := false
	a := assistantFunc(func(context.Context, models.Identity, string) (*orchestrator.Result, error) {
		called = true
		return &orchestrator.Result{}, nil
	})
	h := NewAIHandler(a, AIConfig{Timeout: time.Second}, logger.NewTestLogger(t))

	for _, body := range []string{`{}`, `{"prompt":""}`, `{"prompt":"   "}`, ``} {
		rec, out := postPrompt(t, h, body, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "prompt is required", out["error"])
	}

	rec, out := postPrompt(t, h, `{"prompt":`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", out["error"])
	assert.False(t, called)
}

func TestAIHandler_Unauthenticated(t *testing.T) {
	a := assistantFunc(func(context.Context, models.Identity, string) (*orchestrator.Result, error) {
		t.Fatal("assistant must not run")
		return nil, nil
	})
	h := NewAIHandler(a, AIConfig{Timeout: time.Second}, logger.NewTestLogger(t))

	rec, out := postPrompt(t, h, `{"prompt":"hi"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", out["error"])
}

func TestAIHandler_Timeout(t *testing.T) {
	stopped := make(chan struct{})
	a := assistantFunc(func(ctx context.Context, _ models.Identity, _ string) (*orchestrator.Result, error) {
		<-ctx.Done()
		close(stopped)
		return nil, ctx.Err()
	})
	h := NewAIHandler(a, AIConfig{Timeout: 20 * time.Millisecond}, logger.NewTestLogger(t))

	rec, out := postPrompt(t, h, `{"prompt":"hang forever"}`, true)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "AI request timed out", out["error"])

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("loop did not observe cancellation")
	}
}

func TestAIHandler_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "model call",
			err:     fmt.Errorf("%w: %w", orchestrator.ErrModelCall, errors.New("status 500")),
			status:  http.StatusInternalServerError,
			message: "Failed to process AI request",
		},
		{
			name:    "iteration cap",
			err:     fmt.Errorf("%w: model still requesting tools after 8 calls", orchestrator.ErrMaxIterations),
			status:  http.StatusInternalServerError,
			message: "AI request did not complete",
		},
		{
			name:    "missing credentials",
			err:     apperrors.NewConfigMissingError("apis.openai.api_key"),
			status:  http.StatusInternalServerError,
			message: "apis.openai.api_key is not configured",
		},
		{
			name:    "unexpected",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			message: "Unexpected error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := assistantFunc(func(context.Context, models.Identity, string) (*orchestrator.Result, error) {
				return nil, tt.err
			})
			h := NewAIHandler(a, AIConfig{Timeout: time.Second, MaxIterations: 8}, logger.NewTestLogger(t))

			rec, out := postPrompt(t, h, `{"prompt":"go"}`, true)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, out["error"])
		})
	}
}
