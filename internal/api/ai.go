package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"crm-assistant/internal/assistant/orchestrator"
	apperrors "crm-assistant/internal/common/errors"
	"crm-assistant/internal/common/logger"
	"crm-assistant/internal/common/metrics"
	"crm-assistant/internal/models"
)

const maxBodyBytes = 1 << 20

// Assistant runs one prompt to completion. *orchestrator.Loop satisfies it.
type Assistant interface {
	Run(ctx context.Context, caller models.Identity, prompt string) (*orchestrator.Result, error)
}

type AIConfig struct {
	Timeout       time.Duration
	MaxIterations int
}

type AIHandler struct {
	assistant Assistant
	config    AIConfig
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

type aiRequest struct {
	Prompt string `json:"prompt"`
}

type aiResponse struct {
	Output string `json:"output"`
}

func NewAIHandler(a Assistant, cfg AIConfig, log logger.Logger) *AIHandler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	log = log.WithFields(map[string]interface{}{"component": "ai-handler"})
	return &AIHandler{
		assistant: a,
		config:    cfg,
		errors:    apperrors.NewErrorHandler(log),
		logger:    log,
	}
}

type runOutcome struct {
	result *orchestrator.Result
	err    error
}

// ServeHTTP handles POST /api/ai/process. The loop runs in its own goroutine
// under the request deadline; when the deadline wins the race the response
// is 504 and the loop sees a cancelled context.
func (h *AIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req aiRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.fail(w, r, start, "invalid_request", apperrors.NewInvalidRequestError(err.Error()))
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		h.fail(w, r, start, "invalid_request", apperrors.NewPromptRequiredError())
		return
	}

	caller, ok := IdentityFromContext(r.Context())
	if !ok {
		h.fail(w, r, start, "unauthenticated", apperrors.NewUnauthenticatedError())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.Timeout)
	defer cancel()

	done := make(chan runOutcome, 1)
	go func() {
		res, err := h.assistant.Run(ctx, caller, prompt)
		done <- runOutcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			h.fail(w, r, start, outcomeOf(out.err), h.mapError(out.err))
			return
		}
		h.observe(start, "success")
		h.logger.Info("ai request completed", map[string]interface{}{
			"subject":    caller.Subject,
			"iterations": out.result.Iterations,
			"toolCalls":  len(out.result.ToolCalls),
			"duration":   time.Since(start).String(),
		})
		apperrors.WriteJSON(w, http.StatusOK, aiResponse{Output: out.result.Output})
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			h.fail(w, r, start, "timeout", apperrors.NewAIRequestTimeoutError())
			return
		}
		// Client went away; nobody is listening for the body.
		h.observe(start, "cancelled")
		h.logger.Warn("ai request cancelled by client", map[string]interface{}{"subject": caller.Subject})
	}
}

func (h *AIHandler) mapError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewAIRequestTimeoutError()
	case errors.Is(err, orchestrator.ErrMaxIterations):
		return apperrors.NewMaxIterationsExceededError(h.config.MaxIterations)
	case errors.Is(err, orchestrator.ErrModelCall):
		return apperrors.NewModelCallFailedError(err)
	default:
		return err
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, orchestrator.ErrMaxIterations):
		return "max_iterations"
	case apperrors.Is(err, apperrors.ErrCodeConfigMissing):
		return "config_missing"
	default:
		return "error"
	}
}

func (h *AIHandler) fail(w http.ResponseWriter, r *http.Request, start time.Time, outcome string, err error) {
	h.observe(start, outcome)
	h.errors.HandleHTTPError(w, r, err)
}

func (h *AIHandler) observe(start time.Time, outcome string) {
	metrics.AIRequests.WithLabelValues(outcome).Inc()
	metrics.AIRequestDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
