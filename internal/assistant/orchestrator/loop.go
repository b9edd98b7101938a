// Package orchestrator runs the model/tool conversation loop behind the
// assistant endpoint.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"crm-assistant/internal/common/config"
	apperrors "crm-assistant/internal/common/errors"
	"crm-assistant/internal/common/logger"
	"crm-assistant/internal/common/metrics"
	"crm-assistant/internal/common/observability"
	"crm-assistant/internal/common/validation"
	"crm-assistant/internal/models"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrModelCall     = errors.New("model call failed")
	ErrMaxIterations = errors.New("max iterations exceeded")
)

const TruncationSuffix = "...[truncated]"

const DefaultSystemPrompt = `You are an AI sales assistant that helps find and qualify leads.
Your task is to:
1. Use the web_search tool to find relevant companies or contacts based on the user's request
2. Analyze the results and identify promising leads
3. Save qualified leads to the CRM using the save_lead_to_crm tool, including any contacts found
4. Provide a summary of what you found and saved`

// ChatCompleter is satisfied by *openai.Client and by llm.Client.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Config struct {
	Model              string
	SystemPrompt       string
	MaxIterations      int
	MaxToolResultChars int
}

func ConfigFromApp(c config.AssistantConfig) Config {
	cfg := Config{
		Model:              c.Model,
		SystemPrompt:       c.SystemPrompt,
		MaxIterations:      c.MaxIterations,
		MaxToolResultChars: c.MaxToolResultChars,
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = 8
	}
	if cfg.MaxToolResultChars <= 0 {
		cfg.MaxToolResultChars = 8000
	}
	return cfg
}

const (
	statusSuccess     = "success"
	statusError       = "error"
	statusUnknownTool = "unknown_tool"
	statusInvalidArgs = "invalid_arguments"
)

type ToolCallRecord struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration"`
}

type Result struct {
	Output     string           `json:"output"`
	Iterations int              `json:"iterations"`
	ToolCalls  []ToolCallRecord `json:"toolCalls,omitempty"`
}

type Loop struct {
	completer ChatCompleter
	registry  *Registry
	config    Config
	obs       *observability.Observability
	logger    logger.Logger
}

func New(completer ChatCompleter, registry *Registry, cfg Config, obs *observability.Observability, log logger.Logger) *Loop {
	return &Loop{
		completer: completer,
		registry:  registry,
		config:    cfg,
		obs:       obs,
		logger:    log.With(map[string]interface{}{"component": "orchestrator"}),
	}
}

// Run alternates between the model and the requested tools until the model
// answers with plain content or the iteration cap is reached.
func (l *Loop) Run(ctx context.Context, caller models.Identity, prompt string) (*Result, error) {
	start := time.Now()
	result := &Result{}

	err := l.run(ctx, caller, prompt, result)

	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		outcome = "timeout"
	case errors.Is(err, ErrMaxIterations):
		outcome = "max_iterations"
	default:
		outcome = "error"
	}
	metrics.AILoopIterations.Observe(float64(result.Iterations))
	l.obs.RecordLoopRun(ctx, time.Since(start), outcome)

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (l *Loop) run(ctx context.Context, caller models.Identity, prompt string, result *Result) error {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: l.config.SystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}
	tools := l.registry.Definitions()

	for result.Iterations < l.config.MaxIterations {
		if err := ctx.Err(); err != nil {
			return err
		}

		result.Iterations++
		msg, err := l.complete(ctx, messages, tools, result.Iterations)
		if err != nil {
			return err
		}

		if len(msg.ToolCalls) == 0 {
			result.Output = msg.Content
			l.logger.Info("assistant run completed", map[string]interface{}{
				"iterations": result.Iterations,
				"toolCalls":  len(result.ToolCalls),
			})
			return nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, record := l.executeTool(ctx, caller, call)
			result.ToolCalls = append(result.ToolCalls, record)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    Truncate(content, l.config.MaxToolResultChars),
				Name:       call.Function.Name,
				ToolCallID: call.ID,
			})
		}
	}

	l.logger.Warn("iteration cap reached", map[string]interface{}{
		"maxIterations": l.config.MaxIterations,
		"toolCalls":     len(result.ToolCalls),
	})
	return fmt.Errorf("%w: model still requesting tools after %d calls", ErrMaxIterations, l.config.MaxIterations)
}

func (l *Loop) complete(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool, iteration int) (openai.ChatCompletionMessage, error) {
	ctx, span := l.obs.StartSpan(ctx, "assistant.model_call", attribute.Int("iteration", iteration))
	defer span.End()

	req := openai.ChatCompletionRequest{
		Model:    l.config.Model,
		Messages: messages,
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}
	resp, err := l.completer.CreateChatCompletion(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return openai.ChatCompletionMessage{}, ctxErr
		}
		if apperrors.Is(err, apperrors.ErrCodeConfigMissing) {
			return openai.ChatCompletionMessage{}, err
		}
		return openai.ChatCompletionMessage{}, fmt.Errorf("%w: %w", ErrModelCall, err)
	}
	if len(resp.Choices) == 0 {
		span.SetStatus(codes.Error, "no choices")
		return openai.ChatCompletionMessage{}, fmt.Errorf("%w: no choices in response", ErrModelCall)
	}
	return resp.Choices[0].Message, nil
}

// executeTool never fails the loop: every problem becomes the content of the
// tool turn so the model can react to it.
func (l *Loop) executeTool(ctx context.Context, caller models.Identity, call openai.ToolCall) (string, ToolCallRecord) {
	name := call.Function.Name
	start := time.Now()
	record := ToolCallRecord{ID: call.ID, Name: name}

	ctx, span := l.obs.StartSpan(ctx, "assistant.tool_call", attribute.String("tool", name))
	defer span.End()

	finish := func(status, content string) (string, ToolCallRecord) {
		record.Status = status
		record.Duration = time.Since(start)
		if status != statusSuccess {
			span.SetStatus(codes.Error, status)
		}
		metrics.AIToolCalls.WithLabelValues(name, status).Inc()
		l.obs.RecordToolCall(ctx, name, status)
		l.logger.Info("tool call finished", map[string]interface{}{
			"tool":     name,
			"callId":   call.ID,
			"status":   status,
			"duration": record.Duration.String(),
		})
		return content, record
	}

	tool, ok := l.registry.Get(name)
	if !ok {
		return finish(statusUnknownTool, fmt.Sprintf("Error: unknown tool %q", name))
	}

	args := json.RawMessage(strings.TrimSpace(call.Function.Arguments))
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if !json.Valid(args) {
		return finish(statusInvalidArgs, fmt.Sprintf("Error: arguments for %s are not valid JSON", name))
	}

	if v := validation.ValidateJSON(args, tool.Parameters()); !v.Valid {
		return finish(statusInvalidArgs, fmt.Sprintf("Error: invalid arguments for %s: %s", name, strings.Join(v.GetErrorMessages(), "; ")))
	}

	out, err := tool.Execute(ctx, caller, args)
	if err != nil {
		span.RecordError(err)
		return finish(statusError, "Error: "+apperrors.Describe(err))
	}
	return finish(statusSuccess, out)
}

// Truncate bounds s to max runes, marking the cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + TruncationSuffix
}
