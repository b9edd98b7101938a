// Package llm builds the chat-completion client used by the assistant.
package llm

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"crm-assistant/internal/common/config"
	apperrors "crm-assistant/internal/common/errors"

	"github.com/sashabaranov/go-openai"
)

// Client wraps the OpenAI client. A Client built without an API key fails
// every call with a configuration error instead of failing at startup.
type Client struct {
	api *openai.Client
}

func New(cfg config.OpenAIConfig, httpClient *http.Client) *Client {
	if cfg.APIKey == "" {
		return &Client{}
	}

	openaiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Organization != "" {
		openaiConfig.OrgID = cfg.Organization
	}
	if httpClient != nil {
		openaiConfig.HTTPClient = httpClient
	}
	return &Client{api: openai.NewClientWithConfig(openaiConfig)}
}

// Configured reports whether an API key was supplied.
func (c *Client) Configured() bool {
	return c.api != nil
}

func (c *Client) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if c.api == nil {
		return openai.ChatCompletionResponse{}, apperrors.NewConfigMissingError("apis.openai.api_key")
	}
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return resp, FormatError(err)
	}
	return resp, nil
}

// FormatError adds status details for API errors.
func FormatError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return fmt.Errorf("LLM request failed: status code: %d, message: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err)
		}
		return fmt.Errorf("LLM request failed: status code: %d: %w", apiErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("LLM request failed: %w", err)
}
