// internal/assistant/tools/web-search/provider.go
package websearch

import (
	"context"
	"fmt"
	"strings"

	commonhttp "crm-assistant/internal/common/http"
)

// WebSearcher runs a query against an external search provider.
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]RawResult, error)
}

// ExaSearcher talks to an Exa-compatible /search endpoint that returns
// page text alongside each hit.
type ExaSearcher struct {
	client       *commonhttp.Client
	baseURL      string
	apiKey       string
	maxTextChars int
}

func NewExaSearcher(cfg *Config) *ExaSearcher {
	return &ExaSearcher{
		client:       commonhttp.NewClient(cfg.Timeout),
		baseURL:      strings.TrimRight(cfg.SearchAPIBaseURL, "/"),
		apiKey:       cfg.SearchAPIKey,
		maxTextChars: cfg.MaxTextChars,
	}
}

type exaRequest struct {
	Query      string      `json:"query"`
	NumResults int         `json:"numResults"`
	Type       string      `json:"type"`
	Contents   exaContents `json:"contents"`
}

type exaContents struct {
	Text exaText `json:"text"`
}

type exaText struct {
	MaxCharacters int `json:"maxCharacters"`
}

type exaResponse struct {
	Results []RawResult `json:"results"`
}

func (s *ExaSearcher) Search(ctx context.Context, query string, limit int) ([]RawResult, error) {
	req := exaRequest{
		Query:      query,
		NumResults: limit,
		Type:       "auto",
		Contents:   exaContents{Text: exaText{MaxCharacters: s.maxTextChars}},
	}

	var resp exaResponse
	headers := map[string]string{"x-api-key": s.apiKey}
	if err := s.client.PostJSON(ctx, s.baseURL+"/search", headers, req, &resp); err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	return resp.Results, nil
}
