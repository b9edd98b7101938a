// internal/assistant/tools/web-search/handler.go
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	apperrors "crm-assistant/internal/common/errors"
	"crm-assistant/internal/common/logger"
	"crm-assistant/internal/common/validation"
	"crm-assistant/internal/models"
)

const (
	ToolName = "web_search"
)

var (
	ErrWebSearchTimeout = apperrors.NewWebSearchTimeoutError()
	ErrEmptyQuery       = errors.New("query is required")
)

type Handler struct {
	config   *Config
	searcher WebSearcher
	logger   logger.Logger
}

func NewHandler(config *Config, searcher WebSearcher, log logger.Logger) *Handler {
	if searcher == nil {
		searcher = NewExaSearcher(config)
	}
	return &Handler{
		config:   config,
		searcher: searcher,
		logger: log.With(map[string]interface{}{
			"tool": ToolName,
		}),
	}
}

func (h *Handler) Name() string { return ToolName }

func (h *Handler) Description() string {
	return "Search the web for companies or their leadership contacts. Returns structured lead data " +
		"(company name, website, industry, size, location, founding year, funding, revenue and contacts) " +
		"extracted from each result."
}

func (h *Handler) Parameters() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"query": {
				Type:        "string",
				Description: "What to search for, e.g. \"fintech startups in Berlin\"",
			},
			"mode": {
				Type:        "string",
				Description: "companies to find organisations, contacts to find people at a company",
				Enum:        []string{ModeCompanies, ModeContacts},
			},
			"companyName": {
				Type:        "string",
				Description: "Company to focus on when mode is contacts",
			},
		},
		Required: []string{"query"},
	}
}

// Execute runs the search and returns the JSON encoded Output.
func (h *Handler) Execute(ctx context.Context, _ models.Identity, args json.RawMessage) (string, error) {
	var input Input
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("parse input: %w", err)
	}

	output, err := h.Search(ctx, &input)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(output)
	if err != nil {
		return "", fmt.Errorf("marshal output: %w", err)
	}
	return string(data), nil
}

// Search queries the provider and turns raw hits into lead candidates.
func (h *Handler) Search(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, ErrEmptyQuery
	}
	if h.config.SearchAPIKey == "" {
		return nil, apperrors.NewConfigMissingError("apis.web_search.api_key")
	}

	mode := input.Mode
	if mode != ModeContacts {
		mode = ModeCompanies
	}
	query := BuildQuery(input.Query, mode, input.CompanyName)

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	raw, err := h.searcher.Search(ctx, query, h.config.MaxResults)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) ||
			strings.Contains(err.Error(), "deadline") ||
			strings.Contains(err.Error(), "Client.Timeout") {
			h.logger.Warn("web search timed out", map[string]interface{}{"query": query})
			return nil, apperrors.NewWebSearchTimeoutError()
		}
		h.logger.Error("web search failed", map[string]interface{}{"query": query, "error": err.Error()})
		return nil, apperrors.NewWebSearchFailedError(err)
	}

	results := h.processResults(raw)
	if mode == ModeContacts {
		results = preferContacts(results)
	}

	h.logger.Info("web search completed", map[string]interface{}{
		"query":       query,
		"mode":        mode,
		"rawCount":    len(raw),
		"resultCount": len(results),
	})

	return &Output{
		Query:   input.Query,
		Results: results,
		Count:   len(results),
	}, nil
}

// BuildQuery appends leadership phrasing in contacts mode.
func BuildQuery(query, mode, companyName string) string {
	query = strings.TrimSpace(query)
	if mode != ModeContacts {
		return query
	}
	if companyName = strings.TrimSpace(companyName); companyName != "" &&
		!strings.Contains(strings.ToLower(query), strings.ToLower(companyName)) {
		query = companyName + " " + query
	}
	if !strings.Contains(strings.ToLower(query), "leadership") {
		query += " leadership team contacts"
	}
	return query
}

func (h *Handler) processResults(raw []RawResult) []EnrichedResult {
	results := make([]EnrichedResult, 0, len(raw))
	seen := make(map[string]bool)

	for _, item := range raw {
		key := strings.TrimRight(strings.ToLower(item.URL), "/")
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		result := Enrich(item)
		if isNoise(result) {
			continue
		}
		results = append(results, result)
	}
	return results
}

// Enrich extracts lead fields from a single search hit.
func Enrich(item RawResult) EnrichedResult {
	body := item.Title + "\n" + item.Text
	website := ExtractWebsite(item.URL, body)
	return EnrichedResult{
		CompanyName: ExtractCompanyName(item.Title, item.Text, website),
		Website:     website,
		Industry:    ExtractIndustry(body),
		Size:        ExtractSize(body),
		Geography:   ExtractLocation(body),
		FoundedYear: ExtractFoundedYear(body),
		Funding:     ExtractFunding(body),
		Revenue:     ExtractRevenue(body),
		Contacts:    ExtractContacts(body),
		SourceURL:   item.URL,
	}
}

func isNoise(r EnrichedResult) bool {
	return r.Website == "" && len(r.Contacts) == 0 && r.Industry == "" && r.Size == "" && r.Geography == ""
}

// preferContacts keeps results with contacts, or everything if none have any.
func preferContacts(results []EnrichedResult) []EnrichedResult {
	withContacts := make([]EnrichedResult, 0, len(results))
	for _, r := range results {
		if len(r.Contacts) > 0 {
			withContacts = append(withContacts, r)
		}
	}
	if len(withContacts) == 0 {
		return results
	}
	return withContacts
}
