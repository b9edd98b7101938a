// internal/assistant/tools/web-search/config.go
package websearch

import (
	"time"

	"crm-assistant/internal/common/config"
)

type Config struct {
	SearchAPIBaseURL string
	SearchAPIKey     string
	Timeout          time.Duration
	MaxResults       int
	MaxTextChars     int
}

func LoadConfig() *Config {
	return &Config{
		SearchAPIBaseURL: "https://api.exa.ai",
		Timeout:          10 * time.Second,
		MaxResults:       10,
		MaxTextChars:     3000,
	}
}

// FromAppConfig maps the apis.web_search section onto the tool config.
func FromAppConfig(c config.WebSearchConfig) *Config {
	cfg := LoadConfig()
	if c.BaseURL != "" {
		cfg.SearchAPIBaseURL = c.BaseURL
	}
	cfg.SearchAPIKey = c.APIKey
	if c.Timeout > 0 {
		cfg.Timeout = time.Duration(c.Timeout) * time.Millisecond
	}
	if c.MaxResults > 0 {
		cfg.MaxResults = c.MaxResults
	}
	if c.MaxTextChars > 0 {
		cfg.MaxTextChars = c.MaxTextChars
	}
	return cfg
}
