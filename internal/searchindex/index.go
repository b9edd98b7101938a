// Package searchindex keeps a full-text index of saved companies.
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"crm-assistant/internal/common/logger"
	"crm-assistant/internal/models"
	"crm-assistant/internal/store"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrSearchQueryFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrIndexFailed       = errors.New("INDEX_FAILED")
)

// CompanyIndex is implemented by ElasticIndex and by test fakes.
type CompanyIndex interface {
	IndexCompany(ctx context.Context, c models.Company) error
	SearchCompanies(ctx context.Context, scope store.Scope, query string, size int) ([]models.Company, error)
}

const indexMapping = `{
	"mappings": {
		"properties": {
			"name":      {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
			"industry":  {"type": "text"},
			"geography": {"type": "text"},
			"size":      {"type": "keyword"},
			"website":   {"type": "keyword"},
			"status":    {"type": "keyword"},
			"ownerId":   {"type": "keyword"},
			"createdAt": {"type": "date"}
		}
	}
}`

type ElasticIndex struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticIndex(client *elasticsearch.Client, index string, log logger.Logger) *ElasticIndex {
	return &ElasticIndex{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "search-index", "index": index}),
	}
}

// EnsureIndex creates the index with its mapping when missing.
func (e *ElasticIndex) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{e.index}}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = esapi.IndicesCreateRequest{
		Index: e.index,
		Body:  strings.NewReader(indexMapping),
	}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("%w: create index: %s", ErrIndexFailed, res.Status())
	}
	return nil
}

func (e *ElasticIndex) IndexCompany(ctx context.Context, c models.Company) error {
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}

	res, err := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: c.ID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrIndexFailed, res.Status())
	}

	e.logger.Debug("company indexed", map[string]interface{}{"companyId": c.ID})
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Company `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (e *ElasticIndex) SearchCompanies(ctx context.Context, scope store.Scope, query string, size int) ([]models.Company, error) {
	body, _ := json.Marshal(BuildCompanyQuery(scope, query))
	if size <= 0 {
		size = 20
	}

	res, err := esapi.SearchRequest{
		Index: []string{e.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("%w: %s: %s", ErrSearchQueryFailed, res.Status(), msg)
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSearchQueryFailed, err)
	}

	companies := make([]models.Company, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		companies = append(companies, hit.Source)
	}
	return companies, nil
}

// BuildCompanyQuery matches name, industry, geography and website, filtered
// to the caller's records unless the scope is shared.
func BuildCompanyQuery(scope store.Scope, query string) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must": []interface{}{
			map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":     query,
					"fields":    []string{"name^3", "industry^2", "geography", "website"},
					"type":      "best_fields",
					"fuzziness": "AUTO",
				},
			},
		},
	}
	if !scope.Shared {
		boolQuery["filter"] = []interface{}{
			map[string]interface{}{"term": map[string]interface{}{"ownerId": scope.OwnerID}},
		}
	}
	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}
}
