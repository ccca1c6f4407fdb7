package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"AINewsletter/internal/domain"
	"AINewsletter/internal/ports"
)

// DefaultSerperEndpoint is the Serper.dev Google search API.
const DefaultSerperEndpoint = "https://google.serper.dev/search"

// SerperClient queries Serper.dev for organic web results.
type SerperClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger
}

var _ ports.SearchClient = (*SerperClient)(nil)

// NewSerperClient creates a reusable HTTP client; an empty endpoint uses the public API.
func NewSerperClient(endpoint, apiKey string, logger *slog.Logger) *SerperClient {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultSerperEndpoint
	}
	return &SerperClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// Name identifies the provider inside the registry.
func (c *SerperClient) Name() string {
	return "serper"
}

type serperRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num"`
	GL    string `json:"gl"`
	HL    string `json:"hl"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Date    string `json:"date"`
	} `json:"organic"`
}

// Search posts the query and maps organic results to candidates.
func (c *SerperClient) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("serper client misconfigured: missing api key")
	}

	body, err := json.Marshal(serperRequest{Query: query, Num: limit, GL: "us", HL: "en"})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("serper error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(decoded.Organic))
	for _, item := range decoded.Organic {
		if limit > 0 && len(results) >= limit {
			break
		}
		results = append(results, domain.SearchResult{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
			Date:    item.Date,
		})
	}

	if c.logger != nil {
		c.logger.Debug("search completed", "query", query, "results", len(results))
	}
	return results, nil
}
