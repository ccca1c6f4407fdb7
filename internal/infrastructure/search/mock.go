package search

import (
	"context"
	"fmt"

	"AINewsletter/internal/domain"
	"AINewsletter/internal/ports"
)

// MockClient returns deterministic placeholder results for offline runs.
type MockClient struct{}

var _ ports.SearchClient = MockClient{}

// Name identifies the provider inside the registry.
func (MockClient) Name() string {
	return "mock"
}

// Search fabricates limit placeholder articles for the query.
func (MockClient) Search(_ context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if limit < 0 {
		limit = 0
	}
	short := []rune(query)
	if len(short) > 30 {
		short = short[:30]
	}

	results := make([]domain.SearchResult, 0, limit)
	for i := 1; i <= limit; i++ {
		results = append(results, domain.SearchResult{
			Title:   fmt.Sprintf("Mock AI News Article %d for: %s", i, string(short)),
			Link:    fmt.Sprintf("https://example.com/article-%d", i),
			Snippet: fmt.Sprintf("This is a mock article snippet about %s. It contains relevant information about the latest developments in AI.", query),
			Date:    "2026-01-18",
		})
	}
	return results, nil
}
