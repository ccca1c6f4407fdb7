package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"AINewsletter/internal/config"
	"AINewsletter/internal/domain"
	"AINewsletter/internal/ports"
)

// DefaultClaudeModel is used when the configuration names none.
const DefaultClaudeModel = "claude-sonnet-4-20250514"

// ClaudeSummarizer implements ports.Summarizer with the Anthropic Messages API.
type ClaudeSummarizer struct {
	client       anthropic.Client
	model        string
	maxTokens    int64
	systemPrompt string
}

var _ ports.Summarizer = (*ClaudeSummarizer)(nil)

// NewClaudeSummarizer builds a client from configuration. Extra request
// options are appended after the configured ones.
func NewClaudeSummarizer(cfg config.LLMConfig, opts ...option.RequestOption) *ClaudeSummarizer {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.Endpoint))
	}
	reqOpts = append(reqOpts, opts...)

	model := cfg.Model
	if model == "" {
		model = DefaultClaudeModel
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 8000
	}

	return &ClaudeSummarizer{
		client:       anthropic.NewClient(reqOpts...),
		model:        model,
		maxTokens:    maxTokens,
		systemPrompt: safePrompt(cfg.SystemPrompt),
	}
}

// Summarize asks Claude to select and summarize the category's best results.
func (c *ClaudeSummarizer) Summarize(ctx context.Context, category domain.Category, results []domain.SearchResult) ([]domain.NewsItem, error) {
	if len(results) == 0 {
		return nil, nil
	}

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: c.systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(category, results))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	items, err := ParseItems(text.String(), category.ItemsCount)
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", category.ID, err)
	}
	return items, nil
}
