package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"AINewsletter/internal/domain"
)

const defaultSystemPrompt = "You are an AI news curator writing a bilingual weekly briefing."

// BuildPrompt asks the model to pick and summarize the strongest candidates.
func BuildPrompt(category domain.Category, results []domain.SearchResult) string {
	blocks := make([]string, 0, len(results))
	for i, r := range results {
		date := r.Date
		if date == "" {
			date = "N/A"
		}
		blocks = append(blocks, fmt.Sprintf("[%d] Title: %s\nURL: %s\nSnippet: %s\nDate: %s", i+1, r.Title, r.Link, r.Snippet, date))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From the following search results about %q (%s), please select the top %d most relevant and important articles.\n\n",
		category.NameEN, category.NameZH, category.ItemsCount)
	b.WriteString(`For each selected article, provide:
1. A detailed summary in English (5-7 sentences covering key points, context, and implications)
2. A detailed summary in Chinese (5-7句话，涵盖要点、背景和影响)
3. The original URL
4. Why this article is significant (2-3 sentences explaining the broader impact)

Guidelines for summaries:
- Include specific details, numbers, and key facts
- Provide context and background information
- Explain the implications and why it matters

Search Results:
`)
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString(`

Please respond in JSON format:
[
  {
    "title": "Article title",
    "url": "Article URL",
    "summary_en": "Detailed English summary",
    "summary_zh": "详细的中文摘要",
    "significance": "Why this matters"
  }
]

Important: Return ONLY valid JSON array, no additional text.`)
	return b.String()
}

// ParseItems decodes the model answer into at most limit news items.
// Markdown code fences and leading prose around the array are tolerated.
func ParseItems(text string, limit int) ([]domain.NewsItem, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		parts := strings.SplitN(text, "```", 3)
		text = strings.TrimSpace(strings.TrimPrefix(parts[1], "json"))
	}
	if !strings.HasPrefix(text, "[") {
		start, end := strings.Index(text, "["), strings.LastIndex(text, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON array in model response")
		}
		text = text[start : end+1]
	}

	var raw []domain.NewsItem
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}

	items := make([]domain.NewsItem, 0, len(raw))
	for _, item := range raw {
		if strings.TrimSpace(item.URL) == "" || strings.TrimSpace(item.Title) == "" {
			continue
		}
		items = append(items, item)
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return defaultSystemPrompt
	}
	return prompt
}
