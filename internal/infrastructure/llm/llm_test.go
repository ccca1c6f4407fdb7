package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AINewsletter/internal/config"
	"AINewsletter/internal/domain"
)

var (
	testCategory = domain.Category{ID: "ai", NameEN: "AI Breakthroughs", NameZH: "AI突破进展", ItemsCount: 2}
	testResults  = []domain.SearchResult{
		{Title: "Robots learn to cook", Link: "https://example.com/robots", Snippet: "Kitchen robots", Date: "2026-01-10"},
		{Title: "Quantum chips", Link: "https://example.com/quantum", Snippet: "New qubits"},
		{Title: "Protein folding", Link: "https://example.com/protein", Snippet: "Biology"},
	}
)

const modelAnswer = "```json\n" + `[
  {"title": "Robots learn to cook", "url": "https://example.com/robots", "summary_en": "EN", "summary_zh": "中文", "significance": "Big"},
  {"title": "", "url": "https://example.com/blank"},
  {"title": "Quantum chips", "url": "https://example.com/quantum", "summary_en": "EN2", "summary_zh": "中文2", "significance": "Bigger"},
  {"title": "Protein folding", "url": "https://example.com/protein"}
]` + "\n```"

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt(testCategory, testResults)
	assert.Contains(t, prompt, `"AI Breakthroughs" (AI突破进展)`)
	assert.Contains(t, prompt, "select the top 2 most relevant")
	assert.Contains(t, prompt, "[1] Title: Robots learn to cook\nURL: https://example.com/robots\nSnippet: Kitchen robots\nDate: 2026-01-10")
	assert.Contains(t, prompt, "[2] Title: Quantum chips\nURL: https://example.com/quantum\nSnippet: New qubits\nDate: N/A")
	assert.True(t, strings.HasSuffix(prompt, "Return ONLY valid JSON array, no additional text."))
}

func TestParseItems(t *testing.T) {
	t.Parallel()

	items, err := ParseItems(modelAnswer, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Robots learn to cook", items[0].Title)
	assert.Equal(t, "中文", items[0].SummaryZH)
	assert.Equal(t, "https://example.com/quantum", items[1].URL)

	items, err = ParseItems(`Here you go: [{"title": "A", "url": "https://a"}] hope it helps`, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = ParseItems("I cannot help with that.", 3)
	require.Error(t, err)

	_, err = ParseItems(`[{"title": }]`, 3)
	require.Error(t, err)
}

func TestClaudeSummarizer(t *testing.T) {
	t.Parallel()

	var request map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &request))

		w.Header().Set("Content-Type", "application/json")
		answer, _ := json.Marshal(modelAnswer)
		_, _ = w.Write([]byte(`{
		  "id": "msg_01",
		  "type": "message",
		  "role": "assistant",
		  "model": "claude-test",
		  "content": [{"type": "text", "text": ` + string(answer) + `}],
		  "stop_reason": "end_turn",
		  "usage": {"input_tokens": 10, "output_tokens": 20}
		}`))
	}))
	defer server.Close()

	s := NewClaudeSummarizer(config.LLMConfig{Model: "claude-test", MaxTokens: 1234, APIKey: "test-key", Endpoint: server.URL},
		option.WithMaxRetries(0))

	items, err := s.Summarize(context.Background(), testCategory, testResults)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Quantum chips", items[1].Title)

	assert.Equal(t, "claude-test", request["model"])
	assert.EqualValues(t, 1234, request["max_tokens"])
	messages, ok := request["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
}

func TestClaudeSummarizerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "invalid_request_error", "message": "bad"}}`))
	}))
	defer server.Close()

	s := NewClaudeSummarizer(config.LLMConfig{APIKey: "k", Endpoint: server.URL}, option.WithMaxRetries(0))
	_, err := s.Summarize(context.Background(), testCategory, testResults)
	require.Error(t, err)

	items, err := s.Summarize(context.Background(), testCategory, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestChatGPTSummarizer(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var payload struct {
			Model    string              `json:"model"`
			Messages []map[string]string `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "gpt-test", payload.Model)
		if assert.Len(t, payload.Messages, 2) {
			assert.Equal(t, defaultSystemPrompt, payload.Messages[0]["content"])
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": modelAnswer}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	s := NewChatGPTSummarizer(config.LLMConfig{Endpoint: server.URL, Model: "gpt-test", APIKey: "sk-test"})
	items, err := s.Summarize(context.Background(), testCategory, testResults)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Robots learn to cook", items[0].Title)
}

func TestChatGPTSummarizerMisconfigured(t *testing.T) {
	t.Parallel()

	_, err := NewChatGPTSummarizer(config.LLMConfig{}).Summarize(context.Background(), testCategory, testResults)
	require.ErrorContains(t, err, "misconfigured")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err = NewChatGPTSummarizer(config.LLMConfig{Endpoint: server.URL, Model: "m", APIKey: "k"}).
		Summarize(context.Background(), testCategory, testResults)
	require.ErrorContains(t, err, "rate limited")
}
