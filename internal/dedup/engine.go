package dedup

import (
	"io"
	"log/slog"
	"time"

	"AINewsletter/internal/domain"
	"AINewsletter/internal/history"
)

// MatchReason names the check that classified a candidate as delivered.
type MatchReason string

const (
	ReasonNone  MatchReason = ""
	ReasonURL   MatchReason = "url"
	ReasonTitle MatchReason = "title"
)

// Verdict explains the outcome of a duplicate check.
type Verdict struct {
	Duplicate bool
	Reason    MatchReason
	Record    *history.Record
	Score     float64
}

// Engine classifies candidates against an in-memory history and appends
// newly delivered articles to it. It is not safe for concurrent use.
type Engine struct {
	store  *history.Store
	now    func() time.Time
	logger *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock sets the time source used to stamp recorded articles.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger routes skip decisions to the given logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine wraps a loaded store. A nil store is replaced by an empty one.
func NewEngine(store *history.Store, opts ...Option) *Engine {
	if store == nil {
		store = history.NewStore()
	}
	e := &Engine{
		store:  store,
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the underlying history for persistence.
func (e *Engine) Store() *history.Store {
	return e.store
}

// IsDuplicate reports whether the article was already delivered.
func (e *Engine) IsDuplicate(url, title string) bool {
	return e.Check(url, title).Duplicate
}

// Check scans the history in delivery order. For each record the exact
// URL comparison runs before the fuzzy title comparison, and the first
// record that satisfies either ends the scan.
func (e *Engine) Check(url, title string) Verdict {
	normalized := NormalizeURL(url)

	for i := range e.store.Articles {
		rec := &e.store.Articles[i]

		stored := rec.URLNormalized
		if stored == "" {
			stored = NormalizeURL(rec.URL)
		}
		if stored == normalized {
			return Verdict{Duplicate: true, Reason: ReasonURL, Record: rec, Score: 1}
		}

		if score := TitleSimilarity(title, rec.Title); score >= DuplicateThreshold {
			return Verdict{Duplicate: true, Reason: ReasonTitle, Record: rec, Score: score}
		}
	}

	return Verdict{}
}

// Filter keeps the candidates that are not in history, preserving order,
// and returns how many were removed. Candidates are not compared with each
// other.
func (e *Engine) Filter(candidates []domain.SearchResult) ([]domain.SearchResult, int) {
	kept := make([]domain.SearchResult, 0, len(candidates))
	removed := 0

	for _, c := range candidates {
		if v := e.Check(c.Link, c.Title); v.Duplicate {
			e.logger.Debug("skipping duplicate", "title", truncate(c.Title, 60), "reason", string(v.Reason))
			removed++
			continue
		}
		kept = append(kept, c)
	}

	return kept, removed
}

// Record appends the delivered items to the in-memory history, stamped
// with today's date. Nothing is persisted.
func (e *Engine) Record(items []domain.NewsItem, categoryID string) {
	today := e.now().Format(history.DateLayout)

	for _, item := range items {
		e.store.Articles = append(e.store.Articles, history.Record{
			URL:           item.URL,
			URLNormalized: NormalizeURL(item.URL),
			Title:         item.Title,
			CategoryID:    categoryID,
			SentDate:      today,
		})
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
