package ports

import (
	"context"
	"time"

	"AINewsletter/internal/domain"
	"AINewsletter/internal/history"
)

// SearchClient pulls candidate articles for a query from a search provider.
type SearchClient interface {
	Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}

// Summarizer selects and summarizes the best candidates of a category.
type Summarizer interface {
	Summarize(ctx context.Context, category domain.Category, results []domain.SearchResult) ([]domain.NewsItem, error)
}

// Mailer delivers the rendered newsletter.
type Mailer interface {
	SendNewsletter(ctx context.Context, newsletter domain.Newsletter) error
}

// Notifier streams a short digest to a secondary channel (Telegram, etc.).
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// HistoryRepository persists the delivered-article history between runs.
type HistoryRepository interface {
	Load() (*history.Store, error)
	Save(store *history.Store) (history.SaveResult, error)
}

// DeliveryArchive keeps an append-only audit log of delivered items.
type DeliveryArchive interface {
	RecordDeliveries(ctx context.Context, runID string, newsletter domain.Newsletter) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
