package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"AINewsletter/internal/dedup"
	"AINewsletter/internal/domain"
	"AINewsletter/internal/history"
	"AINewsletter/internal/logging"
	"AINewsletter/internal/ports"
)

const (
	defaultResultsPerCategory = 10

	fallbackSummaryZH    = "暂无中文摘要"
	fallbackSignificance = "Latest development in AI"
)

// NewsletterMeta carries the envelope of the delivered message.
type NewsletterMeta struct {
	Recipient  string
	Subject    string
	SenderName string
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
// In DryRun mode the newsletter still goes through Mailer, but history,
// Telegram and the archive are left untouched.
type PipelineDeps struct {
	Search     ports.SearchClient
	Summarizer ports.Summarizer
	History    ports.HistoryRepository
	Mailer     ports.Mailer
	Notifier   ports.Notifier
	Archive    ports.DeliveryArchive
	Logger     *slog.Logger

	Categories         []domain.Category
	Newsletter         NewsletterMeta
	ResultsPerCategory int
	DryRun             bool
}

// Pipeline implements the weekly newsletter workflow.
type Pipeline struct {
	search     ports.SearchClient
	summarizer ports.Summarizer
	history    ports.HistoryRepository
	mailer     ports.Mailer
	notifier   ports.Notifier
	archive    ports.DeliveryArchive
	logger     *slog.Logger

	categories []domain.Category
	meta       NewsletterMeta
	results    int
	dryRun     bool
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	results := deps.ResultsPerCategory
	if results <= 0 {
		results = defaultResultsPerCategory
	}
	return &Pipeline{
		search:     deps.Search,
		summarizer: deps.Summarizer,
		history:    deps.History,
		mailer:     deps.Mailer,
		notifier:   deps.Notifier,
		archive:    deps.Archive,
		logger:     logger,
		categories: deps.Categories,
		meta:       deps.Newsletter,
		results:    results,
		dryRun:     deps.DryRun,
	}
}

// Run executes one newsletter cycle. History is persisted only after a
// successful send so undelivered items are offered again next run.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (domain.RunReport, error) {
	report := domain.RunReport{RunID: uuid.NewString(), Categories: len(p.categories)}
	logger := p.logger.With("run_id", report.RunID)

	if p.search == nil || p.mailer == nil {
		return report, fmt.Errorf("pipeline misconfigured: search and mailer are required")
	}

	store := p.loadHistory(logger)
	engine := dedup.NewEngine(store,
		dedup.WithClock(func() time.Time { return now }),
		dedup.WithLogger(logger.With("component", "dedup")),
	)
	logger.Info("run started", "categories", len(p.categories), "history", len(store.Articles), "dry_run", p.dryRun)

	digests := make([]domain.CategoryDigest, 0, len(p.categories))
	for _, category := range p.categories {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		digest := p.processCategory(ctx, logger, engine, category)
		engine.Record(digest.Items, category.ID)

		report.Items += len(digest.Items)
		report.Removed += digest.Removed
		digests = append(digests, digest)
	}

	newsletter := domain.Newsletter{
		Recipient:   p.meta.Recipient,
		Subject:     p.meta.Subject,
		SenderName:  p.meta.SenderName,
		Categories:  digests,
		GeneratedAt: now,
	}

	if err := p.mailer.SendNewsletter(ctx, newsletter); err != nil {
		return report, fmt.Errorf("send newsletter: %w", err)
	}
	report.Sent = true

	if p.dryRun {
		logger.Info("dry run finished; history left untouched", "items", report.Items, "removed", report.Removed)
		return report, nil
	}

	p.publish(ctx, logger, newsletter)
	p.archiveDeliveries(ctx, logger, report.RunID, newsletter)

	if p.history != nil {
		res, err := p.history.Save(engine.Store())
		if err != nil {
			logger.Warn("history not saved", "error", err)
		} else {
			report.HistorySaved = true
			logger.Info("history saved", "kept", res.Kept, "pruned", res.Pruned)
		}
	}

	logger.Info("run finished", "items", report.Items, "removed", report.Removed)
	return report, nil
}

func (p *Pipeline) loadHistory(logger *slog.Logger) *history.Store {
	if p.history == nil {
		return history.NewStore()
	}
	store, err := p.history.Load()
	if err != nil {
		logger.Warn("history unavailable, starting empty", "error", err)
	}
	if store == nil {
		store = history.NewStore()
	}
	return store
}

func (p *Pipeline) processCategory(ctx context.Context, logger *slog.Logger, engine *dedup.Engine, category domain.Category) domain.CategoryDigest {
	digest := domain.CategoryDigest{Category: category}
	logger = logger.With("category", category.ID)

	results, err := p.search.Search(ctx, category.Keywords, p.results)
	if err != nil {
		logger.Error("search failed", "error", err)
		return digest
	}

	fresh, removed := engine.Filter(results)
	digest.Removed = removed
	logger.Info("candidates filtered", "found", len(results), "fresh", len(fresh), "removed", removed)
	if len(fresh) == 0 {
		return digest
	}

	var items []domain.NewsItem
	if p.summarizer != nil {
		items, err = p.summarizer.Summarize(ctx, category, fresh)
		if err != nil {
			logger.Warn("summarizer failed, using search snippets", "error", err)
		}
	}
	if p.summarizer == nil || err != nil {
		items = fallbackItems(fresh, category.ItemsCount)
	}

	if len(items) > category.ItemsCount {
		items = items[:category.ItemsCount]
	}
	digest.Items = items
	return digest
}

func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, newsletter domain.Newsletter) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.PublishDigest(ctx, buildDigestMessage(newsletter)); err != nil {
		logger.Warn("telegram digest not published", "error", err)
	}
}

func (p *Pipeline) archiveDeliveries(ctx context.Context, logger *slog.Logger, runID string, newsletter domain.Newsletter) {
	if p.archive == nil {
		return
	}
	if err := p.archive.RecordDeliveries(ctx, runID, newsletter); err != nil {
		logger.Warn("deliveries not archived", "error", err)
	}
}

func fallbackItems(results []domain.SearchResult, limit int) []domain.NewsItem {
	if limit < len(results) {
		results = results[:limit]
	}
	items := make([]domain.NewsItem, 0, len(results))
	for _, r := range results {
		items = append(items, domain.NewsItem{
			Title:        r.Title,
			URL:          r.Link,
			SummaryEN:    r.Snippet,
			SummaryZH:    fallbackSummaryZH,
			Significance: fallbackSignificance,
		})
	}
	return items
}
