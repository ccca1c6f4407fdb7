package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"AINewsletter/internal/config"
	"AINewsletter/internal/domain"
	"AINewsletter/internal/history"
	"AINewsletter/internal/infrastructure/llm"
	"AINewsletter/internal/infrastructure/mail"
	"AINewsletter/internal/infrastructure/scheduler"
	"AINewsletter/internal/infrastructure/search"
	"AINewsletter/internal/infrastructure/storage"
	"AINewsletter/internal/infrastructure/telegram"
	"AINewsletter/internal/logging"
	"AINewsletter/internal/ports"
	"AINewsletter/internal/usecase"
)

// DefaultPreviewPath receives the rendered HTML of a dry run.
const DefaultPreviewPath = "newsletter_preview.html"

// Options tweaks a single application instance.
type Options struct {
	DryRun     bool
	OutputPath string
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	archive  *storage.SQLiteArchive
}

// New builds a runnable application instance from configuration.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	searchClient, err := newSearchClient(cfg.Search, opts.DryRun, baseLogger)
	if err != nil {
		return nil, err
	}

	var mailer ports.Mailer
	if opts.DryRun {
		out := opts.OutputPath
		if out == "" {
			out = DefaultPreviewPath
		}
		mailer = mail.NewFileMailer(out, baseLogger.With("component", "mail.file"))
	} else {
		mailer = mail.NewSMTPMailer(cfg.SMTP, baseLogger.With("component", "mail.smtp"))
	}

	var notifier ports.Notifier
	if !opts.DryRun && cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	var archive ports.DeliveryArchive
	if !opts.DryRun && cfg.Archive.Path != "" {
		db, err := storage.OpenSQLiteArchive(ctx, cfg.Archive.Path)
		if err != nil {
			baseLogger.Warn("delivery archive disabled", "path", cfg.Archive.Path, "error", err)
		} else {
			a.archive = db
			archive = db
		}
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Search:     searchClient,
		Summarizer: newSummarizer(cfg.LLM, baseLogger),
		History:    history.NewFileRepository(cfg.History.Path, baseLogger.With("component", "history")),
		Mailer:     mailer,
		Notifier:   notifier,
		Archive:    archive,
		Logger:     baseLogger.With("component", "pipeline"),
		Categories: cfg.DomainCategories(),
		Newsletter: usecase.NewsletterMeta{
			Recipient:  cfg.Newsletter.Recipient,
			Subject:    cfg.Newsletter.Subject,
			SenderName: cfg.Newsletter.SenderName,
		},
		ResultsPerCategory: cfg.Search.Results,
		DryRun:             opts.DryRun,
	})
	return a, nil
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context) (domain.RunReport, error) {
	now := time.Now().In(a.cfg.Scheduler.Location())
	return a.pipeline.Run(ctx, now)
}

// Serve runs the pipeline on the configured interval until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, a.cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.Interval.String())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	a.logger.Info("scheduler stopped")
	return nil
}

// Close releases resources opened by New.
func (a *Application) Close() error {
	return a.archive.Close()
}

func newSearchClient(cfg config.SearchConfig, dryRun bool, logger *slog.Logger) (ports.SearchClient, error) {
	registry := search.NewRegistry()
	registry.Register(search.NewSerperClient(cfg.Endpoint, cfg.APIKey, logger.With("component", "search.serper")))
	registry.Register(search.MockClient{})

	name := cfg.Provider
	if name == "serper" && cfg.APIKey == "" {
		if !dryRun {
			logger.Warn("SERPER_API_KEY not set, using mock search results")
		}
		name = search.MockClient{}.Name()
	}

	provider, err := registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

func newSummarizer(cfg config.LLMConfig, logger *slog.Logger) ports.Summarizer {
	if cfg.APIKey == "" {
		logger.Warn("no LLM API key configured, newsletter will use search snippets", "provider", cfg.Provider)
		return nil
	}
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return llm.NewChatGPTSummarizer(cfg)
	default:
		return llm.NewClaudeSummarizer(cfg)
	}
}
