package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"MentionScanner/internal/config"
	"MentionScanner/internal/domain"
	"MentionScanner/internal/infrastructure/llm"
	"MentionScanner/internal/infrastructure/ml"
	"MentionScanner/internal/infrastructure/parser"
	"MentionScanner/internal/infrastructure/scheduler"
	"MentionScanner/internal/infrastructure/storage"
	"MentionScanner/internal/infrastructure/telegram"
	"MentionScanner/internal/logging"
	"MentionScanner/internal/usecase"
	"MentionScanner/internal/web"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	store     *storage.SQLRepository
	ingestion *usecase.FeedIngestionJob
	poller    *usecase.ChatPoller
	scheduler *usecase.Scheduler
	server    *web.Server
}

// New validates cfg, opens the store and builds every component.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var alerts *usecase.Alerter
	if cfg.Telegram.AlertsEnabled() {
		notifier := telegram.NewNotifier(cfg.Telegram.APIBase, cfg.Telegram.BotToken, cfg.Telegram.AlertChatID)
		alerts = usecase.NewAlerter(notifier, cfg.Telegram.AlertMinConfidence, baseLogger.With("component", "alerts"))
	}

	completer := llm.NewChatGPTClient(cfg.ChatGPT)
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Keywords:   domain.NewKeywordSet(cfg.Keywords),
		Classifier: ml.NewClassifier(completer, cfg.ChatGPT.SystemPrompt, cfg.ChatGPT.MaxTokens, baseLogger.With("component", "classifier")),
		Store:      store,
		Alerts:     alerts,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	extractor := parser.NewExtractor(parser.ExtractorOptions{
		Timeout:       cfg.Extractor.Timeout,
		UserAgent:     cfg.Extractor.UserAgent,
		MaxChars:      cfg.Extractor.MaxChars,
		Mode:          cfg.Extractor.Mode,
		RespectRobots: cfg.Extractor.RespectRobots,
	}, baseLogger.With("component", "extractor"))

	ingestion := usecase.NewFeedIngestionJob(usecase.FeedJobDeps{
		Reader:            parser.NewFeedReader(nil, cfg.Extractor.UserAgent, baseLogger.With("component", "feeds")),
		Extractor:         extractor,
		Pipeline:          pipeline,
		MaxEntriesPerFeed: cfg.Ingestion.MaxEntriesPerFeed,
		PacingDelay:       cfg.Ingestion.PacingDelay,
		Logger:            baseLogger.With("component", "ingestion"),
	})

	a := &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     store,
		ingestion: ingestion,
		scheduler: usecase.NewScheduler(
			scheduler.NewIntervalScheduler(cfg.Ingestion.Interval),
			ingestion,
			cfg.Ingestion.Feeds,
			baseLogger.With("component", "scheduler"),
		),
		server: web.NewServer(web.Deps{
			Store:        store,
			Ingestion:    ingestion,
			DefaultFeeds: cfg.Ingestion.Feeds,
			Logger:       baseLogger.With("component", "http"),
		}),
	}

	if cfg.Telegram.PollerEnabled() {
		a.poller = usecase.NewChatPoller(usecase.PollerDeps{
			Source:          telegram.NewClient(cfg.Telegram.APIBase, cfg.Telegram.BotToken, nil),
			Pipeline:        pipeline,
			BatchLimit:      cfg.Telegram.BatchLimit,
			LongPollTimeout: cfg.Telegram.LongPollTimeout,
			Interval:        cfg.Telegram.PollInterval,
			Logger:          baseLogger.With("component", "poller"),
		})
	}

	return a, nil
}

// OpenStore connects to the configured database.
func OpenStore(ctx context.Context, cfg config.Config) (*storage.SQLRepository, error) {
	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

// Run serves HTTP, runs the chat poller and the optional periodic ingestion
// until ctx is cancelled or the HTTP server fails.
func (a *Application) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.server.Start(gctx, a.cfg.HTTP.Addr)
	})

	if a.poller != nil {
		g.Go(func() error {
			if err := a.poller.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		a.logger.Info("chat poller disabled")
	}

	if err := a.scheduler.Start(gctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer func() {
		if err := a.scheduler.Stop(context.Background()); err != nil {
			a.logger.Warn("stop scheduler", "error", err)
		}
	}()

	return g.Wait()
}

// Ingest runs one feed ingestion over the configured feeds plus extra.
func (a *Application) Ingest(ctx context.Context, extra ...string) usecase.Report {
	feeds := append([]string(nil), a.cfg.Ingestion.Feeds...)
	feeds = append(feeds, extra...)
	return a.ingestion.Run(ctx, feeds)
}

// Close releases the store.
func (a *Application) Close() error {
	return a.store.Close()
}

// Export writes the articles matching filter as CSV. It needs only the store,
// so it works without completion or messaging credentials.
func Export(ctx context.Context, cfg config.Config, filter domain.ArticleFilter, w io.Writer) (int, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	if filter.Limit <= 0 {
		filter.Limit = domain.ExportLimit
	}
	articles, err := store.Query(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("query articles: %w", err)
	}
	if err := web.WriteCSV(w, articles); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}
	return len(articles), nil
}
