package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/config"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/infrastructure/feed"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/infrastructure/imagegen"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/infrastructure/llm"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/infrastructure/storage"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/infrastructure/telegram"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/logging"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/ports"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/server"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	db        *storage.DB
	scheduler *usecase.Scheduler
	server    *server.Server
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := storage.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	textGen, err := llm.NewClient(cfg.TextGen)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("text backend: %w", err)
	}

	imageStore, err := imagegen.NewFileStore(cfg.Store.ImagesDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("image store: %w", err)
	}

	enricher := usecase.NewEnricher(usecase.EnricherDeps{
		Text:        textGen,
		Images:      imagegen.NewClient(cfg.ImageGen.Endpoint, nil),
		ImageStore:  imageStore,
		ImageWidth:  cfg.ImageGen.Width,
		ImageHeight: cfg.ImageGen.Height,
		Logger:      baseLogger.With("component", "enricher"),
	})

	var notifier ports.Notifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}

	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Source:      feed.NewReader(nil),
		Store:       db,
		Enricher:    enricher,
		Text:        textGen,
		Notifier:    notifier,
		Logger:      baseLogger.With("component", "orchestrator"),
		Concurrency: cfg.Scheduler.Concurrency,
	})

	scheduler := usecase.NewScheduler(usecase.SchedulerDeps{
		Runner:          orchestrator,
		Store:           db,
		Feeds:           cfg.Feeds,
		Logger:          baseLogger.With("component", "scheduler"),
		IntervalMinutes: cfg.Scheduler.IntervalMinutes,
		Enabled:         cfg.Scheduler.IsEnabled(),
	})

	srv := server.New(scheduler, db, baseLogger.With("component", "server"))

	return &Application{
		cfg:       cfg,
		db:        db,
		scheduler: scheduler,
		server:    srv,
	}, nil
}

// Run starts the scheduler loop and blocks serving HTTP.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Init(ctx); err != nil {
		return err
	}
	a.scheduler.Start(ctx)
	return a.server.Start(a.cfg.Server.Addr)
}

// Close releases held resources.
func (a *Application) Close() error {
	return a.db.Close()
}
