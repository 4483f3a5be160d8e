package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"FortuneScanner/internal/config"
	"FortuneScanner/internal/infrastructure/cache"
	"FortuneScanner/internal/infrastructure/fsio"
	"FortuneScanner/internal/infrastructure/llm"
	"FortuneScanner/internal/infrastructure/parser"
	"FortuneScanner/internal/infrastructure/scheduler"
	"FortuneScanner/internal/infrastructure/scores"
	"FortuneScanner/internal/infrastructure/storage"
	"FortuneScanner/internal/infrastructure/telegram"
	"FortuneScanner/internal/logging"
	"FortuneScanner/internal/ports"
	"FortuneScanner/internal/scanner"
	"FortuneScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	db        *sql.DB
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewOhaasaScanner(nil))

	source := parser.NewStrategySource(registry, cfg.Sites, baseLogger.With("component", "source"))

	generator := llm.NewOpenAIClient(cfg.OpenAI)
	bundleCache := cache.Open(cfg.Cache.Path, baseLogger.With("component", "cache"))

	enricher := usecase.NewEnricher(generator, bundleCache, usecase.EnricherConfig{
		CallTimeout: time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
		RateDelay:   time.Duration(cfg.OpenAI.RateDelayMS) * time.Millisecond,
	}, baseLogger.With("component", "enricher"))

	var scoreProvider ports.ScoreProvider = scores.Fixed{}
	if cfg.Scores.EndpointURL != "" {
		scoreProvider = scores.NewClient(cfg.Scores.EndpointURL, cfg.Scores.APIKey)
	}

	var db *sql.DB
	var recorder ports.RunRecorder
	if cfg.Database.DSN != "" {
		opened, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db = opened
		recorder = storage.NewRunRepository(db)
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:   source,
		Scores:   scoreProvider,
		Enricher: enricher,
		Writer:   fsio.NewDocumentFile(cfg.Output.Path),
		Recorder: recorder,
		Notifier: notifier,
		Logger:   baseLogger.With("component", "pipeline"),
	}, usecase.PipelinePolicy{
		SourceName:        cfg.Output.Source,
		OnFetchFailure:    cfg.Output.OnFetchFailure,
		StrictEnrichment:  cfg.Policy.StrictEnrichment,
		AllowUnknownSigns: cfg.Policy.AllowUnknownSigns,
		Location:          cfg.Scheduler.Location(),
	})

	application := &Application{cfg: cfg, pipeline: pipeline, db: db}

	if cfg.Scheduler.Daily {
		driver, err := scheduler.NewDailyScheduler(cfg.Scheduler.At, cfg.Scheduler.Location())
		if err != nil {
			return nil, err
		}
		application.scheduler = usecase.NewScheduler(driver, pipeline, recorder,
			cfg.Scheduler.Location(), baseLogger.With("component", "scheduler"))
	}

	return application, nil
}

// Run executes one pipeline run, or blocks triggering daily runs when
// daemon mode is configured.
func (a *Application) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return nil
	}

	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return a.scheduler.Stop(context.Background())
	}

	now := time.Now().In(a.cfg.Scheduler.Location())
	return a.pipeline.ProcessDay(ctx, now)
}

// Close releases held resources.
func (a *Application) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
