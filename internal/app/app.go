package app

import (
	"context"
	"fmt"
	"log/slog"

	"steelloop/internal/config"
	"steelloop/internal/infrastructure/carousel"
	"steelloop/internal/infrastructure/clouddrive"
	"steelloop/internal/infrastructure/extract"
	"steelloop/internal/infrastructure/llm"
	"steelloop/internal/infrastructure/publisher"
	"steelloop/internal/infrastructure/scheduler"
	"steelloop/internal/infrastructure/storage"
	"steelloop/internal/logging"
	"steelloop/internal/orchestrator"
	"steelloop/internal/stages"
	"steelloop/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *storage.Store
	engine  *orchestrator.Engine
	loop    *usecase.Loop
	sweeper *usecase.Sweeper
}

// New opens the database and builds every component. Close releases it.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	o := cfg.Orchestrator
	engine := orchestrator.New(store,
		orchestrator.WithLogger(baseLogger.With("component", "orchestrator")),
		orchestrator.WithRetryPolicy(orchestrator.RetryPolicy{
			StepAttempts: o.StepAttempts,
			BaseDelay:    o.BaseDelay,
			MaxDelay:     o.MaxDelay,
		}),
		orchestrator.WithConcurrency(o.Concurrency),
		orchestrator.WithPollInterval(o.PollInterval),
	)

	if cfg.Generator.APIKey == "" {
		baseLogger.Warn("generator api key is not set; generative stages will fail")
	}
	generator := llm.NewGenerator(cfg.Generator)
	runner := stages.NewRunner(generator, stages.MaxTokens{
		Forensic: cfg.Generator.MaxTokens.Forensic,
		Hooks:    cfg.Generator.MaxTokens.Hooks,
		Drafts:   cfg.Generator.MaxTokens.Drafts,
	}, baseLogger.With("component", "stages"))

	loop := usecase.NewLoop(usecase.Deps{
		Projects:      store,
		Files:         store,
		Items:         store,
		Sparks:        store,
		Drafts:        store,
		Vaults:        store,
		Accounts:      store,
		Drive:         clouddrive.NewClient(cfg.CloudDrive),
		Extractor:     extract.NewRegistry(),
		Publisher:     publisher.NewTelegram(cfg.Publisher, nil),
		Carousel:      carousel.NewRenderer(),
		Stages:        runner,
		Events:        engine,
		RefreshBuffer: cfg.CloudDrive.RefreshBuffer,
		Logger:        baseLogger.With("component", "loop"),
	})
	if err := loop.Register(engine); err != nil {
		store.Close()
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	driver := scheduler.NewTickerScheduler(cfg.Scheduler.SweepInterval, cfg.Scheduler.Location())
	sweeper := usecase.NewSweeper(driver, engine, o.StaleAfter, baseLogger.With("component", "sweeper"))

	return &Application{
		cfg:     cfg,
		logger:  baseLogger,
		store:   store,
		engine:  engine,
		loop:    loop,
		sweeper: sweeper,
	}, nil
}

// Loop exposes the user actions.
func (a *Application) Loop() *usecase.Loop { return a.loop }

// Store exposes the database for operator queries.
func (a *Application) Store() *storage.Store { return a.store }

// Config returns the configuration the application was built with.
func (a *Application) Config() config.Config { return a.cfg }

// RunWorker dispatches events and sweeps stale claims until ctx is cancelled.
func (a *Application) RunWorker(ctx context.Context) error {
	if err := a.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	defer func() {
		if err := a.sweeper.Stop(context.Background()); err != nil {
			a.logger.Warn("stop sweeper", "error", err)
		}
	}()

	a.logger.Info("worker started", "database", a.store.Path(), "concurrency", a.cfg.Orchestrator.Concurrency)
	err := a.engine.Run(ctx)
	a.logger.Info("worker stopped")
	return err
}

// DispatchOnce delivers one batch of pending events.
func (a *Application) DispatchOnce(ctx context.Context) (int, error) {
	return a.engine.DispatchOnce(ctx)
}

// Close releases the database.
func (a *Application) Close() error {
	return a.store.Close()
}
