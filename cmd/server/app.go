package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dvolkov/taskdesk/internal/api"
	"github.com/dvolkov/taskdesk/internal/config"
	"github.com/dvolkov/taskdesk/internal/events"
	"github.com/dvolkov/taskdesk/internal/ingest"
	"github.com/dvolkov/taskdesk/internal/platform/gemini"
	"github.com/dvolkov/taskdesk/internal/platform/openai"
	"github.com/dvolkov/taskdesk/internal/platform/postgres"
	"github.com/dvolkov/taskdesk/internal/platform/telegram"
	"github.com/dvolkov/taskdesk/internal/scheduler"
	"github.com/dvolkov/taskdesk/internal/service"
	"github.com/dvolkov/taskdesk/internal/store"
)

// application holds the wired dependency graph of the server.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	taskService   *service.TaskService
	sourceService *service.SourceService

	extractor *gemini.Extractor
	processor *ingest.Processor
	runner    *ingest.Runner
	scheduler *scheduler.Scheduler

	telegramClient  *telegram.Client
	telegramWebhook *telegram.Webhook
	notifier        *telegram.Notifier

	taskHandler   *api.TaskHandler
	sourceHandler *api.SourceHandler
	statsHandler  *api.StatsHandler
	wazzupHandler *api.WazzupHandler
}

// newApplication builds the full dependency graph: database and stores,
// services, the classification extractor, the ingestion worker pool, the
// reminder scheduler and the platform adapters.
func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	logger := slog.Default()

	db, err := setupDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := postgres.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Stores
	taskStore := postgres.NewPostgresTaskStore(db, logger)
	sourceStore := postgres.NewPostgresSourceStore(db, logger)
	userStore := postgres.NewPostgresUserStore(db, logger)
	eventStore := postgres.NewPostgresTaskEventStore(db, logger)
	jobStore := postgres.NewPostgresJobStore(db, logger)

	// Events
	emitter := events.NewInMemoryEmitter(logger)

	// Services
	taskService := service.NewTaskService(store.NewSQLTransactor(db), taskStore, sourceStore, userStore, eventStore, emitter, logger)
	sourceService := service.NewSourceService(sourceStore, logger)

	// Classification
	extractor, err := gemini.NewExtractor(ctx, logger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	// Ingestion worker pool
	processor := ingest.NewProcessor(extractor, ingest.NewServiceAdapter(taskService), logger)

	runnerConfig := ingest.DefaultRunnerConfig()
	runnerConfig.WorkerCount = cfg.Ingest.WorkerCount
	runnerConfig.QueueSize = cfg.Ingest.QueueSize
	runnerConfig.MaxAttempts = cfg.Ingest.MaxAttempts
	runner := ingest.NewRunner(jobStore, processor, runnerConfig, logger)

	// Telegram
	telegramClient := telegram.NewClient(cfg.Telegram.BotToken)
	notifier := telegram.NewNotifier(telegramClient, cfg.Telegram.TasksChatID, taskService, logger)
	emitter.RegisterHandler(notifier)

	var transcriber telegram.Transcriber
	if cfg.Speech.APIKey != "" {
		whisper, err := openai.NewWhisperTranscriber(logger, cfg.Speech)
		if err != nil {
			return nil, fmt.Errorf("failed to create transcriber: %w", err)
		}
		transcriber = whisper
	} else {
		transcriber = unavailableTranscriber{}
	}

	webhook := telegram.NewWebhook(
		telegramClient,
		cfg.Telegram.TasksChatID,
		runner,
		transcriber,
		taskService,
		logger,
	)

	// Reminder scheduler
	schedulerConfig := scheduler.Config{
		Interval:       time.Duration(cfg.Reminders.IntervalMinutes) * time.Minute,
		RemindNewAfter: time.Duration(cfg.Reminders.RemindNewMinutes) * time.Minute,
		Due24hEnabled:  cfg.Reminders.RemindDue24h,
		Due2hEnabled:   cfg.Reminders.RemindDue2h,
	}
	reminderScheduler := scheduler.New(taskService, notifier, schedulerConfig, logger)

	// HTTP handlers
	app := &application{
		config:          cfg,
		logger:          logger,
		db:              db,
		taskService:     taskService,
		sourceService:   sourceService,
		extractor:       extractor,
		processor:       processor,
		runner:          runner,
		scheduler:       reminderScheduler,
		telegramClient:  telegramClient,
		telegramWebhook: webhook,
		notifier:        notifier,
		taskHandler:     api.NewTaskHandler(taskService),
		sourceHandler:   api.NewSourceHandler(sourceService),
		statsHandler:    api.NewStatsHandler(processor, extractor),
		wazzupHandler:   api.NewWazzupHandler(runner),
	}

	return app, nil
}

// run starts the background subsystems and serves HTTP until shutdown.
func (app *application) run(ctx context.Context) error {
	if err := app.runner.Start(); err != nil {
		return fmt.Errorf("failed to start ingestion runner: %w", err)
	}

	if err := app.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start reminder scheduler: %w", err)
	}

	if url := app.config.Telegram.WebhookURL; url != "" {
		if err := app.telegramClient.SetWebhook(ctx, url); err != nil {
			app.logger.Error("failed to set telegram webhook", "url", url, "error", err)
		} else {
			app.logger.Info("telegram webhook set", "url", url)
		}
	}

	return app.startHTTPServer(ctx, app.setupRouter())
}

// cleanup stops the background subsystems in dependency order.
func (app *application) cleanup() {
	app.scheduler.Stop()
	app.runner.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", "error", err)
	}
}

// unavailableTranscriber stands in when no speech-to-text credentials are
// configured; audio messages are then dropped at the adapter.
type unavailableTranscriber struct{}

func (unavailableTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return "", fmt.Errorf("speech-to-text is not configured")
}
