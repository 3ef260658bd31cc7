package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/reelgen-api/internal/config"
	"github.com/phrazzld/reelgen-api/internal/domain"
	"github.com/phrazzld/reelgen-api/internal/events"
	"github.com/phrazzld/reelgen-api/internal/frames"
	"github.com/phrazzld/reelgen-api/internal/generation"
	"github.com/phrazzld/reelgen-api/internal/narration"
	"github.com/phrazzld/reelgen-api/internal/platform/gemini"
	"github.com/phrazzld/reelgen-api/internal/platform/openai"
	"github.com/phrazzld/reelgen-api/internal/platform/postgres"
	"github.com/phrazzld/reelgen-api/internal/platform/ttsapi"
	"github.com/phrazzld/reelgen-api/internal/provider"
	"github.com/phrazzld/reelgen-api/internal/reconcile"
	"github.com/phrazzld/reelgen-api/internal/retry"
	"github.com/phrazzld/reelgen-api/internal/service/auth"
	"github.com/phrazzld/reelgen-api/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	verifier      auth.Verifier
	emitter       *events.InMemoryEmitter
	frameService  *frames.Service
	scripts       *generation.Orchestrator[domain.Script]
	publishAssist *generation.Orchestrator[domain.PublishAssist]
	narrator      *narration.Service

	taskRunner *task.TaskRunner
	reconciler *reconcile.Reconciler
}

// newApplication creates a new application instance with all dependencies initialized.
// Nothing is started until Run.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		db:      db,
		emitter: events.NewInMemoryEmitter(logger),
	}

	var err error
	app.verifier, err = auth.NewJWTVerifier(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token verifier: %w", err)
	}

	videoStore := postgres.NewPostgresVideoTaskReader(db, logger)
	generationStore := postgres.NewPostgresGenerationStore(db, logger)
	frameStore := postgres.NewPostgresFrameStore(db, logger)
	narrationStore := postgres.NewPostgresNarrationStore(db, logger)
	taskStore := postgres.NewPostgresTaskStore(db, logger)

	executor := retry.NewExecutor(logger)

	chat, err := newChatCompleter(ctx, cfg.Providers.Chat, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("chat provider initialized", "backend", cfg.Providers.Chat.Backend, "model", cfg.Providers.Chat.Model)

	vision, err := openai.NewVisionClient(cfg.Providers.Vision)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vision client: %w", err)
	}
	tts, err := ttsapi.NewClient(cfg.Providers.TTS, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tts client: %w", err)
	}

	// Frame analysis
	pipeline, err := frames.NewPipeline(vision, executor, frames.PipelineConfig{
		Concurrency: cfg.Frames.Concurrency,
		TopN:        cfg.Frames.TopN,
		Policy:      cfg.Providers.Vision.Retry.Policy(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create frame pipeline: %w", err)
	}
	app.frameService, err = frames.NewService(pipeline, frameStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create frame service: %w", err)
	}

	// Generation
	chatPolicy := cfg.Providers.Chat.Retry.Policy()
	cache := generation.NewMemoryCache(cfg.Generation.CacheTTL)
	publisher := generation.WithPublisher(app.emitter)

	app.scripts, err = generation.NewOrchestrator(
		generation.ScriptSpec(kindSettings(cfg.Providers.Chat.Model, cfg.Generation.Script), videoStore, frameStore),
		chat, executor, chatPolicy, generationStore, cache, logger, publisher,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create script orchestrator: %w", err)
	}
	app.publishAssist, err = generation.NewOrchestrator(
		generation.PublishAssistSpec(kindSettings(cfg.Providers.Chat.Model, cfg.Generation.PublishAssist), videoStore, generationStore),
		chat, executor, chatPolicy, generationStore, cache, logger, publisher,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create publish-assist orchestrator: %w", err)
	}

	// Narration
	synth, err := narration.NewSynthesizer(tts, executor, narration.Config{
		SegmentMaxLength: cfg.Narration.SegmentMaxLength,
		Concurrency:      cfg.Narration.Concurrency,
		Voice:            cfg.Providers.TTS.Voice,
		AudioEncoding:    cfg.Providers.TTS.AudioEncoding,
		SampleRate:       cfg.Providers.TTS.SampleRate,
		Policy:           cfg.Providers.TTS.Retry.Policy(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create narration synthesizer: %w", err)
	}
	app.narrator, err = narration.NewService(synth, app.currentScript, narration.DirSink{Dir: cfg.Narration.OutputDir}, narrationStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create narration service: %w", err)
	}

	// Background tasks
	factories, err := task.NewFactories(
		app.frameService,
		generateWith(app.scripts),
		generateWith(app.publishAssist),
		app.narrator,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task factories: %w", err)
	}
	registry := task.NewRegistry()
	factories.Register(registry)

	app.taskRunner = task.NewTaskRunner(taskStore, registry, task.TaskRunnerConfig{
		WorkerCount:  cfg.Tasks.WorkerCount,
		QueueSize:    cfg.Tasks.QueueSize,
		StuckTaskAge: cfg.Tasks.StuckTaskAge,
	}, logger)
	task.NewTaskFactoryEventHandler(factories, app.taskRunner, logger).Subscribe(app.emitter)

	if cfg.Reconcile.Enabled {
		app.reconciler, err = reconcile.New(generationStore, app.emitter, reconcile.Config{
			Schedule:  cfg.Reconcile.Schedule,
			MinAge:    cfg.Reconcile.MinAge,
			BatchSize: cfg.Reconcile.BatchSize,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create reconciler: %w", err)
		}
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// newChatCompleter selects the configured chat backend.
func newChatCompleter(ctx context.Context, cfg config.ChatProviderConfig, logger *slog.Logger) (provider.ChatCompleter, error) {
	switch cfg.Backend {
	case "openai":
		c, err := openai.NewChatClient(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai chat client: %w", err)
		}
		return c, nil
	case "gemini":
		c, err := gemini.NewChatClient(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini chat client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported chat backend %q", cfg.Backend)
	}
}

func kindSettings(model string, k config.KindConfig) generation.Settings {
	return generation.Settings{
		Model:     model,
		MaxTokens: k.MaxTokens,
		Schedule: generation.Schedule{
			Base:      k.BaseTemperature,
			Increment: k.TemperatureIncrement,
			Max:       k.MaxTemperature,
		},
		MaxRegenerations: k.MaxRegenerations,
	}
}

// generateWith adapts an orchestrator to a task.GenerateFunc.
func generateWith[T any](o *generation.Orchestrator[T]) task.GenerateFunc {
	return func(ctx context.Context, taskID uuid.UUID) error {
		_, err := o.GetOrGenerate(ctx, taskID)
		return err
	}
}

// currentScript is the narration.ScriptSource: the committed script of the task.
func (app *application) currentScript(ctx context.Context, taskID uuid.UUID) (*domain.Script, error) {
	res, err := app.scripts.GetOrGenerate(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &res.Content, nil
}

// Run starts the background workers and serves HTTP until ctx is done.
func (app *application) Run(ctx context.Context) error {
	if err := app.taskRunner.Start(); err != nil {
		app.cleanup(context.Background())
		return fmt.Errorf("failed to start task runner: %w", err)
	}
	if app.reconciler != nil {
		app.reconciler.Start(ctx)
	}

	err := app.startHTTPServer(ctx, app.setupRouter())
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup(ctx context.Context) {
	if app.reconciler != nil {
		if err := app.reconciler.Stop(ctx); err != nil {
			app.logger.Error("Error stopping reconciler", "error", err)
		}
	}

	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
