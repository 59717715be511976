package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"autopress/internal/cms"
	"autopress/internal/config"
	"autopress/internal/costtracker"
	"autopress/internal/inputprocessor"
	"autopress/internal/services"
	"autopress/internal/session"
	"autopress/internal/store"
	"autopress/internal/store/primary"
	"autopress/internal/transport"
)

const defaultPromptFile = "draft.txt"

// ErrCMSNotConfigured is returned by RequireCMS when cms.base_url is empty.
var ErrCMSNotConfigured = errors.New("cms.base_url is not configured")

type App struct {
	Config         *config.Config
	InputProcessor inputprocessor.Processor

	PrimaryStore *primary.StoreImpl // nil without database.dsn
	RunStore     store.RunStore
	CostStore    store.CostTrackingStore
	CostTracker  costtracker.CostTracker
	JobClient    store.JobClient

	Transport *transport.Client
	Session   *session.Manager
	Gateway   *cms.Gateway

	EmbeddingService services.EmbeddingProvider
	Resolver         *services.TaxonomyResolver
	DraftProducer    services.DraftProducer

	PublishService *services.PublishService
	CostService    *services.CostService

	gemini *services.GeminiProvider
}

func NewApp(cfg *config.Config, inputProc inputprocessor.Processor) (*App, error) {
	ctx := context.Background()
	app := &App{Config: cfg, InputProcessor: inputProc}

	if err := app.initStore(ctx); err != nil {
		return nil, err
	}
	if err := app.initCMS(); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	if err := app.initEmbeddingService(ctx); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	app.initDraftProducer()
	if err := app.initJobClient(); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	app.initCoreServices()

	log.Debug("Application initialization complete.")
	return app, nil
}

// RedisOpt returns the asynq connection options from config.
func (a *App) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     a.Config.Redis.Address,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	}
}

// RequireCMS reports whether the CMS gateway is available.
func (a *App) RequireCMS() error {
	if a.Gateway == nil {
		return ErrCMSNotConfigured
	}
	return nil
}

// Close releases every resource opened by NewApp.
func (a *App) Close() {
	a.cleanupPartialInit()
}

// --- Private Helper Methods ---

func (a *App) initStore(ctx context.Context) error {
	dsn := a.Config.Database.DSN
	if dsn == "" {
		log.Debug("No database configured; run ledger and usage logs are disabled.")
		a.RunStore = store.NoopRunStore{}
		a.CostStore = store.NoopCostTrackingStore{}
		a.CostTracker = costtracker.New(nil)
		return nil
	}
	ps, err := primary.NewPrimaryStore(ctx, dsn)
	if err != nil {
		return fmt.Errorf("init primary store: %w", err)
	}
	a.PrimaryStore = ps
	a.RunStore = ps
	a.CostStore = ps
	a.CostTracker = costtracker.New(ps)
	return nil
}

func (a *App) initCMS() error {
	cfg := a.Config.CMS
	if cfg.BaseURL == "" {
		log.Debug("cms.base_url is empty; CMS commands are unavailable.")
		return nil
	}
	tr, err := transport.New(transport.Config{
		BaseURL:            cfg.BaseURL,
		Timeout:            cfg.Timeout,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return fmt.Errorf("init cms transport: %w", err)
	}
	a.Transport = tr
	a.Session = session.New(tr, cfg.Username, cfg.Password)
	a.Gateway = cms.NewGateway(tr, a.Session)
	return nil
}

func (a *App) initEmbeddingService(ctx context.Context) error {
	cfg := a.Config
	var providers []services.EmbeddingProvider

	if cfg.Embedding.OpenaiApiKey != "" {
		client := services.NewOpenAIClient(cfg.Embedding.OpenaiApiKey, cfg.Embedding.OpenaiBaseURL)
		providers = append(providers, services.NewOpenAIProvider(client, cfg.Embedding.Model, a.CostTracker, cfg.Pricing["openai"]))
	}
	if cfg.Embedding.GoogleApiKey != "" {
		gp, err := services.NewGeminiProvider(ctx, cfg.Embedding.GoogleApiKey, cfg.Embedding.GeminiModelName)
		if err != nil {
			log.Warnf("Failed to initialize Gemini provider: %v", err)
		} else {
			a.gemini = gp
			providers = append(providers, gp)
			log.Debugf("Initialized Gemini embedding provider (Model: %s)", cfg.Embedding.GeminiModelName)
		}
	}

	var embedder services.EmbeddingProvider = services.NewNoopEmbeddingProvider()
	if len(providers) == 0 {
		log.Debug("No embedding providers configured; taxonomy resolution will fail.")
	} else {
		var retry services.RetryStrategy
		if cfg.Embedding.MaxRetries > 0 {
			retry = &services.SimpleRetryStrategy{MaxAttempts: cfg.Embedding.MaxRetries, BaseDelayMs: 200}
		}
		fallback, err := services.NewFallbackEmbeddingService(providers, retry)
		if err != nil {
			return fmt.Errorf("init embedding service: %w", err)
		}
		embedder = fallback
	}
	a.EmbeddingService = embedder
	a.Resolver = services.NewTaxonomyResolver(embedder, cfg.Resolver.Threshold)
	return nil
}

func (a *App) initDraftProducer() {
	cfg := a.Config
	if cfg.Embedding.OpenaiApiKey == "" {
		a.DraftProducer = services.NewNoopDraftProducer()
		return
	}
	prompt, err := config.LoadPromptContent(cfg.Generation.Prompt, defaultPromptFile)
	if err != nil {
		if cfg.Generation.Prompt != "" || !errors.Is(err, os.ErrNotExist) {
			log.Warnf("Failed to load draft prompt: %v. Using the built-in prompt.", err)
		}
		prompt = ""
	}
	client := services.NewOpenAIClient(cfg.Embedding.OpenaiApiKey, cfg.Embedding.OpenaiBaseURL)
	a.DraftProducer = services.NewOpenAIDraftProducer(
		client, cfg.Generation.Model, prompt, cfg.Generation.Temperature,
		a.CostTracker, cfg.Pricing["openai"],
	)
}

func (a *App) initJobClient() error {
	jc, err := store.NewAsynqJobClient(a.RedisOpt(), a.RunStore)
	if err != nil {
		return fmt.Errorf("init job client: %w", err)
	}
	a.JobClient = jc
	return nil
}

func (a *App) initCoreServices() {
	cfg := a.Config
	if a.Gateway != nil {
		a.PublishService = services.NewPublishService(a.Gateway, a.Resolver, a.DraftProducer, a.RunStore, services.PublishOptions{
			Status:         cfg.Publish.Status,
			MaxConcurrency: cfg.Publish.MaxConcurrency,
		})
	}
	a.CostService = services.NewCostService(a.CostStore)
}

func (a *App) cleanupPartialInit() {
	if a.JobClient != nil {
		if err := a.JobClient.Close(); err != nil {
			log.Warnf("Error closing job client: %v", err)
		}
	}
	if a.gemini != nil {
		if err := a.gemini.Close(); err != nil {
			log.Warnf("Error closing Gemini client: %v", err)
		}
	}
	if a.PrimaryStore != nil {
		a.PrimaryStore.Close()
	}
}
