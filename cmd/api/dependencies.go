package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/FACorreiaa/subbase-api/internal/domain/insights"
	"github.com/FACorreiaa/subbase-api/internal/domain/subscription"
	"github.com/FACorreiaa/subbase-api/internal/domain/summary"
	"github.com/FACorreiaa/subbase-api/internal/llm"
	"github.com/FACorreiaa/subbase-api/pkg/config"
	"github.com/FACorreiaa/subbase-api/pkg/db"
	"github.com/FACorreiaa/subbase-api/pkg/observability"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	SubscriptionRepo subscription.Repository

	// Services
	ChatClient          llm.ChatClient
	InsightsGenerator   insights.Generator
	SubscriptionService subscription.Service
	SummaryService      summary.Service
	InsightsService     insights.Service

	// Handlers
	SubscriptionHandler *subscription.Handler
	SummaryHandler      *summary.Handler
	InsightsHandler     *insights.Handler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initServices(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase connects to Postgres and applies pending migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

func (d *Dependencies) initRepositories() {
	d.SubscriptionRepo = subscription.NewRepositoryImpl(d.DB.Pool, d.Logger)
	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initServices(ctx context.Context) error {
	client, err := newChatClient(ctx, d.Config.AI, d.Logger)
	if err != nil {
		return err
	}
	d.ChatClient = client

	ai := d.Config.AI
	d.InsightsGenerator = insights.NewGenerator(client, insights.GeneratorConfig{
		Mode:        insights.Mode(ai.Mode),
		Model:       ai.Model,
		Language:    ai.Language,
		Timeout:     ai.Timeout,
		MaxRetries:  ai.MaxRetries,
		BaseDelay:   ai.BaseDelay,
		Temperature: ai.Temperature,
		MaxTokens:   ai.MaxTokens,
	}, d.Logger, insights.WithObserver(observability.InsightsMetrics{}))

	d.SubscriptionService = subscription.NewService(d.SubscriptionRepo, d.Logger)
	d.SummaryService = summary.NewService(d.SubscriptionRepo, d.Logger)
	d.InsightsService = insights.NewService(d.SubscriptionRepo, d.InsightsGenerator, d.Logger)

	d.Logger.Info("services initialized",
		slog.String("ai_provider", ai.Provider),
		slog.String("ai_model", client.Model()),
		slog.String("insights_mode", ai.Mode))
	return nil
}

func (d *Dependencies) initHandlers() {
	d.SubscriptionHandler = subscription.NewHandler(d.SubscriptionService)
	d.SummaryHandler = summary.NewHandler(d.SummaryService)
	d.InsightsHandler = insights.NewHandler(d.InsightsService)
	d.Logger.Info("handlers initialized")
}

// newChatClient picks the provider. Without a key the OpenRouter client is still built
// so that insight requests fail as unavailable instead of blocking start-up.
func newChatClient(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (llm.ChatClient, error) {
	if cfg.APIKey == "" {
		logger.Warn("AI API key is not configured; insight generation will be unavailable",
			slog.String("provider", cfg.Provider))
	}

	if cfg.Provider == "gemini" && cfg.APIKey != "" {
		client, err := llm.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return client, nil
	}

	return llm.NewOpenRouterClient(llm.OpenRouterConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.SiteURL,
		Title:   cfg.AppTitle,
	}, &http.Client{}), nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
