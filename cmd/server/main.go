// JobBot - conversational job search server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/jobbot/internal/agent"
	"github.com/ashureev/jobbot/internal/api"
	"github.com/ashureev/jobbot/internal/config"
	"github.com/ashureev/jobbot/internal/identity"
	"github.com/ashureev/jobbot/internal/jobsearch"
	"github.com/ashureev/jobbot/internal/llm"
	"github.com/ashureev/jobbot/internal/middleware"
	"github.com/ashureev/jobbot/internal/store"
	"github.com/ashureev/jobbot/internal/tools"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "model", cfg.Gemini.Model)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath, store.SQLiteOptions{
		MaxRetries:     cfg.Retry.DatabaseMaxRetries,
		RetryBaseDelay: cfg.Retry.DatabaseRetryBaseDelay,
	})
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	gemini, err := llm.NewGemini(ctx, llm.GeminiConfig{
		APIKey:            cfg.Gemini.APIKey,
		Model:             cfg.Gemini.Model,
		SystemInstruction: agent.SystemPrompt,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize Gemini client", "error", err)
		os.Exit(1)
	}

	jobs, err := jobsearch.NewClient(jobsearch.ClientConfig{
		APIKey:     cfg.JSearch.APIKey,
		BaseURL:    cfg.JSearch.BaseURL,
		Host:       cfg.JSearch.Host,
		HTTPClient: &http.Client{Timeout: cfg.Timeout.Tool},
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize job search client", "error", err)
		os.Exit(1)
	}

	registry, err := tools.NewRegistry(jobs, tools.WithLogger(logger))
	if err != nil {
		slog.Error("Failed to initialize tool registry", "error", err)
		os.Exit(1)
	}

	conversationLogger, err := agent.NewConversationLogger(agent.ConversationLogConfig{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Error("Failed to flush conversation log", "error", closeErr)
		}
	}()

	agentCfg := agent.DefaultConfig()
	agentCfg.ModelTimeout = cfg.Timeout.Model
	agentCfg.ToolTimeout = cfg.Timeout.Tool

	chatService, err := agent.NewService(repo, gemini, registry, agentCfg,
		agent.WithJobLookup(registry),
		agent.WithConversationLogger(conversationLogger),
		agent.WithLogger(logger),
	)
	if err != nil {
		slog.Error("Failed to initialize chat service", "error", err)
		os.Exit(1)
	}

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, chatService,
		api.WithRateLimiter(api.NewRateLimiter(ctx, cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)),
		api.WithMaxBodySize(cfg.MaxRequestBodySize),
	)
	healthHandler := api.NewHealthHandler(repo, cfg.Timeout.HealthCheck)
	profileHandler := api.NewProfileHandler(baseHandler)
	chatHandler := api.NewChatHandler(baseHandler)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// Everything else acts as a user.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(cfg.IsDevelopment()))
		profileHandler.RegisterRoutes(r)
		chatHandler.RegisterRoutes(r)
	})

	// A turn makes up to three model calls and two job lookups.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3*cfg.Timeout.Model + 2*cfg.Timeout.Tool + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
