// Foundry Chat - conversational front-end for a hosted AI agent.
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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jsylvan/foundrychat/internal/api"
	"github.com/jsylvan/foundrychat/internal/chat"
	"github.com/jsylvan/foundrychat/internal/config"
	"github.com/jsylvan/foundrychat/internal/coordinator"
	"github.com/jsylvan/foundrychat/internal/credential"
	"github.com/jsylvan/foundrychat/internal/foundry"
	"github.com/jsylvan/foundrychat/internal/identity"
	"github.com/jsylvan/foundrychat/internal/metrics"
	"github.com/jsylvan/foundrychat/internal/middleware"
	"github.com/jsylvan/foundrychat/web"
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

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "agent_id", cfg.AgentID)

	// Pick the agent service credential once at startup: platform
	// identity when available, static API key otherwise.
	tokens, err := credential.Select(context.Background(), credential.Config{
		APIKey:   cfg.APIKey,
		Resource: cfg.TokenResource,
	}, logger)
	if err != nil {
		slog.Error("Failed to select agent service credential", "error", err)
		os.Exit(1)
	}

	client, err := foundry.NewClient(foundry.ClientConfig{
		Endpoint: cfg.Endpoint,
	}, tokens, logger)
	if err != nil {
		slog.Error("Failed to initialize agent service client", "error", err)
		os.Exit(1)
	}
	slog.Info("Agent service client initialized", "endpoint", cfg.Endpoint)

	m := metrics.New(prometheus.DefaultRegisterer)

	conversationLogger, err := chat.NewConversationLogger(cfg.ConversationLog, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	coord := coordinator.New(client, coordinator.Config{
		AgentID:      cfg.AgentID,
		PollInterval: cfg.PollInterval,
		MaxWait:      cfg.MaxWait,
	}, logger, m)

	sm := chat.NewSessionManager()

	limiter := chat.NewRateLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)
	defer limiter.Close()

	baseHandler := api.NewHandler(sm, cfg.AgentID)
	wsHandler := chat.NewHandler(client, coord, sm, limiter, conversationLogger, m, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	r.Get("/api/health", baseHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	// WebSocket endpoint.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// WriteTimeout stays 0: WebSocket sessions outlive any fixed limit.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

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
