// Package main is the entrypoint for the Booktrack API server.
package main

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/booktrack/booktrack/internal/auth"
	"github.com/booktrack/booktrack/internal/config"
	"github.com/booktrack/booktrack/internal/handler"
	"github.com/booktrack/booktrack/internal/middleware"
	"github.com/booktrack/booktrack/internal/repository"
	"github.com/booktrack/booktrack/internal/server"
	"github.com/booktrack/booktrack/internal/summary"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Token verification against the identity provider's key set
	keySet := auth.NewKeySetCache(cfg.JWKSURL(), nil)
	verifier := auth.NewVerifier(keySet)

	// Data access against the hosted REST data API
	repo := repository.New(cfg.DataAPIURL(), cfg.SupabaseServiceKey, nil)

	// Summary generation with ordered provider fallback
	generator := summary.NewGenerator(
		summary.DefaultProviders(cfg.OpenAIAPIKey, cfg.GroqAPIKey),
		nil,
		logger,
	)

	// Initialize handlers
	h := handler.New()
	bookHandler := handler.NewBookHandler(repo, generator, logger)

	// Setup router
	r := setupRouter(h, bookHandler, verifier, cfg, logger)

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"openai_configured", cfg.OpenAIAPIKey != "",
		"groq_configured", cfg.GroqAPIKey != "",
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	bookHandler *handler.BookHandler,
	verifier *auth.Verifier,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(chimiddleware.RequestSize(cfg.MaxRequestBodySize))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	r.Use(middleware.CORS(corsCfg))

	// Liveness endpoints (no auth required)
	r.Get("/", h.Root)
	r.Get("/healthz", h.Healthz)

	// Book routes require a verified bearer token
	authCfg := middleware.AuthConfig{
		Logger:   logger,
		Verifier: verifier,
	}

	r.Route("/books", func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))

		r.Post("/", bookHandler.Create)
		r.Get("/", bookHandler.List)
		r.Patch("/{id}", bookHandler.UpdateStatus)
		r.Delete("/{id}", bookHandler.Delete)
		r.Get("/{id}/summary", bookHandler.Summary)
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
