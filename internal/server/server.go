// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer. It decides:
// - Which credential store and session store back the app
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → New()
//	  UserRepository (memory | sqlite | postgres | mysql) ┐
//	  session.Store  (memory | redis)                     ├→ AuthService → SessionHandler
//	  TokenService + PasswordService                      ┘
//	  PDFExtractor + summarizer.Service → AnalysisService → AnalyzeHandler
//
// This is the "composition root": every dependency is built here and
// nowhere else.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/paper-digest/internal/auth"
	"github.com/sakif/paper-digest/internal/config"
	"github.com/sakif/paper-digest/internal/extractor"
	"github.com/sakif/paper-digest/internal/handler"
	"github.com/sakif/paper-digest/internal/middleware"
	"github.com/sakif/paper-digest/internal/repository"
	"github.com/sakif/paper-digest/internal/repository/memory"
	mysqlRepo "github.com/sakif/paper-digest/internal/repository/mysql"
	"github.com/sakif/paper-digest/internal/repository/postgres"
	sqliteRepo "github.com/sakif/paper-digest/internal/repository/sqlite"
	"github.com/sakif/paper-digest/internal/service"
	"github.com/sakif/paper-digest/internal/session"
	"github.com/sakif/paper-digest/internal/summarizer"
	"github.com/sakif/paper-digest/internal/summarizer/openai"
)

const (
	sweepInterval   = 5 * time.Minute
	shutdownTimeout = 30 * time.Second
	connectTimeout  = 15 * time.Second
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the credential store and the session store. Start closes
// both after the HTTP server has drained.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	users    repository.UserRepository
	sessions session.Store
}

// New builds every dependency named by cfg and registers the routes.
// cfg must already be validated and carry a session secret.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	users, err := openUserStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	sessions, err := openSessionStore(ctx, cfg, logger)
	if err != nil {
		_ = users.Close()
		return nil, err
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		users:    users,
		sessions: sessions,
	}

	if err := s.setupRoutes(); err != nil {
		s.closeStores()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// openUserStore picks the credential store backend.
func openUserStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.UserRepository, error) {
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory credential store; accounts are lost on restart")
		return memory.New(), nil

	case "sqlite":
		// os.MkdirAll creates parent directories if needed (like `mkdir -p`).
		if cfg.DBPath != ":memory:" {
			dir := filepath.Dir(cfg.DBPath)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return db, nil

	case "postgres":
		db, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return db, nil

	case "mysql":
		db, err := mysqlRepo.New(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("opening mysql store: %w", err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// openSessionStore picks the session backend and checks it is reachable.
func openSessionStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Store, error) {
	if cfg.SessionStore != "redis" {
		return session.NewMemoryStore(), nil
	}

	store := session.NewRedisStore(session.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
	}
	return store, nil
}

// newSummarizer wires the OpenAI-compatible generator when an API key is
// configured. Without one, summaries degrade to the not-configured warning.
func newSummarizer(cfg *config.Config, logger *slog.Logger) (*summarizer.Service, error) {
	if cfg.SummarizerAPIKey == "" {
		logger.Warn("SUMMARIZER_API_KEY not set; analyses will return a configuration warning instead of summaries")
		return summarizer.New(nil, logger), nil
	}

	client, err := openai.NewClient(openai.Config{
		APIKey:    cfg.SummarizerAPIKey,
		BaseURL:   cfg.SummarizerBaseURL,
		Model:     cfg.SummarizerModel,
		MaxTokens: cfg.SummarizerMaxTokens,
		Timeout:   cfg.SummarizerTimeout,
		JSONMode:  cfg.SummarizerJSONMode,
	})
	if err != nil {
		return nil, fmt.Errorf("creating summarizer client: %w", err)
	}

	logger.Info("summarizer configured", slog.String("model", client.Model()))
	return summarizer.New(client, logger), nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// POST   /sessions/signup  → create account + session
// POST   /sessions/login   → create session
// POST   /sessions/logout  → delete session               [auth]
// GET    /session          → current identity             [auth]
// POST   /api/analyze      → multipart PDFs → Report      [auth]
// POST   /api/export       → results → .xlsx              [auth]
// POST   /api/report       → results → .txt               [auth]
// GET    /health           → liveness check
// GET    /error            → error page target
// GET    /static/*         → static files
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Recoverer: catches panics and returns 500 instead of crashing
// 4. Logger: logs each request with timing info
// 5. CORS: only when origins are configured
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	if len(s.config.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// === Auth dependencies ===
	tokens, err := auth.NewTokenService(s.config.SessionSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords, err := auth.NewPasswordService(auth.Algorithm(s.config.PasswordHasher))
	if err != nil {
		return fmt.Errorf("creating password service: %w", err)
	}
	authService, err := service.NewAuthService(s.users, s.sessions, tokens, passwords, s.config.SessionTTL, s.logger)
	if err != nil {
		return fmt.Errorf("creating auth service: %w", err)
	}
	requireAuth := auth.RequireAuth(authService)

	// === Analysis dependencies ===
	sum, err := newSummarizer(s.config, s.logger)
	if err != nil {
		return err
	}
	analysisService := service.NewAnalysisService(extractor.NewPDFExtractor(s.logger), sum, s.logger)

	sessionHandler := handler.NewSessionHandler(authService, s.config.CookieSecure, s.logger)
	analyzeHandler := handler.NewAnalyzeHandler(analysisService, s.logger)
	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{
		"users":    s.users,
		"sessions": s.sessions,
	}, sum.Configured, s.logger)

	// === Public routes ===
	s.router.Get("/health", healthHandler.HandleHealth)
	s.router.Get(handler.ErrorPagePath, handler.ErrorPage(s.config.StaticDir))
	s.router.Post("/sessions/signup", sessionHandler.HandleSignup)
	s.router.Post("/sessions/login", sessionHandler.HandleLogin)

	if s.config.StaticDir != "" {
		if info, err := os.Stat(s.config.StaticDir); err == nil && info.IsDir() {
			fileServer := http.FileServer(http.Dir(s.config.StaticDir))
			s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
		} else {
			s.logger.Warn("static directory not found; /static is disabled",
				slog.String("dir", s.config.StaticDir))
		}
	}

	// === Session-bound routes ===
	s.router.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/sessions/logout", sessionHandler.HandleLogout)
		r.Get("/session", sessionHandler.HandleMe)

		r.Route("/api", func(r chi.Router) {
			r.Post("/analyze", analyzeHandler.HandleAnalyze)
			r.Post("/export", analyzeHandler.HandleExport)
			r.Post("/report", analyzeHandler.HandleReport)
		})
	})

	s.router.NotFound(handler.HandleNotFound)
	s.router.MethodNotAllowed(handler.HandleMethodNotAllowed)

	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the session store and the credential store
func (s *Server) Start() error {
	defer s.closeStores()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if mem, ok := s.sessions.(*session.MemoryStore); ok {
		go mem.RunSweeper(ctx, sweepInterval)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute, // five 20MB uploads on a slow link
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("store", s.config.StoreDriver),
			slog.String("sessions", s.config.SessionStore),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

func (s *Server) closeStores() {
	if err := s.sessions.Close(); err != nil {
		s.logger.Error("closing session store", slog.String("error", err.Error()))
	}
	if err := s.users.Close(); err != nil {
		s.logger.Error("closing credential store", slog.String("error", err.Error()))
	}
}
