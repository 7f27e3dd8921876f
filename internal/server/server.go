// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects handlers, middleware, and routes.
// It decides:
//   - Which URL patterns map to which handler functions
//   - What middleware runs on which routes
//   - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config.Config and (optionally) builds a generator, then
// Server.New creates:
//
//	sqlite.DB ─┬─ UserDB ─────┬─ AuthService ──── AuthHandler / ProfileHandler / HealthHandler
//	           │               └─ ContentService ─ ContentHandler
//	           └─ ContentDB ──┘
//	TokenService ── AuthService, Gate
//
// This is the "composition root" pattern: all dependencies are wired
// in one place, rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/writespace/internal/auth"
	"github.com/sakif/writespace/internal/config"
	"github.com/sakif/writespace/internal/generator"
	"github.com/sakif/writespace/internal/handler"
	"github.com/sakif/writespace/internal/middleware"
	sqliteRepo "github.com/sakif/writespace/internal/repository/sqlite"
	"github.com/sakif/writespace/internal/service"
)

// SecurePrefix is the path prefix the Gate protects.
const SecurePrefix = "/api/secure"

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it on shutdown;
// callers that never Start (tests) call Close.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server from cfg. gen may be nil, in which case the generate
// route answers 503.
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, gen generator.Generator) (*Server, error) {
	db, err := sqliteRepo.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(gen); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /                               → workspace page (HTML)
//	GET    /static/*                       → static files
//	GET    /api/health                     → {ok, userCount}
//	POST   /api/auth/register              → create account      (rate limited)
//	POST   /api/auth/login                 → get a bearer token  (rate limited)
//	GET    /api/auth/github/login          → OAuth redirect      (when configured)
//	GET    /api/auth/github/callback       → OAuth callback      (when configured)
//	GET    /api/secure/content             → list own items
//	POST   /api/secure/content             → create item
//	GET    /api/secure/content/{id}        → read own item
//	PUT    /api/secure/content/{id}        → update own item
//	DELETE /api/secure/content/{id}        → delete own item
//	GET    /api/secure/profile             → own account
//	POST   /api/secure/generate            → streamed AI draft
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns unique ID to each request (for tracing)
//  2. RealIP: extracts real client IP from proxy headers (TRUST_PROXY only)
//  3. Recoverer: catches panics and returns 500 instead of crashing
//  4. Logger: logs each request with timing info
//  5. Gate: rejects /api/secure requests without a valid bearer token
//
// The Gate is global and checks the prefix itself, so a route added under
// /api/secure anywhere in this function is protected automatically.
func (s *Server) setupRoutes(gen generator.Generator) error {
	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret, s.config.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords, err := auth.NewPasswordService(s.config.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("creating password service: %w", err)
	}

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	if s.config.TrustProxy {
		s.router.Use(chimiddleware.RealIP)
	}
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(auth.Gate(tokens, SecurePrefix, s.logger))

	// === Static Files ===
	// GET /static/css/style.css → serves {StaticDir}/css/style.css
	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	// === Services ===
	users := s.db.Users()
	authService := service.NewAuthService(users, passwords, tokens, s.logger)
	contentService := service.NewContentService(s.db.Contents(), users, s.logger)

	var github handler.OAuthProvider
	if s.config.GitHub.Enabled() {
		github = auth.NewGitHubProvider(s.config.GitHub.ClientID, s.config.GitHub.ClientSecret, s.config.GitHub.CallbackURL)
	}

	// === Page Routes ===
	workspaceHandler, err := handler.NewWorkspaceHandler(s.config.TemplateDir, github != nil, gen != nil, s.logger)
	if err != nil {
		return fmt.Errorf("creating workspace handler: %w", err)
	}
	s.router.Get("/", workspaceHandler.HandleWorkspace)

	// === API Routes ===
	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	profileHandler := handler.NewProfileHandler(authService, s.logger)
	contentHandler := handler.NewContentHandler(contentService, s.logger)
	generateHandler := handler.NewGenerateHandler(gen, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, authService, s.logger)

	limiter := middleware.NewRateLimiter(s.config.RateLimit.PerSecond, s.config.RateLimit.Burst,
		handler.ErrorWriter(s.logger), s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HandleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.With(limiter.Middleware).Post("/register", authHandler.HandleRegister)
			r.With(limiter.Middleware).Post("/login", authHandler.HandleLogin)

			if github != nil {
				r.Get("/github/login", authHandler.HandleGitHubLogin)
				r.Get("/github/callback", authHandler.HandleGitHubCallback)
			}
		})

		r.Route("/secure", func(r chi.Router) {
			r.Get("/content", contentHandler.HandleList)
			r.Post("/content", contentHandler.HandleCreate)
			r.Get("/content/{id}", contentHandler.HandleGet)
			r.Put("/content/{id}", contentHandler.HandleUpdate)
			r.Delete("/content/{id}", contentHandler.HandleDelete)

			r.Get("/profile", profileHandler.HandleProfile)
			r.Post("/generate", generateHandler.HandleGenerate)
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("github", s.config.GitHub.Enabled()),
			slog.Bool("generator", s.config.Generator.Enabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
