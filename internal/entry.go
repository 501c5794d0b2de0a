// Package internal provides the main application initialization and runtime logic.
package internal

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
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/wunjo/internal/content"
	"github.com/starford/wunjo/internal/gitstore"
	"github.com/starford/wunjo/internal/indieauth"
	"github.com/starford/wunjo/internal/mapbox"
	"github.com/starford/wunjo/internal/micropub"
	"github.com/starford/wunjo/internal/publish"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("site", cfg.Site.Me),
		slog.Bool("debug", cfg.App.Debug),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Pick the content store. Debug mode publishes into memory so the
	// endpoint can be exercised without touching a real repository.
	store := app.store
	if store == nil {
		if cfg.App.Debug {
			store = gitstore.NewMemory()
			logger.Warn("debug mode: posts are kept in memory only")
		} else {
			store = gitstore.NewClient(gitstore.Config{
				User:        cfg.GitHub.User,
				Repo:        cfg.GitHub.Repo,
				Branch:      cfg.GitHub.Branch,
				Token:       cfg.GitHub.Token,
				AuthorName:  cfg.GitHub.AuthorName,
				AuthorEmail: cfg.GitHub.AuthorEmail,
			})
		}
	}

	fmtr := content.NewFormatter(content.Config{
		Me:                cfg.Site.Me,
		ContentDir:        cfg.Site.ContentDir,
		MediaDir:          cfg.Site.MediaDir,
		FullDateFilenames: cfg.Site.FullDateFilenames,
	})

	var maps *mapbox.Client
	if cfg.Mapbox.Token != "" {
		maps = mapbox.New(cfg.Mapbox.Token)
	}

	pub := publish.New(store, fmtr, maps, publish.Config{
		Me:              cfg.Site.Me,
		Branch:          cfg.GitHub.Branch,
		PermanentDelete: cfg.Site.PermanentDelete,
	})

	verifier := indieauth.NewVerifier(cfg.Auth.TokenEndpoint, cfg.Auth.AuthEnabled())

	syndicateTo := make([]micropub.SyndicationTarget, 0, len(cfg.Site.SyndicateTo))
	for _, target := range cfg.Site.SyndicateTo {
		syndicateTo = append(syndicateTo, micropub.SyndicationTarget{
			UID:  target.UID,
			Name: target.Name,
		})
	}
	handler := micropub.NewHandler(pub, micropub.EndpointConfig{
		Me:            cfg.Site.Me,
		MediaEndpoint: cfg.Site.MediaEndpoint,
		SyndicateTo:   syndicateTo,
	})
	mpRouter := micropub.NewRouter(handler, verifier)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/", mpRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
