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

	"github.com/starford/roadmapper/internal/api"
	"github.com/starford/roadmapper/internal/generator"
	"github.com/starford/roadmapper/internal/index"
	"github.com/starford/roadmapper/internal/mcpserver"
	"github.com/starford/roadmapper/internal/parser"
	"github.com/starford/roadmapper/internal/roadmapservice"
	"github.com/starford/roadmapper/internal/sse"
	"github.com/starford/roadmapper/internal/storage"
)

// Env holds the wired storage, index, and service for one process.
type Env struct {
	Config  *Config
	Logger  *slog.Logger
	Store   *storage.FS
	DB      *index.DB
	Service *roadmapservice.Service
}

// Close releases the index.
func (e *Env) Close() error {
	return e.DB.Close()
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// Open wires storage, the index, and the roadmap service from opts and runs
// an initial library sync. extra options are applied to the service.
func Open(opts []Option, extra ...roadmapservice.Option) (*Env, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	return app.open(extra...)
}

func (app *application) open(extra ...roadmapservice.Option) (*Env, error) {
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("generator", cfg.Generator.Provider),
		slog.String("match_mode", cfg.Parser.Mode().String()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure library directory exists.
	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Library.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, logger, parser.WithMatchMode(cfg.Parser.Mode())); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	gen := app.generator
	if gen == nil && cfg.Generator.Enabled() {
		gen, err = generator.New(cfg.Generator.Options())
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init generator: %w", err)
		}
	}
	if gen == nil {
		logger.Warn("no generator configured, roadmap generation is disabled")
	}

	svcOpts := []roadmapservice.Option{
		roadmapservice.WithLogger(logger),
		roadmapservice.WithMatchMode(cfg.Parser.Mode()),
	}
	if gen != nil {
		svcOpts = append(svcOpts, roadmapservice.WithGenerator(gen))
	}
	svcOpts = append(svcOpts, extra...)

	return &Env{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		DB:      db,
		Service: roadmapservice.NewService(db, store, svcOpts...),
	}, nil
}

// Run starts the HTTP server (and the library watcher when enabled) and
// blocks until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	env, err := app.open(roadmapservice.WithChangeCallback(broker.PublishChange))
	if err != nil {
		return err
	}
	defer env.Close()

	cfg, logger := env.Config, env.Logger

	apiRouter := api.NewRouter(env.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if err := env.DB.Ping(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Library.Watch {
		g.Go(func() error {
			err := index.Watch(gCtx, env.DB, env.Store, env.Store.Root(), logger, broker.PublishChange,
				parser.WithMatchMode(cfg.Parser.Mode()))
			if err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if app.logOutput == os.Stdout {
		app.logOutput = os.Stderr
	}

	env, err := app.open()
	if err != nil {
		return err
	}
	defer env.Close()

	env.Logger.Info("Starting MCP server on stdio")
	return mcpserver.New(env.Service, app.version).ServeStdio()
}
