// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/stackscope/internal/api"
	"github.com/starford/stackscope/internal/gaps"
	"github.com/starford/stackscope/internal/graph"
	"github.com/starford/stackscope/internal/mcpserver"
	"github.com/starford/stackscope/internal/pipeline"
	"github.com/starford/stackscope/internal/source"
	"github.com/starford/stackscope/internal/sse"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{out: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openCoordinator opens the graph store and builds a coordinator over the
// configured source roots. The caller closes the returned store.
func openCoordinator(cfg *Config, logger *slog.Logger) (*pipeline.Coordinator, *graph.Store, error) {
	opts := []pipeline.Option{
		pipeline.WithContractsPath(cfg.Contracts.Path),
		pipeline.WithSkipDirs(cfg.Source.SkipDirs),
		pipeline.WithWorkers(cfg.Analysis.Workers),
		pipeline.WithCache(cfg.Analysis.CacheSize, cfg.Analysis.CacheTTL),
		pipeline.WithPruneStale(cfg.Analysis.PruneStale),
		pipeline.WithWatchDebounce(cfg.Analysis.WatchDebounce),
		pipeline.WithLogger(logger),
	}
	if cfg.Source.UIRoot != "" {
		tree, err := source.NewTree(cfg.Source.UIRoot)
		if err != nil {
			return nil, nil, fmt.Errorf("init ui source: %w", err)
		}
		opts = append(opts, pipeline.WithUISource(tree))
	}
	if cfg.Source.BackendRoot != "" {
		tree, err := source.NewTree(cfg.Source.BackendRoot)
		if err != nil {
			return nil, nil, fmt.Errorf("init backend source: %w", err)
		}
		opts = append(opts, pipeline.WithBackendSource(tree))
	}

	store, err := graph.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init graph store: %w", err)
	}
	coord, err := pipeline.New(store, opts...)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("init pipeline: %w", err)
	}
	return coord, store, nil
}

func writeResult(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RunAnalyze performs one analysis run and writes its summary as JSON.
func RunAnalyze(ctx context.Context, opts ...Option) (*pipeline.Summary, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(app.config, os.Stderr)

	coord, store, err := openCoordinator(app.config, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	sum, err := coord.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	return sum, writeResult(app.out, sum)
}

// RunGaps performs one analysis run and writes the gap report as JSON.
func RunGaps(ctx context.Context, opts ...Option) (*gaps.Report, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(app.config, os.Stderr)

	coord, store, err := openCoordinator(app.config, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if _, err := coord.Run(ctx); err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	rep, err := coord.GapReport(ctx)
	if err != nil {
		return nil, err
	}
	return rep, writeResult(app.out, rep)
}

// RunMCP serves the MCP tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, os.Stderr)

	coord, store, err := openCoordinator(app.config, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Info("MCP server starting", slog.String("version", app.version))
	return mcpserver.New(coord, app.version).ServeStdio()
}

// newHTTPHandler mounts the health checks and the API.
func newHTTPHandler(coord *pipeline.Coordinator, cfg *Config, broker *sse.Broker) http.Handler {
	apiRouter := api.NewRouter(coord, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, func(sum *pipeline.Summary, err error) {
		broker.PublishAnalysis(sum, err)
	})

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
		if coord.LastSummary() == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"analyzing"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)
	return r
}

// Run starts the HTTP server and the source watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(cfg, os.Stdout)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("ui_root", cfg.Source.UIRoot),
		slog.String("backend_root", cfg.Source.BackendRoot),
		slog.String("contracts_path", cfg.Contracts.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	coord, store, err := openCoordinator(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: newHTTPHandler(coord, cfg, broker),
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(runCtx)

	// Re-run analysis on source changes and notify SSE clients.
	g.Go(func() error {
		return coord.Watch(gCtx, func(sum *pipeline.Summary, err error) {
			broker.PublishAnalysis(sum, err)
		})
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Initial analysis runs while the server is up; readiness reports 503
	// until it finishes.
	g.Go(func() error {
		sum, err := coord.Run(gCtx)
		if err != nil {
			logger.Warn("initial analysis failed", slog.String("error", err.Error()))
		}
		broker.PublishAnalysis(sum, err)
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
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
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
