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

	"github.com/starford/namespacer/internal/api"
	"github.com/starford/namespacer/internal/batch"
	"github.com/starford/namespacer/internal/hook"
	"github.com/starford/namespacer/internal/injector"
	"github.com/starford/namespacer/internal/journal"
	"github.com/starford/namespacer/internal/notify"
	"github.com/starford/namespacer/internal/settings"
	"github.com/starford/namespacer/internal/storage"
)

// Runtime holds the components every command shares.
type Runtime struct {
	Config    *Config
	Logger    *slog.Logger
	Store     *storage.FS
	Settings  *settings.Store
	Journal   *journal.DB
	Injector  *injector.Injector
	Processor *batch.Processor
}

// Open builds a Runtime from the given options. Close releases it.
func Open(opts ...Option) (*Runtime, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("settings_path", cfg.Settings.Path),
		slog.Duration("hook_delay", cfg.Hook.Delay),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if app.createVault {
		if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create vault dir: %w", err)
		}
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	st, err := settings.Open(cfg.Settings.Path)
	if err != nil {
		return nil, fmt.Errorf("init settings: %w", err)
	}

	db, err := journal.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init journal: %w", err)
	}

	notifiers := append([]notify.Notifier{notify.LogNotifier{Logger: logger}}, app.notifiers...)
	procOpts := []batch.Option{
		batch.WithNotifier(notify.Multi(notifiers...)),
		batch.WithJournal(db),
	}
	if app.onState != nil {
		procOpts = append(procOpts, batch.WithStateObserver(app.onState))
	}

	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Settings:  st,
		Journal:   db,
		Injector:  injector.New(store, st, logger),
		Processor: batch.New(store, st, logger, procOpts...),
	}, nil
}

// Close releases the journal.
func (rt *Runtime) Close() error {
	return rt.Journal.Close()
}

// Run starts the server: creation hook, REST API and event stream.
func Run(ctx context.Context, opts ...Option) error {
	broker := notify.NewBroker(250 * time.Millisecond)
	defer broker.Close()

	opts = append(opts,
		func(a *application) { a.createVault = true },
		WithNotifier(broker),
		WithStateObserver(func(s batch.State) {
			broker.Publish(notify.Event{Type: notify.EventBatchState, Data: map[string]string{"state": string(s)}})
		}),
	)

	rt, err := Open(opts...)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.Config
	logger := rt.Logger

	g, gCtx := errgroup.WithContext(ctx)

	handler := api.NewHandler(api.Deps{
		Settings:      rt.Settings,
		Batch:         rt.Processor,
		History:       rt.Journal,
		Confirmations: api.NewConfirmations(broker, api.DefaultConfirmTimeout),
		BaseContext:   gCtx,
		Logger:        logger,
	})
	apiRouter := api.NewRouter(handler, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if err := rt.Store.Ready(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"vault unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// Start creation hook with SSE callback.
	h := hook.New(rt.Store, rt.Settings, rt.Injector, logger,
		hook.WithDelay(cfg.Hook.Delay),
		hook.WithCallback(broker.PublishNoteEvent),
	)
	g.Go(func() error {
		if err := h.Watch(gCtx, cfg.Vault.Path); err != nil {
			return fmt.Errorf("creation hook: %w", err)
		}
		return nil
	})

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
		defer signal.Stop(quit)

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

		return errShutdown
	})

	err = g.Wait()
	// A batch that already started writing runs to completion or rollback.
	handler.Wait()

	if err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the hook stops with the server.
var errShutdown = errors.New("shutdown")
