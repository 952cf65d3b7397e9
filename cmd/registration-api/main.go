// main is the entry point of the class registration API.
//
// STARTUP SEQUENCE:
//  1. Load configuration (YAML file and/or environment)
//  2. Initialise the logger
//  3. Open the configured storage backend
//  4. Wire metrics, the registration service and the admin gate
//  5. Start the HTTP server in a separate goroutine
//  6. Block the main goroutine until an OS signal (Ctrl+C / kill) arrives
//  7. Gracefully shut down: finish in-flight requests, close storage, exit
//
// RUNNING THE SERVER:
//
//	go run ./cmd/registration-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/registration-api
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aanand-mishra/class-registration/internal/admin"
	"github.com/aanand-mishra/class-registration/internal/config"
	httpapi "github.com/aanand-mishra/class-registration/internal/http"
	"github.com/aanand-mishra/class-registration/internal/metrics"
	"github.com/aanand-mishra/class-registration/internal/registration"
	"github.com/aanand-mishra/class-registration/internal/storage/backend"
)

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	log := setupLogger(cfg.Env)

	log.Info("starting registration-api",
		slog.String("env", cfg.Env),
		slog.String("backend", cfg.Storage.Backend),
	)

	if cfg.UsesDefaultAdminKey() {
		log.Warn("admin key is the built-in default; set ADMIN_KEY before exposing this service")
	}

	// ── 3. Initialise Storage ─────────────────────────────────────────────
	// Connection setup shares the per-call storage timeout.
	openCtx, cancelOpen := context.WithTimeout(context.Background(), cfg.Storage.Timeout)
	store, err := backend.Open(openCtx, cfg.Storage, nil)
	cancelOpen()
	if err != nil {
		log.Error("failed to initialise storage",
			slog.String("backend", cfg.Storage.Backend),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	log.Info("storage initialised", slog.String("backend", cfg.Storage.Backend))

	// ── 4. Wire Dependencies ──────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc := registration.New(store,
		registration.WithLogger(log),
		registration.WithMetrics(m),
		registration.WithTimeout(cfg.Storage.Timeout),
	)

	router := httpapi.NewRouter(httpapi.Deps{
		Service:        svc,
		Gate:           admin.NewGate(cfg.AdminKey, cfg.UsesDefaultAdminKey()),
		Logger:         log,
		Metrics:        m,
		Gatherer:       reg,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		ClientDir:      cfg.ClientDir,
	})

	// ── 5. Create the HTTP Server ─────────────────────────────────────────
	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	// ── 6. Start Server in a Goroutine ────────────────────────────────────
	serverErr := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		// ListenAndServe returns http.ErrServerClosed after Shutdown().
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// ── 7. Wait for Shutdown Signal ───────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	select {
	case <-done:
		log.Info("shutdown signal received, stopping server...")
	case err := <-serverErr:
		// Fall through to shutdown so storage is still closed.
		log.Error("server encountered an error", slog.String("error", err.Error()))
	}

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully",
			slog.String("error", err.Error()))
		return
	}

	log.Info("server stopped gracefully")
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default: // "dev" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}
