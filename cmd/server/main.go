// Package main is the entry point of the template import HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"zbx-import/internal/api"
	"zbx-import/internal/app"
	"zbx-import/internal/config"
	internaldb "zbx-import/internal/db"
	"zbx-import/internal/middleware"
	"zbx-import/internal/service/importsync"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file (if present)
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("could not load .env", "error", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := app.Deps{Cfg: cfg, Logger: logger}
	if cfg.Backend == config.BackendSQLite {
		writeDB, readDB, err := internaldb.OpenStore(ctx, cfg.MetaDBPath, logger.With("component", "migrate"))
		if err != nil {
			return fmt.Errorf("open template store: %w", err)
		}
		defer writeDB.Close()
		defer readDB.Close()
		deps.WriteDB, deps.ReadDB = writeDB, readDB
	}

	application, err := app.New(deps)
	if err != nil {
		return err
	}

	validator, err := middleware.NewTokenValidator(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return err
	}

	router := api.NewRouter(ctx, api.RouterConfig{
		Handler:   api.NewHandler(application, logger.With("component", "api")),
		Validator: validator,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger.With("component", "http"),
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Sync.Enabled() {
		scheduler := importsync.NewScheduler(application, cfg.Sync.File, cfg.Sync.Schedule, 0,
			logger.With("component", "sync"))
		if err := scheduler.Start(gctx); err != nil {
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			scheduler.Stop()
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("HTTP API listening", "addr", cfg.ListenAddr, "backend", application.Backend.Name)
		logger.Info("try: curl http://" + curlHostForListenAddr(cfg.ListenAddr) + "/healthz")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// curlHostForListenAddr returns a host:port suitable for a local curl hint.
// Wildcard and empty hosts map to localhost.
func curlHostForListenAddr(listenAddr string) string {
	addr := strings.TrimSpace(listenAddr)
	if addr == "" {
		return "localhost:8080"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
