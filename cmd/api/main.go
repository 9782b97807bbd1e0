package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/agrisetu/agrisetu/internal/auth"
	"github.com/agrisetu/agrisetu/internal/config"
	"github.com/agrisetu/agrisetu/internal/identity"
	"github.com/agrisetu/agrisetu/internal/infra"
	"github.com/agrisetu/agrisetu/internal/logging"
	"github.com/agrisetu/agrisetu/internal/routes"
	"github.com/agrisetu/agrisetu/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	logger := logging.New(cfg.LogLevel)

	// The signing secret is checked here, before any listener starts; a
	// service that cannot sign tokens must not come up at all.
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Error("token service", "error", err)
		return 1
	}

	store := infra.NewManager(infra.Options{
		URI:           cfg.MongoURI,
		Database:      cfg.MongoDatabase,
		MaxRetries:    cfg.MaxRetries,
		BaseDelay:     cfg.RetryBaseDelay,
		MaxDelay:      cfg.RetryMaxDelay,
		SelectTimeout: cfg.SelectTimeout,
		SocketTimeout: cfg.SocketTimeout,
		MinPoolSize:   cfg.MinPoolSize,
		MaxPoolSize:   cfg.MaxPoolSize,
		OnReady:       identity.EnsureIndexes,
	}, logger)

	ctx := context.Background()

	if err := store.Connect(ctx); err != nil {
		logger.Error("connect mongodb", "error", err)
		return 1
	}

	repo := identity.NewMongoRepository(store.Database())

	srv, err := server.New(cfg, routes.Deps{
		Cfg:    cfg,
		Repo:   repo,
		Tokens: tokens,
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		logger.Error("build server", "error", err)
		disconnect(store, cfg, logger)
		return 1
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Exactly one shutdown sequence runs: whichever event arrives first is
	// consumed here, later signals are never read again.
	code := 0
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			code = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		code = 1
	}

	if !disconnect(store, cfg, logger) {
		code = 1
	}

	if code == 0 {
		logger.Info("server exited cleanly")
	}
	return code
}

func disconnect(store *infra.Manager, cfg config.Config, logger *slog.Logger) bool {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := store.Disconnect(ctx); err != nil {
		logger.Error("close mongodb", "error", err)
		return false
	}
	logger.Info("mongodb connection closed")
	return true
}
