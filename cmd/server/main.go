// Package main is the entry point for the reference admin API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/adminstate/internal/auth"
	"github.com/vyrodovalexey/adminstate/internal/config"
	"github.com/vyrodovalexey/adminstate/internal/logging"
	"github.com/vyrodovalexey/adminstate/internal/server"
	"github.com/vyrodovalexey/adminstate/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Error("failed to load configuration", zap.Error(err))
		return 1
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Error("failed to initialize logger", zap.Error(err))
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.Duration("token_ttl", cfg.TokenTTL),
	)

	users, err := createUsers(cfg, logger)
	if err != nil {
		logger.Error("failed to configure users", zap.Error(err))
		return 1
	}

	srv := server.New(cfg, logger, store.NewMemoryStore(), users)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		return 1
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// createUsers builds the login user table from APP_BASIC_AUTH_USERS.
func createUsers(cfg *config.Config, logger *zap.Logger) (*auth.BasicAuthenticator, error) {
	if err := cfg.RequireServerAuth(); err != nil {
		return nil, err
	}

	users, err := auth.NewBasicAuthenticator(cfg.BasicAuthUsers)
	if err != nil {
		return nil, fmt.Errorf("creating basic authenticator: %w", err)
	}

	logger.Info("users configured", zap.Strings("usernames", users.Usernames()))
	return users, nil
}
