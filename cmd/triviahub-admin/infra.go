package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/triviahub/th-auth-api/config"
	"github.com/triviahub/th-auth-api/internal/bootstrap"
)

// connectDB opens the audit database for commands that need it.
func connectDB(logger *slog.Logger, cfg *config.AppConfig) (*sql.DB, error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return db, nil
}

// connectRedis opens the cache/limiter Redis for commands that need it.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel support flexible.
func connectRedis(logger *slog.Logger, cfg *config.AppConfig) (redis.UniversalClient, error) {
	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{RedisConfig: cfg.Redis, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

func closeQuietly(logger *slog.Logger, name string, closer interface{ Close() error }) {
	if err := closer.Close(); err != nil {
		logger.Error("close failed", "resource", name, "error", err)
	}
}
