// Package cli consolidates the initialization shared by cmd/moneytalk
// and cmd/moneytalk-worker.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"moneytalk/internal/config"
	applog "moneytalk/internal/log"
	"moneytalk/internal/storage"
)

// SetupLogger initializes structured logging for the given component and
// sets it as the process default.
func SetupLogger(component string) *applog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}

	logger := applog.New(applog.Config{
		Level:     level,
		Component: component,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the SQLite repository and runs migrations.
// Exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize storage", applog.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}
