// Package cli holds the initialization steps shared by cmd/presupuesto
// and cmd/rollover-worker.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"presupuesto/internal/amqp"
	"presupuesto/internal/config"
	"presupuesto/internal/storage"
)

// SetupLogger initializes structured logging with default settings.
// Returns the configured logger and sets it as the default logger.
func SetupLogger() *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *slog.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// InitEvents connects to RabbitMQ when a broker is configured. Returns
// nil when events are disabled; a nil client publishes nothing.
func InitEvents(logger *slog.Logger, cfg *config.Config) *amqp.Client {
	if !cfg.EventsEnabled() {
		logger.Info("Event publishing disabled, no RABBITMQ_URL configured")
		return nil
	}
	client, err := amqp.NewClient(cfg.RabbitMQURL, cfg.RabbitMQExchange, cfg.RabbitMQQueue)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err, "exchange", cfg.RabbitMQExchange)
		os.Exit(1)
	}
	logger.Info("Connected to RabbitMQ", "exchange", cfg.RabbitMQExchange, "queue", cfg.RabbitMQQueue)
	return client
}
