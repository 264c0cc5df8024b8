package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds everything the binaries read from the environment.
// RabbitMQ settings are optional: with an empty URL the API runs without
// an event broker.
type Config struct {
	Port         int
	SQLiteDBPath string

	RabbitMQURL      string
	RabbitMQExchange string
	RabbitMQQueue    string

	RolloverInterval time.Duration
}

func Load() *Config {
	return &Config{
		Port:             getEnvInt("PORT", 8080),
		SQLiteDBPath:     getEnv("SQLITE_DB_PATH", "./data/presupuesto.db"),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange: getEnv("RABBITMQ_EXCHANGE", "presupuesto"),
		RabbitMQQueue:    getEnv("RABBITMQ_QUEUE", "budget-events"),
		RolloverInterval: getEnvDuration("ROLLOVER_INTERVAL", 24*time.Hour),
	}
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d: must be between 1 and 65535", c.Port)
	}
	if c.SQLiteDBPath == "" {
		return errors.New("SQLITE_DB_PATH must not be empty")
	}
	if c.RabbitMQURL != "" {
		if c.RabbitMQExchange == "" {
			return errors.New("RABBITMQ_EXCHANGE must not be empty when RABBITMQ_URL is set")
		}
		if c.RabbitMQQueue == "" {
			return errors.New("RABBITMQ_QUEUE must not be empty when RABBITMQ_URL is set")
		}
	}
	if c.RolloverInterval < time.Minute {
		return fmt.Errorf("ROLLOVER_INTERVAL %s is too short: minimum is 1m", c.RolloverInterval)
	}
	return nil
}

// EventsEnabled reports whether a RabbitMQ broker is configured.
func (c *Config) EventsEnabled() bool {
	return c.RabbitMQURL != ""
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
