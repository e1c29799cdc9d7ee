package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP (optional; empty URL disables the event pipeline)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// AI provider (OpenAI-compatible)
	AIAPIKey          string
	AIBaseURL         string
	AIModel           string
	AITranscribeModel string
	AITimeout         time.Duration

	// Billing webhook
	BillingWebhookSecret string

	// Worker
	SummaryBatchSize int
	SummaryInterval  time.Duration

	// Insights response cache
	InsightsCacheTTL time.Duration
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/moneytalk.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "moneytalk"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_events"),

		AIAPIKey:          getEnv("AI_API_KEY", ""),
		AIBaseURL:         getEnv("AI_BASE_URL", ""),
		AIModel:           getEnv("AI_MODEL", "gpt-4o-mini"),
		AITranscribeModel: getEnv("AI_TRANSCRIBE_MODEL", "whisper-1"),
		AITimeout:         getEnvDuration("AI_TIMEOUT", 60*time.Second),

		BillingWebhookSecret: getEnv("BILLING_WEBHOOK_SECRET", ""),

		SummaryBatchSize: getEnvInt("SUMMARY_BATCH_SIZE", 10),
		SummaryInterval:  getEnvDuration("SUMMARY_INTERVAL", 30*time.Second),

		InsightsCacheTTL: getEnvDuration("INSIGHTS_CACHE_TTL", 5*time.Minute),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate SQLite path and ensure its directory exists
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate AI base URL if provided (empty means the provider default)
	if c.AIBaseURL != "" {
		if parsedURL, err := url.Parse(c.AIBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AI base URL '%s': %v", c.AIBaseURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid AI base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}

	if c.AITimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid AI timeout %v: must be at least 1 second", c.AITimeout))
	} else if c.AITimeout > 10*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid AI timeout %v: must be at most 10 minutes", c.AITimeout))
	}

	// Validate worker configuration
	if c.SummaryBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid summary batch size %d: must be at least 1", c.SummaryBatchSize))
	} else if c.SummaryBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid summary batch size %d: must be at most 1000", c.SummaryBatchSize))
	}

	if c.SummaryInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid summary interval %v: must be at least 1 second", c.SummaryInterval))
	} else if c.SummaryInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid summary interval %v: must be at most 24 hours", c.SummaryInterval))
	}

	if c.InsightsCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid insights cache TTL %v: must not be negative", c.InsightsCacheTTL))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
