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
	// HTTP server
	Port string

	// Database
	SQLiteDBPath string

	// AMQP (payment-linked event queue); empty URL disables the queue and
	// sample generation runs inline in the webhook handler.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Translation
	GoogleTranslateAPIKey string
	TranslateCacheTTL     time.Duration
	TranslateDebounce     time.Duration
	TranslateRateLimit    int
	TranslateRateWindow   time.Duration

	// Budget alerting
	AlertInterval time.Duration

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	CheckoutSuccessURL  string
	CheckoutCancelURL   string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8082"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budgetbuddy.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetbuddy"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "payment_events"),

		GoogleTranslateAPIKey: getEnv("GOOGLE_TRANSLATE_API_KEY", ""),
		TranslateCacheTTL:     getEnvDuration("TRANSLATE_CACHE_TTL", 24*time.Hour),
		TranslateDebounce:     getEnvDuration("TRANSLATE_DEBOUNCE", 500*time.Millisecond),
		TranslateRateLimit:    getEnvInt("TRANSLATE_RATE_LIMIT", 100),
		TranslateRateWindow:   getEnvDuration("TRANSLATE_RATE_WINDOW", time.Minute),

		AlertInterval: getEnvDuration("ALERT_INTERVAL", time.Minute),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		CheckoutSuccessURL:  getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/about?donation=success"),
		CheckoutCancelURL:   getEnv("CHECKOUT_CANCEL_URL", "http://localhost:3000/about?donation=cancelled"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.TranslateRateLimit < 1 {
		errs = append(errs, fmt.Sprintf("invalid translate rate limit %d: must be at least 1", c.TranslateRateLimit))
	}
	if c.TranslateRateWindow < time.Second {
		errs = append(errs, fmt.Sprintf("invalid translate rate window %v: must be at least 1 second", c.TranslateRateWindow))
	}
	if c.TranslateCacheTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid translate cache TTL %v: must be at least 1 minute", c.TranslateCacheTTL))
	}
	if c.TranslateDebounce < 0 || c.TranslateDebounce > 10*time.Second {
		errs = append(errs, fmt.Sprintf("invalid translate debounce %v: must be between 0 and 10 seconds", c.TranslateDebounce))
	}

	if c.AlertInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid alert interval %v: must be at least 1 second", c.AlertInterval))
	} else if c.AlertInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid alert interval %v: must be at most 24 hours", c.AlertInterval))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
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
