/**
 * Configuration for the OCR parse service
 *
 * Loads configuration from environment variables. DATABASE_URL and
 * REDIS_URL are optional: without them the service runs with persistence
 * and caching disabled.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds service configuration
type Config struct {
	// HTTP server
	Port         int
	LogLevel     string
	MaxBodyBytes int64

	// Batch surface
	MaxBatchItems int

	// Parser limits and defaults
	MaxLinesCap   int
	VerifyDefault bool

	// Verification providers
	VerifyProviderOrder []string
	ProviderTimeout     time.Duration
	GoogleBooksBaseURL  string
	OpenLibraryBaseURL  string

	// PostgreSQL result store (optional)
	DatabaseURL string

	// Redis: verification cache and async queue (optional)
	RedisURL       string
	VerifyCacheTTL time.Duration

	// Async worker
	WorkerConcurrency int

	// Tesseract OCR for the image surface
	TesseractEnabled bool
	TesseractLangs   string

	// Runtime environment name
	Env string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:                getEnvAsIntOrDefault("PORT", 8080),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		MaxBodyBytes:        getEnvAsInt64OrDefault("MAX_BODY_BYTES", 10485760), // 10MB
		MaxBatchItems:       getEnvAsIntOrDefault("MAX_BATCH_ITEMS", 25),
		MaxLinesCap:         getEnvAsIntOrDefault("MAX_LINES_CAP", 500),
		VerifyDefault:       getEnvAsBoolOrDefault("VERIFY_DEFAULT", true),
		VerifyProviderOrder: getEnvAsListOrDefault("VERIFY_PROVIDER_ORDER", []string{"google_books", "open_library"}),
		ProviderTimeout:     time.Duration(getEnvAsIntOrDefault("PROVIDER_TIMEOUT_MS", 5000)) * time.Millisecond,
		GoogleBooksBaseURL:  getEnvOrDefault("GOOGLE_BOOKS_BASE_URL", ""),
		OpenLibraryBaseURL:  getEnvOrDefault("OPEN_LIBRARY_BASE_URL", ""),
		DatabaseURL:         getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:            getEnvOrDefault("REDIS_URL", ""),
		VerifyCacheTTL:      time.Duration(getEnvAsIntOrDefault("VERIFY_CACHE_TTL_SECONDS", 86400)) * time.Second,
		WorkerConcurrency:   getEnvAsIntOrDefault("WORKER_CONCURRENCY", 10),
		TesseractEnabled:    getEnvAsBoolOrDefault("TESSERACT_ENABLED", false),
		TesseractLangs:      getEnvOrDefault("TESSERACT_LANGS", "eng"),
		Env:                 getEnvOrDefault("APP_ENV", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel)
	}

	if c.MaxBodyBytes < 1024 || c.MaxBodyBytes > 104857600 { // 1KB to 100MB
		return fmt.Errorf("MAX_BODY_BYTES must be between 1KB and 100MB, got %d", c.MaxBodyBytes)
	}

	if c.MaxBatchItems < 1 || c.MaxBatchItems > 500 {
		return fmt.Errorf("MAX_BATCH_ITEMS must be between 1 and 500, got %d", c.MaxBatchItems)
	}

	if c.MaxLinesCap < 1 {
		return fmt.Errorf("MAX_LINES_CAP must be positive, got %d", c.MaxLinesCap)
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if len(c.VerifyProviderOrder) == 0 {
		return fmt.Errorf("VERIFY_PROVIDER_ORDER must name at least one provider")
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsBoolOrDefault gets environment variable as bool or returns default
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsListOrDefault splits a comma-separated environment variable,
// trimming whitespace and dropping empty entries.
func getEnvAsListOrDefault(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
