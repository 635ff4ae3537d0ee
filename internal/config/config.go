/**
 * Service configuration.
 *
 * Loaded from environment variables, with a local .env honored for
 * development.
 */

package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all service configuration.
type Config struct {
	// HTTP server
	ListenAddr  string
	MaxFileSize int64

	// Conversion engine
	EngineURL  string
	NumThreads int

	// Filesystem
	ModelsDir      string
	TempDir        string
	TempTTLMinutes int

	// Session cache
	SessionCacheSize int

	// Async jobs (both URLs empty disables the job facility)
	RedisURL          string
	DatabaseURL       string
	WorkerConcurrency int
	ProcessingTimeout int // seconds

	// Logging
	LogLevel string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:        getEnvOrDefault("LISTEN_ADDR", ":8000"),
		MaxFileSize:       getEnvAsInt64OrDefault("MAX_FILE_SIZE", 104857600), // 100MB
		EngineURL:         getEnvOrDefault("ENGINE_URL", "http://localhost:5001"),
		NumThreads:        getEnvAsIntOrDefault("NUM_THREADS", 4),
		ModelsDir:         getEnvOrDefault("MODELS_DIR", "./models"),
		TempDir:           getEnvOrDefault("TEMP_DIR", os.TempDir()+"/doclab"),
		TempTTLMinutes:    getEnvAsIntOrDefault("TEMP_TTL_MINUTES", 60),
		SessionCacheSize:  getEnvAsIntOrDefault("SESSION_CACHE_SIZE", 8),
		RedisURL:          getEnvOrDefault("REDIS_URL", ""),
		DatabaseURL:       getEnvOrDefault("DATABASE_URL", ""),
		WorkerConcurrency: getEnvAsIntOrDefault("WORKER_CONCURRENCY", 2),
		ProcessingTimeout: getEnvAsIntOrDefault("PROCESSING_TIMEOUT", 300),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration bounds.
func (c *Config) Validate() error {
	if c.EngineURL == "" {
		return fmt.Errorf("ENGINE_URL is required")
	}

	if c.MaxFileSize < 1024 || c.MaxFileSize > 5368709120 { // 1KB to 5GB
		return fmt.Errorf("MAX_FILE_SIZE must be between 1KB and 5GB, got %d", c.MaxFileSize)
	}

	if c.SessionCacheSize < 1 || c.SessionCacheSize > 64 {
		return fmt.Errorf("SESSION_CACHE_SIZE must be between 1 and 64, got %d", c.SessionCacheSize)
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 32 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 32, got %d", c.WorkerConcurrency)
	}

	if c.ProcessingTimeout < 10 || c.ProcessingTimeout > 3600 {
		return fmt.Errorf("PROCESSING_TIMEOUT must be between 10 and 3600 seconds, got %d", c.ProcessingTimeout)
	}

	if c.TempTTLMinutes < 1 {
		return fmt.Errorf("TEMP_TTL_MINUTES must be positive, got %d", c.TempTTLMinutes)
	}

	// Jobs need both redis and postgres; one without the other is a
	// deployment mistake, not a partial feature.
	if (c.RedisURL == "") != (c.DatabaseURL == "") {
		return fmt.Errorf("REDIS_URL and DATABASE_URL must be set together")
	}

	return nil
}

// JobsEnabled reports whether the async job facility is configured.
func (c *Config) JobsEnabled() bool {
	return c.RedisURL != "" && c.DatabaseURL != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
