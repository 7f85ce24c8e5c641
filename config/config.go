package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"tradejournal/internal/adapters/logger" // For LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel

	// Default initial balance used when an account is created without an
	// explicit value.
	DefaultInitialBalance float64
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	cfg.DBPath = getEnv("DB_PATH", "./data/journal.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must not be empty")
	}

	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))

	cfg.DefaultInitialBalance, err = getEnvAsFloat("DEFAULT_INITIAL_BALANCE", 10000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DEFAULT_INITIAL_BALANCE: %v", err))
	} else if cfg.DefaultInitialBalance < 0 {
		errs = append(errs, "DEFAULT_INITIAL_BALANCE must not be negative")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// getEnv reads an environment variable or returns the default value.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvAsFloat reads an environment variable as a float64 or returns the default value.
func getEnvAsFloat(key string, defaultVal float64) (float64, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultVal, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse %s value %q as float: %w", key, valueStr, err)
	}
	return value, nil
}
