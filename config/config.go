package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"lottobook/database"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Scheduler configuration
	QuotaResetCron      string // cron spec for the weekly quota reset
	SettlementSweepCron string // cron spec for the pending-result sweep

	// Logging
	LogLevel string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from a .env file (if present) and the environment
func load() (*Config, error) {
	// A missing .env file is fine; the environment wins either way
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	// Monday 00:00 UTC, start of the betting week
	v.SetDefault("QUOTA_RESET_CRON", "0 0 * * 1")
	v.SetDefault("SETTLEMENT_SWEEP_CRON", "*/5 * * * *")

	config := &Config{
		DatabaseURL:  v.GetString("DATABASE_URL"),
		DatabaseName: v.GetString("DATABASE_NAME"),

		QuotaResetCron:      v.GetString("QUOTA_RESET_CRON"),
		SettlementSweepCron: v.GetString("SETTLEMENT_SWEEP_CRON"),

		LogLevel: v.GetString("LOG_LEVEL"),

		Environment: v.GetString("ENVIRONMENT"),
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		// If DatabaseName is provided, ensure it's not empty
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:         "test",
		LogLevel:            "debug",
		QuotaResetCron:      "0 0 * * 1",
		SettlementSweepCron: "*/5 * * * *",
	}
}
