package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Server
	Port    int
	DevMode bool

	// State persistence (cycle/order history)
	DatabasePath string

	// Broker (KIS-style REST API)
	BrokerAppKey    string
	BrokerAppSecret string
	BrokerAccountNo string
	BrokerMock      bool

	// Optional LLM news-sentiment leg; when either is empty the
	// Sentiment Fuser runs numeric-only.
	LLMAPIKey string
	LLMModel  string

	// Default scheduler gating, used only at startup; runtime changes
	// go through POST /scheduler/start.
	SchedulerIntervalMinutes int
	SchedulerKROnly          bool
	SchedulerUSEnabled       bool

	LogLevel string
}

// Load reads configuration from environment variables, loading a
// .env file first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                     getEnvAsInt("PORT", 8080),
		DevMode:                  getEnvAsBool("DEV_MODE", false),
		DatabasePath:             getEnv("DATABASE_PATH", "./data/autotrader.db"),
		BrokerAppKey:             getEnv("KIS_APP_KEY", ""),
		BrokerAppSecret:          getEnv("KIS_APP_SECRET", ""),
		BrokerAccountNo:          getEnv("KIS_ACCOUNT_NO", ""),
		BrokerMock:               getEnvAsBool("KIS_MOCK", true),
		LLMAPIKey:                getEnv("LLM_API_KEY", ""),
		LLMModel:                 getEnv("LLM_MODEL", "gpt-4o-mini"),
		SchedulerIntervalMinutes: getEnvAsInt("SCHEDULER_INTERVAL_MINUTES", 15),
		SchedulerKROnly:          getEnvAsBool("SCHEDULER_KR_ONLY", true),
		SchedulerUSEnabled:       getEnvAsBool("SCHEDULER_US_ENABLED", false),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required configuration. Broker credentials are not
// checked here: a missing app key/secret is reported by broker.New(),
// which cmd/server calls unconditionally at startup.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.SchedulerIntervalMinutes < 1 || c.SchedulerIntervalMinutes > 480 {
		return fmt.Errorf("SCHEDULER_INTERVAL_MINUTES must be between 1 and 480")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
