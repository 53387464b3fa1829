package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	EquitiesCSVURL string
	OptionsCSVURL  string
	SectorsCSVURL  string
	RefreshSeconds int
	Timezone       *time.Location
	TimezoneName   string
	Futures        []string
	Benchmarks     []string
	IncludePrePost bool
	DatabasePath   string
	Port           int
	LogLevel       string
	DevMode        bool
}

const (
	MinRefreshSeconds = 10
	MaxRefreshSeconds = 600
)

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		EquitiesCSVURL: getEnv("EQUITIES_CSV_URL", ""),
		OptionsCSVURL:  getEnv("OPTIONS_CSV_URL", ""),
		SectorsCSVURL:  getEnv("SECTORS_CSV_URL", ""),
		RefreshSeconds: getEnvAsInt("REFRESH_SECONDS", 60),
		TimezoneName:   getEnv("APP_TIMEZONE", "Asia/Dubai"),
		Futures:        splitList(getEnv("DEFAULT_FUTURES", "ES=F,NQ=F,CL=F,GC=F")),
		Benchmarks:     splitList(getEnv("BENCHMARKS", "SPY,QQQ")),
		IncludePrePost: getEnvAsBool("INCLUDE_PREPOST", true),
		DatabasePath:   getEnv("DATABASE_PATH", "./data/livefolio.db"),
		Port:           getEnvAsInt("PORT", 8080),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DevMode:        getEnvAsBool("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.TimezoneName)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.TimezoneName, err)
	}
	cfg.Timezone = loc

	return cfg, nil
}

// Validate checks if configuration values are usable.
// A missing equities source is NOT fatal: the pipeline still runs and reports
// a config error on the snapshot itself.
func (c *Config) Validate() error {
	if c.RefreshSeconds < MinRefreshSeconds {
		c.RefreshSeconds = MinRefreshSeconds
	}
	if c.RefreshSeconds > MaxRefreshSeconds {
		c.RefreshSeconds = MaxRefreshSeconds
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	return nil
}

// Helper functions

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

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
