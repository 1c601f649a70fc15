package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the desk's runtime settings.
type Config struct {
	Port            string
	DataServiceURL  string
	RequestTimeout  time.Duration
	RateLimit       float64
	RateBurst       int
	ReadRetries     uint
	FinePerDay      float64
	DefaultBranchID int64
	ThemeMode       string
	LogLevel        slog.Level
	OTLPEndpoint    string
	ServiceName     string
	SessionIdle     time.Duration

	// Fault injection against the data service, off unless CHAOS_BLAST_RADIUS > 0.
	ChaosBlastRadius float64
	ChaosLatency     time.Duration
	ChaosStatusCode  int
}

// Load reads an optional .env file and then the environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", f, err)
			}
		}
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DataServiceURL: getEnv("DATA_SERVICE_URL", "http://localhost:8081"),
		ThemeMode:      getEnv("THEME_MODE", "light"),
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:    getEnv("OTEL_SERVICE_NAME", "librarydesk"),
	}

	var err error
	if cfg.RequestTimeout, err = time.ParseDuration(getEnv("REQUEST_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}
	if cfg.RateLimit, err = strconv.ParseFloat(getEnv("DATA_SERVICE_RATE_LIMIT", "20"), 64); err != nil {
		return nil, fmt.Errorf("invalid DATA_SERVICE_RATE_LIMIT: %w", err)
	}
	if cfg.RateBurst, err = strconv.Atoi(getEnv("DATA_SERVICE_RATE_BURST", "40")); err != nil {
		return nil, fmt.Errorf("invalid DATA_SERVICE_RATE_BURST: %w", err)
	}
	retries, err := strconv.ParseUint(getEnv("DATA_SERVICE_READ_RETRIES", "3"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid DATA_SERVICE_READ_RETRIES: %w", err)
	}
	cfg.ReadRetries = uint(retries)
	if cfg.FinePerDay, err = strconv.ParseFloat(getEnv("FINE_PER_DAY", "0.5"), 64); err != nil {
		return nil, fmt.Errorf("invalid FINE_PER_DAY: %w", err)
	}
	if cfg.FinePerDay < 0 {
		return nil, fmt.Errorf("invalid FINE_PER_DAY: must not be negative")
	}
	if cfg.DefaultBranchID, err = strconv.ParseInt(getEnv("DEFAULT_BRANCH_ID", "1"), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_BRANCH_ID: %w", err)
	}
	if cfg.SessionIdle, err = time.ParseDuration(getEnv("SESSION_IDLE_TIMEOUT", "2h")); err != nil {
		return nil, fmt.Errorf("invalid SESSION_IDLE_TIMEOUT: %w", err)
	}
	if cfg.SessionIdle <= 0 {
		return nil, fmt.Errorf("invalid SESSION_IDLE_TIMEOUT: must be positive")
	}
	if cfg.ChaosBlastRadius, err = strconv.ParseFloat(getEnv("CHAOS_BLAST_RADIUS", "0"), 64); err != nil {
		return nil, fmt.Errorf("invalid CHAOS_BLAST_RADIUS: %w", err)
	}
	if cfg.ChaosBlastRadius < 0 || cfg.ChaosBlastRadius > 1 {
		return nil, fmt.Errorf("invalid CHAOS_BLAST_RADIUS: must be between 0 and 1")
	}
	if cfg.ChaosLatency, err = time.ParseDuration(getEnv("CHAOS_LATENCY", "0s")); err != nil {
		return nil, fmt.Errorf("invalid CHAOS_LATENCY: %w", err)
	}
	if cfg.ChaosStatusCode, err = strconv.Atoi(getEnv("CHAOS_STATUS_CODE", "0")); err != nil {
		return nil, fmt.Errorf("invalid CHAOS_STATUS_CODE: %w", err)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	switch strings.ToLower(cfg.ThemeMode) {
	case "light", "dark":
		cfg.ThemeMode = strings.ToLower(cfg.ThemeMode)
	default:
		return nil, fmt.Errorf("invalid THEME_MODE %q: want light or dark", cfg.ThemeMode)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
