// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every tunable knob. Defaults reproduce the cadence of
// a human paging through results.
type Config struct {
	// HTTP server.
	Addr     string
	LogLevel string

	// Persistence.
	DBPath     string
	HistoryCap int

	// Scan cadence.
	TotalPages    int
	ResultsPerQty int // results requested per page (num parameter)
	NavTimeout    time.Duration
	SettleDelay   time.Duration
	PageDelay     time.Duration
	JitterMin     time.Duration
	JitterMax     time.Duration

	// Browser.
	Headless  bool
	UserAgent string
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:          getEnv("SERPRANK_ADDR", ":8080"),
		LogLevel:      getEnv("SERPRANK_LOG_LEVEL", "info"),
		DBPath:        getEnv("SERPRANK_DB_PATH", "serprank.db"),
		HistoryCap:    getEnvInt("SERPRANK_HISTORY_CAP", 50),
		TotalPages:    getEnvInt("SERPRANK_PAGES", 10),
		ResultsPerQty: getEnvInt("SERPRANK_RESULTS_PER_PAGE", 10),
		NavTimeout:    getEnvDuration("SERPRANK_NAV_TIMEOUT", 15*time.Second),
		SettleDelay:   getEnvDuration("SERPRANK_SETTLE_DELAY", 7*time.Second),
		PageDelay:     getEnvDuration("SERPRANK_PAGE_DELAY", 2*time.Second),
		JitterMin:     getEnvDuration("SERPRANK_JITTER_MIN", 3*time.Second),
		JitterMax:     getEnvDuration("SERPRANK_JITTER_MAX", 6*time.Second),
		Headless:      getEnvBool("SERPRANK_HEADLESS", true),
		UserAgent:     getEnv("SERPRANK_USER_AGENT", defaultUserAgent),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.TotalPages < 1 {
		return fmt.Errorf("config: pages must be at least 1, got %d", c.TotalPages)
	}
	if c.HistoryCap < 1 {
		return fmt.Errorf("config: history cap must be at least 1, got %d", c.HistoryCap)
	}
	if c.JitterMax < c.JitterMin {
		return fmt.Errorf("config: jitter max %s below min %s", c.JitterMax, c.JitterMin)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
