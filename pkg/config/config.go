package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the options engine.
type Config struct {
	Port string

	// Webhook command channel
	WebhookToken string

	// Trading
	TradingMode       string // "PAPER" or "LIVE"
	StrategyFile      string // YAML strategy parameters
	IterationInterval time.Duration
	AutoStart         bool

	// Fyers
	FyersClientID    string
	FyersAccessToken string
	UseMockFeed      bool
	MockStartPrice   float64
	HistoryLookback  int // days of candles per history request

	// Control API auth
	AdminUser         string
	AdminPasswordHash string // bcrypt; plaintext ADMIN_PASSWORD is refused
	JWTSecret         string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("WEBHOOK_PORT", getEnv("PORT", "8080")),
		WebhookToken:      os.Getenv("WEBHOOK_TOKEN"),
		TradingMode:       strings.ToUpper(getEnv("TRADING_MODE", "PAPER")),
		StrategyFile:      getEnv("STRATEGY_FILE", "./strategy.yaml"),
		IterationInterval: getEnvDuration("ITERATION_INTERVAL", 60*time.Second),
		AutoStart:         getEnv("AUTO_START", "true") == "true",
		FyersClientID:     os.Getenv("FYERS_CLIENT_ID"),
		FyersAccessToken:  os.Getenv("FYERS_ACCESS_TOKEN"),
		UseMockFeed:       getEnv("USE_MOCK_FEED", "true") == "true",
		MockStartPrice:    getEnvFloat("MOCK_START_PRICE", 22500),
		HistoryLookback:   getEnvInt("HISTORY_LOOKBACK_DAYS", 10),
		AdminUser:         getEnv("ADMIN_USER", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		JWTSecret:         getEnv("JWT_SECRET", "dev-secret"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.WebhookToken == "" {
		return fmt.Errorf("WEBHOOK_TOKEN is required")
	}
	if c.TradingMode != "PAPER" && c.TradingMode != "LIVE" {
		return fmt.Errorf("TRADING_MODE must be PAPER or LIVE, got %q", c.TradingMode)
	}
	if c.TradingMode == "LIVE" {
		if c.UseMockFeed {
			return fmt.Errorf("LIVE mode cannot run on the mock feed")
		}
		if c.FyersClientID == "" || c.FyersAccessToken == "" {
			return fmt.Errorf("LIVE mode requires FYERS_CLIENT_ID and FYERS_ACCESS_TOKEN")
		}
	}
	if c.IterationInterval < time.Second {
		return fmt.Errorf("ITERATION_INTERVAL must be at least 1s")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
