package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges the TOML file at path over Defaults, loads .env if present
// and applies SELECTOR_* overrides. An empty path skips the file.
// The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// Market data
	setStr(&cfg.MarketData.BaseURL, "SELECTOR_MARKET_DATA_BASE_URL")
	setStr(&cfg.MarketData.APIKey, "BIRDEYE_API_KEY") // legacy name; SELECTOR_ wins
	setStr(&cfg.MarketData.APIKey, "SELECTOR_MARKET_DATA_API_KEY")
	setStr(&cfg.MarketData.Chain, "SELECTOR_MARKET_DATA_CHAIN")
	setInt(&cfg.MarketData.PageSize, "SELECTOR_MARKET_DATA_PAGE_SIZE")
	setDuration(&cfg.MarketData.Timeout, "SELECTOR_MARKET_DATA_TIMEOUT")

	// Selection
	setDuration(&cfg.Selection.Interval, "SELECTOR_SELECTION_INTERVAL")
	setBool(&cfg.Selection.RunAtStart, "SELECTOR_SELECTION_RUN_AT_START")
	setInt(&cfg.Selection.Pages, "SELECTOR_SELECTION_PAGES")
	setFloat64(&cfg.Selection.MinMarketCap, "SELECTOR_SELECTION_MIN_MARKET_CAP")
	setFloat64(&cfg.Selection.MinLiquidity, "SELECTOR_SELECTION_MIN_LIQUIDITY")
	setInt64(&cfg.Selection.MinTrades24h, "SELECTOR_SELECTION_MIN_TRADES_24H")
	setInt(&cfg.Selection.Floor, "SELECTOR_SELECTION_FLOOR")
	setStringSlice(&cfg.Selection.Excluded, "SELECTOR_SELECTION_EXCLUDED")

	// Refresh
	setBool(&cfg.Refresh.Enabled, "SELECTOR_REFRESH_ENABLED")
	setDuration(&cfg.Refresh.Interval, "SELECTOR_REFRESH_INTERVAL")
	setBool(&cfg.Refresh.RunAtStart, "SELECTOR_REFRESH_RUN_AT_START")

	// Job
	setInt(&cfg.Job.MaxAttempts, "SELECTOR_JOB_MAX_ATTEMPTS")
	setDuration(&cfg.Job.LockTTL, "SELECTOR_JOB_LOCK_TTL")

	// Storage
	setBool(&cfg.Storage.UseMemory, "SELECTOR_STORAGE_USE_MEMORY")
	setStr(&cfg.Storage.PostgresDSN, "POSTGRES_DSN") // legacy name; SELECTOR_ wins
	setStr(&cfg.Storage.PostgresDSN, "SELECTOR_STORAGE_POSTGRES_DSN")
	setStr(&cfg.Storage.ClickhouseDSN, "CLICKHOUSE_DSN") // legacy name; SELECTOR_ wins
	setStr(&cfg.Storage.ClickhouseDSN, "SELECTOR_STORAGE_CLICKHOUSE_DSN")
	setBool(&cfg.Storage.RunMigrations, "SELECTOR_STORAGE_RUN_MIGRATIONS")

	// Redis
	setStr(&cfg.Redis.Addr, "SELECTOR_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SELECTOR_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SELECTOR_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SELECTOR_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SELECTOR_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SELECTOR_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "SELECTOR_REDIS_KEY_PREFIX")

	// Server
	setStr(&cfg.Server.Addr, "SELECTOR_SERVER_ADDR")

	setStr(&cfg.LogLevel, "SELECTOR_LOG_LEVEL")
}

// Typed env helpers. Each mutates the target only when the variable is
// set, non-empty and parseable.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
