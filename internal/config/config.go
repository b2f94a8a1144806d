// Package config loads the selector configuration from TOML, .env and
// SELECTOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"solana-token-selector/internal/solana"
)

// Config is the root configuration.
type Config struct {
	LogLevel   string           `toml:"log_level"`
	MarketData MarketDataConfig `toml:"market_data"`
	Selection  SelectionConfig  `toml:"selection"`
	Refresh    RefreshConfig    `toml:"refresh"`
	Job        JobConfig        `toml:"job"`
	Storage    StorageConfig    `toml:"storage"`
	Redis      RedisConfig      `toml:"redis"`
	Server     ServerConfig     `toml:"server"`
}

// MarketDataConfig configures the market-data provider client.
type MarketDataConfig struct {
	BaseURL  string   `toml:"base_url"`
	APIKey   string   `toml:"api_key"`
	Chain    string   `toml:"chain"`
	PageSize int      `toml:"page_size"`
	Timeout  duration `toml:"timeout"`
}

// SelectionConfig holds the filter thresholds and schedule of the selection job.
type SelectionConfig struct {
	Interval     duration `toml:"interval"`
	RunAtStart   bool     `toml:"run_at_start"`
	Pages        int      `toml:"pages"`
	MinMarketCap float64  `toml:"min_market_cap"`
	MinLiquidity float64  `toml:"min_liquidity"`
	MinTrades24h int64    `toml:"min_trades_24h"`
	Floor        int      `toml:"floor"`
	Excluded     []string `toml:"excluded"`
}

// RefreshConfig schedules the financials refresh job.
type RefreshConfig struct {
	Enabled    bool     `toml:"enabled"`
	Interval   duration `toml:"interval"`
	RunAtStart bool     `toml:"run_at_start"`
}

// JobConfig holds supervisor settings shared by all jobs.
type JobConfig struct {
	MaxAttempts int      `toml:"max_attempts"`
	LockTTL     duration `toml:"lock_ttl"`
}

// StorageConfig selects and configures the stores.
type StorageConfig struct {
	UseMemory     bool   `toml:"use_memory"`
	PostgresDSN   string `toml:"postgres_dsn"`
	ClickhouseDSN string `toml:"clickhouse_dsn"` // optional; enables run history
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig enables the distributed run lock when Addr is set.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// ServerConfig configures the operational HTTP server.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// duration wraps time.Duration for TOML strings like "5m".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultExcluded lists stablecoins, wrapped majors, liquid-staking
// derivatives and blue-chip governance tokens never eligible for selection.
var DefaultExcluded = []string{
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", // USDC
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", // USDT
	"7kbnvuGBxxj8AG9qp8Scn56muWGaRaFqxg1FsRp3PaFT",
	"So11111111111111111111111111111111111111112", // wSOL
	"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN",
	"bSo13r4TkiE4KumL71LsHTPpL2euBYLFx6h9HP3piy1",
	"J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn",
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So",
	"7dHbWXmci3dT8UFYWYZweBLXgycu7Y3iL6trKn1Y7ARj",
	"4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R",
	"ZEUS1aR7aX8DFFJf5QjWj2ftDDdNTroMNGo8YoQm3Gq",
	"jtojtomepa8beP8AuQc6eXt5FriJwfFMwQx2v2f9mCL",
	"85VBFQZC9TZkfaptBWjvUw7YbZjy52A6mjtPGjstQAmQ",
	"HZ1JovNiVvGrGNiiYvEozEVgZ58xaU3RKwX8eACQBCt3",
	"27G8MtK7VtTcCHkpASjSDdkWWYfoqT6ggEuKidVJidD4",
	"7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs",
	"3NZ9JMVBmGAqocybic2c7LQCJScmgsAZ6vQqTDzcqmJh",
	"rndrizKT3MK1iimdxRdWabcF7Zg7AR5T4nud4EkHBof",
	"SHDWyBxihqiCj6YekG2GUr7wqKLeLAMK1gHZck9pL6y",
	"LFNTYraetVioAPnGJht4yNg2aUZFXR776cMeN9VMjXp",
	"orcaEKTdK7LKz57vaAYr9QeNsVEPfiu6QeMU1kektZE",
	"hntyVP6YFm1Hg25TN9WGLqM12b8TQmcknKrdu1oxWux",
	"nosXBVoaCTtYdLvKY6Csb4AC8JCdQKKAaWYtx2ZMoo7",
	"mb1eu7TzEc71KxDpsmsKoucSSuuoGLv1drys1oP2jh6",
	"SLNDpmoWTVADgEdndyvWzroNL7zSi1dF9PC3xHGtPwp",
	"ATLASXmbPQxBUYbxPsV97usA3fPQYEqzQBUHgiFCUsXx",
}

// Defaults returns a Config populated with production defaults.
func Defaults() Config {
	return Config{
		LogLevel: "info",
		MarketData: MarketDataConfig{
			BaseURL:  "https://public-api.birdeye.so",
			Chain:    "solana",
			PageSize: 50,
			Timeout:  duration{30 * time.Second},
		},
		Selection: SelectionConfig{
			Interval:     duration{time.Hour},
			RunAtStart:   true,
			Pages:        2,
			MinMarketCap: 500_000,
			MinLiquidity: 100_000,
			MinTrades24h: 500,
			Floor:        25,
			Excluded:     append([]string(nil), DefaultExcluded...),
		},
		Refresh: RefreshConfig{
			Enabled:  true,
			Interval: duration{10 * time.Minute},
		},
		Job: JobConfig{
			MaxAttempts: 3,
			LockTTL:     duration{15 * time.Minute},
		},
		Storage: StorageConfig{
			UseMemory:     false,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			PoolSize:   10,
			MaxRetries: 3,
		},
		Server: ServerConfig{
			Addr: ":9090",
		},
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate reports every invalid or missing value found.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		add("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel)
	}

	if c.MarketData.BaseURL == "" {
		add("market_data: base_url must not be empty")
	}
	if c.MarketData.APIKey == "" {
		add("market_data: api_key is required (set SELECTOR_MARKET_DATA_API_KEY)")
	}
	if c.MarketData.PageSize < 1 {
		add("market_data: page_size must be >= 1")
	}
	if c.MarketData.Timeout.Duration <= 0 {
		add("market_data: timeout must be > 0")
	}

	s := c.Selection
	if s.Interval.Duration <= 0 {
		add("selection: interval must be > 0")
	}
	if s.Pages < 1 {
		add("selection: pages must be >= 1")
	}
	if s.MinMarketCap < 0 || s.MinLiquidity < 0 || s.MinTrades24h < 0 {
		add("selection: thresholds must not be negative")
	}
	if s.Floor < 1 {
		add("selection: floor must be >= 1")
	}
	if s.Floor > s.Pages*c.MarketData.PageSize {
		add("selection: floor %d exceeds the %d listings fetched per run", s.Floor, s.Pages*c.MarketData.PageSize)
	}
	for _, addr := range s.Excluded {
		if err := solana.ValidateAddress(addr); err != nil {
			add("selection: excluded address %q: %w", addr, err)
		}
	}

	if c.Refresh.Enabled && c.Refresh.Interval.Duration <= 0 {
		add("refresh: interval must be > 0 when enabled")
	}

	if c.Job.MaxAttempts < 1 {
		add("job: max_attempts must be >= 1")
	}
	if c.Redis.Addr != "" && c.Job.LockTTL.Duration <= 0 {
		add("job: lock_ttl must be > 0 when redis is configured")
	}

	if !c.Storage.UseMemory && c.Storage.PostgresDSN == "" {
		add("storage: postgres_dsn is required unless use_memory is set")
	}

	if c.Redis.Addr != "" && c.Redis.PoolSize < 1 {
		add("redis: pool_size must be >= 1")
	}

	if c.Server.Addr == "" {
		add("server: addr must not be empty")
	}

	return errors.Join(errs...)
}
