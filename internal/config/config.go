package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"albiondata-api/internal/market"

	"github.com/joeshaw/envdecode"
)

// Rendering of an invalid item filter.
const (
	InvalidItemError  = "error"
	InvalidItemEmpty  = "empty"
	InvalidItemLegacy = "legacy"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,default=root:@tcp(localhost:3306)/albion?charset=utf8mb4&parseTime=True&loc=UTC"`
	Port        string `env:"PORT,default=8080"`
	Environment string `env:"ENVIRONMENT,default=development"`
	AutoMigrate bool   `env:"AUTO_MIGRATE,default=false"`

	// Orders last updated longer ago than this are not returned.
	MaxAgeDays int `env:"MAX_AGE_DAYS,default=3"`
	// Window of quarter-day history used to backfill missing prices.
	HistoryLookbackDays int `env:"HISTORY_LOOKBACK_DAYS,default=7"`
	// Comma separated location list replacing the per-version defaults.
	DefaultLocations    string `env:"DEFAULT_LOCATIONS"`
	InvalidItemResponse string `env:"INVALID_ITEM_RESPONSE,default=error"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,default=10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=30"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB,default=0"`
	CacheTTL      time.Duration `env:"CACHE_TTL,default=30s"`

	StreamInterval time.Duration `env:"STREAM_INTERVAL,default=10s"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
	Debug    bool   `env:"DEBUG,default=false"`
}

// Load reads the environment and then applies command line overrides.
// Call godotenv.Load before Load so .env values are visible.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	fs := flag.NewFlagSet("albiondata-api", flag.ContinueOnError)
	fs.StringVar(&cfg.DatabaseURL, "s", cfg.DatabaseURL, "SQL connection url")
	fs.StringVar(&cfg.DatabaseURL, "sql", cfg.DatabaseURL, "SQL connection url")
	fs.IntVar(&cfg.MaxAgeDays, "a", cfg.MaxAgeDays, "max age in days of returned orders (1-30)")
	fs.IntVar(&cfg.MaxAgeDays, "max-age", cfg.MaxAgeDays, "max age in days of returned orders (1-30)")
	fs.BoolVar(&cfg.Debug, "d", cfg.Debug, "enable debug logging")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	fs.StringVar(&cfg.Port, "port", cfg.Port, "HTTP listen port")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database url is required")
	}
	if c.MaxAgeDays < 1 || c.MaxAgeDays > 30 {
		return fmt.Errorf("max age must be between 1 and 30 days, got %d", c.MaxAgeDays)
	}
	if c.HistoryLookbackDays < 1 {
		return fmt.Errorf("history lookback must be at least 1 day, got %d", c.HistoryLookbackDays)
	}
	switch strings.ToLower(c.InvalidItemResponse) {
	case InvalidItemError, InvalidItemEmpty, InvalidItemLegacy:
		c.InvalidItemResponse = strings.ToLower(c.InvalidItemResponse)
	default:
		return fmt.Errorf("unknown invalid item response %q", c.InvalidItemResponse)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("rate limit must be positive")
	}
	if c.StreamInterval < time.Second {
		c.StreamInterval = time.Second
	}
	if c.DefaultLocations != "" && len(market.ParseLocationList(c.DefaultLocations)) == 0 {
		return fmt.Errorf("default locations %q name no known location", c.DefaultLocations)
	}
	return nil
}

func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeDays) * 24 * time.Hour
}

func (c *Config) HistoryLookback() time.Duration {
	return time.Duration(c.HistoryLookbackDays) * 24 * time.Hour
}

// Locations returns the configured default location set, nil when unset.
func (c *Config) Locations() []market.Location {
	if c.DefaultLocations == "" {
		return nil
	}
	return market.ParseLocationList(c.DefaultLocations)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
