// Package config loads server settings: built-in defaults, then an optional
// TOML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig  `toml:"server"`
	Storage  StorageConfig `toml:"storage"`
	Redis    RedisConfig   `toml:"redis"`
	Quote    QuoteConfig   `toml:"quote"`
	Auth     AuthConfig    `toml:"auth"`
	Trading  TradingConfig `toml:"trading"`
	Notify   NotifyConfig  `toml:"notify"`
	LogLevel string        `toml:"log_level"`
}

type ServerConfig struct {
	Addr          string `toml:"addr"`
	MetricsAddr   string `toml:"metrics_addr"`
	BirthdaysAddr string `toml:"birthdays_addr"`
}

type StorageConfig struct {
	SQLitePath          string `toml:"sqlite_path"`
	BirthdaysSQLitePath string `toml:"birthdays_sqlite_path"`
}

// RedisConfig configures the quote cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	CacheTTL string `toml:"cache_ttl"`
}

// QuoteConfig configures the live quote API. Static, when set, replaces
// the live API with a fixed "SYM=PRICE[:Name],..." table.
type QuoteConfig struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Timeout   string `toml:"timeout"`
	RateLimit int    `toml:"rate_limit"` // requests per second
	Static    string `toml:"static"`
}

type AuthConfig struct {
	JWTSecret  string `toml:"jwt_secret"`
	SessionTTL string `toml:"session_ttl"`
}

type TradingConfig struct {
	StartingCash string `toml:"starting_cash"`
}

type NotifyConfig struct {
	WebhookURL string `toml:"webhook_url"`
}

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          ":8080",
			MetricsAddr:   ":9090",
			BirthdaysAddr: ":8081",
		},
		Storage: StorageConfig{
			SQLitePath:          "data/finance.db",
			BirthdaysSQLitePath: "data/birthdays.db",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			CacheTTL: "15s",
		},
		Quote: QuoteConfig{
			BaseURL:   "https://cloud.iexapis.com/stable",
			Timeout:   "5s",
			RateLimit: 10,
		},
		Auth: AuthConfig{
			SessionTTL: "24h",
		},
		Trading:  TradingConfig{StartingCash: "10000.00"},
		LogLevel: "info",
	}
}

// Load builds the configuration. path may be empty or name a missing file,
// in which case only defaults and environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Printf("[config] %s not found, using defaults", path)
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setEnv(&c.Server.Addr, "FINANCE_ADDR")
	setEnv(&c.Server.MetricsAddr, "METRICS_ADDR")
	setEnv(&c.Server.BirthdaysAddr, "BIRTHDAYS_ADDR")
	setEnv(&c.Storage.SQLitePath, "SQLITE_PATH")
	setEnv(&c.Storage.BirthdaysSQLitePath, "BIRTHDAYS_SQLITE_PATH")
	setEnv(&c.Redis.Password, "REDIS_PASSWORD")
	setEnv(&c.Redis.CacheTTL, "QUOTE_CACHE_TTL")
	setEnv(&c.Quote.APIKey, "API_KEY")
	setEnv(&c.Quote.BaseURL, "QUOTE_BASE_URL")
	setEnv(&c.Quote.Timeout, "QUOTE_TIMEOUT")
	setEnv(&c.Quote.Static, "STATIC_QUOTES")
	setEnv(&c.Auth.JWTSecret, "JWT_SECRET")
	setEnv(&c.Auth.SessionTTL, "SESSION_TTL")
	setEnv(&c.Trading.StartingCash, "STARTING_CASH")
	setEnv(&c.Notify.WebhookURL, "NOTIFY_WEBHOOK_URL")
	setEnv(&c.LogLevel, "LOG_LEVEL")

	// REDIS_ADDR may be set to "" explicitly to disable the cache.
	if v, ok := os.LookupEnv("REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v := os.Getenv("QUOTE_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Printf("[config] ignoring invalid QUOTE_RATE_LIMIT %q", v)
		} else {
			c.Quote.RateLimit = n
		}
	}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Quote.Static == "" && c.Quote.APIKey == "" {
		return errors.New("API_KEY not set")
	}
	cash, err := decimal.NewFromString(c.Trading.StartingCash)
	if err != nil {
		return fmt.Errorf("starting cash %q: %w", c.Trading.StartingCash, err)
	}
	if cash.IsNegative() {
		return fmt.Errorf("starting cash %q must not be negative", c.Trading.StartingCash)
	}
	for name, v := range map[string]string{
		"quote timeout":   c.Quote.Timeout,
		"quote cache ttl": c.Redis.CacheTTL,
		"session ttl":     c.Auth.SessionTTL,
	} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return fmt.Errorf("%s %q: want a positive duration", name, v)
		}
	}
	return nil
}

// QuoteTimeout is the per-lookup timeout. Invalid values fall back to 5s.
func (c *Config) QuoteTimeout() time.Duration {
	return durationOr(c.Quote.Timeout, 5*time.Second)
}

func (c *Config) CacheTTL() time.Duration {
	return durationOr(c.Redis.CacheTTL, 15*time.Second)
}

func (c *Config) SessionTTL() time.Duration {
	return durationOr(c.Auth.SessionTTL, 24*time.Hour)
}

// StartingCash is the balance given to new accounts. Call Validate first.
func (c *Config) StartingCash() decimal.Decimal {
	d, err := decimal.NewFromString(c.Trading.StartingCash)
	if err != nil {
		return decimal.NewFromInt(10000)
	}
	return d
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func setEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
