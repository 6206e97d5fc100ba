// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"telegram-login-relay/internal/domain"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token     string `yaml:"token"`
	Username  string `yaml:"username"` // resolved from getMe when empty
	Workers   int    `yaml:"workers"`  // polling workers
	Language  string `yaml:"language"` // en | ru
	RateLimit int    `yaml:"rate_limit_per_minute"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"` // overrides the password embedded in url
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // account cache ttl
}

type DashboardConfig struct {
	URL        string `yaml:"url"`         // base URL the login link points at
	SupportURL string `yaml:"support_url"` // contact link for /support
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	ServiceKey     string        `yaml:"service_key"` // bearer key for POST /api/v1/auth/token; empty disables it
	SessionSecret  string        `yaml:"session_secret"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type SchedulerConfig struct {
	StatsInterval time.Duration `yaml:"stats_interval"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	HTTP      HTTPConfig      `yaml:"http"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the optional YAML file at path, applies environment
// overrides and validates required settings. A missing file is not an error
// when the environment supplies everything.
func LoadConfig(path string, dev bool) (*Config, error) {
	return load(path, dev, os.Getenv)
}

func load(path string, dev bool, getenv func(string) string) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
			// env-only deployment
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// LoadProvisionConfig is LoadConfig for the one-shot provisioning tool,
// which only needs the database and the dashboard URL.
func LoadProvisionConfig(path string) (*Config, error) {
	return loadProvision(path, os.Getenv)
}

func loadProvision(path string, getenv func(string) string) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if strings.TrimSpace(cfg.Database.URL) == "" {
		return nil, fmt.Errorf("%w: database.url (DATABASE_URL)", domain.ErrConfigMissing)
	}
	if cfg.Dashboard.URL != "" {
		if err := validateBaseURL("dashboard.url", cfg.Dashboard.URL); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// firstEnv returns the first non-empty value among keys.
func firstEnv(getenv func(string) string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	set := func(dst *string, keys ...string) {
		if v := firstEnv(getenv, keys...); v != "" {
			*dst = v
		}
	}
	set(&cfg.Bot.Token, "TELEGRAM_BOT_TOKEN")
	set(&cfg.Bot.Username, "TELEGRAM_BOT_USERNAME")
	set(&cfg.Bot.Language, "BOT_LANGUAGE")
	set(&cfg.Database.URL, "DATABASE_URL")
	set(&cfg.Database.Password, "DATABASE_PASSWORD")
	set(&cfg.Redis.URL, "REDIS_URL")
	set(&cfg.Redis.Password, "REDIS_PASSWORD")
	set(&cfg.Dashboard.URL, "DASHBOARD_URL", "TELEGRAM_BOT_DASHBOARD_URL", "NEXT_PUBLIC_APP_URL")
	set(&cfg.Dashboard.SupportURL, "SUPPORT_URL", "TELEGRAM_SUPPORT_URL", "NEXT_PUBLIC_SUPPORT_URL")
	set(&cfg.HTTP.ServiceKey, "API_SERVICE_KEY")
	set(&cfg.HTTP.SessionSecret, "SESSION_SECRET")
	set(&cfg.Log.Level, "LOG_LEVEL")
	set(&cfg.Log.Format, "LOG_FORMAT")

	if v := firstEnv(getenv, "HTTP_PORT", "PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse HTTP_PORT: %w", err)
		}
		cfg.HTTP.Port = port
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.Language == "" {
		cfg.Bot.Language = "ru"
	}
	if cfg.Bot.RateLimit <= 0 {
		cfg.Bot.RateLimit = 20
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL, 10*time.Minute)
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	cfg.HTTP.SessionTTL = normalizeTTL(cfg.HTTP.SessionTTL, 7*24*time.Hour)
	cfg.HTTP.RequestTimeout = normalizeTTL(cfg.HTTP.RequestTimeout, 10*time.Second)
	cfg.Scheduler.StatsInterval = normalizeTTL(cfg.Scheduler.StatsInterval, time.Minute)
	cfg.Dashboard.URL = strings.TrimRight(cfg.Dashboard.URL, "/")
}

// Validate reports the first missing required setting as ErrConfigMissing.
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"bot.token (TELEGRAM_BOT_TOKEN)", c.Bot.Token},
		{"database.url (DATABASE_URL)", c.Database.URL},
		{"redis.url (REDIS_URL)", c.Redis.URL},
		{"dashboard.url (DASHBOARD_URL)", c.Dashboard.URL},
		{"dashboard.support_url (SUPPORT_URL)", c.Dashboard.SupportURL},
		{"http.session_secret (SESSION_SECRET)", c.HTTP.SessionSecret},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s", domain.ErrConfigMissing, r.key)
		}
	}
	if err := validateBaseURL("dashboard.url", c.Dashboard.URL); err != nil {
		return err
	}
	if c.Bot.Language != "en" && c.Bot.Language != "ru" {
		return fmt.Errorf("%w: bot.language must be en or ru", domain.ErrInvalidArgument)
	}
	return nil
}

// validateBaseURL requires an absolute http(s) URL; login links are built on it.
func validateBaseURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidArgument, key, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s must be an absolute http(s) URL, got %q", domain.ErrInvalidArgument, key, raw)
	}
	return nil
}

func normalizeTTL(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
