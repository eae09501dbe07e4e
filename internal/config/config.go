// Package config loads the dashboard configuration from a YAML file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Environment names accepted in Config.Env.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Storage drivers accepted in Storage.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config is the full application configuration.
type Config struct {
	Env     string  `yaml:"env" env:"ENV" env-default:"local"`
	HTTP    HTTP    `yaml:"http"`
	API     API     `yaml:"api"`
	Storage Storage `yaml:"storage"`
	Session Session `yaml:"session"`
}

// HTTP configures the listening server. PublicURL, when set, is the
// externally visible origin used in exported documents.
type HTTP struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR" env-default:"0.0.0.0:8080"`
	PublicURL       string        `yaml:"public_url" env:"PUBLIC_URL" env-description:"external origin, e.g. https://dash.example.com"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// API configures the client for the remote creator backend.
type API struct {
	BaseURL      string        `yaml:"base_url" env:"API_BASE_URL" env-default:"https://creator-backend.vercel.app"`
	Timeout      time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"10s"`
	RateLimit    float64       `yaml:"rate_limit" env:"API_RATE_LIMIT" env-default:"20"`
	Burst        int           `yaml:"burst" env:"API_BURST" env-default:"40"`
	FeedCacheTTL time.Duration `yaml:"feed_cache_ttl" env:"API_FEED_CACHE_TTL" env-default:"30s"`
}

// Storage selects the key-value backend that holds sessions and saved items.
type Storage struct {
	Driver        string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"sqlite"`
	Path          string `yaml:"path" env:"STORAGE_PATH" env-default:"creator.db"`
	DSN           string `yaml:"dsn" env:"DATABASE_URL"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
}

// Session configures the browser cookie that carries the session id.
type Session struct {
	CookieName string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"creator_session"`
	HashKey    string        `yaml:"hash_key" env:"SESSION_HASH_KEY"`
	BlockKey   string        `yaml:"block_key" env:"SESSION_BLOCK_KEY"`
	Secure     bool          `yaml:"secure" env:"SESSION_SECURE" env-default:"false"`
	MaxAge     time.Duration `yaml:"max_age" env:"SESSION_MAX_AGE" env-default:"168h"`
}

// Load reads the YAML file at path (if any) and then applies environment
// overrides. Env variables win over the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Usage describes every supported environment variable.
func Usage() string {
	desc, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return err.Error()
	}
	return desc
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("unknown env %q", c.Env)
	}

	if c.HTTP.PublicURL != "" {
		pu, err := url.Parse(c.HTTP.PublicURL)
		if err != nil || pu.Scheme == "" || pu.Host == "" {
			return fmt.Errorf("public url %q must be absolute", c.HTTP.PublicURL)
		}
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api base url %q must be absolute", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return errors.New("api timeout must be positive")
	}
	if c.API.RateLimit <= 0 || c.API.Burst <= 0 {
		return errors.New("api rate limit and burst must be positive")
	}

	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			return errors.New("storage path is required for sqlite")
		}
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("DATABASE_URL is required for postgres")
		}
	case DriverRedis:
		if c.Storage.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for redis")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Session.CookieName == "" {
		return errors.New("session cookie name is required")
	}
	if c.Env == EnvProd && len(c.Session.HashKey) < 32 {
		return errors.New("SESSION_HASH_KEY of at least 32 bytes is required in prod")
	}
	if k := len(c.Session.BlockKey); k != 0 && k != 16 && k != 24 && k != 32 {
		return errors.New("SESSION_BLOCK_KEY must be 16, 24 or 32 bytes")
	}
	return nil
}
