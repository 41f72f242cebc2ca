package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StateBackendMemory = "memory"
	StateBackendRedis  = "redis"
)

type Config struct {
	BotToken     string        `env:"BOT_TOKEN"`
	SuperadminID int64         `env:"SUPERADMIN_ID"`
	GroupID      int64         `env:"GROUP_ID"`
	AdminContact string        `env:"ADMIN_CONTACT" envDefault:"@jondor_admin1"`
	PollTimeout  time.Duration `env:"POLL_TIMEOUT" envDefault:"50s"`

	Postgres PostgresConfig `envPrefix:"POSTGRES_"`
	Session  SessionConfig
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Log      LogConfig   `envPrefix:"LOG_"`
}

type PostgresConfig struct {
	// DSN is optional; the store builds one from POSTGRES_HOST and friends.
	DSN      string `env:"DSN"`
	MaxConns int32  `env:"MAX_CONNS" envDefault:"10"`
}

type SessionConfig struct {
	Backend string        `env:"STATE_BACKEND" envDefault:"memory"`
	TTL     time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	Limit   int           `env:"SESSION_LIMIT" envDefault:"10000"`
}

type RedisConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	Prefix   string `env:"PREFIX" envDefault:"jondor_bot"`
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.BotToken) == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	if c.GroupID == 0 {
		errs = append(errs, errors.New("GROUP_ID is required"))
	}
	switch c.Session.Backend {
	case StateBackendMemory, StateBackendRedis:
	default:
		errs = append(errs, fmt.Errorf("STATE_BACKEND must be %q or %q, got %q", StateBackendMemory, StateBackendRedis, c.Session.Backend))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Session.Limit <= 0 {
		errs = append(errs, errors.New("SESSION_LIMIT must be positive"))
	}
	if c.Postgres.MaxConns <= 0 {
		errs = append(errs, errors.New("POSTGRES_MAX_CONNS must be positive"))
	}
	return errors.Join(errs...)
}
