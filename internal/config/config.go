package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/tatianab/mahes-quest/internal/session"
	"github.com/tatianab/mahes-quest/internal/store"
)

// Config holds the application configuration.
type Config struct {
	SaveDir             string `env:"MAHES_SAVE_DIR" envDefault:".saves"`
	Store               string `env:"MAHES_STORE" envDefault:"file"`
	SQLitePath          string `env:"MAHES_SQLITE_PATH" envDefault:".saves/mahes.db"`
	Slot                string `env:"MAHES_SLOT" envDefault:"1"`
	TimeoutPolicy       string `env:"MAHES_TIMEOUT_POLICY" envDefault:"cosmetic"`
	EnforceKarmaGate    bool   `env:"MAHES_ENFORCE_KARMA_GATE" envDefault:"false"`
	LeaderboardCapacity int    `env:"MAHES_LEADERBOARD_CAPACITY" envDefault:"50"`
	Seed                uint64 `env:"MAHES_SEED" envDefault:"0"`
	Addr                string `env:"MAHES_ADDR" envDefault:":3001"`
	LogLevel            string `env:"MAHES_LOG_LEVEL" envDefault:"info"`
	LogFile             string `env:"MAHES_LOG_FILE" envDefault:".saves/mahes.log"`
	GeminiModel         string `env:"MAHES_GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	GeminiAPIKey        string `env:"GEMINI_API_KEY"`
}

// Load reads the configuration from environment variables.
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

// Validate rejects unknown enumerations.
func (c *Config) Validate() error {
	switch c.Store {
	case store.DriverFile, store.DriverSQLite, store.DriverMemory:
	default:
		return fmt.Errorf("MAHES_STORE: unknown store %q", c.Store)
	}
	if _, err := session.ParseTimeoutPolicy(c.TimeoutPolicy); err != nil {
		return fmt.Errorf("MAHES_TIMEOUT_POLICY: %w", err)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.LeaderboardCapacity <= 0 {
		return fmt.Errorf("MAHES_LEADERBOARD_CAPACITY: must be positive, got %d", c.LeaderboardCapacity)
	}
	return nil
}

// Policy returns the parsed timeout policy.
func (c *Config) Policy() session.TimeoutPolicy {
	p, _ := session.ParseTimeoutPolicy(c.TimeoutPolicy)
	return p
}

// Level returns the parsed log level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("MAHES_LOG_LEVEL: %w", err)
	}
	return level, nil
}
