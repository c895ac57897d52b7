package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        string     `env:"PORT" envDefault:"8080"`
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string     `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level `env:"-"`

	RedisURL string `env:"REDIS_URL" envDefault:"localhost:6379"`

	CatalogDriver string `env:"CATALOG_DRIVER" envDefault:"sqlite"`
	CatalogDSN    string `env:"CATALOG_DSN" envDefault:"file:infamy.db"`
	CatalogSeed   string `env:"CATALOG_SEED" envDefault:"data/catalog.json"`

	CommandPrefix string   `env:"COMMAND_PREFIX" envDefault:">>"`
	AdminIDs      []string `env:"RPG_ADMIN_IDS" envSeparator:","`

	ConfirmTimeout    time.Duration `env:"CONFIRM_TIMEOUT" envDefault:"30s"`
	DuelActionTimeout time.Duration `env:"DUEL_ACTION_TIMEOUT" envDefault:"10s"`
	NarrationTTL      time.Duration `env:"NARRATION_TTL" envDefault:"20s"`

	WorkerID   string `env:"WORKER_ID" envDefault:"worker-1"`
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	if cfg.CatalogDriver != "sqlite" && cfg.CatalogDriver != "postgres" {
		return nil, fmt.Errorf("unsupported CATALOG_DRIVER %q", cfg.CatalogDriver)
	}
	if strings.TrimSpace(cfg.CommandPrefix) == "" {
		return nil, fmt.Errorf("COMMAND_PREFIX cannot be empty")
	}
	return &cfg, nil
}

// IsAdmin reports whether participantID may run admin commands.
func (c *Config) IsAdmin(participantID string) bool {
	return slices.Contains(c.AdminIDs, participantID)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
