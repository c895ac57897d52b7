package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ">>", cfg.CommandPrefix)
	assert.Equal(t, "sqlite", cfg.CatalogDriver)
	assert.Equal(t, 30*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, 10*time.Second, cfg.DuelActionTimeout)
	assert.Equal(t, 20*time.Second, cfg.NarrationTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RPG_ADMIN_IDS", "1,2")
	t.Setenv("CONFIRM_TIMEOUT", "5s")
	t.Setenv("CATALOG_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.ConfirmTimeout)
	assert.True(t, cfg.IsAdmin("2"))
	assert.False(t, cfg.IsAdmin("3"))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad driver", "CATALOG_DRIVER", "mysql"},
		{"bad duration", "DUEL_ACTION_TIMEOUT", "soon"},
		{"blank prefix", "COMMAND_PREFIX", "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARNING"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}
