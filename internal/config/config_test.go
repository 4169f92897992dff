// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/lobbies")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "postgres://localhost:5432/lobbies", cfg.DatabaseURL)
	assert.Equal(t, "", cfg.RedisAddr)
	assert.Equal(t, "lobby_events", cfg.EventQueue)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 30*time.Second, cfg.PingPeriod)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db:5432/lobbies")
	t.Setenv("ADDR", ":9090")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("STORE_TIMEOUT", "2s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 2*time.Second, cfg.StoreTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")
}
