package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Database.MaxConns)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenExpiry)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DB_MAX_CONNS", "42")
	t.Setenv("SERVER_REQUEST_TIMEOUT", "3s")
	t.Setenv("APP_ENV", "production")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 42, cfg.Database.MaxConns)
	assert.Equal(t, 3*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "info", cfg.LogLevel())
}

func TestBadEnvValuesFallBack(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "many")
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	cfg := Load()
	assert.Equal(t, 10, cfg.Database.MaxConns)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}
