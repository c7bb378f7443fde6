package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LECTUREHUB_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "config/policies.yaml", cfg.PoliciesPath)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 15*time.Second, cfg.HTTPReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LECTUREHUB_HTTP_ADDR", ":9090")
	t.Setenv("LECTUREHUB_TOKEN_TTL", "2h")
	t.Setenv("LECTUREHUB_JWT_SECRET", "s3cret")
	t.Setenv("LECTUREHUB_LOG_FORMAT", "json")
	t.Setenv("LECTUREHUB_SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoadRejects(t *testing.T) {
	tests := map[string]map[string]string{
		"production without secret": {"LECTUREHUB_ENV": "production", "LECTUREHUB_JWT_SECRET": ""},
		"unknown log level":         {"LECTUREHUB_LOG_LEVEL": "verbose"},
		"bad duration":              {"LECTUREHUB_RESET_TTL": "soon"},
		"bad redis address":         {"LECTUREHUB_REDIS_ADDR": "localhost"},
		"zero write timeout":        {"LECTUREHUB_HTTP_WRITE_TIMEOUT": "0s"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
