package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("missing signing secret is a startup error", func(t *testing.T) {
		t.Setenv("GATEPASS_SIGNING_SECRET", "")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GATEPASS_SIGNING_SECRET")
	})

	t.Run("defaults applied", func(t *testing.T) {
		t.Setenv("GATEPASS_SIGNING_SECRET", "test-secret")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, BackendMemory, cfg.StorageBackend)
		assert.Equal(t, 24*time.Hour, cfg.TokenMaxAge)
		assert.Equal(t, 5*time.Second, cfg.StorageTimeout)
	})

	t.Run("postgres backend requires DATABASE_URL", func(t *testing.T) {
		t.Setenv("GATEPASS_SIGNING_SECRET", "test-secret")
		t.Setenv("GATEPASS_STORAGE", BackendPostgres)
		t.Setenv("DATABASE_URL", "")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_URL")
	})

	t.Run("unknown backend rejected", func(t *testing.T) {
		t.Setenv("GATEPASS_SIGNING_SECRET", "test-secret")
		t.Setenv("GATEPASS_STORAGE", "cassandra")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("duration overrides parsed", func(t *testing.T) {
		t.Setenv("GATEPASS_SIGNING_SECRET", "test-secret")
		t.Setenv("GATEPASS_STORAGE", BackendMemory)
		t.Setenv("GATEPASS_TOKEN_MAX_AGE", "1h")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, time.Hour, cfg.TokenMaxAge)
	})
}
