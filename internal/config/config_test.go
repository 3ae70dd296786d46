package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("GIN_MODE", "release")

	t.Run("Defaults", func(t *testing.T) {
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, 5*time.Second, cfg.CatalogTimeout)
		assert.Equal(t, 5*time.Minute, cfg.ProfileCacheTTL)
		assert.Equal(t, 587, cfg.SMTPPort)
		assert.True(t, cfg.MetricsEnabled)
		assert.False(t, cfg.RemoteStoreConfigured())
		assert.True(t, cfg.IsRelease())
		assert.Same(t, cfg, GetConfig())
	})

	t.Run("FromEnv", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("FIREBASE_PROJECT_ID", "flavoriz-test")
		t.Setenv("CATALOG_TIMEOUT", "250ms")
		t.Setenv("REDIS_DB", "2")
		t.Setenv("LOCAL_STORE_IN_MEMORY", "true")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, "flavoriz-test", cfg.FirebaseProjectID)
		assert.Equal(t, 250*time.Millisecond, cfg.CatalogTimeout)
		assert.Equal(t, 2, cfg.RedisDB)
		assert.True(t, cfg.LocalStoreInMemory)
		assert.True(t, cfg.RemoteStoreConfigured())
	})

	t.Run("YAMLFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("PORT: \"7070\"\nCLIENT_URL: http://localhost:3000\nSMTP_PORT: 2525\n"), 0o600))
		t.Setenv("PATH_CONFIG", path)
		t.Setenv("SMTP_PORT", "1025")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "7070", cfg.Port)
		assert.Equal(t, "http://localhost:3000", cfg.ClientURL)
		assert.Equal(t, 1025, cfg.SMTPPort, "environment overrides the file")
	})

	t.Run("MissingYAMLFile", func(t *testing.T) {
		t.Setenv("PATH_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("DevAuthInRelease", func(t *testing.T) {
		t.Setenv("DEV_AUTH_ENABLED", "true")
		_, err := LoadConfig()
		assert.EqualError(t, err, "DEV_AUTH_ENABLED cannot be used with GIN_MODE=release")
	})

	t.Run("BadSMTPPort", func(t *testing.T) {
		t.Setenv("SMTP_PORT", "70000")
		_, err := LoadConfig()
		assert.Error(t, err)
	})
}
