package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	// empty env values count as unset
	for _, k := range []string{"PORT", "STORAGE_BACKEND", "CATALOG_SOURCE", configFileEnvName} {
		t.Setenv(k, "")
	}
	cfg, err := LoadFrom(nil)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.StorageBackend)
	assert.Equal(t, "./web/store/products.json", cfg.CatalogSource)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.ReloadTemplates)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "REDIS")
	t.Setenv("PAYPAL_SECRET", "shh")

	cfg, err := LoadFrom(nil)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "redis", cfg.StorageBackend)
	assert.Equal(t, "shh", cfg.PayPalSecret)
}

func TestLoadFromFileFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "printstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7070\"\ncatalog_source: https://example.test/products.json\n"), 0o600))

	cfg, err := LoadFrom([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "https://example.test/products.json", cfg.CatalogSource)
}

func TestLoadFromUnknownBackendFallsBack(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "etcd")
	cfg, err := LoadFrom(nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.StorageBackend)
}
