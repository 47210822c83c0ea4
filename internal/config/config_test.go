package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.ViewOnceDwell)
	assert.Equal(t, 24*time.Hour, cfg.SnapDefaultTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.SnapMaxTTL)
	assert.Equal(t, 30, cfg.PageSizeDefault)
	assert.False(t, cfg.Production())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("STORE", "memory")
	t.Setenv("VIEW_ONCE_MAX_DWELL", "3s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, 3*time.Second, cfg.ViewOnceDwell)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: production\npage_size_max: 50\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Production())
	assert.Equal(t, 50, cfg.PageSizeMax)
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	t.Setenv("STORE", "mongo")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsSnapMaxBelowDefault(t *testing.T) {
	t.Setenv("SNAP_MAX_TTL", "1h")
	_, err := Load("")
	assert.Error(t, err)
}
