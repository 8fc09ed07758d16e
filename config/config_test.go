package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempo/leave-engine/config"
)

func TestLoad_MissingFile_ReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "leave.db", cfg.DBPath)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout.Std())
	assert.False(t, cfg.SeedDemoData)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"port: 9000\ndb_path: \"/tmp/test.db\"\nread_timeout: 5s\nseed_demo_data: true\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout.Std())
	assert.True(t, cfg.SeedDemoData)
	// Untouched keys keep their defaults.
	assert.Equal(t, 15*time.Second, cfg.WriteTimeout.Std())
}

func TestLoad_InvalidPort_Rejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: -1\n"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_Garbage_Rejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not a number\n"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}
