package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, "./data/analogs.db", cfg.Database.Path)
	assert.Equal(t, "./data/uploads", cfg.Uploads.Dir)
	assert.Equal(t, 24*time.Hour, cfg.SessionMaxAge())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
host = "0.0.0.0"
port = 9000

[database]
path = "/tmp/test.db"

[uploads]
dir = "/tmp/uploads"

[sessions]
max_age_hours = 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, "/tmp/uploads", cfg.Uploads.Dir)
	assert.Equal(t, 2*time.Hour, cfg.SessionMaxAge())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestCreateConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	require.NoError(t, CreateConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Database.Path, cfg.Database.Path)

	assert.Error(t, CreateConfigFile(path), "creating an existing config file should fail")
}
