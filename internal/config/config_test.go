package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadServer("")
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Listen)
	assert.Equal(t, ":5001", cfg.GRPCListen)
	assert.True(t, cfg.EnableSwagger)
	assert.True(t, cfg.EnableMetrics)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "pcs.db", cfg.Database.DSN)
	assert.True(t, cfg.Features.Delete)
	assert.True(t, cfg.Features.Tags)
}

func TestLoadServerFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hwdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":8080"
database:
  driver: postgres
  dsn: postgres://hwdb@localhost/hwdb
features:
  delete: false
`), 0o600))
	t.Setenv("HWDB_FEATURES_TAGS", "false")
	t.Setenv("HWDB_GRPC_LISTEN", "")

	cfg, err := LoadServer(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://hwdb@localhost/hwdb", cfg.Database.DSN)
	assert.False(t, cfg.Features.Delete)
	assert.False(t, cfg.Features.Tags)
	assert.Empty(t, cfg.GRPCListen)
}

func TestLoadServerRejectsUnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HWDB_DATABASE_DRIVER", "mysql")

	_, err := LoadServer("")
	assert.Error(t, err)
}

func TestLoadServerMissingExplicitFile(t *testing.T) {
	_, err := LoadServer(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadProbeDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadProbe("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.Server)
	assert.Equal(t, "http", cfg.Transport)
	assert.Equal(t, 300*time.Second, cfg.WaitTimeout)
	assert.Equal(t, time.Second, cfg.WaitInterval)
	assert.Equal(t, 10*time.Second, cfg.UploadTimeout)
}

func TestLoadProbeEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HWPROBE_SERVER", "http://inventory.lan:5000")
	t.Setenv("HWPROBE_TRANSPORT", "grpc")
	t.Setenv("HWPROBE_WAIT_TIMEOUT", "5s")

	cfg, err := LoadProbe("")
	require.NoError(t, err)

	assert.Equal(t, "http://inventory.lan:5000", cfg.Server)
	assert.Equal(t, "grpc", cfg.Transport)
	assert.Equal(t, 5*time.Second, cfg.WaitTimeout)

	t.Setenv("HWPROBE_TRANSPORT", "carrier-pigeon")
	_, err = LoadProbe("")
	assert.Error(t, err)
}
