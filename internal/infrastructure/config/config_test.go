package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "app:\n  http_port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.App.HTTPPort)
	assert.Equal(t, 24*time.Hour, cfg.Activity.TTL)
	assert.Equal(t, 180, cfg.Activity.WindowDays)
	assert.Equal(t, 60*time.Second, cfg.Activity.UpstreamLimit)
	assert.Equal(t, BackendPostgres, cfg.Edges.Backend)
	assert.Equal(t, int32(4), cfg.Postgres.MaxConns)
	assert.Equal(t, "0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e", cfg.Ethereum.RegistryAddress)
	assert.Contains(t, cfg.Profile.TextKeys, "com.twitter")
	assert.True(t, cfg.UsesPostgres())
}

func TestLoadFile_EnvOverride(t *testing.T) {
	t.Setenv("ACTIVITY_TTL", "1h")
	t.Setenv("EDGES_BACKEND", "neo4j")
	t.Setenv("ETHERSCAN_API_KEY", "secret")

	cfg, err := LoadFile(writeConfig(t, "activity:\n  cache_backend: redis\n"))
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.Activity.TTL)
	assert.Equal(t, BackendNeo4J, cfg.Edges.Backend)
	assert.Equal(t, BackendRedis, cfg.Activity.CacheBackend)
	assert.Equal(t, "secret", cfg.Explorer.APIKey)
	assert.False(t, cfg.UsesPostgres())
}

func TestLoadFile_RejectsUnknownBackend(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "edges:\n  backend: sqlite\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "edges.backend")
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
