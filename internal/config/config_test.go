package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KomuDhara/nocturne-memory/internal/config"
)

func TestLoad_DefaultHostIsLocalhost(t *testing.T) {
	_ = os.Unsetenv("NOCTURNE_HOST")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host,
		"Default host must be 127.0.0.1 for security")
	assert.Equal(t, "127.0.0.1:8000", cfg.Addr())
}

func TestLoad_CanOverrideHost(t *testing.T) {
	t.Setenv("NOCTURNE_HOST", "0.0.0.0")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoad_Neo4jDefaults(t *testing.T) {
	_ = os.Unsetenv("NOCTURNE_NEO4J_URI")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, "neo4j", cfg.Neo4j.Username)
	assert.Equal(t, "", cfg.Neo4j.Database)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NOCTURNE_NEO4J_URI", "bolt://graph.internal:7687")
	t.Setenv("NOCTURNE_PORT", "9100")
	t.Setenv("NOCTURNE_RATE_LIMIT", "12.5")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "bolt://graph.internal:7687", cfg.Neo4j.URI)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 12.5, cfg.Server.RateLimit)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("NOCTURNE_PORT", "not-a-number")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoad_RejectsInvalidPort(t *testing.T) {
	t.Setenv("NOCTURNE_PORT", "70000")
	_, err := config.Load()
	require.Error(t, err)
}

func TestLoad_ConfigFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nocturne.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9200
neo4j:
  password: from-file
journal:
  path: /tmp/journal-test.db
`), 0o644))

	t.Setenv("NOCTURNE_CONFIG_FILE", path)
	t.Setenv("NOCTURNE_NEO4J_USERNAME", "envuser")

	cfg, err := config.Load()
	require.NoError(t, err)
	// File values win where present.
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "from-file", cfg.Neo4j.Password)
	assert.Equal(t, "/tmp/journal-test.db", cfg.Journal.Path)
	// Env values survive for fields the file omits.
	assert.Equal(t, "envuser", cfg.Neo4j.Username)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("NOCTURNE_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := config.Load()
	require.Error(t, err)
}
