package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverridesDatabase(t *testing.T) {
	t.Setenv("TICKETFLOW_DB_SERVER", "nas01")
	t.Setenv("TICKETFLOW_DB_NAME", "tickets")
	t.Setenv("TICKETFLOW_DB_USERNAME", "svc")
	t.Setenv("TICKETFLOW_DB_PASSWORD", "secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "nas01", cfg.Database.Server)
	assert.Equal(t, "tickets", cfg.Database.Name)
	assert.Equal(t, "svc", cfg.Database.Username)
	assert.Equal(t, "secret", cfg.Database.Password)
}

func TestEnvOverrideDBURLWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticketflow.yaml")
	cfg := DefaultConfig()
	cfg.Database.URL = "file:from-file.db"
	require.NoError(t, cfg.Save(path))

	t.Setenv("TICKETFLOW_DB_URL", "file:from-env.db")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file:from-env.db", loaded.Database.URL)

	dsn, err := loaded.Database.DSN()
	require.NoError(t, err)
	assert.Equal(t, "file:from-env.db", dsn)
}

func TestEnvOverrideDBPath(t *testing.T) {
	t.Setenv("TICKETFLOW_DB_PATH", "/tmp/alt.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/alt.db", cfg.Database.Path)
}
