package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, BackendMemory, c.Backend)
	assert.Equal(t, "notes", c.S3.Bucket)
	assert.Equal(t, 3, c.RetryAttempts)
	assert.Equal(t, time.Second, c.RetryBaseDelay)
	assert.Equal(t, time.Hour, c.CacheExpiration)
	assert.Equal(t, 15*time.Minute, c.SweepInterval)
	assert.Equal(t, 64, c.CacheMaxEntries)
	assert.Equal(t, 5*time.Minute, c.ContactCooldown)
	assert.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.Backend = BackendPostgres
	c.DatabaseDSN = ""
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database DSN")
	assert.Contains(t, err.Error(), "session secret")

	c.DatabaseDSN = "postgres://x"
	c.SessionSecret = "s"
	assert.NoError(t, c.Validate())

	c.Backend = "sqlite"
	assert.ErrorContains(t, c.Validate(), `unknown backend "sqlite"`)

	c.Backend = BackendMemory
	c.RetryAttempts = 0
	assert.ErrorContains(t, c.Validate(), "retry attempts")
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	t.Setenv(envFileVar, dir+"/missing.env")
	t.Setenv(envPrefix+"BACKEND", BackendPostgres)
	t.Setenv(envPrefix+"DOWNLOAD_DIR", "/env/downloads")
	t.Setenv(envPrefix+"LOG_FORMAT", "text")

	path := writeTempJSON(t, dir, "cfg.json", map[string]any{
		"download_dir": "/json/downloads",
		"preview_addr": "127.0.0.1:8088",
	})
	os.Args = []string{"notekeeper", "-c", path, "-p", "127.0.0.1:9099"}

	cfg := LoadConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "/json/downloads", cfg.DownloadDir)
	assert.Equal(t, "127.0.0.1:9099", cfg.PreviewAddr)
}
