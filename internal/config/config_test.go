package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "crawlscope/1.0", cfg.Crawler.UserAgent)
	require.Equal(t, 10, cfg.Crawler.MaxPages)
	require.Equal(t, 3, cfg.Fetch.MaxAttempts)
	require.Equal(t, 2.0, cfg.Probe.JSRatio)
	require.Equal(t, "sqlite", cfg.Database.Provider)
	require.Equal(t, "memory", cfg.Storage.Provider)
	require.True(t, cfg.Logging.Development)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 9090
crawler:
  user_agent: crawlscope-ci/1.0
  max_pages: 5
probe:
  js_ratio: 1.5
database:
  provider: memory
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "crawlscope-ci/1.0", cfg.Crawler.UserAgent)
	require.Equal(t, 5, cfg.Crawler.MaxPages)
	require.Equal(t, 1.5, cfg.Probe.JSRatio)
	require.Equal(t, "memory", cfg.Database.Provider)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	cfg := base
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	cfg = base
	cfg.Database.Provider = "oracle"
	require.Error(t, cfg.Validate())

	cfg = base
	cfg.Database.Provider = "postgres"
	cfg.Database.DSN = ""
	require.Error(t, cfg.Validate())

	cfg = base
	cfg.Storage.Provider = "gcs"
	cfg.Storage.GCSBucket = ""
	require.Error(t, cfg.Validate())

	cfg = base
	cfg.Publisher.Provider = "pubsub"
	require.Error(t, cfg.Validate())

	cfg = base
	cfg.Probe.JSRatio = 0
	require.Error(t, cfg.Validate())
}
