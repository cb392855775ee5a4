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
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	// A named file that does not exist is an error; only the search-path
	// miss falls back to defaults.
	require.Error(t, err)

	cfg, err = Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "vodarr.db", cfg.Database.DSN)

	assert.Equal(t, "./media/movies", cfg.Storage.MoviesDir)
	assert.Equal(t, "./media/transcoded", cfg.Storage.TranscodedDir)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.Equal(t, 2, cfg.Transcode.MaxConcurrent)
	assert.Equal(t, 2*time.Second, cfg.Transcode.SegmentDuration)
	assert.Equal(t, 30*time.Second, cfg.Transcode.AutoSaveInterval)
	assert.True(t, cfg.Transcode.AutoStart)
	assert.Equal(t, 100, cfg.Transcode.CompletedRetention)

	assert.True(t, cfg.Scanner.WatcherEnabled)
	assert.Empty(t, cfg.Scanner.Schedule)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
storage:
  movies_dir: /library/movies
  series_dir: /library/series
  transcoded_dir: /library/transcoded
transcode:
  max_concurrent: 4
  segment_duration: 4s
scanner:
  schedule: "0 0 3 * * *"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/library/movies", cfg.Storage.MoviesDir)
	assert.Equal(t, 4, cfg.Transcode.MaxConcurrent)
	assert.Equal(t, 4*time.Second, cfg.Transcode.SegmentDuration)
	assert.Equal(t, "0 0 3 * * *", cfg.Scanner.Schedule)

	// Untouched keys keep their defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("VODARR_SERVER_PORT", "7070")
	t.Setenv("VODARR_STORAGE_TRANSCODED_DIR", "/data/transcoded")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/data/transcoded", cfg.Storage.TranscodedDir)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, errMsg: "server.port"},
		{name: "port too high", mutate: func(c *Config) { c.Server.Port = 70000 }, errMsg: "server.port"},
		{name: "bad driver", mutate: func(c *Config) { c.Database.Driver = "oracle" }, errMsg: "database.driver"},
		{name: "empty dsn", mutate: func(c *Config) { c.Database.DSN = "" }, errMsg: "database.dsn"},
		{name: "empty transcoded dir", mutate: func(c *Config) { c.Storage.TranscodedDir = "" }, errMsg: "transcoded_dir"},
		{name: "empty movies dir", mutate: func(c *Config) { c.Storage.MoviesDir = "" }, errMsg: "movies_dir"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, errMsg: "logging.level"},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, errMsg: "logging.format"},
		{name: "zero workers", mutate: func(c *Config) { c.Transcode.MaxConcurrent = 0 }, errMsg: "max_concurrent"},
		{name: "sub-second segments", mutate: func(c *Config) { c.Transcode.SegmentDuration = 500 * time.Millisecond }, errMsg: "segment_duration"},
		{name: "zero retention", mutate: func(c *Config) { c.Transcode.CompletedRetention = 0 }, errMsg: "completed_retention"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestStoragePaths(t *testing.T) {
	s := StorageConfig{TranscodedDir: "/data/transcoded"}
	assert.Equal(t, filepath.Join("/data/transcoded", "queue-state.json"), s.StateFilePath())
	assert.Equal(t, filepath.Join("/data/transcoded", "series"), s.SeriesOutputDir())
}
