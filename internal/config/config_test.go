package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Crontab.Sleep)
	assert.Equal(t, 60*time.Second, cfg.Crontab.SleepDuration())
	assert.Equal(t, float64(32), cfg.Crontab.Memory)
	assert.Equal(t, "crontab", cfg.Crontab.Table)
	assert.Equal(t, 3*time.Second, cfg.Crontab.BackoffDuration())
	assert.Equal(t, "app", cfg.Crontab.Namespace)
	assert.Equal(t, "crontab:restart", cfg.Crontab.RestartKey)
	assert.Equal(t, time.Hour, cfg.Crontab.RestartTTL)
	assert.Equal(t, "crontab.db", cfg.Database.Path)
	assert.Equal(t, MarkerSQLite, cfg.Marker.Backend)
	assert.False(t, cfg.NATS.Enabled())
	assert.Equal(t, "crontab.result", cfg.NATS.ResultSubject)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestNewReadsFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crontab.yaml")
	err := os.WriteFile(path, []byte(`
crontab:
  sleep: 30
  table: jobs
  restart_ttl: 30m
database:
  path: /var/lib/crontab/jobs.db
`), 0o644)
	require.NoError(t, err)

	t.Setenv("CRONTAB_CRONTAB_MEMORY", "64")
	t.Setenv("CRONTAB_LOG_LEVEL", "debug")

	v, err := New(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Crontab.Sleep)
	assert.Equal(t, "jobs", cfg.Crontab.Table)
	assert.Equal(t, 30*time.Minute, cfg.Crontab.RestartTTL)
	assert.Equal(t, "/var/lib/crontab/jobs.db", cfg.Database.Path)
	assert.Equal(t, float64(64), cfg.Crontab.Memory)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Crontab.Backoff)
}

func TestNewMissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	// Without an explicit path the search is optional.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	v, err := New("")
	require.NoError(t, err)
	assert.Equal(t, 60, v.GetInt("crontab.sleep"))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		v := viper.New()
		SetDefaults(v)
		cfg, err := Load(v)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"Sleep Below Minimum", func(c *Config) { c.Crontab.Sleep = 2 }},
		{"Zero Memory", func(c *Config) { c.Crontab.Memory = 0 }},
		{"Zero Backoff", func(c *Config) { c.Crontab.Backoff = 0 }},
		{"Bad Table", func(c *Config) { c.Crontab.Table = "jobs; DROP TABLE jobs" }},
		{"Empty Restart Key", func(c *Config) { c.Crontab.RestartKey = "" }},
		{"Empty Database", func(c *Config) { c.Database.Path = "" }},
		{"Unknown Marker", func(c *Config) { c.Marker.Backend = "redis" }},
		{"NATS Marker Without URL", func(c *Config) { c.Marker.Backend = MarkerNATS }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("NATS Marker", func(t *testing.T) {
		cfg := valid()
		cfg.Marker.Backend = MarkerNATS
		cfg.NATS.URL = "nats://127.0.0.1:4222"
		assert.NoError(t, cfg.Validate())
	})
}
