package domain

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10, cfg.Scheduler.MaxConcurrency)
	assert.Equal(t, 2, cfg.Scheduler.MaxReplans)
	assert.Equal(t, []string{"geo", "trail"}, cfg.Scheduler.FallbackRequired)
	assert.Equal(t, 60*time.Second, cfg.Scheduler.SynthesisTimeout)
	assert.Equal(t, 3, cfg.Executor.RetryAttempts)
	assert.Equal(t, ArchiveBackendBadger, cfg.Archive.Backend)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Scheduler.MaxConcurrency = 0 }},
		{"negative replans", func(c *Config) { c.Scheduler.MaxReplans = -1 }},
		{"zero synthesis timeout", func(c *Config) { c.Scheduler.SynthesisTimeout = 0 }},
		{"zero retry attempts", func(c *Config) { c.Executor.RetryAttempts = 0 }},
		{"backoff factor below one", func(c *Config) { c.Executor.BackoffFactor = 0.5 }},
		{"unknown archive backend", func(c *Config) { c.Archive.Backend = "postgres" }},
		{"sqlite without path", func(c *Config) { c.Archive.Backend = ArchiveBackendSQLite }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
scheduler:
  max_concurrency: 4
  max_replans: 1
executor:
  retry_attempts: 2
archive:
  backend: none
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Scheduler.MaxConcurrency)
	assert.Equal(t, 1, cfg.Scheduler.MaxReplans)
	assert.Equal(t, 2, cfg.Executor.RetryAttempts)
	assert.Equal(t, ArchiveBackendNone, cfg.Archive.Backend)
	// untouched fields keep defaults
	assert.Equal(t, 60*time.Second, cfg.Scheduler.SynthesisTimeout)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler: ["), 0o644))

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
