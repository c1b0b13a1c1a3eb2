package domain

import (
	"fmt"
	"log/slog"
	"time"
)

// Config is the top-level engine configuration.
type Config struct {
	DataDir   string          `json:"data_dir" yaml:"data_dir"`
	Logger    *slog.Logger    `json:"-" yaml:"-"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	Executor  ExecutorConfig  `json:"executor" yaml:"executor"`
	Review    ReviewConfig    `json:"review" yaml:"review"`
	Archive   ArchiveConfig   `json:"archive" yaml:"archive"`
}

type SchedulerConfig struct {
	MaxConcurrency   int                  `json:"max_concurrency" yaml:"max_concurrency"`
	MaxReplans       int                  `json:"max_replans" yaml:"max_replans"`
	FallbackRequired []string             `json:"fallback_required" yaml:"fallback_required"`
	SynthesisTimeout time.Duration        `json:"synthesis_timeout" yaml:"synthesis_timeout"`
	EarlySynthesis   EarlySynthesisConfig `json:"early_synthesis" yaml:"early_synthesis"`
}

// EarlySynthesisConfig controls the shortcut that skips remaining
// non-core workers once the core set has delivered.
type EarlySynthesisConfig struct {
	Enabled          bool     `json:"enabled" yaml:"enabled"`
	CoreWorkers      []string `json:"core_workers" yaml:"core_workers"`
	MinCoreCompleted int      `json:"min_core_completed" yaml:"min_core_completed"`
}

type ExecutorConfig struct {
	DefaultTimeout time.Duration `json:"default_timeout" yaml:"default_timeout"`
	RetryAttempts  int           `json:"retry_attempts" yaml:"retry_attempts"`
	RetryBackoff   time.Duration `json:"retry_backoff" yaml:"retry_backoff"`
	BackoffFactor  float64       `json:"backoff_factor" yaml:"backoff_factor"`
}

type ReviewConfig struct {
	Enabled      bool `json:"enabled" yaml:"enabled"`
	AlwaysReview bool `json:"always_review" yaml:"always_review"`
}

type ArchiveConfig struct {
	Backend    string `json:"backend" yaml:"backend"`
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path"`
}

const (
	ArchiveBackendBadger = "badger"
	ArchiveBackendSQLite = "sqlite"
	ArchiveBackendNone   = "none"
)

func (c *Config) Validate() error {
	if c.Scheduler.MaxConcurrency < 1 {
		return fmt.Errorf("%w: scheduler max_concurrency must be at least 1", ErrInvalidConfig)
	}
	if c.Scheduler.MaxReplans < 0 {
		return fmt.Errorf("%w: scheduler max_replans cannot be negative", ErrInvalidConfig)
	}
	if c.Scheduler.SynthesisTimeout <= 0 {
		return fmt.Errorf("%w: scheduler synthesis_timeout must be positive", ErrInvalidConfig)
	}
	if c.Executor.RetryAttempts < 1 {
		return fmt.Errorf("%w: executor retry_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.Executor.BackoffFactor < 1 {
		return fmt.Errorf("%w: executor backoff_factor must be at least 1", ErrInvalidConfig)
	}
	switch c.Archive.Backend {
	case ArchiveBackendBadger, ArchiveBackendNone:
	case ArchiveBackendSQLite:
		if c.Archive.SQLitePath == "" {
			return fmt.Errorf("%w: archive sqlite_path required for sqlite backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown archive backend %q", ErrInvalidConfig, c.Archive.Backend)
	}
	return nil
}
