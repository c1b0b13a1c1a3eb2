package domain

import "time"

func DefaultConfig() Config {
	return Config{
		Scheduler: DefaultSchedulerConfig(),
		Executor:  DefaultExecutorConfig(),
		Review:    DefaultReviewConfig(),
		Archive:   DefaultArchiveConfig(),
	}
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrency:   10,
		MaxReplans:       2,
		FallbackRequired: []string{"geo", "trail"},
		SynthesisTimeout: 60 * time.Second,
		EarlySynthesis:   DefaultEarlySynthesisConfig(),
	}
}

func DefaultEarlySynthesisConfig() EarlySynthesisConfig {
	return EarlySynthesisConfig{
		Enabled:          true,
		CoreWorkers:      []string{"geo", "trail"},
		MinCoreCompleted: 2,
	}
}

func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		DefaultTimeout: 30 * time.Second,
		RetryAttempts:  3,
		RetryBackoff:   time.Second,
		BackoffFactor:  2.0,
	}
}

func DefaultReviewConfig() ReviewConfig {
	return ReviewConfig{
		Enabled: true,
	}
}

func DefaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Backend: ArchiveBackendBadger,
	}
}
