package config

import "time"

// BatchConfig configures the batch orchestrator.
type BatchConfig struct {
	// Worker pool size. 0 means host CPU count.
	MaxWorkers int `yaml:"max_workers" json:"max_workers"`

	// Progress log granularity.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`

	// Per-file processing deadline (duration string, e.g. "300s").
	TimeoutPerFile string `yaml:"timeout_per_file" json:"timeout_per_file"`

	// Per-file retries with linear backoff (1s, 2s, ...).
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts"`

	// Keep going after a file-level failure.
	ContinueOnError bool `yaml:"continue_on_error" json:"continue_on_error"`

	// Roll back the run-scoped work on an uncaught critical failure.
	RollbackOnCritical bool `yaml:"rollback_on_critical" json:"rollback_on_critical"`

	// Glob pattern for input enumeration.
	FilePattern string `yaml:"file_pattern" json:"file_pattern"`
}

// FileTimeout parses TimeoutPerFile, defaulting to 300s.
func (b BatchConfig) FileTimeout() (time.Duration, error) {
	if b.TimeoutPerFile == "" {
		return 300 * time.Second, nil
	}
	return time.ParseDuration(b.TimeoutPerFile)
}
