package tasks

import "time"

// Config tunes the background queue that runs overdue scans and audit
// cleanup.
type Config struct {
	// Workers sets how many tasks may run concurrently.
	Workers int

	// MaxRetries caps retry attempts before a task is marked failed.
	MaxRetries int

	// RetryDelay is the wait between retry attempts.
	RetryDelay time.Duration

	// TaskTimeout bounds a single task execution.
	TaskTimeout time.Duration

	// ReleaseAfter returns a claimed-but-stalled task to the queue.
	ReleaseAfter time.Duration

	// CleanupInterval is how often completed rows are pruned.
	CleanupInterval time.Duration

	// RetentionDuration is how long completed rows stay queryable,
	// mostly for the task status endpoint.
	RetentionDuration time.Duration
}

// DefaultConfig returns the queue settings used when the operator
// configures nothing. Two workers are plenty for the scheduled jobs this
// service runs.
func DefaultConfig() Config {
	return Config{
		Workers:           2,
		MaxRetries:        3,
		RetryDelay:        1 * time.Minute,
		TaskTimeout:       5 * time.Minute,
		ReleaseAfter:      15 * time.Minute,
		CleanupInterval:   1 * time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}
