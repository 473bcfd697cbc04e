package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCacheWarmup re-materializes effective permission sets for
	// recently touched users.
	TaskCacheWarmup = "perm:cache_warmup"
	// TaskAuditSweep removes audit rows past the retention horizon.
	TaskAuditSweep = "perm:audit_sweep"
)

// CacheWarmupPayload tunes a warmup run.
type CacheWarmupPayload struct {
	// WindowMinutes bounds how far back to look for touched users.
	WindowMinutes int `json:"window_minutes"`
	// MaxUsers caps the number of users warmed per run.
	MaxUsers int `json:"max_users"`
}

// NewCacheWarmupTask constructs an Asynq task.
func NewCacheWarmupTask(payload CacheWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheWarmup, data), nil
}

// AuditSweepPayload tunes a retention sweep run.
type AuditSweepPayload struct {
	// RetentionHours overrides the configured retention when positive.
	RetentionHours int `json:"retention_hours"`
}

// NewAuditSweepTask constructs an Asynq task.
func NewAuditSweepTask(payload AuditSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditSweep, data), nil
}
