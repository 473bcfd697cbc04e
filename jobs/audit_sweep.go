package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/knowflow/permd/internal/audit"
	jobmetrics "github.com/knowflow/permd/internal/jobs"
)

// AuditSweepJob deletes permission audit rows older than the retention
// horizon. Grant rows themselves are never deleted; only the audit
// timeline is trimmed.
type AuditSweepJob struct {
	Audit     *audit.Repository
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Retention time.Duration
	clock     func() time.Time
}

// NewAuditSweepJob wires dependencies for the sweep handler.
func NewAuditSweepJob(auditRepo *audit.Repository, logger *slog.Logger, metrics *jobmetrics.Metrics, retention time.Duration) *AuditSweepJob {
	return &AuditSweepJob{
		Audit:     auditRepo,
		Logger:    logger,
		Metrics:   metrics,
		Retention: retention,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes audit sweep tasks.
func (j *AuditSweepJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Audit == nil {
		return errors.New("audit sweep: handler not configured")
	}
	var payload AuditSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := j.Retention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}

	tracker := j.metrics().Track(TaskAuditSweep)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	cutoff := j.now().Add(-retention)
	deleted, err := j.Audit.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		resultErr = err
		j.logger().Error("audit sweep", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddSwept(TaskAuditSweep, deleted)
	j.logger().Info("completed audit sweep", slog.Int64("deleted", deleted), slog.Time("cutoff", cutoff))
	return resultErr
}

func (j *AuditSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAuditSweep))
	}
	return slog.Default().With(slog.String("job", TaskAuditSweep))
}

func (j *AuditSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AuditSweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
