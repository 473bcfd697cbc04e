package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/knowflow/permd/internal/engine"
	"github.com/knowflow/permd/internal/grants"
	jobmetrics "github.com/knowflow/permd/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// CacheWarmupJob pre-populates permission caches for users whose grants
// changed recently, so the first check after a grant does not pay the
// materialization cost.
type CacheWarmupJob struct {
	Engine  *engine.Service
	Grants  *grants.Repository
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewCacheWarmupJob wires dependencies for the warmup handler.
func NewCacheWarmupJob(engineSvc *engine.Service, grantRepo *grants.Repository, logger *slog.Logger, metrics *jobmetrics.Metrics) *CacheWarmupJob {
	return &CacheWarmupJob{
		Engine:  engineSvc,
		Grants:  grantRepo,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes cache warmup tasks.
func (j *CacheWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Engine == nil || j.Grants == nil {
		return errors.New("cache warmup: handler not configured")
	}
	var payload CacheWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowMinutes <= 0 {
		payload.WindowMinutes = 60
	}
	if payload.MaxUsers <= 0 {
		payload.MaxUsers = 500
	}

	tracker := j.metrics().Track(TaskCacheWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	now := j.now()
	since := now.Add(-time.Duration(payload.WindowMinutes) * time.Minute)

	users, err := j.Grants.RecentlyGrantedUsers(ctx, since, payload.MaxUsers)
	if err != nil {
		resultErr = err
		logger.Error("load warmup users", slog.Any("error", err))
		return resultErr
	}
	if len(users) == 0 {
		logger.Info("no users to warm")
		return resultErr
	}

	warmed := 0
	for _, userID := range users {
		userCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := j.Engine.WarmUp(userCtx, userID)
		cancel()
		if err != nil {
			resultErr = err
			logger.Error("warm user", slog.String("user_id", userID), slog.Any("error", err))
			return resultErr
		}
		warmed++
	}

	logger.Info("completed cache warmup", slog.Int("users", warmed), slog.Duration("duration", time.Since(now)))
	return resultErr
}

func (j *CacheWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCacheWarmup))
	}
	return slog.Default().With(slog.String("job", TaskCacheWarmup))
}

func (j *CacheWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CacheWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
