package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/conecta2/conecta2/internal/jobs"
	"github.com/conecta2/conecta2/internal/users"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// UsersMirror stores a full directory snapshot.
type UsersMirror interface {
	ReplaceAll(ctx context.Context, snapshot []users.User) error
}

// UsersAnnouncer tells live screens that the directory changed.
type UsersAnnouncer interface {
	Announce(ctx context.Context, count int) error
}

// UsersSyncJob mirrors the remote directory into storage.
type UsersSyncJob struct {
	Source    users.Source
	Mirror    UsersMirror
	Announcer UsersAnnouncer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Timeout   time.Duration
}

// NewUsersSyncJob wires dependencies for the sync handler.
func NewUsersSyncJob(source users.Source, mirror UsersMirror, announcer UsersAnnouncer, logger *slog.Logger, metrics *jobmetrics.Metrics) *UsersSyncJob {
	return &UsersSyncJob{
		Source:    source,
		Mirror:    mirror,
		Announcer: announcer,
		Logger:    logger,
		Metrics:   metrics,
		Timeout:   time.Minute,
	}
}

// Handle processes users sync tasks. Malformed remote payloads are not
// retried; transport failures are left to the asynq retry policy.
func (j *UsersSyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil || j.Mirror == nil {
		return errors.New("users sync: handler not configured")
	}
	var payload UsersSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskUsersSync)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason))
	start := time.Now()

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	snapshot, err := j.Source.FetchAll(ctx)
	if err != nil {
		resultErr = err
		logger.Error("fetch remote users", slog.Any("error", err))
		if errors.Is(err, users.ErrDecode) {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return resultErr
	}
	if err := j.Mirror.ReplaceAll(ctx, snapshot); err != nil {
		resultErr = err
		logger.Error("mirror users", slog.Any("error", err))
		if errors.Is(err, users.ErrValidation) {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return resultErr
	}
	j.metrics().SetRecords(TaskUsersSync, len(snapshot))

	if j.Announcer != nil {
		if err := j.Announcer.Announce(ctx, len(snapshot)); err != nil {
			logger.Warn("announce users change", slog.Any("error", err))
		}
	}

	logger.Info("completed users sync", slog.Int("users", len(snapshot)), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *UsersSyncJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskUsersSync))
	}
	return slog.Default().With(slog.String("job", TaskUsersSync))
}

func (j *UsersSyncJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
