package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/helmdesk/helmdesk/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionCleanup purges expired sessions.
	TaskSessionCleanup = "session:cleanup"
)

// SessionPurger deletes sessions whose lifetime has passed.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SessionCleanupJob removes expired sessions on a schedule. Expired sessions
// are already rejected at validation time; this only reclaims rows.
type SessionCleanupJob struct {
	Sessions SessionPurger
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewSessionCleanupJob constructs the job handler.
func NewSessionCleanupJob(sessions SessionPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionCleanupJob{Sessions: sessions, Logger: logger, Metrics: metrics}
}

// NewSessionCleanupTask creates the Asynq task registered with the scheduler.
func NewSessionCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskSessionCleanup, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(1))
}

// Handle executes one cleanup pass.
func (j *SessionCleanupJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Sessions == nil {
		return errors.New("session cleanup: dependencies not configured")
	}
	tracker := j.Metrics.Track(TaskSessionCleanup)
	defer func() {
		err = tracker.End(err)
	}()

	n, err := j.Sessions.PurgeExpired(ctx)
	if err != nil {
		j.Logger.Error("purge expired sessions", slog.Any("error", err))
		return err
	}
	j.Metrics.AddPurgedSessions(n)
	j.Logger.Info("purged expired sessions", slog.String("job", TaskSessionCleanup), slog.Int64("count", n))
	return nil
}
