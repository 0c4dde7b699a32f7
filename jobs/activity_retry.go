package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/bago-furniture/bago-inventory/internal/activity"
	jobmetrics "github.com/bago-furniture/bago-inventory/internal/jobs"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// ActivityPersister writes an entry and reports failure; *activity.Recorder satisfies it.
type ActivityPersister interface {
	Persist(ctx context.Context, entry activity.Entry) error
}

// ActivityRetryJob drains entries the API could not write synchronously.
type ActivityRetryJob struct {
	Persister ActivityPersister
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewActivityRetryJob initialises the retry handler.
func NewActivityRetryJob(persister ActivityPersister, logger *slog.Logger, metrics *jobmetrics.Metrics) *ActivityRetryJob {
	return &ActivityRetryJob{Persister: persister, Logger: logger, Metrics: metrics}
}

// Handle persists the entry carried by t. Malformed payloads and entries that fail
// validation are dropped; storage errors are returned so asynq retries them.
func (j *ActivityRetryJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Persister == nil {
		return errors.New("activity retry: handler not configured")
	}
	tracker := j.Metrics.Track(TaskActivityRecord)
	defer func() {
		err = tracker.End(err)
	}()

	var payload ActivityRecordPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.logger().Error("activity retry payload rejected", slog.Any("error", err))
		return fmt.Errorf("activity retry: decode payload: %w", asynq.SkipRetry)
	}
	entry := payload.Entry
	logger := j.logger().With(
		slog.String("action", string(entry.Action)),
		slog.String("table", entry.TableName),
		slog.String("record_id", entry.RecordID),
	)

	if err := j.Persister.Persist(ctx, entry); err != nil {
		if errors.Is(err, shared.ErrValidation) {
			logger.Error("activity retry dropped invalid entry", slog.Any("error", err))
			return fmt.Errorf("activity retry: %v: %w", err, asynq.SkipRetry)
		}
		logger.Warn("activity retry failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddRetried(string(entry.Action))
	logger.Info("activity entry persisted on retry")
	return nil
}

func (j *ActivityRetryJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
