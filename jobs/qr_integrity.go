package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/bago-furniture/bago-inventory/internal/jobs"
	"github.com/bago-furniture/bago-inventory/internal/qrcode"
)

// DefaultIntegrityLimit caps the codes listed by one scan.
const DefaultIntegrityLimit = 100

// OrphanSource lists consumed codes with no product; *qrcode.Service satisfies it.
type OrphanSource interface {
	Orphaned(ctx context.Context, limit int) ([]qrcode.Code, error)
}

// QRIntegrityJob reports QR codes marked used that no product references.
// Scans resolve such codes to a data inconsistency, so each one needs an operator.
type QRIntegrityJob struct {
	Source  OrphanSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewQRIntegrityJob initialises the integrity scan handler.
func NewQRIntegrityJob(source OrphanSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *QRIntegrityJob {
	return &QRIntegrityJob{
		Source:  source,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one scan.
func (j *QRIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil {
		return errors.New("qr integrity: handler not configured")
	}
	var payload QRIntegrityScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("qr integrity: decode payload: %w", asynq.SkipRetry)
		}
	}
	_, err := j.Run(ctx, payload.Limit)
	return err
}

// Run scans up to limit codes and returns the orphans found.
func (j *QRIntegrityJob) Run(ctx context.Context, limit int) (orphans []qrcode.Code, err error) {
	if limit <= 0 {
		limit = DefaultIntegrityLimit
	}
	start := j.now()
	tracker := j.Metrics.Track(TaskQRIntegrityScan)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.Int("limit", limit))
	logger.Info("starting qr integrity scan")

	orphans, err = j.Source.Orphaned(ctx, limit)
	if err != nil {
		logger.Error("qr integrity scan failed", slog.Any("error", err))
		return nil, err
	}
	for _, code := range orphans {
		attrs := []any{slog.String("qr_code", code.Code), slog.Int64("qr_code_id", code.ID)}
		if code.UsedAt != nil {
			attrs = append(attrs, slog.Time("used_at", *code.UsedAt))
		}
		if code.UsedBy != nil {
			attrs = append(attrs, slog.Int64("used_by", *code.UsedBy))
		}
		logger.Warn("qr code consumed without product", attrs...)
	}
	j.Metrics.SetOrphaned(len(orphans))

	logger.Info("completed qr integrity scan",
		slog.Int("orphaned", len(orphans)),
		slog.Bool("truncated", len(orphans) == limit),
		slog.Duration("duration", time.Since(start)),
	)
	return orphans, nil
}

func (j *QRIntegrityJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *QRIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
