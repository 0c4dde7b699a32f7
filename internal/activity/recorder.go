package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bago-furniture/bago-inventory/internal/platform/db"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// Writer persists entries.
type Writer interface {
	Insert(ctx context.Context, entry Entry) error
}

// RetryQueue hands failed entries to the background worker.
type RetryQueue interface {
	EnqueueActivity(ctx context.Context, entry Entry) error
}

// FailureCounter counts entries that could not be written synchronously.
type FailureCounter interface {
	ActivityWriteFailed(action string)
}

// Recorder writes activity entries without ever failing the caller.
type Recorder struct {
	writer  Writer
	queue   RetryQueue
	metrics FailureCounter
	logger  *slog.Logger
	now     func() time.Time
}

// NewRecorder constructs a Recorder. queue and metrics may be nil.
func NewRecorder(writer Writer, queue RetryQueue, metrics FailureCounter, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{writer: writer, queue: queue, metrics: metrics, logger: logger, now: time.Now}
}

// Record stores entry. Actor, IP and user agent default to the request in ctx.
// A failed write is logged, counted and queued for retry; it never reaches the caller.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil {
		return
	}
	entry = r.complete(ctx, entry)
	// The business operation already committed; a cancelled request must not drop its trail.
	writeCtx := context.WithoutCancel(ctx)

	err := r.Persist(writeCtx, entry)
	if err == nil {
		return
	}
	r.logger.ErrorContext(ctx, "activity write failed",
		slog.String("action", string(entry.Action)),
		slog.String("table", entry.TableName),
		slog.String("record_id", entry.RecordID),
		slog.Any("error", err),
	)
	if r.metrics != nil {
		r.metrics.ActivityWriteFailed(string(entry.Action))
	}
	if r.queue == nil || errors.Is(err, shared.ErrValidation) {
		return
	}
	if qerr := r.queue.EnqueueActivity(writeCtx, entry); qerr != nil {
		r.logger.ErrorContext(ctx, "activity retry enqueue failed",
			slog.String("action", string(entry.Action)),
			slog.String("record_id", entry.RecordID),
			slog.Any("error", qerr),
		)
	}
}

// Persist validates and writes entry, returning the failure. The retry worker calls it directly.
// Failures that another attempt cannot fix are reported as ErrValidation.
func (r *Recorder) Persist(ctx context.Context, entry Entry) error {
	if !entry.Action.Valid() {
		return shared.Validationf("unknown activity action %q", entry.Action)
	}
	if entry.TableName == "" {
		return shared.Validationf("activity %s requires a table name", entry.Action)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}
	if err := r.writer.Insert(ctx, entry); err != nil {
		if db.IsForeignKeyViolation(err) {
			return &shared.Error{Kind: shared.ErrValidation, Message: "activity entry references a missing row", Err: err}
		}
		return fmt.Errorf("activity: insert: %w", err)
	}
	return nil
}

func (r *Recorder) complete(ctx context.Context, entry Entry) Entry {
	if entry.UserID == 0 {
		entry.UserID = shared.ActorID(ctx)
	}
	meta := shared.RequestMetaFromContext(ctx)
	if entry.IPAddress == "" {
		entry.IPAddress = meta.IP
	}
	if entry.UserAgent == "" {
		entry.UserAgent = meta.UserAgent
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}
	return entry
}
