package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/bago-furniture/bago-inventory/internal/activity"
	jobmetrics "github.com/bago-furniture/bago-inventory/internal/jobs"
	"github.com/bago-furniture/bago-inventory/internal/qrcode"
	"github.com/bago-furniture/bago-inventory/internal/rbac"
	"github.com/bago-furniture/bago-inventory/internal/shared"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memoryPersister struct {
	err     error
	entries []activity.Entry
}

func (m *memoryPersister) Persist(ctx context.Context, entry activity.Entry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

type memoryOrphans struct {
	codes  []qrcode.Code
	err    error
	limits []int
}

func (m *memoryOrphans) Orphaned(ctx context.Context, limit int) ([]qrcode.Code, error) {
	m.limits = append(m.limits, limit)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.codes) > limit {
		return m.codes[:limit], nil
	}
	return m.codes, nil
}

func sampleEntry() activity.Entry {
	return activity.Entry{
		UserID:    7,
		Action:    activity.ActionScanQR,
		TableName: activity.TableQRCodes,
		RecordID:  "BAGO000042",
		NewData:   json.RawMessage(`{"state":"available"}`),
		CreatedAt: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestActivityRecordTaskRoundTrip(t *testing.T) {
	task, err := NewActivityRecordTask(sampleEntry())
	require.NoError(t, err)
	require.Equal(t, TaskActivityRecord, task.Type())

	persister := &memoryPersister{}
	job := NewActivityRetryJob(persister, quietLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, persister.entries, 1)
	require.Equal(t, "BAGO000042", persister.entries[0].RecordID)
	require.Equal(t, int64(7), persister.entries[0].UserID)
	require.JSONEq(t, `{"state":"available"}`, string(persister.entries[0].NewData))
}

func TestActivityRetrySkipsInvalidEntries(t *testing.T) {
	persister := &memoryPersister{err: shared.Validationf("unknown activity action %q", "NOPE")}
	job := NewActivityRetryJob(persister, quietLogger(), nil)

	task, err := NewActivityRecordTask(sampleEntry())
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskActivityRecord, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestActivityRetryReturnsStorageErrors(t *testing.T) {
	boom := errors.New("connection refused")
	job := NewActivityRetryJob(&memoryPersister{err: boom}, quietLogger(), nil)

	task, err := NewActivityRecordTask(sampleEntry())
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

type failingWriter struct{ err error }

func (f failingWriter) Insert(ctx context.Context, entry activity.Entry) error { return f.err }

func TestActivityRetrySkipsMissingReferences(t *testing.T) {
	recorder := activity.NewRecorder(failingWriter{err: &pgconn.PgError{Code: "23503"}}, nil, nil, quietLogger())
	job := NewActivityRetryJob(recorder, quietLogger(), nil)

	task, err := NewActivityRecordTask(sampleEntry())
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestQRIntegrityJobReportsOrphans(t *testing.T) {
	usedAt := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	source := &memoryOrphans{codes: []qrcode.Code{
		{ID: 3, Code: "BAGO000003", IsUsed: true, UsedAt: &usedAt},
		{ID: 9, Code: "BAGO000009", IsUsed: true},
	}}
	job := NewQRIntegrityJob(source, quietLogger(), jobmetrics.NewMetrics(prometheus.NewRegistry()))

	orphans, err := job.Run(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, []string{"BAGO000003", "BAGO000009"}, qrcode.Codes(orphans))
	require.Equal(t, []int{DefaultIntegrityLimit}, source.limits)

	task, err := NewQRIntegrityScanTask(1)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, source.limits[1])
}

func TestQRIntegrityJobPropagatesFailure(t *testing.T) {
	boom := errors.New("timeout")
	job := NewQRIntegrityJob(&memoryOrphans{err: boom}, quietLogger(), nil)

	_, err := job.Run(context.Background(), 10)
	require.ErrorIs(t, err, boom)
}

func TestClientEnqueuesActivityOnCriticalQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.EnqueueActivity(context.Background(), sampleEntry()))

	pending, err := mr.List("asynq:{" + QueueCritical + "}:pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

type stubInspector struct {
	infos map[string]*asynq.QueueInfo
	err   error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	info, ok := s.infos[queue]
	if !ok {
		return nil, asynq.ErrQueueNotFound
	}
	return info, nil
}

func TestHealthReportsQueues(t *testing.T) {
	h := NewHandler(stubInspector{infos: map[string]*asynq.QueueInfo{
		QueueCritical: {Queue: QueueCritical, Pending: 2, Retry: 1},
	}}, quietLogger(), rbac.Middleware{})

	rec := httptest.NewRecorder()
	h.health(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool          `json:"success"`
		Data    []QueueHealth `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.True(t, body.Success)
	require.Equal(t, []QueueHealth{
		{Queue: QueueCritical, Pending: 2, Retry: 1},
		{Queue: QueueDefault},
	}, body.Data)
}

func TestHealthUnavailable(t *testing.T) {
	h := NewHandler(stubInspector{err: errors.New("redis down")}, quietLogger(), rbac.Middleware{})

	rec := httptest.NewRecorder()
	h.health(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
