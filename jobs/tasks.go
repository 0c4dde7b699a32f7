package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/bago-furniture/bago-inventory/internal/activity"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueCritical carries activity retries ahead of scheduled scans.
	QueueCritical = "critical"

	// TaskActivityRecord persists an activity entry whose synchronous write failed.
	TaskActivityRecord = "activity:record"
	// TaskQRIntegrityScan looks for consumed QR codes with no bound product.
	TaskQRIntegrityScan = "qr:integrity_scan"
)

// ActivityRecordPayload carries the entry exactly as the API tried to write it.
type ActivityRecordPayload struct {
	Entry activity.Entry `json:"entry"`
}

// QRIntegrityScanPayload bounds the number of codes reported per run.
type QRIntegrityScanPayload struct {
	Limit int `json:"limit"`
}

// NewActivityRecordTask constructs an Asynq task retrying entry.
func NewActivityRecordTask(entry activity.Entry) (*asynq.Task, error) {
	data, err := json.Marshal(ActivityRecordPayload{Entry: entry})
	if err != nil {
		return nil, fmt.Errorf("jobs: encode activity payload: %w", err)
	}
	return asynq.NewTask(TaskActivityRecord, data, asynq.Queue(QueueCritical), asynq.MaxRetry(10)), nil
}

// NewQRIntegrityScanTask constructs the scheduled integrity scan task.
func NewQRIntegrityScanTask(limit int) (*asynq.Task, error) {
	data, err := json.Marshal(QRIntegrityScanPayload{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("jobs: encode integrity payload: %w", err)
	}
	return asynq.NewTask(TaskQRIntegrityScan, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}
