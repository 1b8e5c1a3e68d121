package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault carries report and cheque jobs.
	QueueDefault = "default"
	// QueueMaintenance carries housekeeping jobs.
	QueueMaintenance = "maintenance"
	// TaskReportsWarmup fills the report cache for a month.
	TaskReportsWarmup = "reports:warmup"
	// TaskChequesDueScan reports pending received cheques coming due.
	TaskChequesDueScan = "cheques:due-scan"
	// TaskIdempotencyCleanup prunes old payment idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// ReportsWarmupPayload names the Jalali month ("YYYY/MM") to warm. Empty means the current month.
type ReportsWarmupPayload struct {
	Month string `json:"month,omitempty"`
}

// ChequesDueScanPayload sets how many days ahead, today included, the scan looks.
type ChequesDueScanPayload struct {
	Days int `json:"days,omitempty"`
}

// IdempotencyCleanupPayload sets how many hours a key is kept. Zero means a week.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours,omitempty"`
}

// NewReportsWarmupTask constructs a warmup task.
func NewReportsWarmupTask(payload ReportsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// NewChequesDueScanTask constructs a cheque scan task.
func NewChequesDueScanTask(payload ChequesDueScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskChequesDueScan, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// NewIdempotencyCleanupTask constructs a key cleanup task.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data, asynq.Queue(QueueMaintenance), asynq.MaxRetry(1)), nil
}
