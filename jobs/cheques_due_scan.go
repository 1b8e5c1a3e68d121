package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/hesabyar/hesabyar/internal/cheques"
	jobmetrics "github.com/hesabyar/hesabyar/internal/jobs"
	"github.com/hesabyar/hesabyar/internal/shared"
)

const defaultDueWindow = 7

// DueCheques lists pending received cheques due in a range.
type DueCheques interface {
	DueBetween(ctx context.Context, r shared.DateRange) ([]cheques.View, error)
}

// ChequesDueScanJob logs pending received cheques falling due soon.
type ChequesDueScanJob struct {
	Cheques DueCheques
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Today   func() shared.Date
}

// Handle processes TaskChequesDueScan tasks.
func (j *ChequesDueScanJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Cheques == nil {
		return errors.New("cheques due scan: handler not configured")
	}
	var payload ChequesDueScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Days <= 0 {
		payload.Days = defaultDueWindow
	}

	tracker := j.metrics().Track(TaskChequesDueScan)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	today := shared.DateOf(time.Now())
	if j.Today != nil {
		today = j.Today()
	}
	last, err := today.AddDays(payload.Days - 1)
	if err != nil {
		return err
	}
	logger := j.logger()
	due, err := j.Cheques.DueBetween(ctx, shared.DateRange{Start: today, End: last})
	if err != nil {
		logger.Error("list due cheques", slog.Any("error", err))
		return err
	}
	j.metrics().SetDue("cheques", len(due))
	for _, c := range due {
		logger.Info("cheque due",
			slog.Int64("cheque_id", c.ID),
			slog.String("number", c.Number),
			slog.String("due_date", c.DueDate.String()),
			slog.String("amount", c.Amount.String()),
			slog.String("invoice", c.Invoice))
	}
	logger.Info("cheque scan completed", slog.Int("due", len(due)), slog.String("until", last.String()))
	return nil
}

func (j *ChequesDueScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskChequesDueScan))
	}
	return slog.Default().With(slog.String("job", TaskChequesDueScan))
}

func (j *ChequesDueScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
