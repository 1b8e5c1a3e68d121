package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/hesabyar/hesabyar/internal/jobs"
	"github.com/hesabyar/hesabyar/internal/reports"
	"github.com/hesabyar/hesabyar/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SummaryWarmer is the reporting call the warmup primes.
type SummaryWarmer interface {
	FinancialSummary(ctx context.Context, rng shared.DateRange) (reports.Summary, error)
}

// ReportsWarmupJob pre-populates the financial summary cache for a month and for today.
type ReportsWarmupJob struct {
	Reports SummaryWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Today   func() shared.Date
}

// Handle processes TaskReportsWarmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}
	var payload ReportsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskReportsWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	today := j.today()
	month := today
	if payload.Month != "" {
		d, err := shared.ParseDate(payload.Month + "/01")
		if err != nil {
			return errors.Join(err, asynq.SkipRetry)
		}
		month = d
	}

	logger := j.logger().With(slog.String("month", month.Month()))
	start := time.Now()
	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	ranges := []shared.DateRange{month.MonthRange(), {Start: today, End: today}}
	for _, rng := range ranges {
		if _, err := j.Reports.FinancialSummary(warmCtx, rng); err != nil {
			logger.Error("warm summary", slog.String("start", rng.Start.String()), slog.Any("error", err))
			return err
		}
	}
	logger.Info("reports warmed", slog.Int("ranges", len(ranges)), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *ReportsWarmupJob) today() shared.Date {
	if j.Today != nil {
		return j.Today()
	}
	return shared.DateOf(time.Now())
}

func (j *ReportsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportsWarmup))
}

func (j *ReportsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
