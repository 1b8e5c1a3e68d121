package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hesabyar/hesabyar/internal/cheques"
	jobmetrics "github.com/hesabyar/hesabyar/internal/jobs"
	"github.com/hesabyar/hesabyar/internal/reports"
	"github.com/hesabyar/hesabyar/internal/shared"
)

type recordingWarmer struct {
	ranges []shared.DateRange
	err    error
}

func (w *recordingWarmer) FinancialSummary(ctx context.Context, rng shared.DateRange) (reports.Summary, error) {
	w.ranges = append(w.ranges, rng)
	return reports.Summary{}, w.err
}

type stubDue struct {
	asked shared.DateRange
	list  []cheques.View
}

func (s *stubDue) DueBetween(ctx context.Context, r shared.DateRange) ([]cheques.View, error) {
	s.asked = r
	return s.list, nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func today() shared.Date { return "1403/06/30" }

func TestReportsWarmup(t *testing.T) {
	warmer := &recordingWarmer{}
	job := &ReportsWarmupJob{Reports: warmer, Logger: quiet(), Metrics: jobmetrics.NewMetrics(prometheus.NewRegistry()), Today: today}

	task, err := NewReportsWarmupTask(ReportsWarmupPayload{})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, warmer.ranges, 2)
	assert.Equal(t, shared.DateRange{Start: "1403/06/01", End: "1403/06/31"}, warmer.ranges[0])
	assert.Equal(t, shared.DateRange{Start: "1403/06/30", End: "1403/06/30"}, warmer.ranges[1])

	warmer.ranges = nil
	task, err = NewReportsWarmupTask(ReportsWarmupPayload{Month: "1403/02"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, shared.Date("1403/02/01"), warmer.ranges[0].Start)

	task, err = NewReportsWarmupTask(ReportsWarmupPayload{Month: "1403/13"})
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)

	warmer.err = errors.New("redis down")
	task, _ = NewReportsWarmupTask(ReportsWarmupPayload{})
	assert.Error(t, job.Handle(context.Background(), task))

	assert.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskReportsWarmup, []byte("{"))), asynq.SkipRetry)
}

func TestChequesDueScan(t *testing.T) {
	due := &stubDue{list: []cheques.View{{Cheque: cheques.Cheque{ID: 4, Number: "778", Amount: decimal.NewFromInt(1000), DueDate: "1403/07/02"}}}}
	job := &ChequesDueScanJob{Cheques: due, Logger: quiet(), Metrics: jobmetrics.NewMetrics(prometheus.NewRegistry()), Today: today}

	task, err := NewChequesDueScanTask(ChequesDueScanPayload{Days: 3})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, shared.DateRange{Start: "1403/06/30", End: "1403/07/01"}, due.asked)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskChequesDueScan, nil)))
	assert.Equal(t, shared.Date("1403/07/05"), due.asked.End, "defaults to a week")

	var unconfigured *ChequesDueScanJob
	assert.Error(t, unconfigured.Handle(context.Background(), task))
}

type stubCleaner struct {
	olderThan time.Duration
	removed   int64
	err       error
}

func (c *stubCleaner) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	c.olderThan = olderThan
	return c.removed, c.err
}

func TestIdempotencyCleanup(t *testing.T) {
	store := &stubCleaner{removed: 12}
	job := &IdempotencyCleanupJob{Store: store, Logger: quiet(), Metrics: jobmetrics.NewMetrics(prometheus.NewRegistry())}

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	assert.Equal(t, 7*24*time.Hour, store.olderThan)

	task, err := NewIdempotencyCleanupTask(IdempotencyCleanupPayload{RetentionHours: 48})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 48*time.Hour, store.olderThan)

	store.err = errors.New("pg down")
	assert.Error(t, job.Handle(context.Background(), task))

	assert.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, []byte("{"))), asynq.SkipRetry)
}

type stubInspector struct {
	queues []string
	info   map[string]*asynq.QueueInfo
	err    error
}

func (s stubInspector) Queues() ([]string, error) { return s.queues, s.err }

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info[queue], nil
}

func healthRequest(inspector QueueInspector) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(inspector, quiet()).MountRoutes)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	return rec
}

func TestHealthReportsQueues(t *testing.T) {
	rec := healthRequest(nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queues":[
		{"queue":"default","pending":0,"active":0,"retry":0,"archived":0},
		{"queue":"maintenance","pending":0,"active":0,"retry":0,"archived":0}]}`, rec.Body.String())

	rec = healthRequest(stubInspector{
		queues: []string{QueueDefault},
		info:   map[string]*asynq.QueueInfo{QueueDefault: {Queue: QueueDefault, Pending: 4, Active: 1, Retry: 2}},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"queues":[
		{"queue":"default","pending":4,"active":1,"retry":2,"archived":0},
		{"queue":"maintenance","pending":0,"active":0,"retry":0,"archived":0}]}`, rec.Body.String())

	rec = healthRequest(stubInspector{err: errors.New("redis down")})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestTaskConstructorsSetTypes(t *testing.T) {
	warmup, err := NewReportsWarmupTask(ReportsWarmupPayload{})
	require.NoError(t, err)
	scan, err := NewChequesDueScanTask(ChequesDueScanPayload{})
	require.NoError(t, err)
	cleanup, err := NewIdempotencyCleanupTask(IdempotencyCleanupPayload{})
	require.NoError(t, err)

	assert.Equal(t, TaskReportsWarmup, warmup.Type())
	assert.Equal(t, TaskChequesDueScan, scan.Type())
	assert.Equal(t, TaskIdempotencyCleanup, cleanup.Type())
}

func TestNewWorkerRegistersJobs(t *testing.T) {
	mr := miniredis.RunT(t)
	queues := map[string]int{QueueDefault: 3, QueueMaintenance: 1}
	store := &stubCleaner{}
	cfg := WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: mr.Addr()},
		Logger:      quiet(),
		Concurrency: 2,
		Queues:      queues,
		Jobs: Handlers{
			IdempotencyCleanup: &IdempotencyCleanupJob{Store: store, Logger: quiet(), Metrics: jobmetrics.NewMetrics(prometheus.NewRegistry())},
		},
		Schedule: DefaultSchedule,
	}

	w, err := NewWorker(cfg)
	require.NoError(t, err)
	require.NotNil(t, w.scheduler)
	require.NoError(t, w.mux.ProcessTask(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	assert.Equal(t, 7*24*time.Hour, store.olderThan)
	assert.Error(t, w.mux.ProcessTask(context.Background(), asynq.NewTask(TaskReportsWarmup, nil)), "unregistered jobs are not served")

	bad := cfg
	bad.Schedule = Schedule{IdempotencyCleanup: "every night"}
	_, err = NewWorker(bad)
	assert.ErrorContains(t, err, TaskIdempotencyCleanup)

	bad = cfg
	bad.Queues = map[string]int{QueueDefault: 1}
	_, err = NewWorker(bad)
	assert.ErrorContains(t, err, QueueMaintenance)

	bad = cfg
	bad.Concurrency = 0
	_, err = NewWorker(bad)
	assert.Error(t, err)
}
