package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/hesabyar/hesabyar/internal/platform/httpx"
)

// Handlers are the jobs a worker runs. A nil job is neither served nor scheduled.
type Handlers struct {
	ReportsWarmup      *ReportsWarmupJob
	ChequesDueScan     *ChequesDueScanJob
	IdempotencyCleanup *IdempotencyCleanupJob
}

// Schedule holds one cron spec per job. An empty spec leaves the job unscheduled.
type Schedule struct {
	ReportsWarmup      string
	ChequesDueScan     string
	IdempotencyCleanup string
}

// DefaultSchedule warms reports after midnight, scans cheques in the
// morning and prunes idempotency keys at night.
var DefaultSchedule = Schedule{
	ReportsWarmup:      "15 1 * * *",
	ChequesDueScan:     "0 8 * * *",
	IdempotencyCleanup: "30 3 * * *",
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	// Queues maps queue names to priority weights. Both QueueDefault and
	// QueueMaintenance need a positive weight.
	Queues   map[string]int
	Jobs     Handlers
	Schedule Schedule
	// Location interprets cron specs; UTC when nil.
	Location *time.Location
}

// Worker wraps the Asynq server and its scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

type registration struct {
	taskType string
	handle   asynq.HandlerFunc
	spec     string
	task     func() (*asynq.Task, error)
}

func (h Handlers) registrations(s Schedule) []registration {
	var out []registration
	if h.ReportsWarmup != nil {
		out = append(out, registration{TaskReportsWarmup, h.ReportsWarmup.Handle, s.ReportsWarmup, func() (*asynq.Task, error) {
			return NewReportsWarmupTask(ReportsWarmupPayload{})
		}})
	}
	if h.ChequesDueScan != nil {
		out = append(out, registration{TaskChequesDueScan, h.ChequesDueScan.Handle, s.ChequesDueScan, func() (*asynq.Task, error) {
			return NewChequesDueScanTask(ChequesDueScanPayload{})
		}})
	}
	if h.IdempotencyCleanup != nil {
		out = append(out, registration{TaskIdempotencyCleanup, h.IdempotencyCleanup.Handle, s.IdempotencyCleanup, func() (*asynq.Task, error) {
			return NewIdempotencyCleanupTask(IdempotencyCleanupPayload{})
		}})
	}
	return out
}

// NewWorker registers every configured job and its cron schedule.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("worker: concurrency must be positive, got %d", cfg.Concurrency)
	}
	for _, q := range []string{QueueDefault, QueueMaintenance} {
		if cfg.Queues[q] <= 0 {
			return nil, fmt.Errorf("worker: queue %q needs a positive weight", q)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	mux := asynq.NewServeMux()
	var scheduler *asynq.Scheduler
	for _, reg := range cfg.Jobs.registrations(cfg.Schedule) {
		mux.HandleFunc(reg.taskType, reg.handle)
		if reg.spec == "" {
			continue
		}
		if scheduler == nil {
			scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: loc})
		}
		task, err := reg.task()
		if err != nil {
			return nil, fmt.Errorf("worker: build %s task: %w", reg.taskType, err)
		}
		if _, err := scheduler.Register(reg.spec, task); err != nil {
			return nil, fmt.Errorf("worker: schedule %s: %w", reg.taskType, err)
		}
	}

	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      cfg.Queues,
	})
	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
		defer w.scheduler.Shutdown()
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	w.logger.Info("worker started")
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueReportsWarmup enqueues a warmup, collapsing duplicates queued within a minute.
func (c *Client) EnqueueReportsWarmup(ctx context.Context, payload ReportsWarmupPayload) (*asynq.TaskInfo, error) {
	task, err := NewReportsWarmupTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Unique(time.Minute))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// QueueInspector reads queue statistics; *asynq.Inspector satisfies it.
type QueueInspector interface {
	Queues() ([]string, error)
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector QueueInspector
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints. A nil inspector
// reports empty queues.
func NewHandler(inspector QueueInspector, logger *slog.Logger) *Handler {
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

type queueHealth struct {
	Queue    string `json:"queue"`
	Pending  int    `json:"pending"`
	Active   int    `json:"active"`
	Retry    int    `json:"retry"`
	Archived int    `json:"archived"`
}

type healthResponse struct {
	Queues []queueHealth `json:"queues"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Queues: []queueHealth{}}
	known := map[string]bool{}
	if h.inspector != nil {
		names, err := h.inspector.Queues()
		if err != nil {
			h.unavailable(w, "", err)
			return
		}
		for _, name := range names {
			known[name] = true
		}
	}
	for _, name := range []string{QueueDefault, QueueMaintenance} {
		q := queueHealth{Queue: name}
		// Redis only knows a queue once a task has been enqueued on it.
		if known[name] {
			info, err := h.inspector.GetQueueInfo(name)
			if err != nil {
				h.unavailable(w, name, err)
				return
			}
			q.Pending, q.Active, q.Retry, q.Archived = info.Pending, info.Active, info.Retry, info.Archived
		}
		resp.Queues = append(resp.Queues, q)
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) unavailable(w http.ResponseWriter, queue string, err error) {
	h.logger.Warn("jobs health", slog.String("queue", queue), slog.Any("error", err))
	httpx.Problem(w, http.StatusServiceUnavailable, "Queue unavailable", "queue statistics could not be read")
}
