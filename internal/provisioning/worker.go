package provisioning

import (
	"context"
	"log/slog"
	"sync"
	"time"

	provisioningdm "github.com/frahmantamala/number-provisioning/internal/core/datamodel/provisioning"
	"github.com/frahmantamala/number-provisioning/internal/core/events"
	"github.com/frahmantamala/number-provisioning/internal/observability"
	"github.com/sethvargo/go-retry"
)

// TaskStore is the outbox of activations that still have to reach the telecom backend.
type TaskStore interface {
	Due(ctx context.Context, now time.Time, limit int) ([]provisioningdm.Task, error)
	// Claim leases a task until leaseUntil. It reports false when another
	// worker got there first.
	Claim(ctx context.Context, task provisioningdm.Task, now, leaseUntil time.Time) (bool, error)
	Complete(ctx context.Context, id int64, at time.Time) error
	Reschedule(ctx context.Context, id int64, lastErr string, next time.Time) error
	Fail(ctx context.Context, id int64, lastErr string, at time.Time) error
}

type Job struct {
	Task provisioningdm.Task
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(context.Context, Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing task", "worker_id", w.ID, "task_id", job.Task.ID)
				processFunc(ctx, job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type WorkerConfig struct {
	MaxWorkers   int
	JobQueueSize int
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	// BaseBackoff and MaxBackoff bound the delay before a failed task is retried.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Lease       time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 4
	}
	if c.JobQueueSize <= 0 {
		c.JobQueueSize = 100
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 8
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 30 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 6 * time.Hour
	}
	if c.Lease <= 0 {
		c.Lease = 5 * time.Minute
	}
	return c
}

// Retrier drains the provisioning outbox with a fixed pool of workers.
type Retrier struct {
	store     TaskStore
	activator Activator
	publisher events.Publisher
	metrics   *observability.Metrics
	logger    *slog.Logger
	cfg       WorkerConfig
	now       func() time.Time

	jobQueue   chan Job
	workerPool chan chan Job
	wg         sync.WaitGroup
}

type RetrierOption func(*Retrier)

func WithClock(now func() time.Time) RetrierOption {
	return func(r *Retrier) { r.now = now }
}

func WithPublisher(p events.Publisher) RetrierOption {
	return func(r *Retrier) { r.publisher = p }
}

func WithMetrics(m *observability.Metrics) RetrierOption {
	return func(r *Retrier) { r.metrics = m }
}

func NewRetrier(store TaskStore, activator Activator, cfg WorkerConfig, logger *slog.Logger, opts ...RetrierOption) *Retrier {
	cfg = cfg.withDefaults()
	r := &Retrier{
		store:      store,
		activator:  activator,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
		jobQueue:   make(chan Job, cfg.JobQueueSize),
		workerPool: make(chan chan Job, cfg.MaxWorkers),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls for due tasks until ctx is cancelled, then waits for in-flight work.
func (r *Retrier) Run(ctx context.Context) error {
	for i := 0; i < r.cfg.MaxWorkers; i++ {
		NewWorker(i, r.workerPool, r.logger).Start(ctx, &r.wg, r.process)
	}

	r.wg.Add(1)
	go r.dispatch(ctx)

	r.logger.Info("provisioning retry pool started",
		"max_workers", r.cfg.MaxWorkers,
		"queue_size", cap(r.jobQueue),
		"poll_interval", r.cfg.PollInterval)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := r.Poll(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("provisioning outbox poll failed", "error", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			r.wg.Wait()
			r.logger.Info("provisioning retry pool stopped")
			return nil
		}
	}
}

// Poll claims due tasks and queues them. It returns how many were queued.
func (r *Retrier) Poll(ctx context.Context) (int, error) {
	now := r.now()
	tasks, err := r.store.Due(ctx, now, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, task := range tasks {
		claimed, err := r.store.Claim(ctx, task, now, now.Add(r.cfg.Lease))
		if err != nil {
			r.logger.Error("failed to claim provisioning task", "task_id", task.ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}
		task.Attempts++
		task.Status = provisioningdm.StatusInProgress

		select {
		case r.jobQueue <- Job{Task: task}:
			queued++
		case <-ctx.Done():
			return queued, ctx.Err()
		}
	}
	return queued, nil
}

func (r *Retrier) dispatch(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case job := <-r.jobQueue:
			select {
			case jobChannel := <-r.workerPool:
				select {
				case jobChannel <- job:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			r.logger.Info("provisioning dispatcher shutting down")
			return
		}
	}
}

// Process runs one activation attempt for a claimed task.
func (r *Retrier) Process(ctx context.Context, task provisioningdm.Task) {
	r.process(ctx, Job{Task: task})
}

func (r *Retrier) process(ctx context.Context, job Job) {
	task := job.Task
	log := r.logger.With("task_id", task.ID, "number", task.Number, "attempt", task.Attempts)

	// finish bookkeeping even when shutdown cancels ctx mid-call
	storeCtx := context.WithoutCancel(ctx)

	_, err := r.activator.Activate(ctx, task.Number, task.Region)
	if err == nil {
		if err := r.store.Complete(storeCtx, task.ID, r.now()); err != nil {
			log.Error("activation succeeded but task could not be completed", "error", err)
			return
		}
		r.metrics.ActivationResult(observability.ActivationRetried)
		log.Info("deferred activation completed")
		r.publish(storeCtx, events.EventTypeProvisioningCompleted, task, "")
		return
	}

	if task.Attempts >= r.cfg.MaxAttempts {
		if ferr := r.store.Fail(storeCtx, task.ID, err.Error(), r.now()); ferr != nil {
			log.Error("failed to mark provisioning task failed", "error", ferr)
			return
		}
		r.metrics.ActivationResult(observability.ActivationAbandoned)
		log.Warn("activation abandoned, manual reconciliation required",
			"reconcile", "manual",
			"error", err)
		r.publish(storeCtx, events.EventTypeProvisioningFailed, task, err.Error())
		return
	}

	next := r.now().Add(r.Backoff(task.Attempts))
	if rerr := r.store.Reschedule(storeCtx, task.ID, err.Error(), next); rerr != nil {
		log.Error("failed to reschedule provisioning task", "error", rerr)
		return
	}
	r.metrics.ActivationResult(observability.ActivationFailed)
	log.Warn("activation retry failed, rescheduled", "next_attempt_at", next, "error", err)
}

// Backoff is the delay after the given number of failed attempts.
func (r *Retrier) Backoff(attempts int) time.Duration {
	b := retry.WithCappedDuration(r.cfg.MaxBackoff, retry.NewExponential(r.cfg.BaseBackoff))
	var delay time.Duration
	for i := 0; i < attempts; i++ {
		d, stop := b.Next()
		if stop {
			break
		}
		delay = d
	}
	return delay
}

func (r *Retrier) publish(ctx context.Context, eventType string, task provisioningdm.Task, reason string) {
	if r.publisher == nil {
		return
	}
	event := events.NewProvisioningEvent(eventType, task.ID, task.PhoneNumberID, task.Number, task.Region, task.Attempts, reason)
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Error("failed to publish provisioning event", "event_type", eventType, "error", err)
	}
}
