package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RunnerConfig holds configuration for the ingestion job runner.
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process jobs.
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory job queue.
	QueueSize int

	// MaxAttempts bounds infrastructure-failure redeliveries per job.
	MaxAttempts int

	// RetryDelay is the pause before a failed job is offered to the workers
	// again.
	RetryDelay time.Duration

	// StuckJobAge defines how long a job can sit in processing state before
	// it is considered interrupted and reset.
	StuckJobAge time.Duration

	// StuckJobCheckInterval defines how often to check for stuck jobs.
	// If zero, defaults to 5 minutes.
	StuckJobCheckInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:           3,
		QueueSize:             100,
		MaxAttempts:           5,
		RetryDelay:            30 * time.Second,
		StuckJobAge:           30 * time.Minute,
		StuckJobCheckInterval: 5 * time.Minute,
	}
}

// Runner manages the bounded-concurrency ingestion worker pool. Jobs are
// persisted before they enter the in-memory channel, which makes the queue
// durable: pending and interrupted jobs are requeued on startup and by the
// queue monitor, giving at-least-once delivery.
type Runner struct {
	store      JobStore
	processor  *Processor
	jobChan    chan *Job
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     RunnerConfig
	logger     *slog.Logger
}

// NewRunner creates a new Runner.
func NewRunner(store JobStore, processor *Processor, config RunnerConfig, logger *slog.Logger) *Runner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.StuckJobCheckInterval == 0 {
		config.StuckJobCheckInterval = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		store:      store,
		processor:  processor,
		jobChan:    make(chan *Job, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger.With("component", "ingest_runner"),
	}
}

// Submit persists a new job and offers it to the worker pool.
func (r *Runner) Submit(ctx context.Context, payload InboundJob) error {
	job := NewJob(payload)

	// Save the job first: the row, not the channel, is the source of truth.
	if err := r.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	select {
	case r.jobChan <- job:
		return nil
	default:
		// Queue is full; the periodic reclaim pass re-offers the pending row.
		r.logger.Warn("job queue is full, leaving job for reclaim",
			"job_id", job.ID)
		return nil
	}
}

// Start recovers unfinished jobs and launches the worker pool.
func (r *Runner) Start() error {
	if err := r.recover(); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.queueMonitor()

	return nil
}

// Stop gracefully shuts down the runner, waiting for in-flight jobs.
func (r *Runner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
}

// recover loads unfinished jobs from the database and requeues them.
// Processing jobs are interrupted deliveries from a previous run; they are
// reset to pending so the at-least-once contract holds across restarts.
func (r *Runner) recover() error {
	ctx := context.Background()

	pendingJobs, err := r.store.GetPendingJobs(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get pending jobs: %w", err)
	}

	processingJobs, err := r.store.GetProcessingJobs(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing jobs: %w", err)
	}

	r.logger.Info("recovering unfinished jobs",
		"pending_count", len(pendingJobs),
		"processing_count", len(processingJobs))

	for _, job := range pendingJobs {
		r.requeue(job)
	}

	for _, job := range processingJobs {
		if err := r.store.UpdateJobStatus(ctx, job.ID, JobStatusPending, "reset after recovery"); err != nil {
			r.logger.Error("failed to reset processing job",
				"job_id", job.ID,
				"error", err)
			continue
		}
		r.requeue(job)
	}

	return nil
}

// requeue offers a job to the workers without blocking. A full channel is
// fine: the job row stays pending and the next reclaim pass retries.
func (r *Runner) requeue(job *Job) {
	select {
	case r.jobChan <- job:
	default:
		r.logger.Warn("failed to requeue job, queue is full", "job_id", job.ID)
	}
}

// worker processes jobs from the queue.
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case job := <-r.jobChan:
			r.processJob(job, id)
		}
	}
}

// processJob handles delivery of a single job to the processor, including
// status bookkeeping and the bounded redelivery policy.
func (r *Runner) processJob(job *Job, workerID int) {
	ctx := context.Background()
	logger := r.logger.With(
		"job_id", job.ID,
		"worker_id", workerID,
	)

	if err := r.store.UpdateJobStatus(ctx, job.ID, JobStatusProcessing, ""); err != nil {
		logger.Error("failed to update job status to processing", "error", err)
		return
	}

	logger.Info("processing job")

	outcome, err := r.processor.Process(ctx, job)
	if err == nil {
		if updateErr := r.store.UpdateJobStatus(ctx, job.ID, JobStatusCompleted, outcome); updateErr != nil {
			logger.Error("failed to update job status to completed", "error", updateErr)
		}
		logger.Info("job completed", "outcome", outcome)
		return
	}

	// Infrastructure failure: let the queue's redelivery policy retry the
	// job, up to MaxAttempts.
	logger.Error("job processing failed", "error", err)

	attempts, attErr := r.store.IncrementAttempts(ctx, job.ID)
	if attErr != nil {
		logger.Error("failed to increment job attempts", "error", attErr)
		return
	}

	if attempts >= r.config.MaxAttempts {
		logger.Error("job exhausted redelivery attempts", "attempts", attempts)
		if updateErr := r.store.UpdateJobStatus(ctx, job.ID, JobStatusFailed, err.Error()); updateErr != nil {
			logger.Error("failed to update job status to failed", "error", updateErr)
		}
		return
	}

	if updateErr := r.store.UpdateJobStatus(ctx, job.ID, JobStatusPending, err.Error()); updateErr != nil {
		logger.Error("failed to reset job to pending", "error", updateErr)
		return
	}

	job.Attempts = attempts
	r.scheduleRetry(job)
}

// scheduleRetry requeues a job after the retry delay.
func (r *Runner) scheduleRetry(job *Job) {
	delay := r.config.RetryDelay
	if delay <= 0 {
		r.requeue(job)
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		select {
		case <-r.ctx.Done():
		case <-time.After(delay):
			r.requeue(job)
		}
	}()
}

// queueMonitor periodically requeues jobs the channel lost track of:
// processing rows stuck since a worker crash and pending rows parked
// because the channel was full when they were offered.
func (r *Runner) queueMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckJobCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			ctx := context.Background()
			r.reclaimStuckJobs(ctx)
			r.reclaimParkedJobs(ctx)
		}
	}
}

// reclaimStuckJobs resets jobs that have been in processing state for too
// long, typically after a worker crash mid-delivery.
func (r *Runner) reclaimStuckJobs(ctx context.Context) {
	stuckJobs, err := r.store.GetProcessingJobs(ctx, r.config.StuckJobAge)
	if err != nil {
		r.logger.Error("failed to check for stuck jobs", "error", err)
		return
	}

	if len(stuckJobs) == 0 {
		return
	}

	r.logger.Info("found stuck jobs", "count", len(stuckJobs))

	for _, job := range stuckJobs {
		if err := r.store.UpdateJobStatus(ctx, job.ID, JobStatusPending,
			"reset after being stuck in processing state"); err != nil {
			r.logger.Error("failed to reset stuck job",
				"job_id", job.ID,
				"error", err)
			continue
		}
		r.requeue(job)
	}
}

// reclaimParkedJobs re-offers pending rows that never made it into the
// channel, as happens when it is full at submit or requeue time. Only rows
// older than one monitor interval are picked up, leaving jobs still waiting
// in the channel alone. A duplicate offer ends in the duplicate outcome,
// not a second task.
func (r *Runner) reclaimParkedJobs(ctx context.Context) {
	parked, err := r.store.GetPendingJobs(ctx, r.config.StuckJobCheckInterval)
	if err != nil {
		r.logger.Error("failed to check for parked jobs", "error", err)
		return
	}

	if len(parked) == 0 {
		return
	}

	r.logger.Info("requeueing parked jobs", "count", len(parked))

	for _, job := range parked {
		r.requeue(job)
	}
}
