// Package queue holds the single-worker FIFO scheduler that drains admitted
// jobs through the pipeline one at a time.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aryakhanna/renderqa/internal/metrics"
	"github.com/aryakhanna/renderqa/internal/store"
	"github.com/aryakhanna/renderqa/pkg/models"
	"github.com/google/uuid"
)

const statusMirrorTTL = 30 * time.Minute

// Runner executes the pipeline for one job and returns a fatal error when
// the attempt must route through the retry policy.
type Runner interface {
	Run(ctx context.Context, id uuid.UUID) error
}

// StatusMirror mirrors job status into an external cache, best effort. The
// scheduler ignores mirror errors; the store stays the source of truth.
type StatusMirror interface {
	SetJobStatus(ctx context.Context, id uuid.UUID, status string, ttl time.Duration) error
}

// Scheduler is the single-worker FIFO queue. Execution is intentionally
// serial: one job in flight at a time, bounding concurrent load on the
// collaborators. A retried job re-enters at the tail and loses its original
// relative priority.
type Scheduler struct {
	store   store.Store
	runner  Runner
	policy  RetryPolicy
	mirror  StatusMirror
	metrics *metrics.Metrics
	delay   time.Duration

	mu     sync.Mutex
	queue  []uuid.UUID
	active bool
	closed bool
}

// NewScheduler constructs a stopped scheduler; the worker starts on the
// first Enqueue. mirror and m may be nil.
func NewScheduler(st store.Store, runner Runner, mirror StatusMirror, m *metrics.Metrics, interJobDelay time.Duration) *Scheduler {
	return &Scheduler{
		store:   st,
		runner:  runner,
		mirror:  mirror,
		metrics: m,
		delay:   interJobDelay,
	}
}

// Enqueue appends the job id to the tail and starts the worker if it is not
// already running. Starting an active worker is a no-op.
func (s *Scheduler) Enqueue(id uuid.UUID) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, id)
	depth := len(s.queue)
	start := !s.active
	if start {
		s.active = true
	}
	s.mu.Unlock()

	s.metrics.SetQueueDepth(depth)
	s.mirrorStatus(id, models.JobStatusPending)

	if start {
		go s.work()
	}
}

// Depth returns the number of ids waiting in the queue.
func (s *Scheduler) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// WorkerActive reports whether the worker loop is running.
func (s *Scheduler) WorkerActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Snapshot computes the queue view on demand; it is never cached.
func (s *Scheduler) Snapshot() models.QueueSnapshot {
	c := s.store.Counts()
	return models.QueueSnapshot{
		Pending:      c.Pending,
		Processing:   c.Processing,
		Completed:    c.Completed,
		Failed:       c.Failed,
		Total:        c.Total,
		WorkerActive: s.WorkerActive(),
	}
}

// Close stops the scheduler from accepting new work. The job currently in
// flight, if any, runs to completion.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.queue = nil
}

// work drains the queue serially, then deactivates. Collaborators enforce
// their own timeouts; the loop itself never cancels a running job.
func (s *Scheduler) work() {
	for {
		s.mu.Lock()
		if s.closed || len(s.queue) == 0 {
			s.active = false
			s.mu.Unlock()
			s.metrics.SetQueueDepth(0)
			return
		}
		id := s.queue[0]
		s.queue = s.queue[1:]
		depth := len(s.queue)
		s.mu.Unlock()

		s.metrics.SetQueueDepth(depth)
		s.runOne(id)

		if s.delay > 0 {
			time.Sleep(s.delay)
		}
	}
}

func (s *Scheduler) runOne(id uuid.UUID) {
	ctx := context.Background()

	job, ok := s.store.Get(id)
	if !ok {
		// Evicted while queued.
		slog.Warn("queued job no longer in store", "job_id", id)
		return
	}
	if job.Status != models.JobStatusPending {
		slog.Warn("queued job not pending", "job_id", id, "status", job.Status)
		return
	}

	s.mirrorStatus(id, models.JobStatusProcessing)

	err := s.runner.Run(ctx, id)
	if err == nil {
		s.mirrorStatus(id, models.JobStatusCompleted)
		return
	}

	var decision Decision
	updated, ok := s.store.Update(id, func(j *models.Job) {
		decision = s.policy.Apply(j, err)
	})
	if !ok {
		return
	}

	switch decision {
	case Requeue:
		s.metrics.JobRetried()
		slog.Info("job requeued", "job_id", id, "retries", updated.Retries, "error", err)
		s.Enqueue(id)
	case Terminate:
		s.metrics.JobFailed()
		s.mirrorStatus(id, models.JobStatusFailed)
		slog.Error("job failed", "job_id", id, "retries", updated.Retries, "error", err)
	}
}

func (s *Scheduler) mirrorStatus(id uuid.UUID, status string) {
	if s.mirror == nil {
		return
	}
	_ = s.mirror.SetJobStatus(context.Background(), id, status, statusMirrorTTL)
}
