package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusStarted  Status = "started"
	StatusFinished Status = "finished"
	StatusFailed   Status = "failed"
)

// Job represents a queued background task.
type Job struct {
	ID       string      `json:"id"`
	Queue    string      `json:"queue"`
	Type     string      `json:"callable"`
	Payload  interface{} `json:"args"`
	Attempt  int         `json:"attempt"`
	Status   Status      `json:"status"`
	Error    string      `json:"exc_info,omitempty"`
	Created  time.Time   `json:"created_at"`
	Enqueued time.Time   `json:"enqueued_at"`
	Started  *time.Time  `json:"started_at,omitempty"`
	Ended    *time.Time  `json:"ended_at,omitempty"`
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Stats summarises a queue for introspection.
type Stats struct {
	Name     string `json:"name"`
	Queued   int    `json:"queued"`
	Started  int    `json:"started"`
	Finished int    `json:"finished"`
	Failed   int    `json:"failed"`
	Workers  int    `json:"workers"`
}

// Queue is a lightweight in-memory job dispatcher backed by goroutines.
type Queue struct {
	name    string
	handler Handler

	workers    int
	bufferSize int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool

	active   map[string]*Job
	failed   map[string]*Job
	deleted  map[string]struct{}
	finished int
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		bufferSize: cfg.BufferSize,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		jobs:       make(chan Job, cfg.BufferSize),
		active:     make(map[string]*Job),
		failed:     make(map[string]*Job),
		deleted:    make(map[string]struct{}),
	}
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.name
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Sugar().Infow("queue started", "queue", q.name, "workers", q.workers)
}

// Stop cancels workers and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("queue stopped", "queue", q.name)
}

// Enqueue pushes a job onto the queue and returns it with its assigned identity.
func (q *Queue) Enqueue(job Job) (Job, error) {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return job, fmt.Errorf("queue %s not started", q.name)
	}
	now := time.Now().UTC()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Created.IsZero() {
		job.Created = now
	}
	job.Queue = q.name
	job.Enqueued = now
	job.Status = StatusQueued

	q.track(job)

	select {
	case <-ctx.Done():
		q.untrack(job.ID)
		return job, fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return job, nil
	}
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	stats := Stats{Name: q.name, Workers: q.workers, Finished: q.finished, Failed: len(q.failed)}
	for _, j := range q.active {
		switch j.Status {
		case StatusStarted:
			stats.Started++
		default:
			stats.Queued++
		}
	}
	return stats
}

// FailedJobs lists jobs that exhausted their retries, oldest first.
func (q *Queue) FailedJobs() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Job, 0, len(q.failed))
	for _, j := range q.failed {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Created.Before(out[k].Created) })
	return out
}

// Job looks up an active or failed job.
func (q *Queue) Job(id string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if j, ok := q.active[id]; ok {
		return *j, true
	}
	if j, ok := q.failed[id]; ok {
		return *j, true
	}
	return Job{}, false
}

// Requeue moves failed jobs back onto the queue and returns how many were requeued.
func (q *Queue) Requeue(ids []string) (int, error) {
	count := 0
	for _, id := range ids {
		q.mu.Lock()
		j, ok := q.failed[id]
		if ok {
			delete(q.failed, id)
		}
		q.mu.Unlock()
		if !ok {
			continue
		}
		retry := *j
		retry.Attempt = 0
		retry.Error = ""
		retry.Started = nil
		retry.Ended = nil
		if _, err := q.Enqueue(retry); err != nil {
			q.mu.Lock()
			q.failed[id] = j
			q.mu.Unlock()
			return count, err
		}
		count++
	}
	return count, nil
}

// Delete drops failed jobs and cancels queued ones, returning how many were removed.
func (q *Queue) Delete(ids []string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	count := 0
	for _, id := range ids {
		if _, ok := q.failed[id]; ok {
			delete(q.failed, id)
			count++
			continue
		}
		if j, ok := q.active[id]; ok && j.Status == StatusQueued {
			delete(q.active, id)
			q.deleted[id] = struct{}{}
			count++
		}
	}
	return count
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if !q.markStarted(&job) {
				continue
			}
			if err := q.handler(q.ctx, job); err != nil {
				q.handleFailure(job, err)
				continue
			}
			q.markFinished(job.ID)
		}
	}
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	job.Error = err.Error()
	if job.Attempt > q.maxRetries {
		now := time.Now().UTC()
		job.Status = StatusFailed
		job.Ended = &now
		q.mu.Lock()
		delete(q.active, job.ID)
		q.failed[job.ID] = &job
		q.mu.Unlock()
		q.logger.Sugar().Errorw("job exceeded retries", "queue", q.name, "job_id", job.ID, "type", job.Type, "error", err)
		return
	}
	q.logger.Sugar().Warnw("job failed, retrying", "queue", q.name, "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "error", err)

	go func(j Job) {
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			if _, err := q.Enqueue(j); err != nil {
				q.logger.Sugar().Errorw("failed to requeue job", "queue", q.name, "job_id", j.ID, "error", err)
			}
		}
	}(job)
}

func (q *Queue) track(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.deleted, job.ID)
	q.active[job.ID] = &job
}

func (q *Queue) untrack(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.active, id)
}

func (q *Queue) markStarted(job *Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, gone := q.deleted[job.ID]; gone {
		delete(q.deleted, job.ID)
		return false
	}
	now := time.Now().UTC()
	job.Status = StatusStarted
	job.Started = &now
	if tracked, ok := q.active[job.ID]; ok {
		*tracked = *job
	}
	return true
}

func (q *Queue) markFinished(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.active, id)
	q.finished++
}
