package service

import (
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/admin-api/pkg/errors"
	"github.com/noah-isme/admin-api/pkg/jobs"
)

// FailedJobTableFields are the columns shown for failed jobs.
var FailedJobTableFields = []string{"id", "created_at", "enqueued_at", "ended_at", "callable"}

type jobBroker interface {
	Stats() []jobs.Stats
	Queue(name string) (*jobs.Queue, bool)
	Enqueue(queue, jobType string, payload interface{}) (jobs.Job, error)
}

// FailedJobList is the failed job registry of one queue.
type FailedJobList struct {
	Queue       string     `json:"queue"`
	TableFields []string   `json:"table_fields"`
	Jobs        []jobs.Job `json:"jobs"`
}

// QueueService exposes background queue introspection and maintenance.
type QueueService struct {
	broker jobBroker
	logger *zap.Logger
}

// NewQueueService constructs a queue service.
func NewQueueService(broker jobBroker, logger *zap.Logger) *QueueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueService{broker: broker, logger: logger}
}

// Queues lists every queue with its job counters.
func (s *QueueService) Queues() []jobs.Stats {
	return s.broker.Stats()
}

// FailedJobs lists the jobs of a queue that exhausted their retries.
func (s *QueueService) FailedJobs(queue string) (*FailedJobList, error) {
	q, err := s.queue(queue)
	if err != nil {
		return nil, err
	}
	return &FailedJobList{Queue: queue, TableFields: FailedJobTableFields, Jobs: q.FailedJobs()}, nil
}

// Job returns one active or failed job.
func (s *QueueService) Job(queue, id string) (*jobs.Job, error) {
	q, err := s.queue(queue)
	if err != nil {
		return nil, err
	}
	job, ok := q.Job(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "job "+id+" not found")
	}
	return &job, nil
}

// Requeue moves failed jobs back onto their queue.
func (s *QueueService) Requeue(queue string, ids []string) (int, error) {
	q, err := s.queue(queue)
	if err != nil {
		return 0, err
	}
	n, err := q.Requeue(ids)
	if err != nil {
		return n, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to requeue jobs")
	}
	s.logger.Sugar().Infow("jobs requeued", "queue", queue, "count", n)
	return n, nil
}

// Delete drops failed or queued jobs.
func (s *QueueService) Delete(queue string, ids []string) (int, error) {
	q, err := s.queue(queue)
	if err != nil {
		return 0, err
	}
	n := q.Delete(ids)
	s.logger.Sugar().Infow("jobs deleted", "queue", queue, "count", n)
	return n, nil
}

// Enqueue schedules a job on a named queue.
func (s *QueueService) Enqueue(queue, jobType string, payload interface{}) (*jobs.Job, error) {
	job, err := s.broker.Enqueue(queue, jobType, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue job")
	}
	return &job, nil
}

func (s *QueueService) queue(name string) (*jobs.Queue, error) {
	q, ok := s.broker.Queue(name)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "queue "+name+" not found")
	}
	return q, nil
}
