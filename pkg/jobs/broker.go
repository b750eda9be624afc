package jobs

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// DefaultQueue is used when callers do not name a queue.
const DefaultQueue = "default"

// Broker owns a set of named queues and routes jobs to handlers by job type.
type Broker struct {
	mu       sync.RWMutex
	queues   map[string]*Queue
	order    []string
	handlers map[string]Handler
	observer func(queue, jobType string, err error)
	logger   *zap.Logger
}

// NewBroker creates one queue per name sharing the same worker configuration.
func NewBroker(names []string, cfg QueueConfig) *Broker {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if len(names) == 0 {
		names = []string{DefaultQueue}
	}
	b := &Broker{
		queues:   make(map[string]*Queue, len(names)),
		handlers: make(map[string]Handler),
		logger:   cfg.Logger,
	}
	for _, name := range names {
		if _, exists := b.queues[name]; exists {
			continue
		}
		b.queues[name] = NewQueue(name, b.dispatch, cfg)
		b.order = append(b.order, name)
	}
	return b
}

// Register binds a handler to a job type.
func (b *Broker) Register(jobType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[jobType] = handler
}

// Observe installs a callback invoked after every handler attempt.
func (b *Broker) Observe(fn func(queue, jobType string, err error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observer = fn
}

// Start launches the workers of every queue.
func (b *Broker) Start(ctx context.Context) {
	for _, name := range b.order {
		b.queues[name].Start(ctx)
	}
}

// Stop drains every queue.
func (b *Broker) Stop() {
	for _, name := range b.order {
		b.queues[name].Stop()
	}
}

// Enqueue schedules a job of the given type on the named queue.
func (b *Broker) Enqueue(queue, jobType string, payload interface{}) (Job, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	q, ok := b.Queue(queue)
	if !ok {
		return Job{}, fmt.Errorf("queue %s not configured", queue)
	}
	return q.Enqueue(Job{Type: jobType, Payload: payload})
}

// Queue returns a queue by name.
func (b *Broker) Queue(name string) (*Queue, bool) {
	q, ok := b.queues[name]
	return q, ok
}

// Stats lists counters of every queue in configuration order.
func (b *Broker) Stats() []Stats {
	out := make([]Stats, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.queues[name].Stats())
	}
	return out
}

func (b *Broker) dispatch(ctx context.Context, job Job) error {
	b.mu.RLock()
	handler, ok := b.handlers[job.Type]
	observe := b.observer
	b.mu.RUnlock()

	var err error
	if !ok {
		err = fmt.Errorf("no handler registered for %s", job.Type)
	} else {
		err = handler(ctx, job)
	}
	if observe != nil {
		observe(job.Queue, job.Type, err)
	}
	return err
}
