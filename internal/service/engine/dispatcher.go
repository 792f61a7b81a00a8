package engine

import (
	"context"
	"encoding/json"
	"sync"

	prommetrics "github.com/trailpost/trailpost-backend/internal/metrics"
	"github.com/trailpost/trailpost-backend/pkg/logger"
)

// ActionHandler processes one user action. Implemented by *Service.
type ActionHandler interface {
	HandleUserAction(ctx context.Context, userID uint, action string, meta map[string]interface{})
}

// task is one queued action occurrence.
type task struct {
	userID uint
	action string
	meta   map[string]interface{}
}

// Dispatcher is the fire-and-forget entry point the business services call.
// Submissions go onto a bounded queue consumed by a worker pool; callers
// never block on badge evaluation and never observe its failures. When the
// queue is full the submission is dropped and counted.
type Dispatcher struct {
	handler ActionHandler
	queue   chan task
	workers int
	log     *logger.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher creates a dispatcher with the given queue size and worker count.
func NewDispatcher(handler ActionHandler, queueSize, workers int, log *logger.Logger) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		handler: handler,
		queue:   make(chan task, queueSize),
		workers: workers,
		log:     log,
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		d.log.Info().Int("workers", d.workers).Int("queue_size", cap(d.queue)).Msg("Starting action dispatcher")
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.run(ctx)
		}
	})
}

// Stop closes the queue and waits for in-flight work to drain.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.stopped = true
		d.mu.Unlock()
		close(d.queue)
		d.wg.Wait()
		d.log.Info().Msg("Action dispatcher stopped")
	})
}

// Submit enqueues an action occurrence without blocking. Returns false if
// the submission was dropped because the queue is full or the dispatcher
// has been stopped.
func (d *Dispatcher) Submit(userID uint, action string, meta map[string]interface{}) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return false
	}
	select {
	case d.queue <- task{userID: userID, action: action, meta: meta}:
		prommetrics.SetQueueDepth(len(d.queue))
		return true
	default:
		prommetrics.RecordQueueDropped()
		d.log.Warn().
			Uint("user_id", userID).
			Str("action", action).
			Msg("Action dropped: dispatcher queue full")
		return false
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for t := range d.queue {
		prommetrics.SetQueueDepth(len(d.queue))
		d.handler.HandleUserAction(ctx, t.userID, t.action, t.meta)
	}
}

// DecodeMeta converts a raw JSON meta payload into the map form the engine
// accepts. Used by the HTTP trigger endpoint.
func DecodeMeta(raw json.RawMessage) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil
	}
	return meta
}
