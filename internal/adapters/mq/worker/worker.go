// Package worker dispatches queued high-priority insight notifications.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/dedupe"
	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/model"
	"github.com/takumisawano-hash/dodo-demo-sub000/pkg/logger"
	"github.com/takumisawano-hash/dodo-demo-sub000/pkg/metrics"
)

// Default worker configuration constants.
const (
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Notifier delivers one notification to the user.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// Queue defines how workers receive notifications.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Notification
}

// LogNotifier delivers notifications as structured log lines. It is the
// default until a push provider is plugged in.
type LogNotifier struct {
	logger logger.Logger
}

// NewLogNotifier creates a notifier that logs through l, or the global
// logger when l is nil.
func NewLogNotifier(l logger.Logger) *LogNotifier {
	if l == nil {
		l = logger.Get().Named("notifier")
	}
	return &LogNotifier{logger: l}
}

// Notify logs the notification.
func (n *LogNotifier) Notify(ctx context.Context, note model.Notification) error {
	n.logger.Info(ctx, "insight notification",
		logger.String("notification_id", note.ID),
		logger.String("user_id", note.UserID),
		logger.String("date", note.Date),
		logger.String("rule", note.Insight.ID),
		logger.String("message", note.Insight.Message),
	)
	return nil
}

// InMemoryWorker drains the queue and hands each notification to the
// notifier at most once per dedupe key.
type InMemoryWorker struct {
	queue    Queue
	notifier Notifier
	seen     dedupe.Deduper[model.NotificationKey]
	name     string
	active   *atomic.Int64

	stop <-chan struct{}
	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, notifier Notifier, seen dedupe.Deduper[model.NotificationKey], opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		notifier: notifier,
		seen:     seen,
		name:     "worker",
		active:   new(atomic.Int64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run processes notifications until the queue channel closes, ctx is
// canceled or the worker is stopped.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	ch := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if err := w.process(ctx, n); err != nil {
				w.logger.Error(ctx, "error dispatching notification", logger.Error(err))
			}
		}
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, n model.Notification) error {
	start := time.Now()
	w.active.Add(1)
	defer func() {
		w.active.Add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	key := n.Key()
	if w.seen != nil && w.seen.SeenAndRecord(ctx, key) {
		metrics.RecordNotificationDuplicate()
		w.logger.Debug(ctx, "notification already sent today",
			logger.String("user_id", n.UserID),
			logger.String("rule", n.Insight.ID),
		)
		return nil
	}

	if err := w.notifier.Notify(ctx, n); err != nil {
		// Forget the key so a later sync the same day can retry.
		if w.seen != nil {
			w.seen.Unrecord(ctx, key)
		}
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "notify_failed")
		return fmt.Errorf("notify %s for user %s: %w", n.Insight.ID, n.UserID, err)
	}

	metrics.RecordNotificationDispatched()
	return nil
}

// Pool manages multiple workers sharing one queue, notifier and deduper.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	logger logger.Logger
}

// NewPool creates a worker pool. A workerCount below one means one worker
// per CPU.
func NewPool(workerCount int, queue Queue, notifier Notifier, seen dedupe.Deduper[model.NotificationKey]) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		stop:    make(chan struct{}),
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		w := NewInMemoryWorker(queue, notifier, seen, WithName("worker-"+strconv.Itoa(i)))
		w.stop = p.stop
		w.active = &p.active
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)

	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}

	p.wg.Add(1)
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			metrics.UpdateWorkerActiveCount(int(p.active.Load()))
		}
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Shutdown closes the queue and lets workers drain what is left. Workers
// still running when ctx (or the pool timeout) expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var err error
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			err = fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
		}
		if err != nil {
			break
		}
	}

	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
	metrics.UpdateWorkerActiveCount(0)
	return err
}
