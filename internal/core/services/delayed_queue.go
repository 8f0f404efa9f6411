package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lorrc/case-event-hub/internal/infrastructure/logging"
)

// QueueConfig sizes a delayed worker queue.
type QueueConfig struct {
	// Delay is how long an item waits between being queued and being handled.
	Delay     time.Duration
	QueueSize int
	Workers   int
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Delay < 0 {
		c.Delay = 0
	}
	return c
}

type queued[T any] struct {
	item T
	due  time.Time
}

// delayedQueue hands items to a fixed set of workers, each item no sooner
// than Delay after it was pushed.
type delayedQueue[T any] struct {
	cfg    QueueConfig
	items  chan queued[T]
	handle func(T)
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func newDelayedQueue[T any](cfg QueueConfig, logger *slog.Logger, handle func(T)) *delayedQueue[T] {
	cfg = cfg.withDefaults()
	q := &delayedQueue[T]{
		cfg:    cfg,
		items:  make(chan queued[T], cfg.QueueSize),
		handle: handle,
		logger: logger,
	}
	for i := 0; i < cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

// push queues item without blocking. It reports false when the queue is
// full or shut down.
func (q *delayedQueue[T]) push(item T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}
	select {
	case q.items <- queued[T]{item: item, due: time.Now().Add(q.cfg.Delay)}:
		return true
	default:
		return false
	}
}

// shutdown stops accepting items and waits for queued ones to be handled.
func (q *delayedQueue[T]) shutdown() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.items)
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *delayedQueue[T]) work() {
	defer q.wg.Done()

	for entry := range q.items {
		if wait := time.Until(entry.due); wait > 0 {
			time.Sleep(wait)
		}
		q.run(entry.item)
	}
}

func (q *delayedQueue[T]) run(item T) {
	defer func() {
		if r := recover(); r != nil {
			logging.LogPanic(q.logger, r)
		}
	}()
	q.handle(item)
}
