package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/lorrc/case-event-hub/internal/core/domain"
	"github.com/lorrc/case-event-hub/internal/core/ports"
	"github.com/lorrc/case-event-hub/internal/infrastructure/logging"
)

// DefaultDispatchDelay gives the registries time to make a mutation visible
// to reads before clients are told to re-fetch. Clients wait 5s for a
// pending update, so this must stay well below that.
const DefaultDispatchDelay = time.Second

// DispatcherConfig configures the AsyncDispatcher.
type DispatcherConfig struct {
	Queue QueueConfig
	// SendTimeout bounds delivery to a single subscriber.
	SendTimeout time.Duration
}

// AsyncDispatcher fans events out to live subscribers on background
// workers after a fixed delay.
type AsyncDispatcher struct {
	registry    ports.SubscriptionRegistry
	queue       *delayedQueue[domain.Event]
	sendTimeout time.Duration
	logger      *slog.Logger
}

var _ ports.Dispatcher = (*AsyncDispatcher)(nil)

// NewAsyncDispatcher starts the dispatcher workers.
func NewAsyncDispatcher(registry ports.SubscriptionRegistry, cfg DispatcherConfig, logger *slog.Logger) *AsyncDispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 250 * time.Millisecond
	}
	d := &AsyncDispatcher{
		registry:    registry,
		sendTimeout: cfg.SendTimeout,
		logger:      logger.With("component", "dispatcher"),
	}
	d.queue = newDelayedQueue(cfg.Queue, d.logger, d.fanOut)
	return d
}

// Dispatch schedules event for delivery. It never blocks; when the queue
// is full the event is dropped.
func (d *AsyncDispatcher) Dispatch(event domain.Event) {
	if !d.queue.push(event) {
		d.logger.Warn("event dropped", "event", event.String())
	}
}

// Shutdown delivers what is queued and stops the workers.
func (d *AsyncDispatcher) Shutdown() {
	d.queue.shutdown()
}

func (d *AsyncDispatcher) fanOut(event domain.Event) {
	subscribers := d.registry.Subscribers(event.Key())
	if len(subscribers) == 0 {
		return
	}

	d.logger.Debug("dispatching event", "event", event.String(), "subscribers", len(subscribers))
	for _, sub := range subscribers {
		d.deliver(sub, event)
	}
}

// deliver sends to one subscriber. Failures drop the subscriber from the
// registry and never reach the other subscribers.
func (d *AsyncDispatcher) deliver(sub ports.Subscriber, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.LogPanic(d.logger, r)
			d.registry.UnsubscribeAll(sub)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := sub.Deliver(ctx, event); err != nil {
		d.logger.Warn("event delivery failed",
			"subscriber", sub.ID(),
			"event", event.String(),
			"error", err,
		)
		d.registry.UnsubscribeAll(sub)
	}
}
