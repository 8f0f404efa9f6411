package services_test

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/lorrc/case-event-hub/internal/core/domain"
	"github.com/lorrc/case-event-hub/internal/core/mocks"
	"github.com/lorrc/case-event-hub/internal/core/ports"
	"github.com/lorrc/case-event-hub/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryRegistry is a minimal registry for exercising the dispatcher.
type memoryRegistry struct {
	mu   sync.Mutex
	subs map[domain.SubscriptionKey][]ports.Subscriber
}

func newMemoryRegistry() *memoryRegistry {
	return &memoryRegistry{subs: make(map[domain.SubscriptionKey][]ports.Subscriber)}
}

func (r *memoryRegistry) Subscribe(sub ports.Subscriber, key domain.SubscriptionKey) ports.SubscriptionHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[key] = append(r.subs[key], sub)
	return ports.SubscriptionHandle{Subscriber: sub, Key: key}
}

func (r *memoryRegistry) Unsubscribe(h ports.SubscriptionHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[h.Key] = without(r.subs[h.Key], h.Subscriber)
}

func (r *memoryRegistry) UnsubscribeAll(sub ports.Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.subs {
		r.subs[k] = without(r.subs[k], sub)
	}
}

func (r *memoryRegistry) Subscribers(key domain.SubscriptionKey) []ports.Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.Subscriber(nil), r.subs[key]...)
}

func without(subs []ports.Subscriber, sub ports.Subscriber) []ports.Subscriber {
	out := subs[:0]
	for _, s := range subs {
		if s != sub {
			out = append(out, s)
		}
	}
	return out
}

var statusEvent = domain.Event{
	Opcode: domain.OpcodeUpdated,
	Type:   domain.EventCase,
	ID:     domain.NewDetailedEventID("zaak-1", "status-1"),
}

func TestAsyncDispatcher_Dispatch(t *testing.T) {
	caseKey := domain.SubscriptionKey{Type: domain.EventCase, Resource: "zaak-1"}

	t.Run("delivers to subscribers of the key after the delay", func(t *testing.T) {
		registry := newMemoryRegistry()
		watching := mocks.NewMockSubscriber("watching")
		other := mocks.NewMockSubscriber("other")
		registry.Subscribe(watching, caseKey)
		registry.Subscribe(other, domain.SubscriptionKey{Type: domain.EventCase, Resource: "zaak-2"})

		delay := 50 * time.Millisecond
		d := services.NewAsyncDispatcher(registry, services.DispatcherConfig{
			Queue: services.QueueConfig{Delay: delay, QueueSize: 8, Workers: 1},
		}, discardLogger())

		var deliveredAt time.Time
		watching.On("Deliver", mock.Anything, statusEvent).
			Run(func(mock.Arguments) { deliveredAt = time.Now() }).
			Return(nil).Once()

		start := time.Now()
		d.Dispatch(statusEvent)
		d.Shutdown()

		watching.AssertExpectations(t)
		other.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything)
		assert.GreaterOrEqual(t, deliveredAt.Sub(start), delay)
	})

	t.Run("failing subscriber is pruned and does not stop the others", func(t *testing.T) {
		registry := newMemoryRegistry()
		broken := mocks.NewMockSubscriber("broken")
		healthy := mocks.NewMockSubscriber("healthy")
		registry.Subscribe(broken, caseKey)
		registry.Subscribe(healthy, caseKey)

		d := services.NewAsyncDispatcher(registry, services.DispatcherConfig{
			Queue: services.QueueConfig{QueueSize: 8, Workers: 1},
		}, discardLogger())

		broken.On("Deliver", mock.Anything, statusEvent).Return(errors.New("connection reset")).Once()
		healthy.On("Deliver", mock.Anything, statusEvent).Return(nil).Twice()

		d.Dispatch(statusEvent)
		d.Dispatch(statusEvent)
		d.Shutdown()

		broken.AssertExpectations(t)
		healthy.AssertExpectations(t)
		assert.Equal(t, []ports.Subscriber{healthy}, registry.Subscribers(caseKey))
	})

	t.Run("panicking subscriber is isolated", func(t *testing.T) {
		registry := newMemoryRegistry()
		panicky := mocks.NewMockSubscriber("panicky")
		healthy := mocks.NewMockSubscriber("healthy")
		registry.Subscribe(panicky, caseKey)
		registry.Subscribe(healthy, caseKey)

		d := services.NewAsyncDispatcher(registry, services.DispatcherConfig{}, discardLogger())

		panicky.On("Deliver", mock.Anything, statusEvent).
			Run(func(mock.Arguments) { panic("boom") }).
			Return(nil).Once()
		healthy.On("Deliver", mock.Anything, statusEvent).Return(nil).Once()

		d.Dispatch(statusEvent)
		d.Shutdown()

		healthy.AssertExpectations(t)
		assert.Len(t, registry.Subscribers(caseKey), 1)
	})

	t.Run("no subscribers is a no-op", func(t *testing.T) {
		d := services.NewAsyncDispatcher(newMemoryRegistry(), services.DispatcherConfig{}, discardLogger())

		assert.NotPanics(t, func() {
			d.Dispatch(statusEvent)
			d.Shutdown()
		})
	})

	t.Run("dispatch after shutdown is dropped", func(t *testing.T) {
		registry := newMemoryRegistry()
		sub := mocks.NewMockSubscriber("late")
		registry.Subscribe(sub, caseKey)

		d := services.NewAsyncDispatcher(registry, services.DispatcherConfig{}, discardLogger())
		d.Shutdown()

		assert.NotPanics(t, func() { d.Dispatch(statusEvent) })
		sub.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything)
	})

	t.Run("full queue drops instead of blocking", func(t *testing.T) {
		registry := newMemoryRegistry()
		sub := mocks.NewMockSubscriber("slow")
		registry.Subscribe(sub, caseKey)

		release := make(chan struct{})
		sub.On("Deliver", mock.Anything, statusEvent).
			Run(func(mock.Arguments) { <-release }).
			Return(nil)

		d := services.NewAsyncDispatcher(registry, services.DispatcherConfig{
			Queue: services.QueueConfig{QueueSize: 1, Workers: 1},
		}, discardLogger())

		done := make(chan struct{})
		go func() {
			for i := 0; i < 10; i++ {
				d.Dispatch(statusEvent)
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Dispatch blocked")
		}

		close(release)
		d.Shutdown()
	})
}
