package ports

import (
	"context"

	"github.com/lorrc/case-event-hub/internal/core/domain"
)

// Subscriber is a live connection that can receive events.
type Subscriber interface {
	ID() string
	Deliver(ctx context.Context, event domain.Event) error
}

// SubscriptionHandle identifies one registered interest.
type SubscriptionHandle struct {
	Subscriber Subscriber
	Key        domain.SubscriptionKey
}

// SubscriptionRegistry tracks which connections watch which keys.
// Subscribers returns a snapshot that is safe to iterate without locks.
type SubscriptionRegistry interface {
	Subscribe(sub Subscriber, key domain.SubscriptionKey) SubscriptionHandle
	Unsubscribe(handle SubscriptionHandle)
	UnsubscribeAll(sub Subscriber)
	Subscribers(key domain.SubscriptionKey) []Subscriber
}

// NotificationRouter turns a registry notification into live events.
type NotificationRouter interface {
	Route(channel domain.Channel, main, resource domain.ResourceInfo) []domain.Event
}

// Dispatcher delivers events to live subscribers in the background.
type Dispatcher interface {
	Dispatch(event domain.Event)
	Shutdown()
}

// SignalFactory builds signals, rejecting subjects of the wrong kind.
type SignalFactory interface {
	Build(signalType domain.SignalType, target domain.Target, subject domain.Subject, detail string) (*domain.Signal, error)
}

// PreferenceService is the signal preference store.
type PreferenceService interface {
	IsEnabled(ctx context.Context, signalType domain.SignalType, owner domain.Target) (domain.PreferenceSettings, error)
	Save(ctx context.Context, pref *domain.SignalPreference) (*domain.SignalPreference, error)
	List(ctx context.Context, owner domain.Target) ([]*domain.SignalPreference, error)
}

// CandidateParams describes a signal raised by an external scheduler.
type CandidateParams struct {
	Type    domain.SignalType
	Target  domain.Target
	Subject domain.Subject
	Detail  string
}

// SignalService raises signals from observed mutations and serves the
// dashboard read model.
type SignalService interface {
	HandleNotification(ctx context.Context, notification domain.Notification)
	HandleTaskAssignment(ctx context.Context, assignment domain.TaskAssignment)
	EnqueueCandidate(ctx context.Context, params CandidateParams) (*domain.Signal, error)
	ListSignals(ctx context.Context, params ListSignalsParams) ([]*domain.Signal, error)
	DismissSignals(ctx context.Context, params DeleteSignalsParams) (int64, error)
	Shutdown()
}

// BatchSignalJob mails a bounded number of queued signals per run. Forget
// removes the ledger entry of a signal so the next candidate for it is
// mailed again.
type BatchSignalJob interface {
	Run(ctx context.Context, count int) (*domain.BatchResult, error)
	Forget(ctx context.Context, params CandidateParams) (int64, error)
}

// RetentionSweeper removes aged rows.
type RetentionSweeper interface {
	Purge(ctx context.Context, olderThanDays int) (int64, error)
	PurgeDashboard(ctx context.Context, olderThanDays int) (int64, error)
}

// NotificationService is the entry point for registry notifications.
type NotificationService interface {
	Handle(ctx context.Context, notification domain.Notification) error
	HandleTaskAssignment(ctx context.Context, assignment domain.TaskAssignment) error
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
