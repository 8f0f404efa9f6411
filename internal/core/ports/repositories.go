package ports

import (
	"context"
	"time"

	"github.com/lorrc/case-event-hub/internal/core/domain"
)

// PreferenceRepository stores signal preferences. Get returns
// apperrors.ErrNotFound when no row exists for the owner.
type PreferenceRepository interface {
	Get(ctx context.Context, signalType domain.SignalType, owner domain.Target) (*domain.SignalPreference, error)
	ListByOwner(ctx context.Context, owner domain.Target) ([]*domain.SignalPreference, error)
	Upsert(ctx context.Context, pref *domain.SignalPreference) (*domain.SignalPreference, error)
	Delete(ctx context.Context, signalType domain.SignalType, owner domain.Target) error
}

// LedgerRepository is the record of mailed signals. Insert of a key that is
// already recorded is a no-op.
type LedgerRepository interface {
	Exists(ctx context.Context, key domain.LedgerKey) (bool, error)
	Insert(ctx context.Context, entry domain.LedgerEntry) error
	DeleteByKey(ctx context.Context, key domain.LedgerKey) (int64, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ListSignalsParams filters the dashboard read model.
type ListSignalsParams struct {
	Target  domain.Target
	Types   []domain.SignalType
	Subject string
	Limit   int
	Offset  int
}

// DeleteSignalsParams selects dashboard signals to remove.
type DeleteSignalsParams struct {
	Target  domain.Target
	Type    domain.SignalType
	Subject string
}

// SignalRepository is the dashboard read model. Save replaces the timestamp
// of an identical signal instead of storing a second copy.
type SignalRepository interface {
	Save(ctx context.Context, signal *domain.Signal) (*domain.Signal, error)
	List(ctx context.Context, params ListSignalsParams) ([]*domain.Signal, error)
	Delete(ctx context.Context, params DeleteSignalsParams) (int64, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// MailQueue holds signals waiting for the batch mail job, oldest first.
// A claimed candidate is invisible to other claims until its lease ends.
type MailQueue interface {
	Enqueue(ctx context.Context, signal *domain.Signal) error
	Claim(ctx context.Context, limit int, lease time.Duration) ([]*domain.MailCandidate, error)
	Remove(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// CaseRegistry reads the case data needed to resolve signal targets.
type CaseRegistry interface {
	ReadRole(ctx context.Context, roleURL string) (*domain.CaseRole, error)
	ListHandlerRoles(ctx context.Context, caseURL string) ([]*domain.CaseRole, error)
	ReadCaseDocument(ctx context.Context, caseDocumentURL string) (*domain.CaseDocument, error)
}

// Directory resolves users and groups to contact details. Both lookups
// return apperrors.ErrNotFound for unknown ids.
type Directory interface {
	User(ctx context.Context, id string) (*domain.Contact, error)
	Group(ctx context.Context, id string) (*domain.Contact, error)
}

// MailSender delivers one signal by mail.
type MailSender interface {
	Send(ctx context.Context, to domain.Contact, signal *domain.Signal) error
}
