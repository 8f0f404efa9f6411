package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lorrc/case-event-hub/internal/core/domain"
	apperrors "github.com/lorrc/case-event-hub/internal/core/errors"
	"github.com/lorrc/case-event-hub/internal/core/ports"
)

type candidateOutcome int

const (
	outcomeSent candidateOutcome = iota
	outcomeSkipped
	outcomeFailed
)

// candidateLease hides claimed candidates from other runs. It outlasts a
// run of normal size; a run that dies leaves its claims to expire.
const candidateLease = 10 * time.Minute

// BatchSignalJob mails queued signals, at most count per run. The ledger
// makes sure a signal key is mailed once. Runs in one process never
// overlap; runs in different processes claim disjoint candidates.
type BatchSignalJob struct {
	running sync.Mutex

	queue     ports.MailQueue
	ledger    ports.LedgerRepository
	factory   ports.SignalFactory
	prefs     ports.PreferenceService
	directory ports.Directory
	mailer    ports.MailSender
	txManager ports.TransactionManager
	logger    *slog.Logger
}

var _ ports.BatchSignalJob = (*BatchSignalJob)(nil)

func NewBatchSignalJob(
	queue ports.MailQueue,
	ledger ports.LedgerRepository,
	factory ports.SignalFactory,
	prefs ports.PreferenceService,
	directory ports.Directory,
	mailer ports.MailSender,
	txManager ports.TransactionManager,
	logger *slog.Logger,
) *BatchSignalJob {
	return &BatchSignalJob{
		queue:     queue,
		ledger:    ledger,
		factory:   factory,
		prefs:     prefs,
		directory: directory,
		mailer:    mailer,
		txManager: txManager,
		logger:    logger.With("component", "batch_signal_job"),
	}
}

// Run processes up to count candidates, oldest first. A store error aborts
// the run; whatever was sent before it stays sent. A call made while
// another run is in progress returns apperrors.ErrBatchRunning.
func (j *BatchSignalJob) Run(ctx context.Context, count int) (*domain.BatchResult, error) {
	if count <= 0 {
		return nil, apperrors.ErrInvalidBatchSize
	}
	if !j.running.TryLock() {
		return nil, apperrors.ErrBatchRunning
	}
	defer j.running.Unlock()

	candidates, err := j.queue.Claim(ctx, count, candidateLease)
	if err != nil {
		return nil, fmt.Errorf("load mail candidates: %w", err)
	}

	result := &domain.BatchResult{}
	for _, c := range candidates {
		outcome, err := j.process(ctx, c)
		if err != nil {
			return result, fmt.Errorf("candidate %d: %w", c.ID, err)
		}
		switch outcome {
		case outcomeSent:
			result.Sent++
		case outcomeSkipped:
			result.Skipped++
		case outcomeFailed:
			result.Failed++
		}
	}

	remaining, err := j.queue.Count(ctx)
	if err != nil {
		return result, fmt.Errorf("count mail candidates: %w", err)
	}
	result.Remaining = remaining

	j.logger.InfoContext(ctx, "signal batch finished",
		"sent", result.Sent,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"remaining", result.Remaining,
	)
	return result, nil
}

func (j *BatchSignalJob) process(ctx context.Context, c *domain.MailCandidate) (candidateOutcome, error) {
	signal := &c.Signal

	settings, err := j.prefs.IsEnabled(ctx, signal.Type, signal.Target)
	if err != nil {
		return 0, err
	}
	if !settings.Mail {
		return outcomeSkipped, j.queue.Remove(ctx, c.ID)
	}

	key := signal.Key()
	sent, err := j.ledger.Exists(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("check ledger: %w", err)
	}
	if sent {
		return outcomeSkipped, j.queue.Remove(ctx, c.ID)
	}

	contact, err := j.recipient(ctx, signal.Target)
	if err == nil {
		err = j.mailer.Send(ctx, *contact, signal)
	}
	if err != nil {
		// Not retried: the candidate is dropped so one bad address cannot
		// block the queue.
		j.logger.WarnContext(ctx, "signal mail failed",
			"type", signal.Type,
			"target", signal.Target.String(),
			"subject", signal.Subject.ID,
			"error", err,
		)
		return outcomeFailed, j.queue.Remove(ctx, c.ID)
	}

	err = j.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := j.ledger.Insert(ctx, domain.NewLedgerEntry(key)); err != nil {
			return fmt.Errorf("record sent signal: %w", err)
		}
		return j.queue.Remove(ctx, c.ID)
	})
	if err != nil {
		return 0, err
	}
	return outcomeSent, nil
}

func (j *BatchSignalJob) recipient(ctx context.Context, target domain.Target) (*domain.Contact, error) {
	var (
		contact *domain.Contact
		err     error
	)
	switch target.Kind {
	case domain.TargetGroup:
		contact, err = j.directory.Group(ctx, target.ID)
	default:
		contact, err = j.directory.User(ctx, target.ID)
	}
	if err != nil {
		return nil, err
	}
	if contact.Email == "" {
		return nil, errors.New("no mail address for " + target.String())
	}
	return contact, nil
}

// Forget removes the ledger entry of the signal described by params, so a
// moved due date is warned about again. It returns the number of entries
// removed.
func (j *BatchSignalJob) Forget(ctx context.Context, params ports.CandidateParams) (int64, error) {
	signal, err := j.factory.Build(params.Type, params.Target, params.Subject, params.Detail)
	if err != nil {
		return 0, err
	}

	removed, err := j.ledger.DeleteByKey(ctx, signal.Key())
	if err != nil {
		return 0, fmt.Errorf("forget sent signal: %w", err)
	}
	j.logger.InfoContext(ctx, "sent signal forgotten",
		"type", signal.Type,
		"target", signal.Target.String(),
		"subject", signal.Subject.ID,
		"detail", signal.Detail,
		"removed", removed,
	)
	return removed, nil
}
