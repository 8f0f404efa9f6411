package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/lorrc/case-event-hub/internal/core/errors"
	"github.com/lorrc/case-event-hub/internal/core/ports"
)

// RetentionSweeper deletes ledger and dashboard rows by age.
type RetentionSweeper struct {
	ledger  ports.LedgerRepository
	signals ports.SignalRepository
	now     func() time.Time
	logger  *slog.Logger
}

var _ ports.RetentionSweeper = (*RetentionSweeper)(nil)

func NewRetentionSweeper(ledger ports.LedgerRepository, signals ports.SignalRepository, logger *slog.Logger) *RetentionSweeper {
	return &RetentionSweeper{
		ledger:  ledger,
		signals: signals,
		now:     time.Now,
		logger:  logger.With("component", "retention_sweeper"),
	}
}

// Purge removes ledger entries sent more than olderThanDays days ago and
// returns how many were removed.
func (r *RetentionSweeper) Purge(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff, err := r.cutoff(olderThanDays)
	if err != nil {
		return 0, err
	}

	removed, err := r.ledger.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge ledger: %w", err)
	}
	r.logger.InfoContext(ctx, "ledger purged", "cutoff", cutoff, "removed", removed)
	return removed, nil
}

// PurgeDashboard removes dashboard signals older than olderThanDays days.
func (r *RetentionSweeper) PurgeDashboard(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff, err := r.cutoff(olderThanDays)
	if err != nil {
		return 0, err
	}

	removed, err := r.signals.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge dashboard signals: %w", err)
	}
	r.logger.InfoContext(ctx, "dashboard signals purged", "cutoff", cutoff, "removed", removed)
	return removed, nil
}

func (r *RetentionSweeper) cutoff(days int) (time.Time, error) {
	if days < 0 {
		return time.Time{}, apperrors.ErrInvalidRetentionDays
	}
	return r.now().UTC().AddDate(0, 0, -days), nil
}
