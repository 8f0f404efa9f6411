package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/case-event-hub/internal/core/domain"
	"github.com/lorrc/case-event-hub/internal/core/ports"
)

// LedgerRepository records mailed signals in signal_sent_ledger.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

var _ ports.LedgerRepository = (*LedgerRepository)(nil)

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// A NULL detail matches a NULL detail.
const ledgerKeyCondition = `type = $1 AND target_kind = $2 AND target = $3
	AND subject_kind = $4 AND subject = $5 AND detail IS NOT DISTINCT FROM $6`

func (r *LedgerRepository) Exists(ctx context.Context, key domain.LedgerKey) (bool, error) {
	var exists bool
	err := GetDBTX(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM signal_sent_ledger WHERE `+ledgerKeyCondition+`)`,
		keyArgs(key)...,
	).Scan(&exists)
	return exists, err
}

// Insert records a mailed signal. Recording a key twice keeps the first entry.
func (r *LedgerRepository) Insert(ctx context.Context, entry domain.LedgerEntry) error {
	sentAt := entry.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	_, err := GetDBTX(ctx, r.pool).Exec(ctx, `
		INSERT INTO signal_sent_ledger (type, target_kind, target, subject_kind, subject, detail, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (type, target_kind, target, subject_kind, subject, detail) DO NOTHING`,
		append(keyArgs(entry.Key), sentAt)...,
	)
	return err
}

// DeleteByKey forgets that a signal was mailed, so it can be mailed again.
func (r *LedgerRepository) DeleteByKey(ctx context.Context, key domain.LedgerKey) (int64, error) {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx,
		`DELETE FROM signal_sent_ledger WHERE `+ledgerKeyCondition,
		keyArgs(key)...,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PurgeOlderThan removes entries sent strictly before cutoff.
func (r *LedgerRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, `DELETE FROM signal_sent_ledger WHERE sent_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
