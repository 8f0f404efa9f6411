package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/case-event-hub/internal/core/domain"
	"github.com/lorrc/case-event-hub/internal/core/ports"
	"github.com/lorrc/case-event-hub/internal/core/utils"
)

// SignalRepository is the dashboard read model, stored in signal.
type SignalRepository struct {
	pool *pgxpool.Pool
}

var _ ports.SignalRepository = (*SignalRepository)(nil)

func NewSignalRepository(pool *pgxpool.Pool) *SignalRepository {
	return &SignalRepository{pool: pool}
}

const signalColumns = `id, type, target_kind, target, subject_kind, subject, detail, created_at`

type signalRow struct {
	ID          int64
	Type        string
	TargetKind  string
	Target      string
	SubjectKind string
	Subject     string
	Detail      pgtype.Text
	CreatedAt   time.Time
}

func (r signalRow) toDomain() *domain.Signal {
	return &domain.Signal{
		ID:        r.ID,
		Type:      domain.SignalType(r.Type),
		Target:    domain.Target{Kind: domain.TargetKind(r.TargetKind), ID: r.Target},
		Subject:   domain.Subject{Kind: domain.SubjectKind(r.SubjectKind), ID: r.Subject},
		Detail:    utils.FromString(r.Detail),
		CreatedAt: r.CreatedAt,
	}
}

// keyArgs returns the six key columns of a signal in table order.
func keyArgs(key domain.LedgerKey) []any {
	return []any{
		string(key.Type),
		string(key.TargetKind),
		key.Target,
		string(key.SubjectKind),
		key.Subject,
		utils.ToString(key.Detail),
	}
}

// Save stores signal, or moves the timestamp of an identical one forward.
func (r *SignalRepository) Save(ctx context.Context, signal *domain.Signal) (*domain.Signal, error) {
	createdAt := signal.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, `
		INSERT INTO signal (type, target_kind, target, subject_kind, subject, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT signal_key_uq
		DO UPDATE SET created_at = EXCLUDED.created_at
		RETURNING `+signalColumns,
		append(keyArgs(signal.Key()), createdAt)...,
	)
	if err != nil {
		return nil, fmt.Errorf("save signal: %w", err)
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[signalRow])
	if err != nil {
		return nil, fmt.Errorf("save signal: %w", err)
	}
	return row.toDomain(), nil
}

// List returns the signals of params.Target, newest first. Empty Types and
// Subject do not filter.
func (r *SignalRepository) List(ctx context.Context, params ports.ListSignalsParams) ([]*domain.Signal, error) {
	types := make([]string, 0, len(params.Types))
	for _, t := range params.Types {
		types = append(types, string(t))
	}

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, `
		SELECT `+signalColumns+`
		FROM signal
		WHERE target_kind = $1
		  AND target = $2
		  AND (cardinality($3::text[]) = 0 OR type = ANY($3::text[]))
		  AND ($4::text IS NULL OR subject = $4)
		ORDER BY created_at DESC, id DESC
		LIMIT $5 OFFSET $6`,
		string(params.Target.Kind),
		params.Target.ID,
		types,
		utils.ToString(params.Subject),
		params.Limit,
		params.Offset,
	)
	if err != nil {
		return nil, err
	}

	stored, err := pgx.CollectRows(rows, pgx.RowToStructByPos[signalRow])
	if err != nil {
		return nil, err
	}

	signals := make([]*domain.Signal, 0, len(stored))
	for _, row := range stored {
		signals = append(signals, row.toDomain())
	}
	return signals, nil
}

// Delete removes the signals of one type for a target, optionally only
// those about one subject.
func (r *SignalRepository) Delete(ctx context.Context, params ports.DeleteSignalsParams) (int64, error) {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, `
		DELETE FROM signal
		WHERE target_kind = $1
		  AND target = $2
		  AND type = $3
		  AND ($4::text IS NULL OR subject = $4)`,
		string(params.Target.Kind),
		params.Target.ID,
		string(params.Type),
		utils.ToString(params.Subject),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PurgeOlderThan removes signals created before cutoff.
func (r *SignalRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, `DELETE FROM signal WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
