package postgres

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/case-event-hub/internal/core/domain"
	"github.com/lorrc/case-event-hub/internal/core/ports"
)

// MailQueueRepository holds mail candidates in signal_mail_queue.
type MailQueueRepository struct {
	pool *pgxpool.Pool
}

var _ ports.MailQueue = (*MailQueueRepository)(nil)

func NewMailQueueRepository(pool *pgxpool.Pool) *MailQueueRepository {
	return &MailQueueRepository{pool: pool}
}

type mailCandidateRow struct {
	signalRow
	QueuedAt time.Time
}

func (r *MailQueueRepository) Enqueue(ctx context.Context, signal *domain.Signal) error {
	createdAt := signal.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := GetDBTX(ctx, r.pool).Exec(ctx, `
		INSERT INTO signal_mail_queue (type, target_kind, target, subject_kind, subject, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		append(keyArgs(signal.Key()), createdAt)...,
	)
	return err
}

// Claim returns up to limit unclaimed candidates, oldest first, and hides
// them from other claims for lease. Candidates are not removed; the caller
// removes each one once it is handled.
func (r *MailQueueRepository) Claim(ctx context.Context, limit int, lease time.Duration) ([]*domain.MailCandidate, error) {
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, `
		WITH next AS (
			SELECT id FROM signal_mail_queue
			WHERE claimed_until IS NULL OR claimed_until < NOW()
			ORDER BY queued_at, id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE signal_mail_queue q
		SET claimed_until = NOW() + make_interval(secs => $2)
		FROM next
		WHERE q.id = next.id
		RETURNING q.id, q.type, q.target_kind, q.target, q.subject_kind, q.subject,
			q.detail, q.created_at, q.queued_at`,
		limit, lease.Seconds(),
	)
	if err != nil {
		return nil, err
	}

	queued, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (mailCandidateRow, error) {
		var c mailCandidateRow
		err := row.Scan(
			&c.ID, &c.Type, &c.TargetKind, &c.Target, &c.SubjectKind, &c.Subject,
			&c.Detail, &c.CreatedAt, &c.QueuedAt,
		)
		return c, err
	})
	if err != nil {
		return nil, err
	}

	// UPDATE ... RETURNING does not keep the order of the claim.
	slices.SortFunc(queued, func(a, b mailCandidateRow) int {
		if c := a.QueuedAt.Compare(b.QueuedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	candidates := make([]*domain.MailCandidate, 0, len(queued))
	for _, c := range queued {
		candidates = append(candidates, &domain.MailCandidate{
			ID:       c.ID,
			Signal:   *c.toDomain(),
			QueuedAt: c.QueuedAt,
		})
	}
	return candidates, nil
}

func (r *MailQueueRepository) Remove(ctx context.Context, id int64) error {
	_, err := GetDBTX(ctx, r.pool).Exec(ctx, `DELETE FROM signal_mail_queue WHERE id = $1`, id)
	return err
}

func (r *MailQueueRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM signal_mail_queue`).Scan(&count)
	return count, err
}
