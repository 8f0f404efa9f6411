package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/case-event-hub/internal/core/domain"
	apperrors "github.com/lorrc/case-event-hub/internal/core/errors"
	"github.com/lorrc/case-event-hub/internal/core/ports"
	"github.com/lorrc/case-event-hub/internal/core/utils"
)

// PreferenceRepository stores signal preferences in signal_preference.
type PreferenceRepository struct {
	pool *pgxpool.Pool
}

var _ ports.PreferenceRepository = (*PreferenceRepository)(nil)

func NewPreferenceRepository(pool *pgxpool.Pool) *PreferenceRepository {
	return &PreferenceRepository{pool: pool}
}

const preferenceColumns = `id, type, group_id, user_id, dashboard, mail`

// The owner columns are compared with IS NOT DISTINCT FROM so that the
// unused one matches NULL.
const ownerCondition = `group_id IS NOT DISTINCT FROM $1 AND user_id IS NOT DISTINCT FROM $2`

type preferenceRow struct {
	ID        int64
	Type      string
	GroupID   pgtype.Text
	UserID    pgtype.Text
	Dashboard bool
	Mail      bool
}

func (r preferenceRow) toDomain() *domain.SignalPreference {
	return &domain.SignalPreference{
		ID:        r.ID,
		Type:      domain.SignalType(r.Type),
		GroupID:   utils.FromString(r.GroupID),
		UserID:    utils.FromString(r.UserID),
		Dashboard: r.Dashboard,
		Mail:      r.Mail,
	}
}

func ownerArgs(owner domain.Target) (pgtype.Text, pgtype.Text) {
	if owner.Kind == domain.TargetGroup {
		return utils.ToString(owner.ID), pgtype.Text{}
	}
	return pgtype.Text{}, utils.ToString(owner.ID)
}

// Get returns the stored preference of owner for signalType.
func (r *PreferenceRepository) Get(ctx context.Context, signalType domain.SignalType, owner domain.Target) (*domain.SignalPreference, error) {
	groupID, userID := ownerArgs(owner)
	rows, err := GetDBTX(ctx, r.pool).Query(ctx,
		`SELECT `+preferenceColumns+` FROM signal_preference WHERE `+ownerCondition+` AND type = $3`,
		groupID, userID, string(signalType),
	)
	if err != nil {
		return nil, err
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[preferenceRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// ListByOwner returns all stored preferences of owner.
func (r *PreferenceRepository) ListByOwner(ctx context.Context, owner domain.Target) ([]*domain.SignalPreference, error) {
	groupID, userID := ownerArgs(owner)
	rows, err := GetDBTX(ctx, r.pool).Query(ctx,
		`SELECT `+preferenceColumns+` FROM signal_preference WHERE `+ownerCondition+` ORDER BY type`,
		groupID, userID,
	)
	if err != nil {
		return nil, err
	}

	stored, err := pgx.CollectRows(rows, pgx.RowToStructByPos[preferenceRow])
	if err != nil {
		return nil, err
	}

	prefs := make([]*domain.SignalPreference, 0, len(stored))
	for _, row := range stored {
		prefs = append(prefs, row.toDomain())
	}
	return prefs, nil
}

// Upsert inserts pref or replaces the flags of the existing row.
func (r *PreferenceRepository) Upsert(ctx context.Context, pref *domain.SignalPreference) (*domain.SignalPreference, error) {
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, `
		INSERT INTO signal_preference (type, group_id, user_id, dashboard, mail)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT signal_preference_owner_uq
		DO UPDATE SET dashboard = EXCLUDED.dashboard, mail = EXCLUDED.mail
		RETURNING `+preferenceColumns,
		string(pref.Type),
		utils.ToString(pref.GroupID),
		utils.ToString(pref.UserID),
		pref.Dashboard,
		pref.Mail,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert preference: %w", err)
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[preferenceRow])
	if err != nil {
		return nil, fmt.Errorf("upsert preference: %w", err)
	}
	return row.toDomain(), nil
}

// Delete removes the preference of owner for signalType.
func (r *PreferenceRepository) Delete(ctx context.Context, signalType domain.SignalType, owner domain.Target) error {
	groupID, userID := ownerArgs(owner)
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx,
		`DELETE FROM signal_preference WHERE `+ownerCondition+` AND type = $3`,
		groupID, userID, string(signalType),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
