package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/lorrc/case-event-hub/internal/core/domain"
	apperrors "github.com/lorrc/case-event-hub/internal/core/errors"
	"github.com/lorrc/case-event-hub/internal/core/ports"
)

// PreferenceService is the signal preference store. Owners without a
// stored row get the configured defaults.
type PreferenceService struct {
	repo     ports.PreferenceRepository
	defaults domain.PreferenceSettings
}

var _ ports.PreferenceService = (*PreferenceService)(nil)

func NewPreferenceService(repo ports.PreferenceRepository, defaults domain.PreferenceSettings) *PreferenceService {
	return &PreferenceService{repo: repo, defaults: defaults}
}

// IsEnabled returns the delivery settings of owner for signalType.
func (s *PreferenceService) IsEnabled(ctx context.Context, signalType domain.SignalType, owner domain.Target) (domain.PreferenceSettings, error) {
	if !signalType.IsValid() {
		return domain.PreferenceSettings{}, fmt.Errorf("%w: %q", apperrors.ErrUnknownSignalType, signalType)
	}

	pref, err := s.repo.Get(ctx, signalType, owner)
	if errors.Is(err, apperrors.ErrNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return domain.PreferenceSettings{}, fmt.Errorf("read preference: %w", err)
	}
	return pref.Settings(), nil
}

// Save stores pref. A preference that enables nothing is removed instead,
// so the table only holds opt-ins.
func (s *PreferenceService) Save(ctx context.Context, pref *domain.SignalPreference) (*domain.SignalPreference, error) {
	if err := pref.Validate(); err != nil {
		return nil, err
	}

	if pref.IsEmpty() {
		err := s.repo.Delete(ctx, pref.Type, pref.Owner())
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("delete preference: %w", err)
		}
		cleared := domain.DefaultPreference(pref.Type, pref.Owner())
		return &cleared, nil
	}

	return s.repo.Upsert(ctx, pref)
}

// List returns a preference for every signal type owner can receive,
// with stored rows taking precedence over defaults.
func (s *PreferenceService) List(ctx context.Context, owner domain.Target) ([]*domain.SignalPreference, error) {
	if owner.IsZero() {
		return nil, apperrors.ErrAmbiguousOwner
	}

	stored, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}

	byType := make(map[domain.SignalType]*domain.SignalPreference, len(stored))
	for _, p := range stored {
		byType[p.Type] = p
	}

	result := make([]*domain.SignalPreference, 0, len(domain.SignalTypes()))
	for _, t := range domain.SignalTypes() {
		if !t.Allows(owner.Kind) {
			continue
		}
		if p, ok := byType[t]; ok {
			result = append(result, p)
			continue
		}
		p := domain.DefaultPreference(t, owner)
		p.Dashboard = s.defaults.Dashboard
		p.Mail = s.defaults.Mail
		result = append(result, &p)
	}
	return result, nil
}
