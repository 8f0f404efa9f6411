package domain

import (
	"fmt"

	apperrors "github.com/lorrc/case-event-hub/internal/core/errors"
)

// SignalPreference holds the opt-in settings of one owner for one signal
// type. Exactly one of GroupID and UserID is set.
type SignalPreference struct {
	ID        int64      `json:"id,omitempty"`
	Type      SignalType `json:"type"`
	GroupID   string     `json:"groupId,omitempty"`
	UserID    string     `json:"userId,omitempty"`
	Dashboard bool       `json:"dashboard"`
	Mail      bool       `json:"mail"`
}

// DefaultPreference is what an owner gets when nothing is stored.
func DefaultPreference(signalType SignalType, owner Target) SignalPreference {
	p := SignalPreference{Type: signalType}
	switch owner.Kind {
	case TargetGroup:
		p.GroupID = owner.ID
	case TargetUser:
		p.UserID = owner.ID
	}
	return p
}

// IsValid reports whether exactly one owner is set.
func (p SignalPreference) IsValid() bool {
	return (p.GroupID == "") != (p.UserID == "")
}

// Owner returns the owner as a signal target.
func (p SignalPreference) Owner() Target {
	if p.GroupID != "" {
		return GroupTarget(p.GroupID)
	}
	return UserTarget(p.UserID)
}

// IsEmpty reports whether the preference enables nothing.
func (p SignalPreference) IsEmpty() bool {
	return !p.Dashboard && !p.Mail
}

// Validate checks ownership and the signal type.
func (p SignalPreference) Validate() error {
	if !p.IsValid() {
		return apperrors.ErrAmbiguousOwner
	}
	if !p.Type.IsValid() {
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownSignalType, p.Type)
	}
	if !p.Type.Allows(p.Owner().Kind) {
		return fmt.Errorf("%w: %s for %s", apperrors.ErrTargetKindNotAllowed, p.Owner().Kind, p.Type)
	}
	return nil
}

// PreferenceSettings is the resolved outcome of a preference lookup.
type PreferenceSettings struct {
	Dashboard bool `json:"dashboard"`
	Mail      bool `json:"mail"`
}

func (p SignalPreference) Settings() PreferenceSettings {
	return PreferenceSettings{Dashboard: p.Dashboard, Mail: p.Mail}
}
