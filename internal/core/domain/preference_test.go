package domain_test

import (
	"testing"

	"github.com/lorrc/case-event-hub/internal/core/domain"
	apperrors "github.com/lorrc/case-event-hub/internal/core/errors"
	"github.com/stretchr/testify/assert"
)

func TestSignalPreference_IsValid(t *testing.T) {
	tests := []struct {
		name    string
		groupID string
		userID  string
		want    bool
	}{
		{"group only", "intake", "", true},
		{"user only", "", "jdoe", true},
		{"both", "intake", "jdoe", false},
		{"neither", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := domain.SignalPreference{Type: domain.SignalCaseAssigned, GroupID: tt.groupID, UserID: tt.userID}
			assert.Equal(t, tt.want, p.IsValid())
		})
	}
}

func TestSignalPreference_Validate(t *testing.T) {
	tests := []struct {
		name    string
		pref    domain.SignalPreference
		wantErr error
	}{
		{"valid user", domain.SignalPreference{Type: domain.SignalTaskDue, UserID: "jdoe", Mail: true}, nil},
		{"valid group", domain.SignalPreference{Type: domain.SignalCaseAssigned, GroupID: "intake", Dashboard: true}, nil},
		{"ambiguous", domain.SignalPreference{Type: domain.SignalCaseAssigned, GroupID: "intake", UserID: "jdoe"}, apperrors.ErrAmbiguousOwner},
		{"ownerless", domain.SignalPreference{Type: domain.SignalCaseAssigned}, apperrors.ErrAmbiguousOwner},
		{"unknown type", domain.SignalPreference{Type: "X", UserID: "jdoe"}, apperrors.ErrUnknownSignalType},
		{"group on user-only type", domain.SignalPreference{Type: domain.SignalCaseDue, GroupID: "intake"}, apperrors.ErrTargetKindNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pref.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDefaultPreference(t *testing.T) {
	p := domain.DefaultPreference(domain.SignalCaseAssigned, domain.GroupTarget("intake"))

	assert.Equal(t, "intake", p.GroupID)
	assert.Empty(t, p.UserID)
	assert.True(t, p.IsEmpty())
	assert.Equal(t, domain.GroupTarget("intake"), p.Owner())
	assert.Equal(t, domain.PreferenceSettings{}, p.Settings())
}
