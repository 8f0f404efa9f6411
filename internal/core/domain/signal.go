package domain

import (
	"fmt"
	"time"

	apperrors "github.com/lorrc/case-event-hub/internal/core/errors"
)

// TargetKind tells whether a signal is addressed to a user or a group.
type TargetKind string

const (
	TargetUser  TargetKind = "USER"
	TargetGroup TargetKind = "GROUP"
)

// Target is the recipient of a signal.
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id"`
}

func UserTarget(id string) Target  { return Target{Kind: TargetUser, ID: id} }
func GroupTarget(id string) Target { return Target{Kind: TargetGroup, ID: id} }

func (t Target) IsZero() bool { return t.ID == "" }

func (t Target) String() string {
	return string(t.Kind) + ":" + t.ID
}

// Subject is the object a signal is about. The kind tag is checked against
// the signal type whenever it is assigned to a signal.
type Subject struct {
	Kind SubjectKind `json:"kind"`
	ID   string      `json:"id"`
}

// CaseSubject refers to a case by its content id.
func CaseSubject(id string) Subject { return Subject{Kind: SubjectCase, ID: id} }

// TaskSubject refers to a task by its workflow engine id.
func TaskSubject(id string) Subject { return Subject{Kind: SubjectTask, ID: id} }

// DocumentSubject refers to a document by its content id.
func DocumentSubject(id string) Subject { return Subject{Kind: SubjectDocument, ID: id} }

func (s Subject) IsZero() bool { return s.ID == "" }

// Detail values used by due-date signals.
const (
	DetailTargetDate = "TARGET_DATE"
	DetailFatalDate  = "FATAL_DATE"
)

// SignalType is the catalog of things a user or group can be signalled about.
type SignalType string

const (
	SignalCaseAssigned      SignalType = "CASE_ASSIGNED"
	SignalCaseDocumentAdded SignalType = "CASE_DOCUMENT_ADDED"
	SignalCaseDue           SignalType = "CASE_DUE"
	SignalTaskAssigned      SignalType = "TASK_ASSIGNED"
	SignalTaskDue           SignalType = "TASK_DUE"
)

type signalTypeInfo struct {
	subject   SubjectKind
	targets   []TargetKind
	dashboard bool
	details   []string
}

var signalTypes = map[SignalType]signalTypeInfo{
	SignalCaseAssigned:      {subject: SubjectCase, targets: []TargetKind{TargetUser, TargetGroup}, dashboard: true},
	SignalCaseDocumentAdded: {subject: SubjectCase, targets: []TargetKind{TargetUser}, dashboard: true},
	SignalCaseDue:           {subject: SubjectCase, targets: []TargetKind{TargetUser}, details: []string{DetailTargetDate, DetailFatalDate}},
	SignalTaskAssigned:      {subject: SubjectTask, targets: []TargetKind{TargetUser, TargetGroup}, dashboard: true},
	SignalTaskDue:           {subject: SubjectTask, targets: []TargetKind{TargetUser}},
}

// SignalTypes lists the catalog in display order.
func SignalTypes() []SignalType {
	return []SignalType{
		SignalCaseAssigned, SignalCaseDocumentAdded, SignalCaseDue,
		SignalTaskAssigned, SignalTaskDue,
	}
}

// ParseSignalType validates a signal type name.
func ParseSignalType(s string) (SignalType, error) {
	t := SignalType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownSignalType, s)
	}
	return t, nil
}

func (t SignalType) IsValid() bool {
	_, ok := signalTypes[t]
	return ok
}

// SubjectKind is the only subject kind a signal of this type may carry.
func (t SignalType) SubjectKind() SubjectKind {
	return signalTypes[t].subject
}

// Allows reports whether signals of this type can be addressed to kind.
func (t SignalType) Allows(kind TargetKind) bool {
	for _, k := range signalTypes[t].targets {
		if k == kind {
			return true
		}
	}
	return false
}

// HasDashboard reports whether the type is shown on the dashboard.
// Due-date signals are mail only.
func (t SignalType) HasDashboard() bool {
	return signalTypes[t].dashboard
}

// AcceptsDetail reports whether detail is a legal refinement for the type.
// Types without a fixed detail list take free-form details.
func (t SignalType) AcceptsDetail(detail string) bool {
	allowed := signalTypes[t].details
	if len(allowed) == 0 || detail == "" {
		return true
	}
	for _, d := range allowed {
		if d == detail {
			return true
		}
	}
	return false
}

// Signal is a notification of interest for one target about one subject.
type Signal struct {
	ID        int64      `json:"id"`
	Type      SignalType `json:"type"`
	Target    Target     `json:"target"`
	Subject   Subject    `json:"subject"`
	Detail    string     `json:"detail,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// NewSignal returns an empty signal of the given type addressed to target.
func NewSignal(signalType SignalType, target Target) (*Signal, error) {
	if !signalType.IsValid() {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownSignalType, signalType)
	}
	if target.IsZero() {
		return nil, apperrors.ErrTargetRequired
	}
	if !signalType.Allows(target.Kind) {
		return nil, fmt.Errorf("%w: %s for %s", apperrors.ErrTargetKindNotAllowed, target.Kind, signalType)
	}
	return &Signal{
		Type:      signalType,
		Target:    target,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SetSubject assigns the subject, failing when its kind does not match the
// signal type.
func (s *Signal) SetSubject(subject Subject) error {
	if subject.IsZero() {
		return apperrors.ErrSubjectRequired
	}
	if subject.Kind != s.Type.SubjectKind() {
		return fmt.Errorf("%w: %s expects %s, got %s",
			apperrors.ErrSubjectKindMismatch, s.Type, s.Type.SubjectKind(), subject.Kind)
	}
	s.Subject = subject
	return nil
}

// SetDetail refines the signal.
func (s *Signal) SetDetail(detail string) error {
	if !s.Type.AcceptsDetail(detail) {
		return fmt.Errorf("%w: %q for %s", apperrors.ErrInvalidDetail, detail, s.Type)
	}
	s.Detail = detail
	return nil
}

// Key returns the ledger key identifying this signal for duplicate suppression.
func (s *Signal) Key() LedgerKey {
	return LedgerKey{
		Type:        s.Type,
		TargetKind:  s.Target.Kind,
		Target:      s.Target.ID,
		SubjectKind: s.Subject.Kind,
		Subject:     s.Subject.ID,
		Detail:      s.Detail,
	}
}
