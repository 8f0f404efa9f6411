package domain

import (
	"fmt"
	"strings"

	apperrors "github.com/lorrc/case-event-hub/internal/core/errors"
)

// Opcode is the outcome an event reports to its subscribers.
type Opcode string

const (
	OpcodeUpdated Opcode = "UPDATED"
	OpcodeDeleted Opcode = "DELETED"
	OpcodeSkipped Opcode = "SKIPPED"
)

// SubjectKind identifies what an identifier refers to.
type SubjectKind string

const (
	SubjectCase         SubjectKind = "CASE"
	SubjectTask         SubjectKind = "TASK"
	SubjectDocument     SubjectKind = "DOCUMENT"
	SubjectDecision     SubjectKind = "DECISION"
	SubjectSignalTarget SubjectKind = "SIGNAL_TARGET"
)

// EventType is a UI-observable resource family.
type EventType string

const (
	EventCase              EventType = "CASE"
	EventCaseDocuments     EventType = "CASE_DOCUMENTS"
	EventCaseRoles         EventType = "CASE_ROLES"
	EventCaseDecisions     EventType = "CASE_DECISIONS"
	EventCaseTasks         EventType = "CASE_TASKS"
	EventDecision          EventType = "DECISION"
	EventDecisionDocuments EventType = "DECISION_DOCUMENTS"
	EventDocument          EventType = "DOCUMENT"
	EventTask              EventType = "TASK"
	EventSignalTargets     EventType = "SIGNAL_TARGETS"
)

var eventSubjects = map[EventType]SubjectKind{
	EventCase:              SubjectCase,
	EventCaseDocuments:     SubjectCase,
	EventCaseRoles:         SubjectCase,
	EventCaseDecisions:     SubjectCase,
	EventCaseTasks:         SubjectCase,
	EventDecision:          SubjectDecision,
	EventDecisionDocuments: SubjectDecision,
	EventDocument:          SubjectDocument,
	EventTask:              SubjectTask,
	EventSignalTargets:     SubjectSignalTarget,
}

// IsValid reports whether t is part of the catalog.
func (t EventType) IsValid() bool {
	_, ok := eventSubjects[t]
	return ok
}

// SubjectKind returns the kind of identifier carried in EventID.Resource.
func (t EventType) SubjectKind() SubjectKind {
	return eventSubjects[t]
}

// EventTypes lists the catalog.
func EventTypes() []EventType {
	return []EventType{
		EventCase, EventCaseDocuments, EventCaseRoles, EventCaseDecisions, EventCaseTasks,
		EventDecision, EventDecisionDocuments, EventDocument, EventTask, EventSignalTargets,
	}
}

const eventIDSeparator = ";"

// EventID names the object an event is about. Detail is optional and
// empty when absent.
type EventID struct {
	Resource string
	Detail   string
}

// NewEventID returns an id without detail.
func NewEventID(resource string) EventID {
	return EventID{Resource: resource}
}

// NewDetailedEventID returns an id refined by a detail.
func NewDetailedEventID(resource, detail string) EventID {
	return EventID{Resource: resource, Detail: detail}
}

// HasDetail reports whether the id carries a detail.
func (id EventID) HasDetail() bool {
	return id.Detail != ""
}

// Validate checks that the id survives an encode/decode round trip.
func (id EventID) Validate() error {
	if id.Resource == "" {
		return fmt.Errorf("%w: resource is empty", apperrors.ErrInvalidEventID)
	}
	if strings.Contains(id.Resource, eventIDSeparator) {
		return fmt.Errorf("%w: resource contains %q", apperrors.ErrInvalidEventID, eventIDSeparator)
	}
	return nil
}

// String returns the canonical encoding: "resource" or "resource;detail".
func (id EventID) String() string {
	if id.Detail == "" {
		return id.Resource
	}
	return id.Resource + eventIDSeparator + id.Detail
}

// ParseEventID decodes the canonical encoding.
func ParseEventID(s string) (EventID, error) {
	resource, detail, found := strings.Cut(s, eventIDSeparator)
	if resource == "" {
		return EventID{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidEventID, s)
	}
	if found && detail == "" {
		return EventID{}, fmt.Errorf("%w: empty detail in %q", apperrors.ErrInvalidEventID, s)
	}
	return EventID{Resource: resource, Detail: detail}, nil
}

func (id EventID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *EventID) UnmarshalText(text []byte) error {
	parsed, err := ParseEventID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Event is an ephemeral change hint for live subscribers.
type Event struct {
	Opcode Opcode    `json:"opcode"`
	Type   EventType `json:"objectType"`
	ID     EventID   `json:"objectId"`
}

// NewEvent builds an event, rejecting unknown types and malformed ids.
func NewEvent(opcode Opcode, eventType EventType, id EventID) (Event, error) {
	if !eventType.IsValid() {
		return Event{}, fmt.Errorf("%w: %q", apperrors.ErrUnknownEventType, eventType)
	}
	if err := id.Validate(); err != nil {
		return Event{}, err
	}
	return Event{Opcode: opcode, Type: eventType, ID: id}, nil
}

// Key returns the subscription key this event is delivered to. The detail
// is a hint for the receiver and takes no part in matching.
func (e Event) Key() SubscriptionKey {
	return NewSubscriptionKey(e.Type, e.ID)
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s %s", e.Opcode, e.Type, e.ID)
}

// SubscriptionKey is the (type, resource) pair a client registers
// interest in.
type SubscriptionKey struct {
	Type     EventType
	Resource string
}

// NewSubscriptionKey drops the detail of id.
func NewSubscriptionKey(eventType EventType, id EventID) SubscriptionKey {
	return SubscriptionKey{Type: eventType, Resource: id.Resource}
}

func (k SubscriptionKey) String() string {
	return fmt.Sprintf("%s %s", k.Type, k.Resource)
}

// SignalTargetsEvent announces that the dashboard signals of a target
// changed for one signal type.
func SignalTargetsEvent(target Target, signalType SignalType) Event {
	return Event{
		Opcode: OpcodeUpdated,
		Type:   EventSignalTargets,
		ID:     NewDetailedEventID(target.ID, string(signalType)),
	}
}
