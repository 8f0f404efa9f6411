// Package routing maps registry change notifications onto live UI events.
package routing

import (
	"github.com/lorrc/case-event-hub/internal/core/domain"
)

// shape decides which identifiers end up in the event id.
type shape int

const (
	// direct events carry the main resource id only.
	direct shape = iota
	// related events carry the main resource id with the changed resource as detail.
	related
)

type routeKey struct {
	channel  domain.Channel
	resource domain.ResourceType
}

type route struct {
	eventType domain.EventType
	shape     shape
}

var table = map[routeKey][]route{
	{domain.ChannelCases, domain.ResourceCase}:            {{domain.EventCase, direct}},
	{domain.ChannelCases, domain.ResourceStatus}:          {{domain.EventCase, related}},
	{domain.ChannelCases, domain.ResourceResult}:          {{domain.EventCase, related}},
	{domain.ChannelCases, domain.ResourceCaseProperty}:    {{domain.EventCase, related}},
	{domain.ChannelCases, domain.ResourceCustomerContact}: {{domain.EventCase, related}},
	{domain.ChannelCases, domain.ResourceCaseObject}:      {{domain.EventCase, related}},
	{domain.ChannelCases, domain.ResourceCaseDocument}:    {{domain.EventCaseDocuments, related}},
	{domain.ChannelCases, domain.ResourceRole}:            {{domain.EventCaseRoles, related}},
	{domain.ChannelCases, domain.ResourceCaseDecision}:    {{domain.EventCaseDecisions, related}},

	{domain.ChannelDecisions, domain.ResourceDecision}:         {{domain.EventDecision, direct}},
	{domain.ChannelDecisions, domain.ResourceDecisionDocument}: {{domain.EventDecisionDocuments, related}},

	{domain.ChannelDocuments, domain.ResourceDocument}:   {{domain.EventDocument, direct}},
	{domain.ChannelDocuments, domain.ResourceUsageRight}: {{domain.EventDocument, related}},
}

// Router is the notification router. It holds no state and is safe for
// concurrent use.
type Router struct{}

func NewRouter() *Router {
	return &Router{}
}

// Route returns the events a notification produces. Creations and unknown
// (channel, resource type) pairs produce nothing.
func (r *Router) Route(channel domain.Channel, main, resource domain.ResourceInfo) []domain.Event {
	var opcode domain.Opcode
	switch resource.Action {
	case domain.ActionUpdate:
		opcode = domain.OpcodeUpdated
	case domain.ActionDelete:
		opcode = domain.OpcodeDeleted
	default:
		// A subscriber cannot be watching something that did not exist yet.
		return nil
	}

	routes, ok := table[routeKey{channel, resource.Type}]
	if !ok {
		return nil
	}

	mainID := main.ID()
	if mainID == "" {
		return nil
	}

	events := make([]domain.Event, 0, len(routes))
	for _, rt := range routes {
		id := domain.NewEventID(mainID)
		if rt.shape == related {
			id = domain.NewDetailedEventID(mainID, resource.ID())
		}
		event, err := domain.NewEvent(opcode, rt.eventType, id)
		if err != nil {
			continue
		}
		events = append(events, event)
	}
	return events
}
