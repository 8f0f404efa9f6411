package routing_test

import (
	"testing"

	"github.com/lorrc/case-event-hub/internal/core/domain"
	"github.com/lorrc/case-event-hub/internal/core/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	caseID     = "3f0a1c5e-7a89-4a7b-9d1a-2b0c1f7e9d11"
	childID    = "9b4e6a10-1f1d-4c2e-8a55-5d6b0f4f0c22"
	decisionID = "5c1d1b9e-3e44-4a0b-9f27-07a1b2c3d4e5"
	documentID = "d6c3a0f2-8b1e-4d0c-a7a6-1e2f3a4b5c6d"
)

func caseURL(id string) string {
	return "https://zaken.example.com/zaken/api/v1/zaken/" + id
}

func res(resourceType domain.ResourceType, url string, action domain.Action) domain.ResourceInfo {
	return domain.ResourceInfo{Type: resourceType, URL: url, Action: action}
}

func TestRouter_Route_MappedPairs(t *testing.T) {
	router := routing.NewRouter()

	tests := []struct {
		name       string
		channel    domain.Channel
		main       string
		resource   domain.ResourceType
		resourceID string
		wantType   domain.EventType
		wantID     domain.EventID
	}{
		{"case itself", domain.ChannelCases, caseID, domain.ResourceCase, caseID, domain.EventCase, domain.NewEventID(caseID)},
		{"status", domain.ChannelCases, caseID, domain.ResourceStatus, childID, domain.EventCase, domain.NewDetailedEventID(caseID, childID)},
		{"result", domain.ChannelCases, caseID, domain.ResourceResult, childID, domain.EventCase, domain.NewDetailedEventID(caseID, childID)},
		{"case property", domain.ChannelCases, caseID, domain.ResourceCaseProperty, childID, domain.EventCase, domain.NewDetailedEventID(caseID, childID)},
		{"customer contact", domain.ChannelCases, caseID, domain.ResourceCustomerContact, childID, domain.EventCase, domain.NewDetailedEventID(caseID, childID)},
		{"case object", domain.ChannelCases, caseID, domain.ResourceCaseObject, childID, domain.EventCase, domain.NewDetailedEventID(caseID, childID)},
		{"case document", domain.ChannelCases, caseID, domain.ResourceCaseDocument, childID, domain.EventCaseDocuments, domain.NewDetailedEventID(caseID, childID)},
		{"role", domain.ChannelCases, caseID, domain.ResourceRole, childID, domain.EventCaseRoles, domain.NewDetailedEventID(caseID, childID)},
		{"case decision", domain.ChannelCases, caseID, domain.ResourceCaseDecision, childID, domain.EventCaseDecisions, domain.NewDetailedEventID(caseID, childID)},
		{"decision itself", domain.ChannelDecisions, decisionID, domain.ResourceDecision, decisionID, domain.EventDecision, domain.NewEventID(decisionID)},
		{"decision document", domain.ChannelDecisions, decisionID, domain.ResourceDecisionDocument, childID, domain.EventDecisionDocuments, domain.NewDetailedEventID(decisionID, childID)},
		{"document itself", domain.ChannelDocuments, documentID, domain.ResourceDocument, documentID, domain.EventDocument, domain.NewEventID(documentID)},
		{"usage rights", domain.ChannelDocuments, documentID, domain.ResourceUsageRight, childID, domain.EventDocument, domain.NewDetailedEventID(documentID, childID)},
	}

	for _, tt := range tests {
		for _, action := range []domain.Action{domain.ActionUpdate, domain.ActionDelete} {
			t.Run(tt.name+" "+string(action), func(t *testing.T) {
				wantOpcode := domain.OpcodeUpdated
				if action == domain.ActionDelete {
					wantOpcode = domain.OpcodeDeleted
				}

				events := router.Route(
					tt.channel,
					res(tt.channel.MainResourceType(), "https://registry.example.com/api/v1/x/"+tt.main, domain.ActionUpdate),
					res(tt.resource, "https://registry.example.com/api/v1/y/"+tt.resourceID, action),
				)

				require.Len(t, events, 1)
				assert.Equal(t, wantOpcode, events[0].Opcode)
				assert.Equal(t, tt.wantType, events[0].Type)
				assert.Equal(t, tt.wantID, events[0].ID)
			})
		}
	}
}

func TestRouter_Route_CreateProducesNothing(t *testing.T) {
	router := routing.NewRouter()

	pairs := []struct {
		channel  domain.Channel
		resource domain.ResourceType
	}{
		{domain.ChannelCases, domain.ResourceCase},
		{domain.ChannelCases, domain.ResourceStatus},
		{domain.ChannelCases, domain.ResourceRole},
		{domain.ChannelCases, domain.ResourceCaseDocument},
		{domain.ChannelDecisions, domain.ResourceDecision},
		{domain.ChannelDocuments, domain.ResourceDocument},
		{domain.ChannelDocuments, domain.ResourceUsageRight},
		{domain.ChannelCases, domain.ResourceType("zaaktype")},
	}

	for _, p := range pairs {
		t.Run(string(p.channel)+"/"+string(p.resource), func(t *testing.T) {
			events := router.Route(
				p.channel,
				res(p.channel.MainResourceType(), caseURL(caseID), domain.ActionCreate),
				res(p.resource, caseURL(childID), domain.ActionCreate),
			)
			assert.Empty(t, events)
		})
	}
}

func TestRouter_Route_UnmappedPairsProduceNothing(t *testing.T) {
	router := routing.NewRouter()

	tests := []struct {
		name     string
		channel  domain.Channel
		resource domain.ResourceType
	}{
		{"unknown resource on known channel", domain.ChannelCases, domain.ResourceType("zaaktype")},
		{"case resource on documents channel", domain.ChannelDocuments, domain.ResourceCase},
		{"document resource on cases channel", domain.ChannelCases, domain.ResourceDocument},
		{"unknown channel", domain.Channel("catalogi"), domain.ResourceCase},
		{"empty pair", domain.Channel(""), domain.ResourceType("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, action := range []domain.Action{domain.ActionUpdate, domain.ActionDelete} {
				events := router.Route(
					tt.channel,
					res(tt.channel.MainResourceType(), caseURL(caseID), domain.ActionUpdate),
					res(tt.resource, caseURL(childID), action),
				)
				assert.Empty(t, events)
			}
		})
	}
}

func TestRouter_Route_StatusChange(t *testing.T) {
	router := routing.NewRouter()

	events := router.Route(
		domain.ChannelCases,
		res(domain.ResourceCase, caseURL(caseID), domain.ActionUpdate),
		res(domain.ResourceStatus, "https://zaken.example.com/zaken/api/v1/statussen/"+childID, domain.ActionUpdate),
	)

	require.Len(t, events, 1)
	assert.Equal(t, domain.Event{
		Opcode: domain.OpcodeUpdated,
		Type:   domain.EventCase,
		ID:     domain.NewDetailedEventID(caseID, childID),
	}, events[0])
	assert.Equal(t, caseID+";"+childID, events[0].ID.String())
}

func TestRouter_Route_MissingMainResource(t *testing.T) {
	router := routing.NewRouter()

	events := router.Route(
		domain.ChannelCases,
		res(domain.ResourceCase, "", domain.ActionUpdate),
		res(domain.ResourceStatus, caseURL(childID), domain.ActionUpdate),
	)

	assert.Empty(t, events)
}
