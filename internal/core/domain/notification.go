package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/lorrc/case-event-hub/internal/core/errors"
)

// Channel is the registry area a notification originates from.
type Channel string

const (
	ChannelCases     Channel = "zaken"
	ChannelDecisions Channel = "besluiten"
	ChannelDocuments Channel = "documenten"
)

// IsValid reports whether the channel is one this engine knows about.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelCases, ChannelDecisions, ChannelDocuments:
		return true
	}
	return false
}

// MainResourceType is the resource type of the object a channel is organised around.
func (c Channel) MainResourceType() ResourceType {
	switch c {
	case ChannelCases:
		return ResourceCase
	case ChannelDecisions:
		return ResourceDecision
	case ChannelDocuments:
		return ResourceDocument
	}
	return ""
}

// ResourceType names a resource within a registry, as used on the wire.
type ResourceType string

const (
	ResourceCase            ResourceType = "zaak"
	ResourceStatus          ResourceType = "status"
	ResourceResult          ResourceType = "resultaat"
	ResourceCaseProperty    ResourceType = "zaakeigenschap"
	ResourceCustomerContact ResourceType = "klantcontact"
	ResourceCaseObject      ResourceType = "zaakobject"
	ResourceCaseDocument    ResourceType = "zaakinformatieobject"
	ResourceRole            ResourceType = "rol"
	ResourceCaseDecision    ResourceType = "zaakbesluit"

	ResourceDecision         ResourceType = "besluit"
	ResourceDecisionDocument ResourceType = "besluitinformatieobject"

	ResourceDocument   ResourceType = "enkelvoudiginformatieobject"
	ResourceUsageRight ResourceType = "gebruiksrechten"
)

// Action is the normalized mutation kind of a resource.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// ParseAction maps the notifier's verb onto an Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "create":
		return ActionCreate, nil
	case "update", "partial_update":
		return ActionUpdate, nil
	case "destroy", "delete":
		return ActionDelete, nil
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownAction, s)
}

// ResourceInfo identifies one changed resource in a registry.
type ResourceInfo struct {
	Type   ResourceType
	URL    string
	Action Action
}

// ID returns the identifier at the end of the resource URL. UUIDs are
// returned in canonical form so they compare equal to subscription keys.
func (r ResourceInfo) ID() string {
	return ResourceIDFromURL(r.URL)
}

// ResourceIDFromURL extracts the trailing path segment of a resource URL.
func ResourceIDFromURL(raw string) string {
	path := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		path = u.Path
	}
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	if id, err := uuid.Parse(path); err == nil {
		return id.String()
	}
	return path
}

// Notification is the payload posted by the notification service.
type Notification struct {
	Channel      Channel           `json:"kanaal"`
	MainResource string            `json:"hoofdObject"`
	Resource     ResourceType      `json:"resource"`
	ResourceURL  string            `json:"resourceUrl"`
	Action       string            `json:"actie"`
	CreatedAt    time.Time         `json:"aanmaakdatum"`
	Properties   map[string]string `json:"kenmerken,omitempty"`
}

// Resources splits a notification into its main resource and the resource
// that actually changed. A change to a child counts as an update of the main
// resource.
func (n Notification) Resources() (ResourceInfo, ResourceInfo, error) {
	action, err := ParseAction(n.Action)
	if err != nil {
		return ResourceInfo{}, ResourceInfo{}, err
	}

	resource := ResourceInfo{Type: n.Resource, URL: n.ResourceURL, Action: action}
	if ResourceIDFromURL(n.ResourceURL) == "" {
		return ResourceInfo{}, ResourceInfo{}, apperrors.ErrInvalidResource
	}

	mainAction := ActionUpdate
	if n.Resource == n.Channel.MainResourceType() {
		mainAction = action
	}
	main := ResourceInfo{Type: n.Channel.MainResourceType(), URL: n.MainResource, Action: mainAction}

	return main, resource, nil
}

func (n Notification) String() string {
	return fmt.Sprintf("%s %s %s (%s)", n.Channel, n.Action, n.Resource, n.ResourceURL)
}
