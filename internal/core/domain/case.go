package domain

// RoleGenericHandler is the generic role description of a case handler.
const RoleGenericHandler = "behandelaar"

// CaseRole is a role on a case as read from the case registry. Exactly one
// of UserID and GroupID is set for handler roles.
type CaseRole struct {
	ID          string
	CaseID      string
	Generic     string
	UserID      string
	GroupID     string
	Description string
}

// IsHandler reports whether the role assigns the case to someone.
func (r CaseRole) IsHandler() bool {
	return r.Generic == RoleGenericHandler
}

// Target returns who the role points at.
func (r CaseRole) Target() Target {
	if r.UserID != "" {
		return UserTarget(r.UserID)
	}
	return GroupTarget(r.GroupID)
}

// CaseDocument links a document to a case.
type CaseDocument struct {
	ID         string
	CaseID     string
	DocumentID string
}

// TaskAssignment is reported by the workflow engine when a task changes hands.
type TaskAssignment struct {
	TaskID   string `json:"taskId"`
	CaseID   string `json:"caseId"`
	Assignee string `json:"assignee,omitempty"`
	Group    string `json:"group,omitempty"`
	Owner    string `json:"owner,omitempty"`
	Actor    string `json:"actor,omitempty"`
}

// Recipient returns the target of an assignment: the assignee when there is
// one, otherwise the candidate group.
func (a TaskAssignment) Recipient() Target {
	if a.Assignee != "" {
		return UserTarget(a.Assignee)
	}
	return GroupTarget(a.Group)
}

// EffectiveActor is the user that caused the assignment.
func (a TaskAssignment) EffectiveActor() string {
	if a.Actor != "" {
		return a.Actor
	}
	return a.Owner
}

// Contact is a directory entry for a user or group.
type Contact struct {
	ID    string
	Name  string
	Email string
}
