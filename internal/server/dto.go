package server

import (
	"taskline/internal/domain"
	tasksdk "taskline/sdk/go"
)

// Request bodies mirror the tasksdk messages with every scalar optional, so
// an absent field reads as its zero value and is judged by the engine rather
// than rejected by request validation.

type CredentialsBody struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

type UserBody struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type TaskBody struct {
	Description string     `json:"description,omitempty"`
	Important   bool       `json:"important,omitempty"`
	Private     bool       `json:"private,omitempty"`
	Project     string     `json:"project,omitempty" doc:"One of BACKEND, FRONTEND, OPS; matched case-insensitively."`
	Deadline    string     `json:"deadline,omitempty" doc:"ISO 8601 date-time."`
	Completed   bool       `json:"completed,omitempty"`
	Assignees   []UserBody `json:"assignees,omitempty"`
}

type CreateTaskBody struct {
	Credentials CredentialsBody `json:"credentials,omitempty"`
	Task        TaskBody        `json:"task,omitempty"`
}

type CompleteTaskBody struct {
	Credentials CredentialsBody `json:"credentials,omitempty"`
	TaskID      int64           `json:"task_id,omitempty"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

func (b TaskBody) wire() tasksdk.Task {
	t := tasksdk.Task{
		Description: b.Description,
		Important:   b.Important,
		Private:     b.Private,
		Project:     b.Project,
		Deadline:    b.Deadline,
		Completed:   b.Completed,
	}
	for _, u := range b.Assignees {
		t.Assignees = append(t.Assignees, tasksdk.User{Email: u.Email, Name: u.Name})
	}
	return t
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    e.Payload,
	}
}
