package domain

// Task is the canonical typed form of a task submitted to the TaskService.
type Task struct {
	Description string  `json:"description"`
	Important   bool    `json:"important"`
	Private     bool    `json:"private"`
	Project     Project `json:"project,omitempty"`
	Deadline    string  `json:"deadline,omitempty" format:"date-time"`
	Completed   bool    `json:"completed"`
	Assignees   []User  `json:"assignees"`
}

// User identifies an assignee. Only the fields the mapper recognizes are kept.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// StoredTask is a task as persisted by the TaskService.
type StoredTask struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Important   bool    `json:"important"`
	Private     bool    `json:"private"`
	Project     *string `json:"project,omitempty"`
	Deadline    *string `json:"deadline,omitempty" format:"date-time"`
	Completed   bool    `json:"completed"`
	AssigneeIDs []int64 `json:"assignee_ids"`
}

// Account is a TaskService user with login credentials.
type Account struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	PasswordHash string `json:"-"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
