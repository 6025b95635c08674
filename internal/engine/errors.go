package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Issue is one rejected field of a task message.
type Issue struct {
	DataPath string `json:"dataPath"`
	Message  string `json:"message"`
}

// BadRequestError lists the fields of a task message the service rejects.
// Its message is the JSON encoding of Issues.
type BadRequestError struct {
	Issues []Issue
}

func (e *BadRequestError) Error() string {
	b, err := json.Marshal(e.Issues)
	if err != nil {
		return "bad request"
	}
	return string(b)
}

// UsersNotFoundError lists assignee emails without an account.
type UsersNotFoundError struct {
	Emails []string
}

func (e *UsersNotFoundError) Error() string {
	return "users not found: " + strings.Join(e.Emails, ", ")
}

// TaskNotFoundError reports a task id without a stored task.
type TaskNotFoundError struct {
	ID  int64
	Err error
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task %d not found", e.ID)
}

func (e *TaskNotFoundError) Unwrap() error { return e.Err }
