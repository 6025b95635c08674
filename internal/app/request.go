package app

import (
	"fmt"
	"strconv"
	"strings"

	"taskline/internal/domain"
	tasksdk "taskline/sdk/go"
)

// MalformedTaskIDError reports a task id that is not an integer.
type MalformedTaskIDError struct {
	Input string
	Err   error
}

func (e *MalformedTaskIDError) Error() string {
	return fmt.Sprintf("malformed task id %q: must be an integer", e.Input)
}

func (e *MalformedTaskIDError) Unwrap() error { return e.Err }

// ParseTaskID parses the argument of --complete-task. Whether a task with
// that id exists, including ids below 1, is for the service to answer.
func ParseTaskID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, &MalformedTaskIDError{Input: s, Err: err}
	}
	return id, nil
}

func NewCreateTaskRequest(creds tasksdk.Credentials, t domain.Task) tasksdk.CreateTaskRequest {
	return tasksdk.CreateTaskRequest{Credentials: creds, Task: WireTask(t)}
}

func NewCompleteTaskRequest(creds tasksdk.Credentials, id int64) tasksdk.CompleteTaskRequest {
	return tasksdk.CompleteTaskRequest{Credentials: creds, TaskID: id}
}

// WireTask converts a task into its wire form.
func WireTask(t domain.Task) tasksdk.Task {
	w := tasksdk.Task{
		Description: t.Description,
		Important:   t.Important,
		Private:     t.Private,
		Project:     string(t.Project),
		Deadline:    t.Deadline,
		Completed:   t.Completed,
	}
	for _, u := range t.Assignees {
		w.Assignees = append(w.Assignees, tasksdk.User{Email: u.Email, Name: u.Name})
	}
	return w
}

// DomainTask converts a received wire task. The project is carried as
// received; the service resolves it against domain.Projects once the caller
// is authenticated.
func DomainTask(w tasksdk.Task) domain.Task {
	t := domain.Task{
		Description: w.Description,
		Important:   w.Important,
		Private:     w.Private,
		Project:     domain.Project(w.Project),
		Deadline:    w.Deadline,
		Completed:   w.Completed,
	}
	for _, u := range w.Assignees {
		t.Assignees = append(t.Assignees, domain.User{Email: u.Email, Name: u.Name})
	}
	return t
}
