package tasksdk

import "fmt"

// ErrorCode is the in-band error code carried by an unsuccessful response.
type ErrorCode int

const (
	CodeInvalidCredentials ErrorCode = 100
	CodeEntityNotFound     ErrorCode = 101
	CodeBadRequest         ErrorCode = 200
	CodeInternalError      ErrorCode = 201
)

func (c ErrorCode) String() string {
	switch c {
	case CodeInvalidCredentials:
		return "INVALID_CREDENTIALS"
	case CodeEntityNotFound:
		return "ENTITY_NOT_FOUND"
	case CodeBadRequest:
		return "BAD_REQUEST"
	case CodeInternalError:
		return "INTERNAL_SERVER_ERROR"
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// Credentials authenticate a single request.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// User is the wire form of an assignee.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Task is the wire form of a task.
type Task struct {
	Description string `json:"description"`
	Important   bool   `json:"important"`
	Private     bool   `json:"private"`
	Project     string `json:"project,omitempty"`
	Deadline    string `json:"deadline,omitempty"`
	Completed   bool   `json:"completed"`
	Assignees   []User `json:"assignees,omitempty"`
}

// Error is the in-band failure of a response.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type CreateTaskRequest struct {
	Credentials Credentials `json:"credentials"`
	Task        Task        `json:"task"`
}

type CreateTaskResponse struct {
	Success bool   `json:"success"`
	Error   *Error `json:"error,omitempty"`
	TaskID  int64  `json:"task_id,omitempty"`
}

// Err returns the remote failure as an error, or nil on success.
func (r CreateTaskResponse) Err() error { return remoteErr(r.Success, r.Error) }

type CompleteTaskRequest struct {
	Credentials Credentials `json:"credentials"`
	TaskID      int64       `json:"task_id"`
}

type CompleteTaskResponse struct {
	Success bool   `json:"success"`
	Error   *Error `json:"error,omitempty"`
}

// Err returns the remote failure as an error, or nil on success.
func (r CompleteTaskResponse) Err() error { return remoteErr(r.Success, r.Error) }

// RemoteError is a request the service received and rejected.
type RemoteError struct {
	Code    ErrorCode
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, int(e.Code), e.Message)
}

func remoteErr(success bool, e *Error) error {
	if success {
		return nil
	}
	if e == nil {
		return &RemoteError{Message: "operation failed without an error"}
	}
	return &RemoteError{Code: e.Code, Message: e.Message}
}
