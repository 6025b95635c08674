package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"taskline/internal/domain"
	"taskline/internal/engine"
	"taskline/internal/engine/auth"
	"taskline/internal/repo"
)

type LoginBody struct {
	Email    string `json:"email,omitempty" format:"email"`
	Password string `json:"password,omitempty"`
}

type SessionResponse struct {
	ID    int64  `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

type TaskResponse struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Important   bool    `json:"important"`
	Private     bool    `json:"private"`
	Project     string  `json:"project,omitempty"`
	Deadline    string  `json:"deadline,omitempty"`
	Completed   bool    `json:"completed"`
	AssigneeIDs []int64 `json:"assignee_ids"`
}

func taskResponse(t domain.StoredTask) TaskResponse {
	out := TaskResponse{
		ID:          t.ID,
		Description: t.Description,
		Important:   t.Important,
		Private:     t.Private,
		Completed:   t.Completed,
		AssigneeIDs: t.AssigneeIDs,
	}
	if t.Project != nil {
		out.Project = *t.Project
	}
	if t.Deadline != nil {
		out.Deadline = *t.Deadline
	}
	if out.AssigneeIDs == nil {
		out.AssigneeIDs = []int64{}
	}
	return out
}

type taskListOutput struct {
	Body struct {
		Items []TaskResponse `json:"items"`
	}
}

func taskList(tasks []domain.StoredTask) *taskListOutput {
	out := &taskListOutput{}
	out.Body.Items = make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out.Body.Items = append(out.Body.Items, taskResponse(t))
	}
	return out
}

func errUnauthorized() huma.StatusError {
	return newAPIError(http.StatusUnauthorized, "unauthorized", "Authorization error", nil)
}

// registerWeb mounts the cookie session API used by browsers: login and
// logout, a public task listing and the session guarded task reads.
func registerWeb(api huma.API, e engine.Engine, s sessions, logger *log.Logger) {
	huma.Register(api, huma.Operation{
		OperationID: "authenticate-user",
		Method:      http.MethodPost,
		Path:        "/users/authenticator",
		Summary:     "Start or end a session",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Type string `query:"type" enum:"login,logout" required:"true"`
		Body LoginBody
	}) (*struct {
		SetCookie http.Cookie `header:"Set-Cookie"`
		Body      SessionResponse
	}, error) {
		out := &struct {
			SetCookie http.Cookie `header:"Set-Cookie"`
			Body      SessionResponse
		}{}
		if input.Type == "logout" {
			out.SetCookie = clearedCookie()
			return out, nil
		}
		a, err := e.Login(ctx, input.Body.Email, input.Body.Password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
		}
		if err != nil {
			logger.Printf("login failed: %v request_id=%s", err, requestIDFromContext(ctx))
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", "internal error", nil)
		}
		token, expires, err := s.issue(a)
		if err != nil {
			logger.Printf("sign session: %v", err)
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", "internal error", nil)
		}
		out.SetCookie = s.cookie(token, expires)
		out.Body = SessionResponse{ID: a.ID, Email: a.Email, Name: a.Name}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-public-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks/public",
		Summary:     "List tasks that are not private",
	}, func(ctx context.Context, input *struct {
		Limit  int `query:"limit" default:"100" minimum:"1" maximum:"500"`
		Offset int `query:"offset" minimum:"0"`
	}) (*taskListOutput, error) {
		tasks, err := e.Tasks(ctx, repo.TaskFilter{PublicOnly: true, Limit: input.Limit, Offset: input.Offset})
		if err != nil {
			logger.Printf("list public tasks: %v", err)
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", "internal error", nil)
		}
		return taskList(tasks), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks for a signed in user",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Session  string `cookie:"token"`
		Assigned bool   `query:"assigned" doc:"Only tasks assigned to the signed in user"`
		Limit    int    `query:"limit" default:"100" minimum:"1" maximum:"500"`
		Offset   int    `query:"offset" minimum:"0"`
	}) (*taskListOutput, error) {
		userID, err := s.verify(input.Session)
		if err != nil {
			return nil, errUnauthorized()
		}
		f := repo.TaskFilter{Limit: input.Limit, Offset: input.Offset}
		if input.Assigned {
			f.AssigneeID = userID
		}
		tasks, err := e.Tasks(ctx, f)
		if err != nil {
			logger.Printf("list tasks: %v", err)
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", "internal error", nil)
		}
		return taskList(tasks), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{taskId}",
		Summary:     "Get a single task",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Session string `cookie:"token"`
		TaskID  int64  `path:"taskId"`
	}) (*struct {
		Body TaskResponse
	}, error) {
		if _, err := s.verify(input.Session); err != nil {
			return nil, errUnauthorized()
		}
		t, err := e.Task(ctx, input.TaskID)
		var notFound *engine.TaskNotFoundError
		if errors.As(err, &notFound) {
			return nil, newAPIError(http.StatusNotFound, "not_found", notFound.Error(), nil)
		}
		if err != nil {
			logger.Printf("get task %d: %v", input.TaskID, err)
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", "internal error", nil)
		}
		return &struct {
			Body TaskResponse
		}{Body: taskResponse(t)}, nil
	})
}
