package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"taskline/internal/app"
	"taskline/internal/engine"
	"taskline/internal/engine/auth"
	tasksdk "taskline/sdk/go"
)

// Config for the TaskService handler.
type Config struct {
	Engine engine.Engine
	Logger *log.Logger
	// JWTSecret signs browser session tokens. Empty means a random secret
	// per process.
	JWTSecret  string
	SessionTTL time.Duration
	Now        func() time.Time
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"bad_request"`
	Message string         `json:"message" example:"request body is not a valid message"`
	Details map[string]any `json:"details,omitempty"`
}

// apiError is the envelope for failures outside the RPC protocol, such as
// unparsable bodies or unknown routes. Protocol failures travel in-band.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the TaskService RPC methods under
// /rpc/TaskService and the cookie session API under /api.
func New(cfg Config) (http.Handler, error) {
	logger := cfg.logger()
	sess, err := newSessions(cfg)
	if err != nil {
		return nil, err
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(withRequestID)
	router.Use(withAccessLog(logger))

	hcfg := huma.DefaultConfig("TaskService", "1.0.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	rpc := huma.NewGroup(api, "/rpc/TaskService")

	registerHealth(api)
	registerCreateTask(rpc, cfg.Engine, logger)
	registerCompleteTask(rpc, cfg.Engine, logger)
	registerEvents(api, cfg.Engine)
	registerWeb(huma.NewGroup(api, "/api"), cfg.Engine, sess, logger)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// rpcError maps an engine failure to the protocol error table. Anything
// unrecognised is logged and reported as an internal error.
func rpcError(ctx context.Context, logger *log.Logger, method string, err error) *tasksdk.Error {
	var (
		bad      *engine.BadRequestError
		users    *engine.UsersNotFoundError
		notFound *engine.TaskNotFoundError
	)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &tasksdk.Error{Code: tasksdk.CodeInvalidCredentials, Message: "invalid credentials"}
	case errors.As(err, &bad):
		return &tasksdk.Error{Code: tasksdk.CodeBadRequest, Message: bad.Error()}
	case errors.As(err, &users):
		return &tasksdk.Error{Code: tasksdk.CodeEntityNotFound, Message: users.Error()}
	case errors.As(err, &notFound):
		return &tasksdk.Error{Code: tasksdk.CodeEntityNotFound, Message: notFound.Error()}
	default:
		logger.Printf("%s failed: %v request_id=%s", method, err, requestIDFromContext(ctx))
		return &tasksdk.Error{Code: tasksdk.CodeInternalError, Message: "internal server error"}
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerCreateTask(api huma.API, e engine.Engine, logger *log.Logger) {
	huma.Register(api, huma.Operation{
		OperationID: "create-task",
		Method:      http.MethodPost,
		Path:        "/CreateTask",
		Summary:     "Create a task",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskBody `json:"body"`
	}) (*struct {
		Body tasksdk.CreateTaskResponse `json:"body"`
	}, error) {
		out := &struct {
			Body tasksdk.CreateTaskResponse `json:"body"`
		}{}
		creds := input.Body.Credentials
		stored, err := e.CreateTask(ctx, creds.Username, creds.Password, app.DomainTask(input.Body.Task.wire()))
		if err != nil {
			out.Body.Error = rpcError(ctx, logger, "CreateTask", err)
			return out, nil
		}
		out.Body.Success = true
		out.Body.TaskID = stored.ID
		return out, nil
	})
}

func registerCompleteTask(api huma.API, e engine.Engine, logger *log.Logger) {
	huma.Register(api, huma.Operation{
		OperationID: "complete-task",
		Method:      http.MethodPost,
		Path:        "/CompleteTask",
		Summary:     "Mark a task completed",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CompleteTaskBody `json:"body"`
	}) (*struct {
		Body tasksdk.CompleteTaskResponse `json:"body"`
	}, error) {
		out := &struct {
			Body tasksdk.CompleteTaskResponse `json:"body"`
		}{}
		creds := input.Body.Credentials
		if err := e.CompleteTask(ctx, creds.Username, creds.Password, input.Body.TaskID); err != nil {
			out.Body.Error = rpcError(ctx, logger, "CompleteTask", err)
			return out, nil
		}
		out.Body.Success = true
		return out, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind" enum:"task,user"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50" minimum:"1" maximum:"500"`
	}) (*struct {
		Body struct {
			Items []EventResponse `json:"items"`
		} `json:"body"`
	}, error) {
		items, err := e.Repo.LatestEvents(ctx, input.Limit, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", "internal error", nil)
		}
		out := &struct {
			Body struct {
				Items []EventResponse `json:"items"`
			} `json:"body"`
		}{}
		out.Body.Items = []EventResponse{}
		for _, evt := range items {
			out.Body.Items = append(out.Body.Items, eventResponse(evt))
		}
		return out, nil
	})
}
