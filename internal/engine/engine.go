package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskline/internal/config"
	"taskline/internal/domain"
	"taskline/internal/engine/auth"
	"taskline/internal/events"
	"taskline/internal/repo"
)

// Engine implements the TaskService operations on top of the task store.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Auth   auth.Service
	Now    func() time.Time
}

func New(db *sql.DB) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Auth:   auth.Service{DB: db},
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// SeedUsers creates or updates the given accounts. Passwords are stored as
// bcrypt hashes.
func (e Engine) SeedUsers(ctx context.Context, users []config.ServiceUser) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, u := range users {
		hash, err := e.Auth.HashPassword(u.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Email, err)
		}
		id, err := e.Repo.UpsertUserTx(ctx, tx, domain.Account{Email: u.Email, Name: u.Name, PasswordHash: hash})
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		if err := e.Events.Append(ctx, tx, events.UserSeeded, "user", strconv.FormatInt(id, 10), "", events.EventPayload{"email": u.Email}); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CreateTask authenticates the caller, checks the task, resolves its
// assignees by email and stores the task with its assignments in one
// transaction.
func (e Engine) CreateTask(ctx context.Context, username, password string, t domain.Task) (domain.StoredTask, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoredTask{}, err
	}
	defer tx.Rollback()

	caller, err := e.Auth.Authenticate(ctx, tx, username, password)
	if err != nil {
		return domain.StoredTask{}, err
	}
	stored, err := sanitize(t)
	if err != nil {
		return domain.StoredTask{}, err
	}

	emails := make([]string, len(t.Assignees))
	for i, u := range t.Assignees {
		emails[i] = u.Email
	}
	accounts, err := e.Repo.UsersByEmailTx(ctx, tx, emails)
	if err != nil {
		return domain.StoredTask{}, fmt.Errorf("find assignees: %w", err)
	}
	var missing []string
	seen := map[int64]bool{}
	for _, email := range emails {
		a, ok := accounts[strings.ToLower(email)]
		if !ok {
			missing = append(missing, email)
			continue
		}
		if !seen[a.ID] {
			seen[a.ID] = true
			stored.AssigneeIDs = append(stored.AssigneeIDs, a.ID)
		}
	}
	if len(missing) > 0 {
		return domain.StoredTask{}, &UsersNotFoundError{Emails: missing}
	}

	id, err := e.Repo.InsertTaskTx(ctx, tx, stored, caller.ID)
	if err != nil {
		return domain.StoredTask{}, fmt.Errorf("insert task: %w", err)
	}
	stored.ID = id
	for _, uid := range stored.AssigneeIDs {
		if err := e.Repo.AssignTx(ctx, tx, id, uid); err != nil {
			return domain.StoredTask{}, fmt.Errorf("assign user %d: %w", uid, err)
		}
	}
	if err := e.Events.Append(ctx, tx, events.TaskCreated, "task", strconv.FormatInt(id, 10), caller.Email, events.EventPayload{
		"description": stored.Description,
		"assignees":   stored.AssigneeIDs,
	}); err != nil {
		return domain.StoredTask{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.StoredTask{}, err
	}
	return stored, nil
}

// CompleteTask authenticates the caller and marks the task completed.
// Completing a completed task succeeds.
func (e Engine) CompleteTask(ctx context.Context, username, password string, id int64) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	caller, err := e.Auth.Authenticate(ctx, tx, username, password)
	if err != nil {
		return err
	}
	if err := e.Repo.CompleteTaskTx(ctx, tx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return &TaskNotFoundError{ID: id, Err: err}
		}
		return err
	}
	if err := e.Events.Append(ctx, tx, events.TaskCompleted, "task", strconv.FormatInt(id, 10), caller.Email, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// Login checks an email and password for a web session and records the
// login.
func (e Engine) Login(ctx context.Context, email, password string) (domain.Account, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Account{}, err
	}
	defer tx.Rollback()

	a, err := e.Auth.Authenticate(ctx, tx, email, password)
	if err != nil {
		return domain.Account{}, err
	}
	if err := e.Events.Append(ctx, tx, events.UserLoggedIn, "user", strconv.FormatInt(a.ID, 10), a.Email, nil); err != nil {
		return domain.Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

func (e Engine) Tasks(ctx context.Context, f repo.TaskFilter) ([]domain.StoredTask, error) {
	return e.Repo.ListTasks(ctx, f)
}

// Task returns a stored task or a *TaskNotFoundError.
func (e Engine) Task(ctx context.Context, id int64) (domain.StoredTask, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return t, &TaskNotFoundError{ID: id, Err: err}
	}
	return t, err
}

// sanitize checks a task message and converts it to its stored form: the
// project is resolved to its canonical name, the deadline is normalised to
// UTC RFC 3339 and empty optional fields become NULL.
func sanitize(t domain.Task) (domain.StoredTask, error) {
	var issues []Issue
	if strings.TrimSpace(t.Description) == "" {
		issues = append(issues, Issue{DataPath: "description", Message: "should be a non-empty string"})
	}
	var project *string
	if t.Project != "" {
		p, err := domain.ParseProject(string(t.Project))
		if err != nil {
			issues = append(issues, Issue{DataPath: "project", Message: "should be one of " + strings.Join(domain.Projects.Values(), ", ")})
		} else {
			s := string(p)
			project = &s
		}
	}
	var deadline *string
	if t.Deadline != "" {
		ts, err := domain.ParseTimestamp(t.Deadline)
		if err != nil {
			issues = append(issues, Issue{DataPath: "deadline", Message: "should be an ISO 8601 compliant datetime"})
		} else {
			s := ts.UTC().Format(time.RFC3339)
			deadline = &s
		}
	}
	if len(issues) > 0 {
		return domain.StoredTask{}, &BadRequestError{Issues: issues}
	}
	return domain.StoredTask{
		Description: t.Description,
		Important:   t.Important,
		Private:     t.Private,
		Project:     project,
		Deadline:    deadline,
		Completed:   t.Completed,
		AssigneeIDs: []int64{},
	}, nil
}
