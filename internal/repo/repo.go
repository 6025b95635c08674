package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanAccount(row *sql.Row) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

// UpsertUserTx inserts an account or replaces the name and password of the
// account with the same email. It returns the account id.
func (r Repo) UpsertUserTx(ctx context.Context, tx *sql.Tx, a domain.Account) (int64, error) {
	if _, err := tx.ExecContext(ctx, `INSERT INTO users(email,name,password_hash) VALUES (?,?,?)
		ON CONFLICT(email) DO UPDATE SET name=excluded.name, password_hash=excluded.password_hash`,
		a.Email, a.Name, a.PasswordHash); err != nil {
		return 0, err
	}
	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE email=?`, a.Email).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.Account, error) {
	return scanAccount(r.DB.QueryRowContext(ctx, `SELECT id,email,name,password_hash FROM users WHERE email=?`, email))
}

func (r Repo) GetUserByEmailTx(ctx context.Context, tx *sql.Tx, email string) (domain.Account, error) {
	return scanAccount(tx.QueryRowContext(ctx, `SELECT id,email,name,password_hash FROM users WHERE email=?`, email))
}

// UsersByEmailTx returns the accounts whose email is in emails, keyed by
// lower-cased email. Unknown emails are absent from the result.
func (r Repo) UsersByEmailTx(ctx context.Context, tx *sql.Tx, emails []string) (map[string]domain.Account, error) {
	res := map[string]domain.Account{}
	if len(emails) == 0 {
		return res, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(emails)), ",")
	args := make([]any, len(emails))
	for i, e := range emails {
		args[i] = e
	}
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT id,email,name,password_hash FROM users WHERE email IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash); err != nil {
			return nil, err
		}
		res[strings.ToLower(a.Email)] = a
	}
	return res, rows.Err()
}

func (r Repo) InsertTaskTx(ctx context.Context, tx *sql.Tx, t domain.StoredTask, createdBy int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO tasks(description,important,private,project,deadline,completed,created_by) VALUES (?,?,?,?,?,?,?)`,
		t.Description, t.Important, t.Private, nullablePtr(t.Project), nullablePtr(t.Deadline), t.Completed, createdBy)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) AssignTx(ctx context.Context, tx *sql.Tx, taskID, userID int64) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO task_assignments(task_id,user_id) VALUES (?,?)`, taskID, userID)
	return err
}

func (r Repo) CompleteTaskTx(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET completed=1 WHERE id=?`, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetTask(ctx context.Context, id int64) (domain.StoredTask, error) {
	return getTask(ctx, r.DB, id)
}

func getTask(ctx context.Context, q queryer, id int64) (domain.StoredTask, error) {
	var (
		t        domain.StoredTask
		project  sql.NullString
		deadline sql.NullString
	)
	err := q.QueryRowContext(ctx, `SELECT id,description,important,private,project,deadline,completed FROM tasks WHERE id=?`, id).
		Scan(&t.ID, &t.Description, &t.Important, &t.Private, &project, &deadline, &t.Completed)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if project.Valid {
		t.Project = &project.String
	}
	if deadline.Valid {
		t.Deadline = &deadline.String
	}
	rows, err := q.QueryContext(ctx, `SELECT user_id FROM task_assignments WHERE task_id=? ORDER BY user_id`, id)
	if err != nil {
		return t, err
	}
	defer rows.Close()
	t.AssigneeIDs = []int64{}
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			return t, err
		}
		t.AssigneeIDs = append(t.AssigneeIDs, uid)
	}
	return t, rows.Err()
}

// TaskFilter narrows ListTasks. Zero values select everything.
type TaskFilter struct {
	PublicOnly bool
	AssigneeID int64
	Limit      int
	Offset     int
}

// ListTasks returns tasks ordered by id.
func (r Repo) ListTasks(ctx context.Context, f TaskFilter) ([]domain.StoredTask, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"1=1"}
	var args []any
	if f.PublicOnly {
		clauses = append(clauses, "t.private=0")
	}
	if f.AssigneeID != 0 {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM task_assignments a WHERE a.task_id=t.id AND a.user_id=?)")
		args = append(args, f.AssigneeID)
	}
	args = append(args, limit, f.Offset)
	query := fmt.Sprintf(`SELECT t.id FROM tasks t WHERE %s ORDER BY t.id LIMIT ? OFFSET ?`, strings.Join(clauses, " AND "))
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	// The rows hold the only connection of an in-memory store.
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	res := make([]domain.StoredTask, 0, len(ids))
	for _, id := range ids {
		t, err := getTask(ctx, r.DB, id)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

func (r Repo) LatestEvents(ctx context.Context, limit int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"1=1"}
	var args []any
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullablePtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
