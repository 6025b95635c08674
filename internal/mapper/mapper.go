// Package mapper turns validated documents into domain entities.
//
// Each entity has a static table from recognized key to a typed setter.
// Keys are visited in document order; keys without a setter are dropped.
// The mapper does not re-validate: callers run schema validation first.
package mapper

import (
	"errors"

	"taskline/internal/document"
	"taskline/internal/domain"
)

type setter[T any] func(dst *T, path document.Path, v document.Value) error

var taskFields = map[string]setter[domain.Task]{
	"description": func(t *domain.Task, p document.Path, v document.Value) error {
		return setString(&t.Description, p, v)
	},
	"important": func(t *domain.Task, p document.Path, v document.Value) error {
		return setBool(&t.Important, p, v)
	},
	"private": func(t *domain.Task, p document.Path, v document.Value) error {
		return setBool(&t.Private, p, v)
	},
	"completed": func(t *domain.Task, p document.Path, v document.Value) error {
		return setBool(&t.Completed, p, v)
	},
	"deadline": func(t *domain.Task, p document.Path, v document.Value) error {
		return setString(&t.Deadline, p, v)
	},
	"project": func(t *domain.Task, p document.Path, v document.Value) error {
		var raw string
		if err := setString(&raw, p, v); err != nil {
			return err
		}
		project, err := domain.ParseProject(raw)
		if err != nil {
			var unknown *domain.UnknownValueError
			if errors.As(err, &unknown) {
				return &UnknownEnumValueError{Field: p, Err: unknown}
			}
			return err
		}
		t.Project = project
		return nil
	},
	"assignees": func(t *domain.Task, p document.Path, v document.Value) error {
		items, ok := v.AsList()
		if !ok {
			return &TypeCoercionError{Field: p, Want: document.KindList, Got: v.Kind()}
		}
		users := make([]domain.User, 0, len(items))
		for i, item := range items {
			u, err := mapUser(item, p.Index(i))
			if err != nil {
				return err
			}
			users = append(users, u)
		}
		t.Assignees = users
		return nil
	},
}

var userFields = map[string]setter[domain.User]{
	"email": func(u *domain.User, p document.Path, v document.Value) error {
		return setString(&u.Email, p, v)
	},
	"name": func(u *domain.User, p document.Path, v document.Value) error {
		return setString(&u.Name, p, v)
	},
}

// MapTask builds a Task from a validated task document.
func MapTask(doc document.Value) (domain.Task, error) {
	var t domain.Task
	err := apply(&t, taskFields, doc, "")
	return t, err
}

// MapUser builds a User from a validated user document.
func MapUser(doc document.Value) (domain.User, error) {
	return mapUser(doc, "")
}

func mapUser(doc document.Value, path document.Path) (domain.User, error) {
	var u domain.User
	err := apply(&u, userFields, doc, path)
	return u, err
}

func apply[T any](dst *T, fields map[string]setter[T], doc document.Value, path document.Path) error {
	obj, ok := doc.AsObject()
	if !ok {
		return &TypeCoercionError{Field: path, Want: document.KindObject, Got: doc.Kind()}
	}
	for key, v := range obj.All() {
		set, known := fields[key]
		if !known {
			continue
		}
		if err := set(dst, path.Key(key), v); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, p document.Path, v document.Value) error {
	s, ok := v.AsString()
	if !ok {
		return &TypeCoercionError{Field: p, Want: document.KindString, Got: v.Kind()}
	}
	*dst = s
	return nil
}

func setBool(dst *bool, p document.Path, v document.Value) error {
	b, ok := v.AsBool()
	if !ok {
		return &TypeCoercionError{Field: p, Want: document.KindBool, Got: v.Kind()}
	}
	*dst = b
	return nil
}
