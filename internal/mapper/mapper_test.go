package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskline/internal/document"
	"taskline/internal/domain"
)

func parse(t *testing.T, src string) document.Value {
	t.Helper()
	v, err := document.ParseJSON([]byte(src))
	require.NoError(t, err)
	return v
}

func TestMapTask_CreateScenario(t *testing.T) {
	task, err := MapTask(parse(t, `{"description":"write spec","project":"backend","important":true,"private":false,"completed":false}`))
	require.NoError(t, err)
	assert.Equal(t, domain.Task{
		Description: "write spec",
		Project:     domain.ProjectBackend,
		Important:   true,
	}, task)
}

func TestMapTask_AllFields(t *testing.T) {
	task, err := MapTask(parse(t, `{
		"description":"ship it",
		"important":false,
		"private":true,
		"project":"Ops",
		"deadline":"2024-06-01T09:00",
		"completed":true,
		"assignees":[{"email":"a@x.com","name":"Ann"},{"email":"b@x.com"},{"email":"a@x.com"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "ship it", task.Description)
	assert.True(t, task.Private)
	assert.True(t, task.Completed)
	assert.Equal(t, domain.ProjectOps, task.Project)
	assert.Equal(t, "2024-06-01T09:00", task.Deadline)
	assert.Equal(t, []domain.User{
		{Email: "a@x.com", Name: "Ann"},
		{Email: "b@x.com"},
		{Email: "a@x.com"},
	}, task.Assignees)
}

func TestMapTask_UnknownKeysAreDropped(t *testing.T) {
	withExtras, err := MapTask(parse(t, `{"description":"d","project":"ops","priority":7,"tags":["x"],"assignees":[{"email":"a@x.com","role":"dev"}]}`))
	require.NoError(t, err)
	plain, err := MapTask(parse(t, `{"description":"d","project":"ops","assignees":[{"email":"a@x.com"}]}`))
	require.NoError(t, err)
	assert.Equal(t, plain, withExtras)
}

func TestMapTask_OrderIndependentAndIdempotent(t *testing.T) {
	a := parse(t, `{"description":"d","project":"frontend","important":true,"assignees":[{"email":"a@x.com"}]}`)
	b := parse(t, `{"assignees":[{"email":"a@x.com"}],"important":true,"project":"frontend","description":"d"}`)
	first, err := MapTask(a)
	require.NoError(t, err)
	again, err := MapTask(a)
	require.NoError(t, err)
	reordered, err := MapTask(b)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, first, reordered)
}

func TestMapTask_UnknownProject(t *testing.T) {
	_, err := MapTask(parse(t, `{"description":"d","project":"marketing"}`))
	var enumErr *UnknownEnumValueError
	require.ErrorAs(t, err, &enumErr)
	assert.Equal(t, document.Path("project"), enumErr.Field)
	assert.Equal(t, "marketing", enumErr.Err.Value)
	assert.Equal(t, domain.Projects.Values(), enumErr.Err.Valid)

	var unknown *domain.UnknownValueError
	assert.ErrorAs(t, err, &unknown)
}

func TestMapTask_TypeCoercion(t *testing.T) {
	cases := []struct {
		src  string
		path document.Path
		want document.Kind
		got  document.Kind
	}{
		{`{"description":5}`, "description", document.KindString, document.KindNumber},
		{`{"important":"yes"}`, "important", document.KindBool, document.KindString},
		{`{"assignees":{"email":"a@x.com"}}`, "assignees", document.KindList, document.KindObject},
		{`{"assignees":[{"email":"a@x.com"},"b@x.com"]}`, "assignees[1]", document.KindObject, document.KindString},
		{`{"assignees":[{"email":null}]}`, "assignees[0].email", document.KindString, document.KindNull},
		{`[]`, "", document.KindObject, document.KindList},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			_, err := MapTask(parse(t, tc.src))
			var coerce *TypeCoercionError
			require.ErrorAs(t, err, &coerce)
			assert.Equal(t, tc.path, coerce.Field)
			assert.Equal(t, tc.want, coerce.Want)
			assert.Equal(t, tc.got, coerce.Got)
		})
	}
}

func TestMapUser(t *testing.T) {
	u, err := MapUser(parse(t, `{"name":"Bo","email":"bo@x.com","phone":"123"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.User{Email: "bo@x.com", Name: "Bo"}, u)

	_, err = MapUser(document.String("bo@x.com"))
	var coerce *TypeCoercionError
	require.ErrorAs(t, err, &coerce)
	assert.Equal(t, "map (root): expected object, got string", coerce.Error())
}
