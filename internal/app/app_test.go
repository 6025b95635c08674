package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskline/internal/document"
	"taskline/internal/domain"
	"taskline/internal/mapper"
	"taskline/internal/schema"
	tasksdk "taskline/sdk/go"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTask_Valid(t *testing.T) {
	path := writeFile(t, "task.json", `{"description":"write spec","project":"backend","important":true,"private":false,"completed":false}`)
	task, err := Pipeline{}.LoadTask(path)
	require.NoError(t, err)
	assert.Equal(t, domain.Task{Description: "write spec", Project: domain.ProjectBackend, Important: true}, task)
}

func TestLoadTask_YAML(t *testing.T) {
	path := writeFile(t, "task.yaml", `
description: deploy
project: ops
important: false
private: true
completed: false
deadline: 2024-06-01T09:00:00Z
assignees:
  - email: ann@x.com
    name: Ann
`)
	task, err := Pipeline{}.LoadTask(path)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectOps, task.Project)
	assert.Equal(t, "2024-06-01T09:00:00Z", task.Deadline)
	assert.Equal(t, []domain.User{{Email: "ann@x.com", Name: "Ann"}}, task.Assignees)
}

func TestLoadTask_MissingFile(t *testing.T) {
	_, err := Pipeline{}.LoadTask(filepath.Join(t.TempDir(), "nope.json"))
	var nf *FileNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Error(), "nope.json")
}

func TestLoadTask_ValidationStopsBeforeMapping(t *testing.T) {
	path := writeFile(t, "task.json", `{"project":"marketing","important":true,"private":false,"completed":false}`)
	_, err := Pipeline{}.LoadTask(path)
	var vf *schema.ValidationFailure
	require.ErrorAs(t, err, &vf)
	assert.True(t, vf.Has("description", schema.KindRequired))
	assert.True(t, vf.Has("project", schema.KindEnum))

	var enumErr *mapper.UnknownEnumValueError
	assert.False(t, errors.As(err, &enumErr))
}

func TestDecodeTask_SyntaxError(t *testing.T) {
	_, err := Pipeline{}.DecodeTask("task.json", []byte(`{"description":`))
	var syntax *document.SyntaxError
	require.ErrorAs(t, err, &syntax)
}

func TestNewPipeline_CustomSchema(t *testing.T) {
	ref := writeFile(t, "strict.schema.json", `{
		"type":"object",
		"required":["description"],
		"additionalProperties":false,
		"properties":{"description":{"type":"string"},"project":{"type":"string","x-enum-domain":"project"}}
	}`)
	p, err := NewPipeline(ref)
	require.NoError(t, err)
	assert.Equal(t, ref, p.Schema.Ref())

	_, err = p.DecodeTask("t.json", []byte(`{"description":"d","important":true}`))
	var vf *schema.ValidationFailure
	require.ErrorAs(t, err, &vf)
	assert.True(t, vf.Has("important", schema.KindAdditional))

	_, err = NewPipeline(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, schema.ErrSchemaNotFound)

	def, err := NewPipeline("")
	require.NoError(t, err)
	assert.Equal(t, schema.DefaultRef, def.Schema.Ref())
}

func TestParseTaskID(t *testing.T) {
	id, err := ParseTaskID("42")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	id, err = ParseTaskID(" 7 ")
	require.NoError(t, err)
	assert.EqualValues(t, 7, id)

	for in, want := range map[string]int64{"0": 0, "-3": -3} {
		id, err := ParseTaskID(in)
		require.NoError(t, err, "ids below 1 are sent and answered by the service")
		assert.Equal(t, want, id)
	}

	for _, bad := range []string{"", "abc", "4.2", "0x10", "99999999999999999999"} {
		_, err := ParseTaskID(bad)
		var malformed *MalformedTaskIDError
		require.ErrorAs(t, err, &malformed, "input %q", bad)
		assert.Equal(t, bad, malformed.Input)
	}
}

func TestRequests(t *testing.T) {
	creds := tasksdk.Credentials{Username: "ann@x.com", Password: "pw"}
	task := domain.Task{
		Description: "d",
		Project:     domain.ProjectFrontend,
		Deadline:    "2024-01-01",
		Assignees:   []domain.User{{Email: "a@x.com"}, {Email: "b@x.com", Name: "B"}},
	}

	create := NewCreateTaskRequest(creds, task)
	assert.Equal(t, creds, create.Credentials)
	assert.Equal(t, "FRONTEND", create.Task.Project)
	assert.Equal(t, []tasksdk.User{{Email: "a@x.com"}, {Email: "b@x.com", Name: "B"}}, create.Task.Assignees)

	assert.Equal(t, task, DomainTask(create.Task))

	complete := NewCompleteTaskRequest(creds, 9)
	assert.EqualValues(t, 9, complete.TaskID)
}

func TestDomainTask_KeepsProjectAsReceived(t *testing.T) {
	assert.Equal(t, domain.Project(""), DomainTask(tasksdk.Task{Description: "d"}).Project)
	assert.Equal(t, domain.Project("ops"), DomainTask(tasksdk.Task{Description: "d", Project: "ops"}).Project)
	assert.Equal(t, domain.Project("qa"), DomainTask(tasksdk.Task{Project: "qa"}).Project)
}
