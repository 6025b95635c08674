package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskline/internal/document"
	"taskline/internal/domain"
)

func mustParse(t *testing.T, src string) document.Value {
	t.Helper()
	v, err := document.ParseJSON([]byte(src))
	require.NoError(t, err)
	return v
}

func mustDefault(t *testing.T) *Compiled {
	t.Helper()
	c, err := Default()
	require.NoError(t, err)
	return c
}

func failure(t *testing.T, err error) *ValidationFailure {
	t.Helper()
	require.Error(t, err)
	var vf *ValidationFailure
	require.ErrorAs(t, err, &vf)
	require.NotEmpty(t, vf.Violations)
	return vf
}

const validTask = `{"description":"write spec","project":"backend","important":true,"private":false,"completed":false}`

func TestDefault_IsCachedAndEmbedded(t *testing.T) {
	a := mustDefault(t)
	b := mustDefault(t)
	assert.Same(t, a, b)
	assert.Equal(t, DefaultRef, a.Ref())
	assert.Contains(t, string(a.Source()), "x-enum-domain")
}

func TestValidate_ValidDocumentPasses(t *testing.T) {
	c := mustDefault(t)
	assert.NoError(t, c.Validate(mustParse(t, validTask)))
	assert.NoError(t, Validate(mustParse(t, `{
		"description":"with extras","project":"OPS","important":false,"private":true,"completed":true,
		"deadline":"2024-06-01T09:00:00Z",
		"assignees":[{"email":"a@x.com"},{"email":"b@x.com","name":"B","role":"dev"}],
		"labels":["unknown keys are allowed"]
	}`), c))
}

func TestValidate_MissingDescription(t *testing.T) {
	c := mustDefault(t)
	vf := failure(t, c.Validate(mustParse(t, `{"project":"backend","important":true,"private":false,"completed":false}`)))
	require.Len(t, vf.Violations, 1)
	assert.Equal(t, document.Path("description"), vf.Violations[0].Path)
	assert.Equal(t, KindRequired, vf.Violations[0].Kind)
}

func TestValidate_EveryRequiredFieldIsReported(t *testing.T) {
	c := mustDefault(t)
	for _, field := range []string{"description", "project", "important", "private", "completed"} {
		obj, _ := mustParse(t, validTask).AsObject()
		var fields []document.Field
		for k, v := range obj.All() {
			if k != field {
				fields = append(fields, document.Field{Key: k, Value: v})
			}
		}
		doc := document.ObjectValue(document.NewObject(fields...))
		vf := failure(t, c.Validate(doc))
		assert.True(t, vf.Has(document.Path(field), KindRequired), "missing %s not reported: %v", field, vf)
	}
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	c := mustDefault(t)
	vf := failure(t, c.Validate(mustParse(t, `{
		"description":"",
		"project":"marketing",
		"important":"yes",
		"completed":false,
		"deadline":"next tuesday",
		"assignees":[{"email":"a@x.com"},{"email":"not-an-email"},{"name":"nobody"}]
	}`)))

	assert.True(t, vf.Has("private", KindRequired))
	assert.True(t, vf.Has("description", KindMinLength))
	assert.True(t, vf.Has("project", KindEnum))
	assert.True(t, vf.Has("important", KindType))
	assert.True(t, vf.Has("deadline", KindFormat))
	assert.True(t, vf.Has("assignees[1].email", KindFormat))
	assert.True(t, vf.Has("assignees[2].email", KindRequired))
	assert.Len(t, vf.Violations, 7)
	assert.Equal(t, KindRequired, vf.Violations[0].Kind, "required keys are reported first")
}

func TestValidate_ProjectDomainIsCaseInsensitive(t *testing.T) {
	c := mustDefault(t)
	for _, p := range domain.Projects.Values() {
		for _, variant := range []string{p, "  " + p} {
			doc := mustParse(t, `{"description":"d","important":true,"private":false,"completed":false,"project":"`+variant+`"}`)
			err := c.Validate(doc)
			if variant == p {
				assert.NoError(t, err)
			} else {
				assert.True(t, failure(t, err).Has("project", KindEnum))
			}
		}
	}
	assert.NoError(t, c.Validate(mustParse(t, `{"description":"d","important":true,"private":false,"completed":false,"project":"fRoNtEnD"}`)))
}

func TestValidate_WrongTypeReportsOnlyType(t *testing.T) {
	c := mustDefault(t)
	vf := failure(t, c.Validate(mustParse(t, `{"description":5,"project":"ops","important":true,"private":false,"completed":false,"assignees":{"email":"a@x.com"}}`)))
	require.Len(t, vf.Violations, 2)
	assert.True(t, vf.Has("description", KindType))
	assert.True(t, vf.Has("assignees", KindType))
	assert.Equal(t, "expected array, got object", vf.Violations[0].Message)
	assert.Equal(t, "expected string, got number", vf.Violations[1].Message)
}

func TestValidate_RootMustBeObject(t *testing.T) {
	c := mustDefault(t)
	vf := failure(t, c.Validate(mustParse(t, `[1,2]`)))
	assert.Equal(t, "(root)", vf.Violations[0].Path.String())
	assert.Equal(t, KindType, vf.Violations[0].Kind)
}

func TestValidate_IsPureAndDeterministic(t *testing.T) {
	c := mustDefault(t)
	doc := mustParse(t, `{"zzz":1,"project":"nope","description":""}`)
	first := c.Validate(doc)
	second := c.Validate(doc)
	assert.Equal(t, first, second)
	obj, _ := doc.AsObject()
	assert.Equal(t, []string{"zzz", "project", "description"}, obj.Keys())
}

func TestValidationFailure_Error(t *testing.T) {
	vf := &ValidationFailure{Violations: []Violation{{Path: "description", Kind: KindRequired, Message: "is required"}}}
	assert.Equal(t, "validation failed: description: is required", vf.Error())
	vf.Violations = append(vf.Violations, Violation{Path: "project", Kind: KindEnum, Message: "bad"})
	assert.Contains(t, vf.Error(), "2 violations")
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load("embed:missing.schema.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaNotFound))
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "embed:missing.schema.json", nf.Ref)

	_, err = Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, errors.Is(err, ErrSchemaNotFound))
}

func TestLoad_FromFileAndYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "task.schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
type: object
required: [description]
additionalProperties: false
properties:
  description:
    type: string
    maxLength: 5
  count:
    type: integer
    minimum: 1
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.NoError(t, c.Validate(mustParse(t, `{"description":"abc","count":2}`)))

	vf := failure(t, c.Validate(mustParse(t, `{"description":"abcdefg","count":1.5,"other":true}`)))
	assert.True(t, vf.Has("description", KindMaxLength))
	assert.True(t, vf.Has("count", KindType))
	assert.True(t, vf.Has("other", KindAdditional))
}

func TestLoader_ParseErrors(t *testing.T) {
	cases := map[string]string{
		"malformed json":    `{"type": "object",`,
		"bad type value":    `{"type": 7}`,
		"unknown type":      `{"type": "text"}`,
		"unknown domain":    `{"type":"string","x-enum-domain":"colour"}`,
		"domain drift":      `{"type":"string","x-enum-domain":"project","enum":["BACKEND","FRONTEND"]}`,
		"unsupported":       `{"anyOf":[{"type":"string"},{"type":"null"}]}`,
		"remote ref":        `{"properties":{"u":{"$ref":"https://example.com/user.json"}}}`,
		"dangling ref":      `{"properties":{"u":{"$ref":"#/$defs/missing"}}}`,
		"bad pattern":       `{"type":"string","pattern":"("}`,
		"recursive ref":     `{"$defs":{"n":{"type":"object","properties":{"next":{"$ref":"#/$defs/n"}}}},"$ref":"#/$defs/n"}`,
		"non-string domain": `{"type":"string","x-enum-domain":1}`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			fsys := fstest.MapFS{"s.json": {Data: []byte(src)}}
			_, err := Loader{FS: fsys}.Load("embed:s.json")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSchemaParse), "got %v", err)
		})
	}
}

func TestLoader_DomainWithMatchingEnum(t *testing.T) {
	fsys := fstest.MapFS{"s.json": {Data: []byte(`{"type":"string","x-enum-domain":"project","enum":["ops","backend","frontend"]}`)}}
	c, err := Loader{FS: fsys}.Load("embed:s.json")
	require.NoError(t, err)
	assert.NoError(t, c.Validate(document.String("Backend")))
	assert.True(t, failure(t, c.Validate(document.String("qa"))).Has("", KindEnum))
}

func TestLoader_CustomDomains(t *testing.T) {
	colours := domain.NewVocabulary("colour", "red", "green")
	fsys := fstest.MapFS{"s.json": {Data: []byte(`{"type":"string","x-enum-domain":"colour"}`)}}
	c, err := Loader{FS: fsys, Domains: map[string]domain.Vocabulary{"colour": colours}}.Load("embed:s.json")
	require.NoError(t, err)
	assert.NoError(t, c.Validate(document.String("green")))
	assert.Error(t, c.Validate(document.String("blue")))
}

func TestValidate_PlainEnumAndConst(t *testing.T) {
	fsys := fstest.MapFS{"s.json": {Data: []byte(`{"type":"object","properties":{"level":{"enum":[1,2,"high",null]},"kind":{"const":"task"}}}`)}}
	c, err := Loader{FS: fsys}.Load("embed:s.json")
	require.NoError(t, err)
	assert.NoError(t, c.Validate(mustParse(t, `{"level":2,"kind":"task"}`)))
	assert.NoError(t, c.Validate(mustParse(t, `{"level":null}`)))
	vf := failure(t, c.Validate(mustParse(t, `{"level":"low","kind":"bug"}`)))
	assert.True(t, vf.Has("level", KindEnum))
	assert.True(t, vf.Has("kind", KindEnum))
}
