package document

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON_PreservesKeyOrder(t *testing.T) {
	v, err := ParseJSON([]byte(`{"zeta":1,"alpha":"a","mid":[true,null]}`))
	require.NoError(t, err)

	obj, ok := v.AsObject()
	require.True(t, ok)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, obj.Keys())

	mid, ok := obj.Get("mid")
	require.True(t, ok)
	items, ok := mid.AsList()
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, KindBool, items[0].Kind())
	assert.True(t, items[1].IsNull())
}

func TestParseJSON_Scalars(t *testing.T) {
	v, err := ParseJSON([]byte(`{"s":"x","b":false,"n":12,"f":1.5}`))
	require.NoError(t, err)
	obj, _ := v.AsObject()

	s, _ := obj.Get("s")
	str, ok := s.AsString()
	assert.True(t, ok)
	assert.Equal(t, "x", str)

	b, _ := obj.Get("b")
	bv, ok := b.AsBool()
	assert.True(t, ok)
	assert.False(t, bv)

	n, _ := obj.Get("n")
	assert.True(t, n.IsInteger())
	f, _ := obj.Get("f")
	assert.False(t, f.IsInteger())
	num, ok := f.AsNumber()
	assert.True(t, ok)
	assert.InDelta(t, 1.5, num, 0)

	_, ok = s.AsBool()
	assert.False(t, ok, "accessor of another kind must not report ok")
}

func TestParseJSON_Errors(t *testing.T) {
	for name, input := range map[string]string{
		"empty":    ``,
		"trailing": `{"a":1} {"b":2}`,
		"broken":   `{"a":`,
		"comma":    `[1,]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJSON([]byte(input))
			require.Error(t, err)
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, "json", se.Format)
		})
	}
}

func TestParse_RejectsDuplicateKeys(t *testing.T) {
	_, err := ParseJSON([]byte(`{"a":1,"b":{"c":true,"c":false}}`))
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, err.Error(), `duplicate key "c"`)

	_, err = ParseYAML([]byte("description: one\nproject: ops\ndescription: two\n"))
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "yaml", se.Format)
	assert.Contains(t, err.Error(), `duplicate key "description"`)
}

func TestParseJSON_DepthLimit(t *testing.T) {
	nested := func(n int) []byte {
		return []byte(strings.Repeat("[", n) + strings.Repeat("]", n))
	}
	_, err := ParseJSON(nested(MaxDepth))
	require.NoError(t, err)

	_, err = ParseJSON(nested(MaxDepth + 1))
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, err.Error(), "max depth")

	_, err = ParseJSON(nested(3_000_000))
	require.ErrorAs(t, err, &se)
}

func TestParseYAML_BoundsAliasExpansion(t *testing.T) {
	var b strings.Builder
	b.WriteString("l0: &l0 [x, x, x, x, x, x, x, x, x, x]\n")
	for i := 1; i < 10; i++ {
		fmt.Fprintf(&b, "l%d: &l%d [", i, i)
		for j := 0; j < 10; j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "*l%d", i-1)
		}
		b.WriteString("]\n")
	}
	_, err := ParseYAML([]byte(b.String()))
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, err.Error(), "excessive aliasing")

	v, err := ParseYAML([]byte("base: &who {email: a@x.com}\nassignees: [*who, *who]\n"))
	require.NoError(t, err)
	obj, _ := v.AsObject()
	assignees, _ := obj.Get("assignees")
	items, _ := assignees.AsList()
	require.Len(t, items, 2)
	first, _ := items[0].AsObject()
	email, _ := first.Get("email")
	s, _ := email.AsString()
	assert.Equal(t, "a@x.com", s)
}

func TestParseYAML(t *testing.T) {
	v, err := ParseYAML([]byte(`
description: write spec
important: true
count: 3
deadline: null
assignees:
  - email: a@x.com
  - email: b@x.com
`))
	require.NoError(t, err)
	obj, ok := v.AsObject()
	require.True(t, ok)
	assert.Equal(t, []string{"description", "important", "count", "deadline", "assignees"}, obj.Keys())

	imp, _ := obj.Get("important")
	assert.Equal(t, KindBool, imp.Kind())
	count, _ := obj.Get("count")
	assert.True(t, count.IsInteger())
	deadline, _ := obj.Get("deadline")
	assert.True(t, deadline.IsNull())
	assignees, _ := obj.Get("assignees")
	items, ok := assignees.AsList()
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestParse_ByExtension(t *testing.T) {
	v, err := Parse("task.yml", []byte("a: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, KindObject, v.Kind())

	_, err = Parse("task.json", []byte("a: 1\n"))
	require.Error(t, err)
}

func TestMarshalJSON_RoundTripsOrder(t *testing.T) {
	src := `{"z":1,"a":[1.50,"x",null,{"k":false}]}`
	v, err := ParseJSON([]byte(src))
	require.NoError(t, err)
	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, src, string(out))
}

func TestPath(t *testing.T) {
	var p Path
	assert.Equal(t, "(root)", p.String())
	assert.Equal(t, "assignees[1].email", p.Key("assignees").Index(1).Key("email").String())
}
