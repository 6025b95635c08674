package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Vocabulary is a closed set of canonical upper-case tokens. It is the single
// definition of an enumerated domain: the schema compiler and the mapper both
// resolve values through it.
type Vocabulary struct {
	name   string
	values []string
}

func NewVocabulary(name string, values ...string) Vocabulary {
	canon := make([]string, len(values))
	for i, v := range values {
		canon[i] = strings.ToUpper(v)
	}
	return Vocabulary{name: name, values: canon}
}

func (v Vocabulary) Name() string { return v.name }

// Values returns the canonical tokens in declaration order.
func (v Vocabulary) Values() []string { return slices.Clone(v.values) }

// Canonical upper-cases s and reports whether the result is in the domain.
func (v Vocabulary) Canonical(s string) (string, bool) {
	c := strings.ToUpper(s)
	return c, slices.Contains(v.values, c)
}

// Project is a canonical project token; the zero value means no project.
type Project string

const (
	ProjectBackend  Project = "BACKEND"
	ProjectFrontend Project = "FRONTEND"
	ProjectOps      Project = "OPS"
)

// Projects is the enumerated domain of Task.Project.
var Projects = NewVocabulary("project", string(ProjectBackend), string(ProjectFrontend), string(ProjectOps))

// Vocabularies returns every enumerated domain by name.
func Vocabularies() map[string]Vocabulary {
	return map[string]Vocabulary{
		Projects.Name(): Projects,
	}
}

// UnknownValueError reports a value outside an enumerated domain.
type UnknownValueError struct {
	Domain string
	Value  string
	Valid  []string
}

func (e *UnknownValueError) Error() string {
	return fmt.Sprintf("%q is not a valid %s (want one of %s)", e.Value, e.Domain, strings.Join(e.Valid, ", "))
}

// ParseProject resolves s case-insensitively against Projects.
func ParseProject(s string) (Project, error) {
	c, ok := Projects.Canonical(s)
	if !ok {
		return "", &UnknownValueError{Domain: Projects.Name(), Value: s, Valid: Projects.Values()}
	}
	return Project(c), nil
}
