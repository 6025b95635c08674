// Package schema loads task schemas and validates documents against them.
//
// A schema is read from an embedded resource (refs of the form
// "embed:<name>") or from the filesystem, parsed into a jsonschema.Schema,
// checked for well-formedness and compiled into an immutable tree that
// validates document.Values. Validation collects every violation in a single
// pass.
//
// The keyword "x-enum-domain" binds a string property to a vocabulary from
// the domain package. The compiled enum is taken from the vocabulary, so the
// schema and the mapper share one definition of the domain.
package schema

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"taskline/internal/document"
	"taskline/internal/domain"
)

// DefaultRef is the task schema shipped with the binary.
const DefaultRef = "embed:task.schema.json"

const embedPrefix = "embed:"

//go:embed schemas/*.json
var embedded embed.FS

// Loader reads and compiles schemas.
type Loader struct {
	// FS holds the resources addressed by "embed:" refs. Nil means the
	// schemas embedded in this package.
	FS fs.FS
	// Domains are the vocabularies "x-enum-domain" may name. Nil means
	// domain.Vocabularies().
	Domains map[string]domain.Vocabulary
}

// Load reads and compiles the schema at ref with the default Loader.
func Load(ref string) (*Compiled, error) {
	return Loader{}.Load(ref)
}

var (
	defaultOnce sync.Once
	defaultC    *Compiled
	defaultErr  error
)

// Default returns the compiled embedded task schema. It is loaded once per
// process; the result is immutable and safe to share.
func Default() (*Compiled, error) {
	defaultOnce.Do(func() {
		defaultC, defaultErr = Load(DefaultRef)
	})
	return defaultC, defaultErr
}

func (l Loader) Load(ref string) (*Compiled, error) {
	data, err := l.read(ref)
	if err != nil {
		return nil, err
	}
	return l.Compile(ref, data)
}

// Source returns the raw bytes behind ref without compiling them.
func (l Loader) Source(ref string) ([]byte, error) {
	return l.read(ref)
}

func (l Loader) read(ref string) ([]byte, error) {
	if name, ok := strings.CutPrefix(ref, embedPrefix); ok {
		fsys := l.FS
		if fsys == nil {
			sub, err := fs.Sub(embedded, "schemas")
			if err != nil {
				return nil, err
			}
			fsys = sub
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &NotFoundError{Ref: ref, Err: err}
			}
			return nil, fmt.Errorf("read schema %s: %w", ref, err)
		}
		return data, nil
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Ref: ref, Err: err}
		}
		return nil, fmt.Errorf("read schema %s: %w", ref, err)
	}
	return data, nil
}

// Compile parses schema bytes and compiles them. YAML is accepted when ref
// ends in .yaml or .yml.
func (l Loader) Compile(ref string, data []byte) (*Compiled, error) {
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".yaml", ".yml":
		v, err := document.ParseYAML(data)
		if err != nil {
			return nil, &ParseError{Ref: ref, Err: err}
		}
		if data, err = json.Marshal(v); err != nil {
			return nil, &ParseError{Ref: ref, Err: err}
		}
	}

	var root jsonschema.Schema
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{Ref: ref, Err: err}
	}
	if _, err := root.Resolve(nil); err != nil {
		return nil, &ParseError{Ref: ref, Err: err}
	}

	domains := l.Domains
	if domains == nil {
		domains = domain.Vocabularies()
	}
	c := &compiler{
		ref:      ref,
		root:     &root,
		domains:  domains,
		done:     map[*jsonschema.Schema]*node{},
		visiting: map[*jsonschema.Schema]bool{},
	}
	n, err := c.compile(&root, "#")
	if err != nil {
		return nil, err
	}
	return &Compiled{ref: ref, source: data, root: n}, nil
}
