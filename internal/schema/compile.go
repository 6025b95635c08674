package schema

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"taskline/internal/domain"
)

// Compiled is a schema ready for validation. It is immutable.
type Compiled struct {
	ref    string
	source []byte
	root   *node
}

// Ref is the reference the schema was loaded from.
func (c *Compiled) Ref() string { return c.ref }

// Source returns the schema bytes as JSON.
func (c *Compiled) Source() []byte { return slices.Clone(c.source) }

// node is one compiled sub-schema.
type node struct {
	never bool // the "false" schema

	types    []string
	required []string
	props    map[string]*node
	order    []string // property names, sorted
	extra    *node    // additionalProperties; nil allows anything

	items    *node
	minItems *int
	maxItems *int

	enum   []any
	vocab  *domain.Vocabulary
	format string

	minLength *int
	maxLength *int
	pattern   *regexp.Regexp
	minimum   *float64
	maximum   *float64
}

var knownTypes = []string{"string", "boolean", "number", "integer", "array", "object", "null"}

type compiler struct {
	ref      string
	root     *jsonschema.Schema
	domains  map[string]domain.Vocabulary
	done     map[*jsonschema.Schema]*node
	visiting map[*jsonschema.Schema]bool
}

func (c *compiler) fail(ptr string, format string, args ...any) error {
	return &ParseError{Ref: c.ref, Pointer: ptr, Err: fmt.Errorf(format, args...)}
}

func (c *compiler) compile(s *jsonschema.Schema, ptr string) (*node, error) {
	if s.Ref != "" {
		target, err := c.lookup(s.Ref, ptr)
		if err != nil {
			return nil, err
		}
		return c.compile(target, s.Ref)
	}
	if n, ok := c.done[s]; ok {
		return n, nil
	}
	if c.visiting[s] {
		return nil, c.fail(ptr, "recursive $ref is not supported")
	}
	c.visiting[s] = true
	defer delete(c.visiting, s)

	if isFalse(s) {
		n := &node{never: true}
		c.done[s] = n
		return n, nil
	}
	if kw := unsupportedKeyword(s); kw != "" {
		return nil, c.fail(ptr, "keyword %q is not supported", kw)
	}

	n := &node{
		required:  s.Required,
		minItems:  s.MinItems,
		maxItems:  s.MaxItems,
		enum:      s.Enum,
		format:    s.Format,
		minLength: s.MinLength,
		maxLength: s.MaxLength,
		minimum:   s.Minimum,
		maximum:   s.Maximum,
	}
	if s.Const != nil {
		n.enum = []any{*s.Const}
	}

	switch {
	case s.Type != "":
		n.types = []string{s.Type}
	case len(s.Types) > 0:
		n.types = s.Types
	}
	for _, t := range n.types {
		if !slices.Contains(knownTypes, t) {
			return nil, c.fail(ptr, "unknown type %q", t)
		}
	}

	if s.Pattern != "" {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, c.fail(ptr, "pattern: %v", err)
		}
		n.pattern = re
	}

	if raw, ok := s.Extra["x-enum-domain"]; ok {
		if err := c.bindDomain(n, raw, ptr); err != nil {
			return nil, err
		}
	}

	if len(s.Properties) > 0 {
		n.props = make(map[string]*node, len(s.Properties))
		n.order = slices.Sorted(maps.Keys(s.Properties))
		for _, name := range n.order {
			child, err := c.compile(s.Properties[name], ptr+"/properties/"+name)
			if err != nil {
				return nil, err
			}
			n.props[name] = child
		}
	}
	if s.AdditionalProperties != nil {
		child, err := c.compile(s.AdditionalProperties, ptr+"/additionalProperties")
		if err != nil {
			return nil, err
		}
		n.extra = child
	}
	if s.Items != nil {
		child, err := c.compile(s.Items, ptr+"/items")
		if err != nil {
			return nil, err
		}
		n.items = child
	}

	c.done[s] = n
	return n, nil
}

// bindDomain replaces the node's enum with the named vocabulary. A literal
// enum next to the binding must list the same values.
func (c *compiler) bindDomain(n *node, raw any, ptr string) error {
	name, ok := raw.(string)
	if !ok {
		return c.fail(ptr, "x-enum-domain must be a string")
	}
	vocab, ok := c.domains[name]
	if !ok {
		return c.fail(ptr, "unknown enum domain %q", name)
	}
	if len(n.enum) > 0 {
		declared := make([]string, 0, len(n.enum))
		for _, e := range n.enum {
			s, ok := e.(string)
			if !ok {
				return c.fail(ptr, "enum of domain %q must only hold strings", name)
			}
			declared = append(declared, strings.ToUpper(s))
		}
		slices.Sort(declared)
		declared = slices.Compact(declared)
		want := vocab.Values()
		slices.Sort(want)
		if !slices.Equal(declared, want) {
			return c.fail(ptr, "enum %v does not match domain %q %v", declared, name, want)
		}
	}
	n.vocab = &vocab
	n.enum = nil
	return nil
}

func (c *compiler) lookup(ref, ptr string) (*jsonschema.Schema, error) {
	if ref == "#" {
		return c.root, nil
	}
	var defs map[string]*jsonschema.Schema
	var name string
	switch {
	case strings.HasPrefix(ref, "#/$defs/"):
		defs, name = c.root.Defs, strings.TrimPrefix(ref, "#/$defs/")
	case strings.HasPrefix(ref, "#/definitions/"):
		defs, name = c.root.Definitions, strings.TrimPrefix(ref, "#/definitions/")
	default:
		return nil, c.fail(ptr, "$ref %q: only local definitions are supported", ref)
	}
	target, ok := defs[name]
	if !ok {
		return nil, c.fail(ptr, "$ref %q does not resolve", ref)
	}
	return target, nil
}

func isFalse(s *jsonschema.Schema) bool {
	if s.Not == nil {
		return false
	}
	b, err := json.Marshal(s)
	return err == nil && string(b) == "false"
}

func unsupportedKeyword(s *jsonschema.Schema) string {
	checks := []struct {
		name    string
		present bool
	}{
		{"allOf", len(s.AllOf) > 0},
		{"anyOf", len(s.AnyOf) > 0},
		{"oneOf", len(s.OneOf) > 0},
		{"not", s.Not != nil},
		{"if", s.If != nil || s.Then != nil || s.Else != nil},
		{"patternProperties", len(s.PatternProperties) > 0},
		{"propertyNames", s.PropertyNames != nil},
		{"dependentRequired", len(s.DependentRequired) > 0},
		{"dependentSchemas", len(s.DependentSchemas) > 0},
		{"unevaluatedProperties", s.UnevaluatedProperties != nil},
		{"unevaluatedItems", s.UnevaluatedItems != nil},
		{"prefixItems", len(s.PrefixItems) > 0},
		{"additionalItems", s.AdditionalItems != nil},
		{"contains", s.Contains != nil},
		{"uniqueItems", s.UniqueItems},
		{"multipleOf", s.MultipleOf != nil},
		{"exclusiveMinimum", s.ExclusiveMinimum != nil},
		{"exclusiveMaximum", s.ExclusiveMaximum != nil},
		{"minProperties", s.MinProperties != nil},
		{"maxProperties", s.MaxProperties != nil},
		{"$dynamicRef", s.DynamicRef != ""},
	}
	for _, c := range checks {
		if c.present {
			return c.name
		}
	}
	return ""
}
