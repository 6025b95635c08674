package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SyntaxError reports input that is not a well-formed document.
type SyntaxError struct {
	Format string
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid %s document: %v", e.Format, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Parse picks the decoder from the file name: .yaml and .yml are YAML,
// everything else is JSON.
func Parse(name string, data []byte) (Value, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// Limits applied while decoding untrusted documents.
const (
	// MaxDepth bounds the nesting of lists and objects.
	MaxDepth = 10000
	// MaxAliasValues bounds the values a YAML document may produce through
	// alias expansion.
	MaxAliasValues = 10000
)

// ParseJSON decodes a single JSON value. Object key order is preserved and
// a repeated key is an error.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSON(dec, 0)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
			if len(bytes.TrimSpace(data)) == 0 {
				err = errors.New("empty input")
			}
		}
		return Value{}, &SyntaxError{Format: "json", Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, &SyntaxError{Format: "json", Err: errors.New("unexpected data after top-level value")}
	}
	return v, nil
}

func decodeJSON(dec *json.Decoder, depth int) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		if depth >= MaxDepth {
			return Value{}, fmt.Errorf("exceeded max depth of %d", MaxDepth)
		}
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key %v is not a string", kt)
				}
				if obj.Has(key) {
					return Value{}, fmt.Errorf("duplicate key %q", key)
				}
				item, err := decodeJSON(dec, depth+1)
				if err != nil {
					return Value{}, err
				}
				obj.set(key, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return ObjectValue(obj), nil
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := decodeJSON(dec, depth+1)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return List(items...), nil
		}
		return Value{}, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return numberLiteral(t.String())
	case nil:
		return Null(), nil
	default:
		return Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}

// ParseYAML decodes the first YAML document in data. A repeated mapping key
// is an error, and alias expansion is bounded by MaxAliasValues.
func ParseYAML(data []byte) (Value, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Value{}, &SyntaxError{Format: "yaml", Err: err}
	}
	if root.Kind == 0 {
		return Value{}, &SyntaxError{Format: "yaml", Err: errors.New("empty input")}
	}
	var d yamlDecoder
	v, err := d.decode(&root, 0)
	if err != nil {
		return Value{}, &SyntaxError{Format: "yaml", Err: err}
	}
	return v, nil
}

type yamlDecoder struct {
	aliasDepth  int // > 0 while expanding an alias
	aliasValues int
}

func (d *yamlDecoder) decode(n *yaml.Node, depth int) (Value, error) {
	if depth >= MaxDepth {
		return Value{}, fmt.Errorf("line %d: exceeded max depth of %d", n.Line, MaxDepth)
	}
	if d.aliasDepth > 0 {
		d.aliasValues++
		if d.aliasValues > MaxAliasValues {
			return Value{}, fmt.Errorf("line %d: document contains excessive aliasing", n.Line)
		}
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return d.decode(n.Content[0], depth)
	case yaml.AliasNode:
		d.aliasDepth++
		defer func() { d.aliasDepth-- }()
		return d.decode(n.Alias, depth+1)
	case yaml.MappingNode:
		obj := NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode {
				return Value{}, fmt.Errorf("line %d: mapping key must be a scalar", k.Line)
			}
			if obj.Has(k.Value) {
				return Value{}, fmt.Errorf("line %d: duplicate key %q", k.Line, k.Value)
			}
			item, err := d.decode(n.Content[i+1], depth+1)
			if err != nil {
				return Value{}, err
			}
			obj.set(k.Value, item)
		}
		return ObjectValue(obj), nil
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			item, err := d.decode(c, depth+1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return List(items...), nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return Null(), nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return Value{}, err
			}
			return Bool(b), nil
		case "!!int", "!!float":
			var f float64
			if err := n.Decode(&f); err != nil {
				return Value{}, err
			}
			return Value{kind: KindNumber, num: f, str: strconv.FormatFloat(f, 'g', -1, 64)}, nil
		default:
			return String(n.Value), nil
		}
	default:
		return Value{}, fmt.Errorf("line %d: unsupported yaml node", n.Line)
	}
}
