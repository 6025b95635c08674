// Package document holds the untyped form of user supplied input: a parsed
// JSON or YAML file before it has been validated and mapped onto a typed
// entity.
//
// A document is a tree of Values. Each Value carries exactly one Kind and only
// the accessor matching that Kind reports ok. Objects keep their keys in
// source order.
package document

import (
	"bytes"
	"encoding/json"
	"iter"
	"math"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindBool
	KindNumber
	KindList
	KindObject
)

// String returns the JSON Schema name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindList:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a tagged variant: null, string, boolean, number, list or object.
// The zero Value is null.
type Value struct {
	kind Kind
	str  string
	b    bool
	num  float64
	list []Value
	obj  *Object
}

func Null() Value { return Value{} }

func String(s string) Value { return Value{kind: KindString, str: s} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// numberLiteral keeps the source text so re-encoding does not change it.
func numberLiteral(lit string) (Value, error) {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Value{}, err
	}
	return Value{kind: KindNumber, num: f, str: lit}, nil
}

func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

func ObjectValue(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// AsList returns the elements of a list. The slice must not be modified.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

func (v Value) AsObject() (*Object, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// IsInteger reports whether v is a number without a fractional part.
func (v Value) IsInteger() bool {
	if v.kind != KindNumber {
		return false
	}
	return !math.IsInf(v.num, 0) && v.num == math.Trunc(v.num)
}

// Interface converts v to plain Go values: nil, string, bool, float64,
// []any and map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, v.obj.Len())
		for k, item := range v.obj.All() {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes v keeping object keys in source order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindString:
		b, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		if v.str != "" {
			buf.WriteString(v.str)
		} else {
			buf.WriteString(strconv.FormatFloat(v.num, 'g', -1, 64))
		}
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		i := 0
		for k, item := range v.obj.All() {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := item.writeJSON(buf); err != nil {
				return err
			}
			i++
		}
		buf.WriteByte('}')
	}
	return nil
}

// Field is one key/value pair of an Object.
type Field struct {
	Key   string
	Value Value
}

// Object is an ordered mapping from string keys to Values.
type Object struct {
	fields []Field
	index  map[string]int
}

// NewObject builds an object from fields in the given order. A repeated key
// keeps its first position and its last value, like encoding/json.
func NewObject(fields ...Field) *Object {
	o := &Object{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		o.set(f.Key, f.Value)
	}
	return o
}

func (o *Object) set(key string, v Value) {
	if o.index == nil {
		o.index = map[string]int{}
	}
	if i, ok := o.index[key]; ok {
		o.fields[i].Value = v
		return
	}
	o.index[key] = len(o.fields)
	o.fields = append(o.fields, Field{Key: key, Value: v})
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.fields)
}

func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	i, ok := o.index[key]
	if !ok {
		return Value{}, false
	}
	return o.fields[i].Value, true
}

func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Keys returns the keys in source order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, o.Len())
	for k := range o.All() {
		keys = append(keys, k)
	}
	return keys
}

// All iterates the fields in source order.
func (o *Object) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if o == nil {
			return
		}
		for _, f := range o.fields {
			if !yield(f.Key, f.Value) {
				return
			}
		}
	}
}
