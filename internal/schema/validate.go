package schema

import (
	"fmt"
	"net/mail"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"taskline/internal/document"
	"taskline/internal/domain"
)

// Validate checks doc against c and returns nil or a *ValidationFailure
// listing every violation. doc is not modified.
func Validate(doc document.Value, c *Compiled) error {
	return c.Validate(doc)
}

func (c *Compiled) Validate(doc document.Value) error {
	var vs []Violation
	c.root.validate(doc, "", &vs)
	if len(vs) == 0 {
		return nil
	}
	return &ValidationFailure{Violations: vs}
}

type collector = *[]Violation

func report(out collector, path document.Path, kind ViolationKind, format string, args ...any) {
	*out = append(*out, Violation{Path: path, Kind: kind, Message: fmt.Sprintf(format, args...)})
}

func (n *node) validate(v document.Value, path document.Path, out collector) {
	if n.never {
		report(out, path, KindType, "no value is allowed here")
		return
	}
	if !n.acceptsKind(v) {
		report(out, path, KindType, "expected %s, got %s", strings.Join(n.types, " or "), v.Kind())
		return
	}
	if n.vocab != nil {
		s, ok := v.AsString()
		if _, member := n.vocab.Canonical(s); !ok || !member {
			report(out, path, KindEnum, "%s is not one of %s", describe(v), strings.Join(n.vocab.Values(), ", "))
		}
	}
	if len(n.enum) > 0 && !n.inEnum(v) {
		report(out, path, KindEnum, "%s is not one of the allowed values", describe(v))
	}

	switch v.Kind() {
	case document.KindString:
		s, _ := v.AsString()
		n.validateString(s, path, out)
	case document.KindNumber:
		f, _ := v.AsNumber()
		if n.minimum != nil && f < *n.minimum {
			report(out, path, KindMinimum, "must be >= %v", *n.minimum)
		}
		if n.maximum != nil && f > *n.maximum {
			report(out, path, KindMaximum, "must be <= %v", *n.maximum)
		}
	case document.KindList:
		items, _ := v.AsList()
		if n.minItems != nil && len(items) < *n.minItems {
			report(out, path, KindMinItems, "must hold at least %d items", *n.minItems)
		}
		if n.maxItems != nil && len(items) > *n.maxItems {
			report(out, path, KindMaxItems, "must hold at most %d items", *n.maxItems)
		}
		if n.items != nil {
			for i, item := range items {
				n.items.validate(item, path.Index(i), out)
			}
		}
	case document.KindObject:
		obj, _ := v.AsObject()
		n.validateObject(obj, path, out)
	}
}

func (n *node) validateString(s string, path document.Path, out collector) {
	length := utf8.RuneCountInString(s)
	if n.minLength != nil && length < *n.minLength {
		if *n.minLength == 1 {
			report(out, path, KindMinLength, "must not be empty")
		} else {
			report(out, path, KindMinLength, "must be at least %d characters", *n.minLength)
		}
	}
	if n.maxLength != nil && length > *n.maxLength {
		report(out, path, KindMaxLength, "must be at most %d characters", *n.maxLength)
	}
	if n.pattern != nil && !n.pattern.MatchString(s) {
		report(out, path, KindPattern, "must match %s", n.pattern)
	}
	if check, ok := formats[n.format]; ok {
		if err := check(s); err != nil {
			report(out, path, KindFormat, "must be a valid %s: %v", n.format, err)
		}
	}
}

func (n *node) validateObject(obj *document.Object, path document.Path, out collector) {
	for _, name := range n.required {
		if !obj.Has(name) {
			report(out, path.Key(name), KindRequired, "is required")
		}
	}
	for _, name := range n.order {
		if child, ok := obj.Get(name); ok {
			n.props[name].validate(child, path.Key(name), out)
		}
	}
	if n.extra == nil {
		return
	}
	for key, child := range obj.All() {
		if _, declared := n.props[key]; declared {
			continue
		}
		if n.extra.never {
			report(out, path.Key(key), KindAdditional, "is not allowed")
			continue
		}
		n.extra.validate(child, path.Key(key), out)
	}
}

func (n *node) acceptsKind(v document.Value) bool {
	if len(n.types) == 0 {
		return true
	}
	for _, t := range n.types {
		switch t {
		case "string":
			if v.Kind() == document.KindString {
				return true
			}
		case "boolean":
			if v.Kind() == document.KindBool {
				return true
			}
		case "number":
			if v.Kind() == document.KindNumber {
				return true
			}
		case "integer":
			if v.IsInteger() {
				return true
			}
		case "array":
			if v.Kind() == document.KindList {
				return true
			}
		case "object":
			if v.Kind() == document.KindObject {
				return true
			}
		case "null":
			if v.IsNull() {
				return true
			}
		}
	}
	return false
}

func (n *node) inEnum(v document.Value) bool {
	got := v.Interface()
	for _, want := range n.enum {
		if reflect.DeepEqual(got, want) {
			return true
		}
	}
	return false
}

func describe(v document.Value) string {
	if s, ok := v.AsString(); ok {
		return fmt.Sprintf("%q", s)
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return v.Kind().String()
	}
	return string(b)
}

var formats = map[string]func(string) error{
	"date-time": func(s string) error {
		_, err := domain.ParseTimestamp(s)
		return err
	},
	"date": func(s string) error {
		_, err := time.Parse(time.DateOnly, s)
		return err
	},
	"email": func(s string) error {
		addr, err := mail.ParseAddress(s)
		if err != nil {
			return err
		}
		if addr.Address != s {
			return fmt.Errorf("%q is not a bare address", s)
		}
		return nil
	},
}
