package event

import (
	"fmt"

	"golang.org/x/text/cases"
)

// Fold returns the case-folded form of name used for every
// case-insensitive lookup in the catalog.
func Fold(name string) string {
	// A Caser is stateful and must not be shared between goroutines.
	return cases.Fold().String(name)
}

// Field is one readable member of a Schema.
//
// Get receives the value that owns the field (an event instance or an
// entity) and returns the field value, or untyped nil when the value is
// absent. Nested describes the fields of the returned value when it does
// not implement Entity itself.
type Field struct {
	Name   string
	Get    func(owner any) any
	Nested *Schema
}

// Schema lists the fields exposed by one event shape or entity type.
// A Schema is immutable after construction and safe for concurrent reads.
type Schema struct {
	name   string
	fields map[string]Field
	order  []string
}

// NewSchema builds a schema from fields in declaration order.
// Field names must be unique after case folding.
func NewSchema(name string, fields ...Field) (*Schema, error) {
	s := &Schema{
		name:   name,
		fields: make(map[string]Field, len(fields)),
		order:  make([]string, 0, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema %s: field name is required", name)
		}
		if f.Get == nil {
			return nil, fmt.Errorf("schema %s: field %s has no getter", name, f.Name)
		}
		key := Fold(f.Name)
		if _, exists := s.fields[key]; exists {
			return nil, fmt.Errorf("schema %s: duplicate field %q", name, f.Name)
		}
		s.fields[key] = f
		s.order = append(s.order, key)
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error.
// Use for schemas declared in Go source.
func MustSchema(name string, fields ...Field) *Schema {
	s, err := NewSchema(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema's type name.
func (s *Schema) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Field looks up a field by name, ignoring case.
func (s *Schema) Field(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	f, ok := s.fields[Fold(name)]
	return f, ok
}

// Fields returns the fields in declaration order.
func (s *Schema) Fields() []Field {
	if s == nil {
		return nil
	}
	out := make([]Field, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.fields[key])
	}
	return out
}

// Paths lists every dotted path reachable from this schema, descending
// into nested schemas up to maxDepth levels.
func (s *Schema) Paths(maxDepth int) []string {
	var out []string
	s.collectPaths("", 0, maxDepth, &out)
	return out
}

func (s *Schema) collectPaths(prefix string, depth, maxDepth int, out *[]string) {
	if s == nil || depth > maxDepth {
		return
	}
	for _, f := range s.Fields() {
		full := f.Name
		if prefix != "" {
			full = prefix + "." + f.Name
		}
		*out = append(*out, full)
		f.Nested.collectPaths(full, depth+1, maxDepth, out)
	}
}

// FieldOf declares a field read from owners of type T.
// Owners of any other type read as absent.
func FieldOf[T any](name string, get func(T) any) Field {
	return Field{
		Name: name,
		Get: func(owner any) any {
			t, ok := owner.(T)
			if !ok {
				return nil
			}
			return get(t)
		},
	}
}

// Ref declares a field holding a pointer to a nested record described by
// nested. A nil pointer reads as absent (untyped nil).
func Ref[T, E any](name string, nested *Schema, get func(T) *E) Field {
	return Field{
		Name:   name,
		Nested: nested,
		Get: func(owner any) any {
			t, ok := owner.(T)
			if !ok {
				return nil
			}
			e := get(t)
			if e == nil {
				return nil
			}
			return e
		},
	}
}
