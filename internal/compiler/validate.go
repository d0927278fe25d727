package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/msgpulse/internal/event"
	"github.com/roach88/msgpulse/internal/ir"
	"github.com/roach88/msgpulse/internal/resolve"
	"github.com/roach88/msgpulse/internal/template"
)

// Validation codes. E codes are errors; W codes are warnings about rules
// that load but will not behave as written.
const (
	// Catalog errors (E101-E109)
	ErrInvalidFieldType = "E101" // scalar type or entity name expected
	ErrDuplicateName    = "E102" // duplicate entity, event or field name (case-insensitive)
	ErrUnknownEntity    = "E103" // field references an undeclared entity

	// Rule errors and warnings (E201-W208)
	ErrUnresolvedEvent    = "E201" // rule names an event the catalog does not know
	WarnUnmatchedBrace    = "W202" // template truncated at an unmatched '{'
	WarnUnknownFieldPath  = "W203" // token path does not exist; echoed verbatim at runtime
	WarnUnknownTarget     = "W204" // target is neither all nor player; never fires
	WarnEmptyMessage      = "W205" // message is empty
	WarnPlayerNoAccessor  = "W206" // player target on an event without accessor
	WarnEmptyEvent        = "W207" // rule has no event; skipped
	WarnNotARecord        = "W208" // path continues past a scalar field
)

// ValidationError represents a validation problem.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// IsWarning reports whether the problem is a warning.
func (e ValidationError) IsWarning() bool {
	return strings.HasPrefix(e.Code, "W")
}

// HasErrors reports whether any problem is an error rather than a warning.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if !e.IsWarning() {
			return true
		}
	}
	return false
}

// ValidateCatalog checks names and type references of a compiled catalog.
// Returns all errors found (does not fail-fast).
func ValidateCatalog(cat *ir.Catalog) []ValidationError {
	var errs []ValidationError

	entities := make(map[string]bool, len(cat.Entities))
	seen := make(map[string]string)
	for i, e := range cat.Entities {
		key := event.Fold(e.Name)
		if prev, dup := seen[key]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("entities[%d].name", i),
				Message: fmt.Sprintf("entity %q collides with %q", e.Name, prev),
				Code:    ErrDuplicateName,
			})
		}
		seen[key] = e.Name
		entities[e.Name] = true
	}

	for i, e := range cat.Entities {
		errs = append(errs, validateFields(e.Fields, fmt.Sprintf("entities[%d]", i), entities)...)
	}

	seen = make(map[string]string)
	for i, e := range cat.Events {
		key := event.Fold(e.Name)
		if prev, dup := seen[key]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("events[%d].name", i),
				Message: fmt.Sprintf("event %q collides with %q", e.Name, prev),
				Code:    ErrDuplicateName,
			})
		}
		seen[key] = e.Name
		errs = append(errs, validateFields(e.Fields, fmt.Sprintf("events[%d]", i), entities)...)
	}

	return errs
}

func validateFields(fields []ir.FieldSpec, prefix string, entities map[string]bool) []ValidationError {
	var errs []ValidationError
	names := make(map[string]bool, len(fields))
	for j, f := range fields {
		path := fmt.Sprintf("%s.fields[%d]", prefix, j)
		key := event.Fold(f.Name)
		if names[key] {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("duplicate field name: %q", f.Name),
				Code:    ErrDuplicateName,
			})
		}
		names[key] = true

		switch {
		case f.Type.IsScalar():
		case isScalarAlias(string(f.Type)):
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("invalid type %q for field %q, use string, int, bool or float", f.Type, f.Name),
				Code:    ErrInvalidFieldType,
			})
		case !entities[string(f.Type)] && string(f.Type) != ir.PlayerEntity:
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("field %q references unknown entity %q", f.Name, f.Type),
				Code:    ErrUnknownEntity,
			})
		}
	}
	return errs
}

// isScalarAlias catches type spellings borrowed from other languages.
func isScalarAlias(t string) bool {
	switch strings.ToLower(t) {
	case "str", "text", "integer", "int32", "int64", "long", "boolean",
		"float32", "float64", "double", "number", "object", "array":
		return true
	}
	return false
}

// ValidateRules checks configured rules against a catalog the way the
// engine will bind them. Returns all problems found.
func ValidateRules(catalog event.Catalog, rules []ir.Rule) []ValidationError {
	var errs []ValidationError

	for i, rule := range rules {
		prefix := fmt.Sprintf("rules[%d]", i)

		if rule.Event == "" {
			errs = append(errs, ValidationError{
				Field:   prefix + ".event",
				Message: "rule has no event and is skipped",
				Code:    WarnEmptyEvent,
			})
			continue
		}

		desc, ok := catalog.Resolve(rule.Event)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   prefix + ".event",
				Message: fmt.Sprintf("unknown event %q", rule.Event),
				Code:    ErrUnresolvedEvent,
			})
			continue
		}

		switch {
		case strings.EqualFold(rule.Target, "all"):
		case strings.EqualFold(rule.Target, "player"):
			if !desc.HasAccessor() {
				errs = append(errs, ValidationError{
					Field:   prefix + ".target",
					Message: fmt.Sprintf("event %s has no player accessor; rule never fires", desc.Name()),
					Code:    WarnPlayerNoAccessor,
				})
			}
		default:
			errs = append(errs, ValidationError{
				Field:   prefix + ".target",
				Message: fmt.Sprintf("unknown target %q; rule never fires", rule.Target),
				Code:    WarnUnknownTarget,
			})
		}

		if rule.Message == "" {
			errs = append(errs, ValidationError{
				Field:   prefix + ".message",
				Message: "message is empty",
				Code:    WarnEmptyMessage,
			})
			continue
		}

		tmpl := template.Compile(rule.Message)
		if w := tmpl.Truncation(); w != nil {
			errs = append(errs, ValidationError{
				Field:   prefix + ".message",
				Message: w.String(),
				Code:    WarnUnmatchedBrace,
			})
		}

		for _, path := range tmpl.Paths() {
			if code, msg := checkPath(desc, path); code != "" {
				errs = append(errs, ValidationError{
					Field:   prefix + ".message",
					Message: msg,
					Code:    code,
				})
			}
		}
	}

	return errs
}

// checkPath walks path through the descriptor's schemas the way
// resolve.Lookup walks an instance.
func checkPath(desc *event.Descriptor, path string) (code, msg string) {
	var parts []string
	for _, p := range strings.Split(path, ".") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return WarnUnknownFieldPath, fmt.Sprintf("empty token {%s} is echoed verbatim", path)
	}

	var schema *event.Schema
	root := parts[0]
	if _, isRoot := resolve.RootKey(root); isRoot && desc.HasAccessor() {
		if resolve.IsPlayerRoot(root) {
			schema = desc.PlayerSchema()
		} else {
			schema = desc.ControllerSchema()
		}
	} else {
		f, ok := desc.Schema().Field(root)
		if !ok {
			return WarnUnknownFieldPath, fmt.Sprintf("{%s}: %s has no field %q", path, desc.Name(), root)
		}
		schema = f.Nested
	}

	owner := root
	for _, name := range parts[1:] {
		if schema == nil {
			return WarnNotARecord, fmt.Sprintf("{%s}: %s has no fields", path, owner)
		}
		f, ok := schema.Field(name)
		if !ok {
			return WarnUnknownFieldPath, fmt.Sprintf("{%s}: %s has no field %q", path, schema.Name(), name)
		}
		schema = f.Nested
		owner = name
	}
	return "", ""
}
