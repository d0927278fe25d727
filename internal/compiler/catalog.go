package compiler

import (
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/msgpulse/internal/ir"
)

// CompileCatalog parses a CUE value into a Catalog.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the root of a catalog file:
//
//	entity: Player: fields: { Name: string, SteamID: int }
//	event: EventPlayerDeath: {
//		accessor: true
//		fields: { Weapon: "string", Headshot: bool, Assister: "Player" }
//	}
//
// Field types are CUE kinds (string, int, bool, float, number) or string
// literals naming a scalar type or an entity. Entities and events are
// returned sorted by name. References are checked by ValidateCatalog.
func CompileCatalog(v cue.Value) (*ir.Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	cat := &ir.Catalog{}

	entityVal := v.LookupPath(cue.ParsePath("entity"))
	if entityVal.Exists() {
		iter, err := entityVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			name := iter.Label()
			fields, err := parseFields(iter.Value(), "entity."+name)
			if err != nil {
				return nil, err
			}
			cat.Entities = append(cat.Entities, ir.EntitySpec{Name: name, Fields: fields})
		}
	}

	eventVal := v.LookupPath(cue.ParsePath("event"))
	if !eventVal.Exists() {
		return nil, &CompileError{
			Field:   "event",
			Message: "at least one event is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := eventVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		spec := ir.EventSpec{Name: name}

		// accessor is optional, defaults to false
		accVal := iter.Value().LookupPath(cue.ParsePath("accessor"))
		if accVal.Exists() {
			spec.Accessor, err = accVal.Bool()
			if err != nil {
				return nil, &CompileError{
					Field:   fmt.Sprintf("event.%s.accessor", name),
					Message: "accessor must be a bool",
					Pos:     accVal.Pos(),
				}
			}
		}

		spec.Fields, err = parseFields(iter.Value(), "event."+name)
		if err != nil {
			return nil, err
		}
		cat.Events = append(cat.Events, spec)
	}

	sort.Slice(cat.Entities, func(i, j int) bool { return cat.Entities[i].Name < cat.Entities[j].Name })
	sort.Slice(cat.Events, func(i, j int) bool { return cat.Events[i].Name < cat.Events[j].Name })

	return cat, nil
}

// parseFields reads the optional fields struct of an entity or event,
// keeping declaration order.
func parseFields(v cue.Value, prefix string) ([]ir.FieldSpec, error) {
	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, nil
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []ir.FieldSpec
	for iter.Next() {
		name := iter.Label()
		ft, err := extractTypeName(iter.Value(), prefix+".fields."+name)
		if err != nil {
			return nil, err
		}
		fields = append(fields, ir.FieldSpec{Name: name, Type: ft})
	}
	return fields, nil
}

// extractTypeName converts a CUE field declaration to a field type.
// A concrete string names the type; otherwise the CUE kind decides.
func extractTypeName(v cue.Value, field string) (ir.FieldType, error) {
	if s, err := v.String(); err == nil {
		if s == "" {
			return "", &CompileError{Field: field, Message: "type name is empty", Pos: v.Pos()}
		}
		return ir.FieldType(s), nil
	}

	switch v.IncompleteKind() {
	case cue.StringKind:
		return ir.TypeString, nil
	case cue.IntKind:
		return ir.TypeInt, nil
	case cue.BoolKind:
		return ir.TypeBool, nil
	case cue.FloatKind, cue.NumberKind:
		return ir.TypeFloat, nil
	default:
		return "", &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
