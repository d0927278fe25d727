package sim

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/roach88/msgpulse/internal/event"
	"github.com/roach88/msgpulse/internal/ir"
)

// Registry is an event.Registry built from a compiled catalog, together
// with the schemas needed to build players and event instances.
type Registry struct {
	*event.Registry

	spec     *ir.Catalog
	player   *event.Schema
	entities map[string]*event.Schema
	fields   map[*event.Schema][]ir.FieldSpec
}

// BuildRegistry turns a compiled catalog into descriptors whose instances
// are Records. The catalog should have passed compiler.ValidateCatalog.
func BuildRegistry(spec *ir.Catalog) (*Registry, error) {
	r := &Registry{
		spec:     spec,
		entities: make(map[string]*event.Schema),
		fields:   make(map[*event.Schema][]ir.FieldSpec),
	}

	player, err := r.buildPlayerSchema()
	if err != nil {
		return nil, err
	}
	r.player = player
	r.entities[ir.PlayerEntity] = player

	building := make(map[string]bool)
	for _, e := range spec.Entities {
		if _, err := r.entity(e.Name, building); err != nil {
			return nil, err
		}
	}

	reg, err := event.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, ev := range spec.Events {
		fields, err := r.schemaFields(ev.Fields, building)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.Name, err)
		}
		schema, err := event.NewSchema(ev.Name, fields...)
		if err != nil {
			return nil, err
		}
		r.fields[schema] = ev.Fields

		var opts []event.DescriptorOption
		if ev.Accessor {
			opts = append(opts, event.WithAccessor(player, player))
		}
		if err := reg.Register(event.NewDescriptor(ev.Name, schema, opts...)); err != nil {
			return nil, err
		}
	}
	r.Registry = reg
	return r, nil
}

// Spec returns the compiled catalog the registry was built from.
func (r *Registry) Spec() *ir.Catalog { return r.spec }

// PlayerSchema returns the schema of simulated players.
func (r *Registry) PlayerSchema() *event.Schema { return r.player }

func (r *Registry) buildPlayerSchema() (*event.Schema, error) {
	spec := r.spec.Player()
	fields := make([]event.Field, 0, len(spec.Fields))
	for _, f := range spec.Fields {
		name := f.Name
		switch {
		case strings.EqualFold(name, "Name"):
			fields = append(fields, event.FieldOf(name, func(p *Player) any { return p.name }))
		case strings.EqualFold(name, "ID"):
			fields = append(fields, event.FieldOf(name, func(p *Player) any { return p.id }))
		case strings.EqualFold(name, "Language"):
			fields = append(fields, event.FieldOf(name, func(p *Player) any { return p.lang }))
		default:
			fields = append(fields, event.FieldOf(name, func(p *Player) any { return p.attr(name) }))
		}
	}
	s, err := event.NewSchema(ir.PlayerEntity, fields...)
	if err != nil {
		return nil, err
	}
	r.fields[s] = spec.Fields
	return s, nil
}

// entity builds (once) the schema of a named entity. Entities that refer
// back to one being built get no nested schema for the back reference;
// values still carry their own schema at run time.
func (r *Registry) entity(name string, building map[string]bool) (*event.Schema, error) {
	if s, ok := r.entities[name]; ok {
		return s, nil
	}
	if building[name] {
		return nil, nil
	}
	spec, ok := r.spec.Entity(name)
	if !ok {
		return nil, fmt.Errorf("unknown entity %q", name)
	}

	building[name] = true
	defer delete(building, name)

	fields, err := r.schemaFields(spec.Fields, building)
	if err != nil {
		return nil, fmt.Errorf("entity %s: %w", name, err)
	}
	s, err := event.NewSchema(name, fields...)
	if err != nil {
		return nil, err
	}
	r.entities[name] = s
	r.fields[s] = spec.Fields
	return s, nil
}

func (r *Registry) schemaFields(specs []ir.FieldSpec, building map[string]bool) ([]event.Field, error) {
	fields := make([]event.Field, 0, len(specs))
	for _, f := range specs {
		var nested *event.Schema
		if !f.Type.IsScalar() {
			s, err := r.entity(string(f.Type), building)
			if err != nil {
				return nil, err
			}
			nested = s
		}
		key := event.Fold(f.Name)
		fields = append(fields, event.Field{
			Name:   f.Name,
			Nested: nested,
			Get: func(owner any) any {
				rec, ok := owner.(*Record)
				if !ok {
					return nil
				}
				v, ok := rec.values[key]
				if !ok {
					return nil
				}
				return v
			},
		})
	}
	return fields, nil
}

// NewPlayer creates a player whose extra fields are checked against the
// catalog's Player entity.
func (r *Registry) NewPlayer(spec PlayerSpec) (*Player, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("player id is required")
	}
	p := &Player{
		id:     spec.ID,
		name:   spec.Name,
		lang:   spec.Language,
		attrs:  make(map[string]any, len(spec.Fields)),
		schema: r.player,
	}
	if p.name == "" {
		p.name = spec.ID
	}
	for name, raw := range spec.Fields {
		ft, ok := r.fieldType(r.player, name)
		if !ok {
			return nil, fmt.Errorf("player %s: unknown field %q", spec.ID, name)
		}
		v, err := r.coerce(ft, raw, nil)
		if err != nil {
			return nil, fmt.Errorf("player %s: field %s: %w", spec.ID, name, err)
		}
		if v != nil {
			p.attrs[event.Fold(name)] = v
		}
	}
	return p, nil
}

// NewEvent builds an instance of the named event.
//
// roles maps accessor keys ("userid", "attacker") to
// players; it is ignored for events without an accessor. fields holds
// raw values as decoded from JSON or YAML: nested entities are maps and
// Player-typed fields are player IDs looked up in players.
func (r *Registry) NewEvent(name string, roles Roles, fields map[string]any, players map[string]*Player) (*event.Descriptor, *Record, error) {
	desc, ok := r.Resolve(name)
	if !ok {
		return nil, nil, fmt.Errorf("unknown event %q", name)
	}

	rec, err := r.newRecord(desc.Schema(), fields, players)
	if err != nil {
		return nil, nil, fmt.Errorf("event %s: %w", desc.Name(), err)
	}
	if desc.HasAccessor() {
		rec.roles = Roles{}
		for key, p := range roles {
			if p != nil {
				rec.roles[key] = p
			}
		}
	}
	return desc, rec, nil
}

func (r *Registry) newRecord(schema *event.Schema, raw map[string]any, players map[string]*Player) (*Record, error) {
	rec := &Record{schema: schema, values: make(map[string]any, len(raw))}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ft, ok := r.fieldType(schema, name)
		if !ok {
			return nil, fmt.Errorf("unknown field %q", name)
		}
		v, err := r.coerce(ft, raw[name], players)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		if v != nil {
			rec.values[event.Fold(name)] = v
		}
	}
	return rec, nil
}

func (r *Registry) fieldType(schema *event.Schema, name string) (ir.FieldType, bool) {
	for _, f := range r.fields[schema] {
		if event.Fold(f.Name) == event.Fold(name) {
			return f.Type, true
		}
	}
	return "", false
}

// coerce converts a decoded value to the Go type used for ft. A nil raw
// value stays absent.
func (r *Registry) coerce(ft ir.FieldType, raw any, players map[string]*Player) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch ft {
	case ir.TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		return s, nil

	case ir.TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", raw)
		}
		return b, nil

	case ir.TypeInt:
		return toInt(raw)

	case ir.TypeFloat:
		return toFloat(raw)

	case ir.PlayerEntity:
		id, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected player id, got %T", raw)
		}
		p, ok := players[id]
		if !ok {
			return nil, fmt.Errorf("unknown player %q", id)
		}
		return p, nil
	}

	schema, ok := r.entities[string(ft)]
	if !ok {
		return nil, fmt.Errorf("unknown type %q", ft)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected %s object, got %T", ft, raw)
	}
	return r.newRecord(schema, m, players)
}

func toInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("integer %d out of range", v)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("expected integer, got %v", v)
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	default:
		return 0, fmt.Errorf("expected int, got %T", raw)
	}
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	default:
		return 0, fmt.Errorf("expected float, got %T", raw)
	}
}

// RolesFrom builds accessor roles from player IDs. Unknown IDs are errors.
func RolesFrom(ids map[string]string, players map[string]*Player) (Roles, error) {
	roles := make(Roles, len(ids))
	for key, id := range ids {
		if id == "" {
			continue
		}
		p, ok := players[id]
		if !ok {
			return nil, fmt.Errorf("role %s: unknown player %q", key, id)
		}
		roles[strings.ToLower(key)] = p
	}
	return roles, nil
}
