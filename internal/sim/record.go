package sim

import (
	"github.com/roach88/msgpulse/internal/event"
)

// Record is a decoded event instance or nested entity value. Values are
// keyed by folded field name.
type Record struct {
	schema *event.Schema
	values map[string]any
	roles  Roles
}

// Schema implements event.Entity.
func (r *Record) Schema() *event.Schema { return r.schema }

// Accessor implements event.AccessorProvider. Records of events declared
// without an accessor return nil.
func (r *Record) Accessor() event.Accessor {
	if r.roles == nil {
		return nil
	}
	return r.roles
}

// Value returns a field value by name, ignoring case.
func (r *Record) Value(name string) (any, bool) {
	v, ok := r.values[event.Fold(name)]
	return v, ok
}

// Roles maps accessor keys (userid, attacker) to players.
type Roles map[string]*Player

// Player implements event.Accessor.
func (r Roles) Player(key string) (event.Player, bool) {
	p, ok := r[key]
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}

// Controller implements event.Accessor. The simulation has no separate
// controller entity, so it returns the same player.
func (r Roles) Controller(key string) (event.Entity, bool) {
	return r.Player(key)
}
