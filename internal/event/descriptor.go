package event

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicateEvent is returned when two descriptors share a name after
// case folding.
var ErrDuplicateEvent = errors.New("duplicate event name")

// Descriptor identifies one event shape. Descriptors are compared by
// pointer identity and are immutable once created.
type Descriptor struct {
	name       string
	schema     *Schema
	player     *Schema
	controller *Schema
}

// DescriptorOption configures a Descriptor.
type DescriptorOption func(*Descriptor)

// WithAccessor declares that instances of the shape implement
// AccessorProvider. The schemas describe the entities returned by
// Accessor.Player and Accessor.Controller; they are used for static
// validation of template paths and may be nil.
func WithAccessor(player, controller *Schema) DescriptorOption {
	return func(d *Descriptor) {
		if player == nil {
			player = MustSchema("Player")
		}
		if controller == nil {
			controller = player
		}
		d.player = player
		d.controller = controller
	}
}

// NewDescriptor creates a descriptor for the named shape.
func NewDescriptor(name string, schema *Schema, opts ...DescriptorOption) *Descriptor {
	if schema == nil {
		schema = MustSchema(name)
	}
	d := &Descriptor{name: name, schema: schema}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the shape name as declared by the host.
func (d *Descriptor) Name() string { return d.name }

// Schema returns the fields of an event instance.
func (d *Descriptor) Schema() *Schema { return d.schema }

// HasAccessor reports whether instances expose an Accessor.
func (d *Descriptor) HasAccessor() bool { return d.player != nil }

// PlayerSchema returns the schema of entities returned by Accessor.Player.
func (d *Descriptor) PlayerSchema() *Schema { return d.player }

// ControllerSchema returns the schema of entities returned by
// Accessor.Controller.
func (d *Descriptor) ControllerSchema() *Schema { return d.controller }

func (d *Descriptor) String() string { return d.name }

// Catalog resolves event names to descriptors, ignoring case.
type Catalog interface {
	Resolve(name string) (*Descriptor, bool)
}

// Registry is the in-process Catalog populated by the host at startup.
//
// Thread-safety: Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Descriptor
	order  []*Descriptor
}

// NewRegistry creates a registry holding descs.
func NewRegistry(descs ...*Descriptor) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Descriptor, len(descs))}
	for _, d := range descs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a descriptor to the catalog.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil || d.name == "" {
		return fmt.Errorf("register event: descriptor name is required")
	}
	key := Fold(d.name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[key]; exists {
		return fmt.Errorf("register event %s: %w", d.name, ErrDuplicateEvent)
	}
	r.byName[key] = d
	r.order = append(r.order, d)
	return nil
}

// Resolve implements Catalog.
func (r *Registry) Resolve(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[Fold(name)]
	return d, ok
}

// Descriptors returns all registered descriptors in registration order.
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, len(r.order))
	copy(out, r.order)
	return out
}
