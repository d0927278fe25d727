package ir

import "strings"

// FieldType names a catalog field type: one of the scalar types below or
// the name of an entity declared in the same catalog.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeBool   FieldType = "bool"
	TypeFloat  FieldType = "float"
)

// IsScalar reports whether t is a built-in scalar type.
func (t FieldType) IsScalar() bool {
	switch t {
	case TypeString, TypeInt, TypeBool, TypeFloat:
		return true
	}
	return false
}

// FieldSpec is one field of an entity or event shape.
type FieldSpec struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// EntitySpec describes a reusable nested shape such as Player.
type EntitySpec struct {
	Name   string      `json:"name"`
	Fields []FieldSpec `json:"fields"`
}

// EventSpec describes one event type.
// Accessor is true when the event exposes player accessors (userid, attacker).
type EventSpec struct {
	Name     string      `json:"name"`
	Accessor bool        `json:"accessor"`
	Fields   []FieldSpec `json:"fields"`
}

// Catalog is a compiled set of entity and event shapes, sorted by name.
type Catalog struct {
	Entities []EntitySpec `json:"entities"`
	Events   []EventSpec  `json:"events"`
}

// Entity returns the entity spec with the given exact name.
func (c Catalog) Entity(name string) (EntitySpec, bool) {
	for _, e := range c.Entities {
		if e.Name == name {
			return e, true
		}
	}
	return EntitySpec{}, false
}

// Rule is one configured event message rule.
type Rule struct {
	Event     string `json:"event"`
	Message   string `json:"message"`
	Target    string `json:"target"`
	Broadcast bool   `json:"broadcast"`
}

// Delivery is one chat line sent to one recipient as a result of a firing.
type Delivery struct {
	FiringID    string `json:"firing_id"`
	Seq         int64  `json:"seq"`
	Event       string `json:"event"`
	RuleIndex   int    `json:"rule_index"`
	Target      string `json:"target"`
	RecipientID string `json:"recipient_id"`
	Text        string `json:"text"`
	Translated  bool   `json:"translated"`
}

// Firing is one dispatched event instance and the deliveries it produced.
type Firing struct {
	ID            string     `json:"id"`
	Seq           int64      `json:"seq"`
	Event         string     `json:"event"`
	RulesetHash   string     `json:"ruleset_hash"`
	EngineVersion string     `json:"engine_version"`
	Deliveries    []Delivery `json:"deliveries"`
}

// PlayerEntity names the entity returned by event accessors. A catalog
// may declare it to add fields to PlayerFields.
const PlayerEntity = "Player"

// PlayerFields are carried by every player whatever the catalog says.
var PlayerFields = []FieldSpec{
	{Name: "Name", Type: TypeString},
	{Name: "ID", Type: TypeString},
	{Name: "Language", Type: TypeString},
}

// Player returns the fields of the accessor player entity: PlayerFields
// followed by the fields the catalog declares on PlayerEntity that do not
// repeat a built-in name.
func (c Catalog) Player() EntitySpec {
	fields := append([]FieldSpec(nil), PlayerFields...)
	if e, ok := c.Entity(PlayerEntity); ok {
	next:
		for _, f := range e.Fields {
			for _, b := range PlayerFields {
				if strings.EqualFold(b.Name, f.Name) {
					continue next
				}
			}
			fields = append(fields, f)
		}
	}
	return EntitySpec{Name: PlayerEntity, Fields: fields}
}

// Event returns the event spec with the given exact name.
func (c Catalog) Event(name string) (EventSpec, bool) {
	for _, e := range c.Events {
		if e.Name == name {
			return e, true
		}
	}
	return EventSpec{}, false
}
