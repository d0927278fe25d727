package event

// Entity is a record that describes its own fields.
type Entity interface {
	Schema() *Schema
}

// Player is an entity that can receive chat messages.
type Player interface {
	Entity

	// ID identifies the player for the lifetime of a connection.
	ID() string

	// Language is the player's preferred locale as a BCP 47 tag.
	// An empty string selects the default locale.
	Language() string
}

// Accessor resolves event roles to entities.
//
// Keys are host role names such as "userid" or "attacker". Both methods
// return false when the role is not present on the event (for example a
// death with no attacker).
type Accessor interface {
	Player(key string) (Player, bool)
	Controller(key string) (Entity, bool)
}

// AccessorProvider is implemented by event instances that can resolve
// related players through an Accessor.
type AccessorProvider interface {
	Accessor() Accessor
}

// AccessorOf returns the accessor of inst, if it has one.
func AccessorOf(inst any) (Accessor, bool) {
	p, ok := inst.(AccessorProvider)
	if !ok {
		return nil, false
	}
	a := p.Accessor()
	if a == nil {
		return nil, false
	}
	return a, true
}
