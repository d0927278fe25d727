// Package event describes the event shapes a host game server publishes.
//
// The host owns a finite catalog of event shapes. Each shape is a
// Descriptor: a named, identity-compared handle paired with a Schema that
// lists the readable fields of an event instance. Schemas are capability
// tables (field name -> getter) built once at startup, so path resolution
// never inspects Go types at runtime.
//
// Field and event names are matched case-insensitively using Unicode case
// folding.
//
// Events that can name related players (the victim, the attacker) expose
// an Accessor through AccessorProvider. Accessor lookups take the host's
// role keys ("userid", "attacker").
package event
