// Package sim is an in-process game server.
//
// It builds event descriptors from a compiled catalog (BuildRegistry),
// decodes event instances from plain maps (JSON lines, YAML scenarios),
// and implements every host collaborator: an event bus, a player roster,
// chat and HUD recorders, and a command registry. The CLI and the scenario
// harness run the real engine and feature services against it.
//
// Thread-safety: every type in this package is safe for concurrent use.
package sim
