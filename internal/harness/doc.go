// Package harness runs scripted scenarios against the real plugin on the
// simulated server.
//
// A scenario names a catalog, feature configuration, translations and
// players, then drives the server through steps: events, commands,
// connects, time passing. Everything players receive is collected into a
// Transcript which assertions check and golden files pin.
//
// # Scenario Format
//
//	name: kill_feed
//	description: "Deaths are announced to everyone"
//	catalog: ../catalog.cue
//	config:
//	  event_messages:
//	    rules:
//	      - event: EventPlayerDeath
//	        message: "{Attacker.Name} killed {Player.Name}"
//	locales:
//	  en-US:
//	    chat: { prefix: "[MP]" }
//	players:
//	  - { id: "1", name: Alice, team: t }
//	steps:
//	  - event: EventPlayerDeath
//	    roles: { userid: "1", attacker: "2" }
//	  - advance: 60s
//	assertions:
//	  - type: chat_contains
//	    player: "1"
//	    text: "Bob killed Alice"
//
// # Determinism
//
// Each run gets a fresh in-memory journal, firing IDs from
// testutil.SequentialIDs, a sequence clock starting at zero and manual
// timers that only move on advance steps, so transcripts are identical
// across runs.
package harness
