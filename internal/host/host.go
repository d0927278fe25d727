// Package host declares the collaborators the game server provides.
//
// The engine and the feature services only talk to the server through these
// interfaces. internal/sim implements all of them in process for the CLI,
// the scenario harness and tests.
package host

import (
	"context"
	"regexp"
	"time"

	"github.com/roach88/msgpulse/internal/event"
)

// Handler receives one fired event instance. It runs synchronously on the
// thread that fired the event.
type Handler func(ctx context.Context, inst any)

// EventBus delivers fired events to subscribers.
type EventBus interface {
	// Subscribe registers h for every firing of desc. The returned function
	// removes the subscription; it may be nil when the bus cannot unsubscribe.
	Subscribe(desc *event.Descriptor, h Handler) (unsubscribe func(), err error)
}

// PlayerManager enumerates connected players.
type PlayerManager interface {
	// ValidPlayers returns the players that can currently receive messages,
	// in a stable order.
	ValidPlayers() []event.Player
}

// Chat sends chat lines.
type Chat interface {
	SendChat(p event.Player, text string)
}

// HUD shows center-screen HTML for a duration.
type HUD interface {
	SendCenterHTML(p event.Player, html string, d time.Duration)
}

// CommandContext is passed to a command callback.
type CommandContext interface {
	// Sender is the invoking player, nil for the server console.
	Sender() event.Player
	Reply(text string)
}

// CommandFunc handles one command invocation.
type CommandFunc func(ctx CommandContext)

// CommandRegistry registers chat/console commands.
type CommandRegistry interface {
	RegisterCommand(name string, fn CommandFunc) error
	UnregisterCommand(name string)
}

// PlaceholderFunc computes the replacement for a matched placeholder.
type PlaceholderFunc func(p event.Player, match string) string

// PlaceholderAPI is the server-wide placeholder substitution service.
type PlaceholderAPI interface {
	RegisterPlaceholder(name string, pattern *regexp.Regexp, fn PlaceholderFunc) error
	UnregisterPlaceholder(name string) error
	ProcessMessage(p event.Player, text string) string
}

// Timers schedules repeating callbacks on the server.
type Timers interface {
	// Repeat runs fn once delay has elapsed and then every period until
	// cancel is called. Callbacks of one timer never overlap.
	Repeat(delay, period time.Duration, fn func()) (cancel func())
}

// Team is a player's side as reported by the server.
type Team int

const (
	TeamNone Team = iota
	TeamSpectator
	TeamT
	TeamCT
)

// GameRules exposes match state.
type GameRules interface {
	TotalRoundsPlayed() int
	Team(p event.Player) Team
}
