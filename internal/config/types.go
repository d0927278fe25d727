package config

import "github.com/roach88/msgpulse/internal/ir"

// EventMessages configures the event rule engine (event_messages.*).
type EventMessages struct {
	Enabled   bool      `json:"enabled"`
	DebugLogs bool      `json:"debug_logs"`
	Rules     []ir.Rule `json:"rules"`
}

// BroadcastMessage is one scheduled chat line. Interval <= 0 means the
// file's default interval.
type BroadcastMessage struct {
	Message   string  `json:"message"`
	Interval  float64 `json:"interval"`
	Delay     float64 `json:"delay"`
	Broadcast bool    `json:"broadcast"`
}

// ChatBroadcast configures periodic announcements (chat_broadcast.*).
type ChatBroadcast struct {
	DefaultIntervalSeconds float64            `json:"default_interval_seconds"`
	Messages               []BroadcastMessage `json:"messages"`
}

// Command is one custom chat command with one or more triggers.
type Command struct {
	Triggers []string `json:"triggers"`
	Target   string   `json:"target"`
	Message  string   `json:"message"`
}

// CustomCommands configures chat commands (custom_commands.*).
type CustomCommands struct {
	Commands []Command `json:"commands"`
}

// DeadShowImage configures the center-screen image rotation shown to dead
// players (dead_show_image.*). Interval and Delay are seconds.
type DeadShowImage struct {
	Enabled  bool     `json:"enabled"`
	Interval float64  `json:"interval"`
	Delay    float64  `json:"delay"`
	Images   []string `json:"images"`
}

// Config is every feature file of one config directory.
type Config struct {
	EventMessages  EventMessages
	ChatBroadcast  ChatBroadcast
	CustomCommands CustomCommands
	DeadShowImage  DeadShowImage

	// Sources maps each feature file base name to the file it was read
	// from, or "" when defaults were used.
	Sources map[string]string
}
