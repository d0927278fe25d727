// Package commands registers the chat commands declared in
// custom_commands.
package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/msgpulse/internal/config"
	"github.com/roach88/msgpulse/internal/event"
	"github.com/roach88/msgpulse/internal/host"
)

// Processor formats and broadcasts messages. Implemented by
// message.Processor.
type Processor interface {
	ProcessMessage(p event.Player, msg string) string
	SendToAll(msg string)
}

// Handler owns the registered custom commands.
type Handler struct {
	registry  host.CommandRegistry
	processor Processor
	logger    *slog.Logger

	mu         sync.Mutex
	registered map[string]string // folded trigger -> trigger as configured
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// New creates a Handler with nothing registered.
func New(registry host.CommandRegistry, processor Processor, opts ...Option) *Handler {
	h := &Handler{
		registry:   registry,
		processor:  processor,
		logger:     slog.Default(),
		registered: make(map[string]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Initialize registers every command of cfg. A hot reload unregisters the
// previous set first. Commands that fail to register are logged and
// skipped; the number registered is returned.
func (h *Handler) Initialize(cfg config.CustomCommands, hotReload bool) int {
	if hotReload {
		h.UnregisterAll()
	}

	n := 0
	for _, cmd := range cfg.Commands {
		if err := h.Register(cmd); err != nil {
			h.logger.Error("custom command not registered",
				"triggers", strings.Join(cmd.Triggers, ","),
				"error", err,
			)
			continue
		}
		n++
	}

	h.logger.Info("custom commands initialized",
		"count", n,
		"triggers", strings.Join(h.Registered(), ","),
	)
	return n
}

// Register adds one command under each of its triggers. Nothing is
// registered when any trigger is blank or already taken.
func (h *Handler) Register(cmd config.Command) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(cmd.Triggers) == 0 {
		return errors.New("command has no triggers")
	}
	seen := make(map[string]bool, len(cmd.Triggers))
	for _, trigger := range cmd.Triggers {
		if strings.TrimSpace(trigger) == "" {
			return errors.New("blank trigger")
		}
		key := event.Fold(trigger)
		if _, taken := h.registered[key]; taken || seen[key] {
			return fmt.Errorf("trigger %q is already registered", trigger)
		}
		seen[key] = true
	}

	fn := h.callback(cmd)
	for i, trigger := range cmd.Triggers {
		if err := h.registry.RegisterCommand(trigger, fn); err != nil {
			for _, done := range cmd.Triggers[:i] {
				h.registry.UnregisterCommand(done)
			}
			return fmt.Errorf("register %q: %w", trigger, err)
		}
	}
	for _, trigger := range cmd.Triggers {
		h.registered[event.Fold(trigger)] = trigger
	}
	return nil
}

func (h *Handler) callback(cmd config.Command) host.CommandFunc {
	msg := cmd.Message
	if ReplyToCaller(cmd.Target) {
		return func(ctx host.CommandContext) {
			ctx.Reply(h.processor.ProcessMessage(ctx.Sender(), msg))
		}
	}
	return func(host.CommandContext) {
		h.processor.SendToAll(msg)
	}
}

// ReplyToCaller reports whether target sends the message back to the
// invoking player rather than to everyone.
func ReplyToCaller(target string) bool {
	t := strings.TrimSpace(target)
	return strings.EqualFold(t, "caller") || strings.EqualFold(t, "player")
}

// Registered returns the registered triggers as configured, sorted.
func (h *Handler) Registered() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.registered))
	for _, trigger := range h.registered {
		out = append(out, trigger)
	}
	sort.Strings(out)
	return out
}

// UnregisterAll removes every command registered by this handler.
func (h *Handler) UnregisterAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, trigger := range h.registered {
		h.registry.UnregisterCommand(trigger)
		delete(h.registered, key)
	}
}

// Release unregisters everything.
func (h *Handler) Release() {
	h.UnregisterAll()
}
