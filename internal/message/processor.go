// Package message turns configured text into the chat lines players see.
//
// Processor localizes translation keys per recipient, then runs the result
// through the server's placeholder API when one is attached.
package message

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/roach88/msgpulse/internal/event"
	"github.com/roach88/msgpulse/internal/host"
)

const (
	// PrefixPlaceholder is registered on the placeholder API by
	// AttachPlaceholderAPI. {MP_PREFIX} expands to the localized chat.prefix.
	PrefixPlaceholder = "mp_prefix"
	PrefixKey         = "chat.prefix"

	// TranslationPrefix marks text as a translation key.
	TranslationPrefix = "chat."
)

var prefixPattern = regexp.MustCompile(`\{MP_PREFIX\}`)

// Translator localizes a key for a recipient. Implemented by i18n.Bundle.
type Translator interface {
	Localize(p event.Player, key string) string
}

// Processor formats and sends chat messages.
type Processor struct {
	chat       host.Chat
	players    host.PlayerManager
	translator Translator
	logger     *slog.Logger

	mu           sync.RWMutex
	placeholders host.PlaceholderAPI
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// NewProcessor creates a Processor with no placeholder API attached.
func NewProcessor(chat host.Chat, players host.PlayerManager, translator Translator, opts ...Option) *Processor {
	p := &Processor{
		chat:       chat,
		players:    players,
		translator: translator,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AttachPlaceholderAPI starts routing messages through api and registers
// the mp_prefix placeholder on it. Only the first attach takes effect.
func (pr *Processor) AttachPlaceholderAPI(api host.PlaceholderAPI) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.placeholders != nil || api == nil {
		return
	}
	pr.placeholders = api

	err := api.RegisterPlaceholder(PrefixPlaceholder, prefixPattern, func(p event.Player, _ string) string {
		return pr.translator.Localize(p, PrefixKey)
	})
	if err != nil {
		pr.logger.Error("failed to register placeholder",
			"placeholder", PrefixPlaceholder,
			"error", err,
		)
	}
}

// ProcessMessage prepares msg for p: a translation key is localized, then
// placeholders are applied. p may be nil for the server console.
func (pr *Processor) ProcessMessage(p event.Player, msg string) string {
	if IsTranslationKey(msg) {
		msg = pr.Localize(p, msg)
	}
	return pr.ReplacePlaceholders(p, msg)
}

// SendToAll sends msg to every valid player, processed per recipient.
func (pr *Processor) SendToAll(msg string) {
	for _, p := range pr.players.ValidPlayers() {
		pr.SendToPlayer(p, msg)
	}
}

// SendToPlayer processes msg for p, sends it and returns the line sent.
func (pr *Processor) SendToPlayer(p event.Player, msg string) string {
	line := pr.ProcessMessage(p, msg)
	pr.chat.SendChat(p, line)
	return line
}

// Localize translates key for p.
func (pr *Processor) Localize(p event.Player, key string) string {
	return pr.translator.Localize(p, key)
}

// ReplacePlaceholders applies the attached placeholder API, if any.
func (pr *Processor) ReplacePlaceholders(p event.Player, msg string) string {
	pr.mu.RLock()
	api := pr.placeholders
	pr.mu.RUnlock()
	if api == nil {
		return msg
	}
	return api.ProcessMessage(p, msg)
}

// Release unregisters mp_prefix and detaches the placeholder API.
func (pr *Processor) Release() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.placeholders == nil {
		return
	}
	if err := pr.placeholders.UnregisterPlaceholder(PrefixPlaceholder); err != nil {
		pr.logger.Error("failed to unregister placeholder",
			"placeholder", PrefixPlaceholder,
			"error", err,
		)
	}
	pr.placeholders = nil
}

// IsTranslationKey reports whether msg starts with "chat.", ignoring case.
func IsTranslationKey(msg string) bool {
	return len(msg) >= len(TranslationPrefix) && strings.EqualFold(msg[:len(TranslationPrefix)], TranslationPrefix)
}
