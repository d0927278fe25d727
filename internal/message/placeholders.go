package message

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/roach88/msgpulse/internal/event"
	"github.com/roach88/msgpulse/internal/host"
)

type placeholder struct {
	name    string
	pattern *regexp.Regexp
	fn      host.PlaceholderFunc
}

// Placeholders is an in-process host.PlaceholderAPI. Placeholders apply in
// registration order; each replaces every match of its pattern.
type Placeholders struct {
	mu      sync.RWMutex
	entries []placeholder
}

// NewPlaceholders creates an empty registry.
func NewPlaceholders() *Placeholders {
	return &Placeholders{}
}

// RegisterPlaceholder adds a named placeholder. Names are unique.
func (r *Placeholders) RegisterPlaceholder(name string, pattern *regexp.Regexp, fn host.PlaceholderFunc) error {
	if name == "" || pattern == nil || fn == nil {
		return fmt.Errorf("placeholder %q: name, pattern and func are required", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.name == name {
			return fmt.Errorf("placeholder %q already registered", name)
		}
	}
	r.entries = append(r.entries, placeholder{name: name, pattern: pattern, fn: fn})
	return nil
}

// UnregisterPlaceholder removes a placeholder by name.
func (r *Placeholders) UnregisterPlaceholder(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.name == name {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("placeholder %q is not registered", name)
}

// ProcessMessage applies every placeholder to text for p.
func (r *Placeholders) ProcessMessage(p event.Player, text string) string {
	r.mu.RLock()
	entries := append([]placeholder(nil), r.entries...)
	r.mu.RUnlock()

	for _, e := range entries {
		text = e.pattern.ReplaceAllStringFunc(text, func(match string) string {
			return e.fn(p, match)
		})
	}
	return text
}

// Names returns the registered placeholder names in order.
func (r *Placeholders) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.name
	}
	return out
}
