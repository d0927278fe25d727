package sim

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/roach88/msgpulse/internal/event"
	"github.com/roach88/msgpulse/internal/host"
)

// Server bundles the simulated host collaborators.
type Server struct {
	Bus      *Bus
	Roster   *Roster
	Chat     *ChatLog
	HUD      *HUDLog
	Commands *Commands
	Rules    *Rules
	Timers   *ManualTimers
}

// NewServer creates an empty server whose timers only move on Advance.
func NewServer() *Server {
	return &Server{
		Bus:      NewBus(),
		Roster:   NewRoster(),
		Chat:     &ChatLog{},
		HUD:      &HUDLog{},
		Commands: NewCommands(),
		Rules:    NewRules(),
		Timers:   NewManualTimers(),
	}
}

// Bus is an in-process host.EventBus.
type Bus struct {
	mu   sync.RWMutex
	subs map[*event.Descriptor][]*subscription
}

type subscription struct {
	h host.Handler
}

// NewBus creates a bus without subscribers.
func NewBus() *Bus {
	return &Bus{subs: make(map[*event.Descriptor][]*subscription)}
}

// Subscribe implements host.EventBus.
func (b *Bus) Subscribe(desc *event.Descriptor, h host.Handler) (func(), error) {
	if desc == nil || h == nil {
		return nil, errors.New("subscribe: descriptor and handler are required")
	}
	sub := &subscription{h: h}

	b.mu.Lock()
	b.subs[desc] = append(b.subs[desc], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs[desc] = slices.DeleteFunc(b.subs[desc], func(s *subscription) bool { return s == sub })
		if len(b.subs[desc]) == 0 {
			delete(b.subs, desc)
		}
	}, nil
}

// Fire runs every handler subscribed to desc, in subscription order, on
// the calling goroutine. It returns the number of handlers run.
func (b *Bus) Fire(ctx context.Context, desc *event.Descriptor, inst any) int {
	b.mu.RLock()
	subs := slices.Clone(b.subs[desc])
	b.mu.RUnlock()

	for _, s := range subs {
		s.h(ctx, inst)
	}
	return len(subs)
}

// Subscribers returns the number of live subscriptions for desc.
func (b *Bus) Subscribers(desc *event.Descriptor) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[desc])
}

// Roster is the set of connected players. It implements host.PlayerManager.
type Roster struct {
	mu      sync.RWMutex
	players []*Player
}

// NewRoster creates a roster holding players in order.
func NewRoster(players ...*Player) *Roster {
	return &Roster{players: slices.Clone(players)}
}

// Add connects a player. IDs must be unique.
func (r *Roster) Add(p *Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.players {
		if existing.id == p.id {
			return fmt.Errorf("player %q already connected", p.id)
		}
	}
	r.players = append(r.players, p)
	return nil
}

// Remove disconnects a player and reports whether it was connected.
func (r *Roster) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.players)
	r.players = slices.DeleteFunc(r.players, func(p *Player) bool { return p.id == id })
	return len(r.players) != n
}

// Get returns a connected player by ID.
func (r *Roster) Get(id string) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.players {
		if p.id == id {
			return p, true
		}
	}
	return nil, false
}

// Index returns the connected players keyed by ID.
func (r *Roster) Index() map[string]*Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*Player, len(r.players))
	for _, p := range r.players {
		out[p.id] = p
	}
	return out
}

// ValidPlayers implements host.PlayerManager.
func (r *Roster) ValidPlayers() []event.Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]event.Player, len(r.players))
	for i, p := range r.players {
		out[i] = p
	}
	return out
}

// ChatLine is one chat message as received by a player.
type ChatLine struct {
	PlayerID string `json:"player_id" yaml:"player"`
	Text     string `json:"text" yaml:"text"`
}

// ChatLog records chat lines. It implements host.Chat.
type ChatLog struct {
	mu    sync.Mutex
	lines []ChatLine

	// OnSend, when set, is called for every line after it is recorded.
	OnSend func(p event.Player, text string)
}

// SendChat implements host.Chat.
func (c *ChatLog) SendChat(p event.Player, text string) {
	c.mu.Lock()
	c.lines = append(c.lines, ChatLine{PlayerID: p.ID(), Text: text})
	onSend := c.OnSend
	c.mu.Unlock()

	if onSend != nil {
		onSend(p, text)
	}
}

// Lines returns a copy of every recorded line.
func (c *ChatLog) Lines() []ChatLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.lines)
}

// Reset drops the recorded lines.
func (c *ChatLog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// HUDFrame is one center-screen message.
type HUDFrame struct {
	PlayerID string        `json:"player_id" yaml:"player"`
	HTML     string        `json:"html" yaml:"html"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// HUDLog records center-screen messages. It implements host.HUD.
type HUDLog struct {
	mu     sync.Mutex
	frames []HUDFrame
}

// SendCenterHTML implements host.HUD.
func (h *HUDLog) SendCenterHTML(p event.Player, html string, d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames = append(h.frames, HUDFrame{PlayerID: p.ID(), HTML: html, Duration: d})
}

// Frames returns a copy of every recorded frame.
func (h *HUDLog) Frames() []HUDFrame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.frames)
}

// Commands is an in-process host.CommandRegistry. Names are matched
// case-insensitively.
type Commands struct {
	mu       sync.RWMutex
	handlers map[string]host.CommandFunc
}

// NewCommands creates an empty registry.
func NewCommands() *Commands {
	return &Commands{handlers: make(map[string]host.CommandFunc)}
}

// RegisterCommand implements host.CommandRegistry.
func (c *Commands) RegisterCommand(name string, fn host.CommandFunc) error {
	if name == "" || fn == nil {
		return errors.New("register command: name and callback are required")
	}
	key := event.Fold(name)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.handlers[key]; exists {
		return fmt.Errorf("command %q already registered", name)
	}
	c.handlers[key] = fn
	return nil
}

// UnregisterCommand implements host.CommandRegistry.
func (c *Commands) UnregisterCommand(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, event.Fold(name))
}

// Names returns the registered command names (folded), sorted.
func (c *Commands) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Invoke runs a command as sender (nil for the console) and returns the
// replies it produced.
func (c *Commands) Invoke(name string, sender event.Player) ([]string, error) {
	c.mu.RLock()
	fn, ok := c.handlers[event.Fold(name)]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown command %q", name)
	}

	ctx := &commandContext{sender: sender}
	fn(ctx)
	return ctx.replies, nil
}

type commandContext struct {
	sender  event.Player
	replies []string
}

func (c *commandContext) Sender() event.Player { return c.sender }
func (c *commandContext) Reply(text string)    { c.replies = append(c.replies, text) }

// RunCommand invokes a command as sender (nil for the console) and sends
// its replies to the sender's chat.
func (s *Server) RunCommand(name string, sender *Player) error {
	var who event.Player
	if sender != nil {
		who = sender
	}
	replies, err := s.Commands.Invoke(name, who)
	if err != nil {
		return err
	}
	if sender != nil {
		for _, r := range replies {
			s.Chat.SendChat(sender, r)
		}
	}
	return nil
}
