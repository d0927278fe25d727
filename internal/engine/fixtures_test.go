package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/msgpulse/internal/event"
	"github.com/roach88/msgpulse/internal/host"
	"github.com/roach88/msgpulse/internal/ir"
	"github.com/roach88/msgpulse/internal/resolve"
)

type player struct {
	id   string
	name string
	lang string
}

var playerSchema = event.MustSchema("Player",
	event.FieldOf("Name", func(p *player) any { return p.name }),
	event.FieldOf("ID", func(p *player) any { return p.id }),
)

func (p *player) Schema() *event.Schema { return playerSchema }
func (p *player) ID() string            { return p.id }
func (p *player) Language() string      { return p.lang }

type accessor map[string]*player

func (a accessor) Player(key string) (event.Player, bool) {
	p, ok := a[key]
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}

func (a accessor) Controller(key string) (event.Entity, bool) {
	return a.Player(key)
}

type controller struct{ name string }

var controllerSchema = event.MustSchema("PlayerController",
	event.FieldOf("Name", func(c *controller) any { return c.name }),
)

func (c *controller) Schema() *event.Schema { return controllerSchema }

// splitAccessor serves controllers from their own table.
type splitAccessor struct {
	accessor
	controllers map[string]*controller
}

func (a splitAccessor) Controller(key string) (event.Entity, bool) {
	c, ok := a.controllers[key]
	if !ok || c == nil {
		return nil, false
	}
	return c, true
}

// deathEvent carries its roles through an accessor, like a real
// player_death event.
type deathEvent struct {
	roles       accessor
	controllers map[string]*controller
	weapon      string
	headshot    bool
}

func (d *deathEvent) Accessor() event.Accessor {
	if d.roles == nil {
		return nil
	}
	if d.controllers != nil {
		return splitAccessor{accessor: d.roles, controllers: d.controllers}
	}
	return d.roles
}

var deathSchema = event.MustSchema("EventPlayerDeath",
	event.FieldOf("Weapon", func(d *deathEvent) any { return d.weapon }),
	event.FieldOf("Headshot", func(d *deathEvent) any { return d.headshot }),
)

func death(victim, attacker *player, weapon string) *deathEvent {
	roles := accessor{}
	if victim != nil {
		roles[resolve.KeyUserID] = victim
	}
	if attacker != nil {
		roles[resolve.KeyAttacker] = attacker
	}
	return &deathEvent{roles: roles, weapon: weapon}
}

// roundEvent has no accessor.
type roundEvent struct{ number int }

var roundSchema = event.MustSchema("EventRoundStart",
	event.FieldOf("Round", func(r *roundEvent) any { return r.number }),
)

var (
	deathDesc = event.NewDescriptor("EventPlayerDeath", deathSchema, event.WithAccessor(playerSchema, nil))
	roundDesc = event.NewDescriptor("EventRoundStart", roundSchema)
)

func testCatalog() *event.Registry {
	reg, err := event.NewRegistry(deathDesc, roundDesc)
	if err != nil {
		panic(err)
	}
	return reg
}

type fakeBus struct {
	mu       sync.Mutex
	handlers map[*event.Descriptor][]host.Handler
	calls    map[*event.Descriptor]int
	fail     map[*event.Descriptor]bool
	unsubbed int
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		handlers: map[*event.Descriptor][]host.Handler{},
		calls:    map[*event.Descriptor]int{},
		fail:     map[*event.Descriptor]bool{},
	}
}

func (b *fakeBus) Subscribe(desc *event.Descriptor, h host.Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[desc]++
	if b.fail[desc] {
		return nil, errors.New("hook unavailable")
	}
	b.handlers[desc] = append(b.handlers[desc], h)
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.unsubbed++
		delete(b.handlers, desc)
	}, nil
}

func (b *fakeBus) fire(ctx context.Context, desc *event.Descriptor, inst any) {
	b.mu.Lock()
	hs := append([]host.Handler(nil), b.handlers[desc]...)
	b.mu.Unlock()
	for _, h := range hs {
		h(ctx, inst)
	}
}

type roster []event.Player

func (r roster) ValidPlayers() []event.Player { return r }

type sentLine struct {
	to   string
	text string
}

// fakeProcessor translates from a per-language table and records sends.
type fakeProcessor struct {
	mu        sync.Mutex
	table     map[string]map[string]string
	localized []string
	sent      []sentLine
	panicOn   string
}

func (f *fakeProcessor) Localize(p event.Player, key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.localized = append(f.localized, p.ID()+":"+key)
	if msg, ok := f.table[p.Language()][key]; ok {
		return msg
	}
	return key
}

func (f *fakeProcessor) SendToPlayer(p event.Player, text string) string {
	if f.panicOn != "" && text == f.panicOn {
		panic("chat transport closed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentLine{to: p.ID(), text: text})
	return text
}

func (f *fakeProcessor) lines() []sentLine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentLine(nil), f.sent...)
}

type memJournal struct {
	mu       sync.Mutex
	firings  []ir.Firing
	rulesets map[string][]ir.Rule
	err      error
}

func (j *memJournal) WriteRuleset(_ context.Context, hash string, rules []ir.Rule) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	if j.rulesets == nil {
		j.rulesets = map[string][]ir.Rule{}
	}
	j.rulesets[hash] = append([]ir.Rule(nil), rules...)
	return nil
}

func (j *memJournal) WriteFiring(_ context.Context, f ir.Firing) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.firings = append(j.firings, f)
	return nil
}
