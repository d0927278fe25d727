package engine

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/msgpulse/internal/event"
	"github.com/roach88/msgpulse/internal/host"
	"github.com/roach88/msgpulse/internal/ir"
)

// TracerName is the instrumentation scope used for engine spans.
const TracerName = "github.com/roach88/msgpulse/internal/engine"

// Processor turns rendered lines into chat messages.
// Implemented by message.Processor.
type Processor interface {
	// Localize translates key for the recipient's language.
	Localize(p event.Player, key string) string
	// SendToPlayer post-processes text for p, sends it and returns the
	// line as sent.
	SendToPlayer(p event.Player, text string) string
}

// Journal records dispatched firings. Implemented by store.Store.
type Journal interface {
	WriteFiring(ctx context.Context, f ir.Firing) error
}

// RulesetJournal is implemented by journals that also keep the rules a
// ruleset hash was computed from.
type RulesetJournal interface {
	WriteRuleset(ctx context.Context, hash string, rules []ir.Rule) error
}

// Engine owns the rule bindings and the host subscriptions.
type Engine struct {
	catalog   event.Catalog
	bus       host.EventBus
	players   host.PlayerManager
	processor Processor

	logger  *slog.Logger
	tracer  trace.Tracer
	journal Journal
	clock   *Clock
	ids     FiringIDGenerator
	debug   atomic.Bool

	mu          sync.RWMutex
	registered  map[*event.Descriptor]func()
	rules       map[*event.Descriptor][]*Binding
	ruleset     []ir.Rule
	rulesetHash string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTracer sets the tracer for Initialize and Dispatch spans.
// Default: the global provider's tracer, a no-op unless telemetry is set up.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithJournal records every firing that delivered at least one message.
// Firings whose bindings all skipped still consume an ID and a sequence
// number but leave no row.
func WithJournal(j Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithClock sets the sequence clock, e.g. NewClockAt(store max seq).
func WithClock(c *Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator sets the firing ID generator. Default: UUIDv7Generator.
func WithIDGenerator(g FiringIDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithDebug enables per-token debug logs for unresolved and null paths.
func WithDebug(enabled bool) Option {
	return func(e *Engine) { e.debug.Store(enabled) }
}

// SetDebug toggles per-token debug logs, e.g. after a config reload.
func (e *Engine) SetDebug(enabled bool) {
	e.debug.Store(enabled)
}

// New creates an Engine. Nothing is subscribed until Initialize.
func New(catalog event.Catalog, bus host.EventBus, players host.PlayerManager, processor Processor, opts ...Option) *Engine {
	e := &Engine{
		catalog:    catalog,
		bus:        bus,
		players:    players,
		processor:  processor,
		logger:     slog.Default(),
		tracer:     otel.Tracer(TracerName),
		clock:      NewClock(),
		ids:        UUIDv7Generator{},
		registered: make(map[*event.Descriptor]func()),
		rules:      make(map[*event.Descriptor][]*Binding),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Initialize binds rules to their event types.
//
// A cold start (hotReload false) drops existing bindings first; a hot
// reload appends to them. Existing subscriptions are kept either way and
// no event type is subscribed twice.
//
// The returned errors are the non-fatal problems found, in rule order.
// Each one has already been logged.
func (e *Engine) Initialize(ctx context.Context, rules []ir.Rule, hotReload bool) []*RuleError {
	_, span := e.tracer.Start(ctx, "engine.Initialize", trace.WithAttributes(
		attribute.Int("rule_count", len(rules)),
		attribute.Bool("hot_reload", hotReload),
	))
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if !hotReload {
		clear(e.rules)
		e.ruleset = nil
	}

	var problems []*RuleError
	report := func(re *RuleError, level slog.Level) {
		problems = append(problems, re)
		e.logger.Log(ctx, level, re.Message,
			"code", string(re.Code),
			"event", re.Event,
			"rule_index", re.RuleIndex,
		)
	}

	bound := 0
	for i, rule := range rules {
		if rule.Event == "" {
			continue
		}

		desc, ok := e.catalog.Resolve(rule.Event)
		if !ok {
			report(&RuleError{
				Code:      ErrCodeUnresolvedEvent,
				Message:   "failed to resolve event type for rule",
				Event:     rule.Event,
				RuleIndex: i,
			}, slog.LevelError)
			continue
		}

		b := newBinding(desc, rule, i)
		if w := b.Template.Truncation(); w != nil {
			report(&RuleError{
				Code:      ErrCodeUnmatchedBrace,
				Message:   "template has an unmatched '{'; " + w.String(),
				Event:     desc.Name(),
				RuleIndex: i,
			}, slog.LevelWarn)
		}

		e.rules[desc] = append(e.rules[desc], b)
		bound++

		if re := e.subscribe(desc); re != nil {
			re.RuleIndex = i
			report(re, slog.LevelWarn)
		}
	}

	e.ruleset = append(e.ruleset, rules...)
	hash, err := ir.RulesetHash(e.ruleset)
	if err != nil {
		e.logger.Error("ruleset hash failed", "error", err)
	}
	e.rulesetHash = hash
	if rj, ok := e.journal.(RulesetJournal); ok && hash != "" {
		if err := rj.WriteRuleset(ctx, hash, e.ruleset); err != nil {
			e.logger.Error("journal ruleset write failed", "ruleset_hash", hash, "error", err)
		}
	}

	span.SetAttributes(
		attribute.Int("bound_count", bound),
		attribute.Int("problem_count", len(problems)),
	)
	e.logger.Info("event messages initialized",
		"rules", len(rules),
		"bound", bound,
		"event_types", len(e.rules),
		"hot_reload", hotReload,
	)

	return problems
}

// subscribe hooks desc on the bus unless already hooked.
// Caller must hold the write lock.
func (e *Engine) subscribe(desc *event.Descriptor) *RuleError {
	if _, ok := e.registered[desc]; ok {
		return nil
	}

	unsubscribe, err := e.bus.Subscribe(desc, func(ctx context.Context, inst any) {
		e.Dispatch(ctx, desc, inst)
	})
	if err != nil {
		return &RuleError{
			Code:    ErrCodeSubscribeFailed,
			Message: "failed to subscribe to event",
			Event:   desc.Name(),
			Err:     err,
		}
	}

	e.registered[desc] = unsubscribe
	e.logger.Info("registered event", "event", desc.Name())
	return nil
}

// Release unsubscribes from every event type and drops all bindings.
func (e *Engine) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for desc, unsubscribe := range e.registered {
		if unsubscribe != nil {
			unsubscribe()
		}
		delete(e.registered, desc)
	}
	clear(e.rules)
	e.ruleset = nil
	e.rulesetHash = ""
}

// Bindings returns a copy of the bindings for desc, in dispatch order.
func (e *Engine) Bindings(desc *event.Descriptor) []*Binding {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.rules[desc])
}

// Subscribed reports whether the engine holds a bus subscription for desc.
func (e *Engine) Subscribed(desc *event.Descriptor) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.registered[desc]
	return ok
}

// RulesetHash identifies the rules bound since the last cold start.
func (e *Engine) RulesetHash() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rulesetHash
}
