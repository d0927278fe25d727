package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/msgpulse/internal/compiler"
	"github.com/roach88/msgpulse/internal/config"
	"github.com/roach88/msgpulse/internal/engine"
	"github.com/roach88/msgpulse/internal/i18n"
	"github.com/roach88/msgpulse/internal/message"
	"github.com/roach88/msgpulse/internal/plugin"
	"github.com/roach88/msgpulse/internal/sim"
	"github.com/roach88/msgpulse/internal/store"
	"github.com/roach88/msgpulse/internal/testutil"
)

// Harness holds the per-run collaborators.
type Harness struct {
	store  *store.Store
	reg    *sim.Registry
	server *sim.Server
	plugin *plugin.Plugin
	logger *slog.Logger
}

// HostOf exposes a simulated server as plugin collaborators.
func HostOf(srv *sim.Server, reg *sim.Registry) plugin.Host {
	return plugin.Host{
		Catalog:  reg,
		Bus:      srv.Bus,
		Players:  srv.Roster,
		Chat:     srv.Chat,
		HUD:      srv.HUD,
		Commands: srv.Commands,
		Rules:    srv.Rules,
		Timers:   srv.Timers,
	}
}

// Run executes a scenario and returns its result. An error means the
// scenario could not run at all; failed assertions are reported in the
// result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	cat, err := compiler.LoadCatalog(scenario.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	reg, err := sim.BuildRegistry(cat)
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}

	cfg, err := BuildConfig(scenario.Config)
	if err != nil {
		return nil, err
	}
	bundle, err := BuildBundle(scenario.DefaultLocale, scenario.Locales)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := sim.NewServer()
	p := plugin.New(HostOf(srv, reg), bundle,
		plugin.WithLogger(logger),
		plugin.WithEngineOptions(
			engine.WithJournal(st),
			engine.WithIDGenerator(testutil.NewSequentialIDs("firing")),
			engine.WithClock(engine.NewClock()),
		),
	)
	p.UsePlaceholderAPI(message.NewPlaceholders())

	h := &Harness{store: st, reg: reg, server: srv, plugin: p, logger: logger}
	return h.run(ctx, scenario, cfg)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario, cfg *config.Config) (*Result, error) {
	for i, spec := range scenario.Players {
		if err := h.server.Connect(h.reg, spec); err != nil {
			return nil, fmt.Errorf("players[%d]: %w", i, err)
		}
	}

	result := NewResult()
	for _, re := range h.plugin.Load(ctx, cfg, false) {
		result.Transcript.Problems = append(result.Transcript.Problems, Problem{
			Code:      string(re.Code),
			Event:     re.Event,
			RuleIndex: re.RuleIndex,
		})
	}
	defer h.plugin.Unload()

	for i, step := range scenario.Steps {
		if err := h.server.Apply(ctx, h.reg, step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	result.Transcript.Chat = append(result.Transcript.Chat, h.server.Chat.Lines()...)
	result.Transcript.HUD = append(result.Transcript.HUD, h.server.HUD.Frames()...)
	deliveries, err := h.store.ReadDeliveries(ctx, store.DeliveryFilter{})
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	result.Transcript.Deliveries = deliveries

	actx := &AssertionContext{Store: h.store, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// BuildConfig validates inline feature documents with the config schemas.
// Features that are not present get their defaults.
func BuildConfig(docs map[string]any) (*config.Config, error) {
	loader, err := config.NewLoader()
	if err != nil {
		return nil, err
	}

	known := map[string]bool{
		config.FileEventMessages:  true,
		config.FileChatBroadcast:  true,
		config.FileCustomCommands: true,
		config.FileDeadShowImage:  true,
	}
	for name := range docs {
		if !known[name] {
			return nil, fmt.Errorf("config: unknown feature %q", name)
		}
	}

	cfg := &config.Config{Sources: map[string]string{}}
	targets := map[string]any{
		config.FileEventMessages:  &cfg.EventMessages,
		config.FileChatBroadcast:  &cfg.ChatBroadcast,
		config.FileCustomCommands: &cfg.CustomCommands,
		config.FileDeadShowImage:  &cfg.DeadShowImage,
	}
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		data := []byte("{}")
		if doc, ok := docs[name]; ok && doc != nil {
			data, err = yaml.Marshal(doc)
			if err != nil {
				return nil, fmt.Errorf("config %s: %w", name, err)
			}
		}
		if err := loader.Parse(name, ".yaml", data, targets[name]); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		cfg.Sources[name] = "scenario"
	}
	return cfg, nil
}

// BuildBundle loads inline translations. Nested keys are flattened the
// same way translation files are.
func BuildBundle(defaultLocale string, locales map[string]map[string]any) (*i18n.Bundle, error) {
	bundle, err := i18n.NewBundle(defaultLocale)
	if err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(locales))
	for tag := range locales {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	for _, tag := range tags {
		data, err := yaml.Marshal(locales[tag])
		if err != nil {
			return nil, fmt.Errorf("locale %s: %w", tag, err)
		}
		messages, err := i18n.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("locale %s: %w", tag, err)
		}
		if err := bundle.Add(tag, messages); err != nil {
			return nil, err
		}
	}
	return bundle, nil
}
