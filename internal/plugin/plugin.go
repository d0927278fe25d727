// Package plugin wires the message processor, the event rule engine and the
// feature services to one host.
package plugin

import (
	"context"
	"log/slog"

	"github.com/roach88/msgpulse/internal/commands"
	"github.com/roach88/msgpulse/internal/config"
	"github.com/roach88/msgpulse/internal/deadimage"
	"github.com/roach88/msgpulse/internal/engine"
	"github.com/roach88/msgpulse/internal/event"
	"github.com/roach88/msgpulse/internal/host"
	"github.com/roach88/msgpulse/internal/message"
	"github.com/roach88/msgpulse/internal/scheduler"
)

// Host bundles the server collaborators.
type Host struct {
	Catalog  event.Catalog
	Bus      host.EventBus
	Players  host.PlayerManager
	Chat     host.Chat
	HUD      host.HUD
	Commands host.CommandRegistry
	Rules    host.GameRules
	Timers   host.Timers
}

// Plugin owns every service. Fields are exported for inspection; callers
// should go through Load and Unload.
type Plugin struct {
	Processor *message.Processor
	Engine    *engine.Engine
	Broadcast *scheduler.Scheduler
	Commands  *commands.Handler
	DeadImage *deadimage.Service

	logger *slog.Logger
}

type options struct {
	logger     *slog.Logger
	engineOpts []engine.Option
}

// Option configures a Plugin.
type Option func(*options)

// WithLogger sets the logger shared by every service.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEngineOptions passes extra options to the rule engine, such as a
// journal or tracer.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *options) { o.engineOpts = append(o.engineOpts, opts...) }
}

// New builds the services. Nothing touches the host until Load.
func New(h Host, translator message.Translator, opts ...Option) *Plugin {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger

	proc := message.NewProcessor(h.Chat, h.Players, translator, message.WithLogger(log))
	engineOpts := append([]engine.Option{engine.WithLogger(log)}, o.engineOpts...)

	return &Plugin{
		Processor: proc,
		Engine:    engine.New(h.Catalog, h.Bus, h.Players, proc, engineOpts...),
		Broadcast: scheduler.New(proc, h.Timers, scheduler.WithLogger(log)),
		Commands:  commands.New(h.Commands, proc, commands.WithLogger(log)),
		DeadImage: deadimage.New(deadimage.Deps{
			Catalog: h.Catalog,
			Bus:     h.Bus,
			HUD:     h.HUD,
			Rules:   h.Rules,
			Timers:  h.Timers,
		}, deadimage.WithLogger(log)),
		logger: log,
	}
}

// UsePlaceholderAPI routes every message through the server's placeholder
// service.
func (p *Plugin) UsePlaceholderAPI(api host.PlaceholderAPI) {
	p.Processor.AttachPlaceholderAPI(api)
}

// Load initializes every service from cfg. Rule problems are logged by the
// engine and returned for callers that report them.
//
// Event rules are only bound when event_messages is enabled. A disabled
// file on hot reload leaves earlier bindings in place.
func (p *Plugin) Load(ctx context.Context, cfg *config.Config, hotReload bool) []*engine.RuleError {
	p.logger.Info("plugin loading", "hot_reload", hotReload)

	var problems []*engine.RuleError
	if cfg.EventMessages.Enabled {
		p.Engine.SetDebug(cfg.EventMessages.DebugLogs)
		problems = p.Engine.Initialize(ctx, cfg.EventMessages.Rules, hotReload)
	}
	p.Broadcast.Initialize(cfg.ChatBroadcast, hotReload)
	p.Commands.Initialize(cfg.CustomCommands, hotReload)
	p.DeadImage.Initialize(cfg.DeadShowImage, hotReload)

	p.logger.Info("plugin loaded", "rule_problems", len(problems))
	return problems
}

// Unload releases every service.
func (p *Plugin) Unload() {
	p.Engine.Release()
	p.Broadcast.Release()
	p.Processor.Release()
	p.Commands.Release()
	p.DeadImage.Release()

	p.logger.Info("plugin unloaded")
}
