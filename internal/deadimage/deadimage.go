// Package deadimage shows a rotating image to players while they are dead.
//
// Deaths and spawns are tracked from the host event bus. A repeating timer
// sends the next configured image to every tracked player as center-screen
// HTML; the round restart clears overlays of players still on a team.
package deadimage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/msgpulse/internal/config"
	"github.com/roach88/msgpulse/internal/event"
	"github.com/roach88/msgpulse/internal/host"
	"github.com/roach88/msgpulse/internal/resolve"
)

// Event names the service listens to.
const (
	EventDeath         = "EventPlayerDeath"
	EventSpawn         = "EventPlayerSpawn"
	EventRoundPrestart = "EventRoundPrestart"
)

const (
	defaultDuration = 15 * time.Second
	defaultGap      = 2 * time.Second

	// clearDuration replaces an overlay with an empty one that expires
	// immediately.
	clearDuration = time.Millisecond
)

// Deps are the host collaborators the service needs.
type Deps struct {
	Catalog event.Catalog
	Bus     host.EventBus
	HUD     host.HUD
	Rules   host.GameRules
	Timers  host.Timers
}

// Service tracks dead players and rotates images to them.
type Service struct {
	deps   Deps
	logger *slog.Logger

	mu     sync.Mutex
	dead   []event.Player
	index  int
	images []string
	html   time.Duration
	cancel []func()
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a stopped Service.
func New(deps Deps, opts ...Option) *Service {
	s := &Service{deps: deps, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timing returns how long each image stays on screen and the gap before
// the next one. Non-positive values fall back to 15s and 2s.
func Timing(cfg config.DeadShowImage) (duration, gap time.Duration) {
	duration, gap = defaultDuration, defaultGap
	if cfg.Interval > 0 {
		duration = time.Duration(cfg.Interval * float64(time.Second))
	}
	if cfg.Delay > 0 {
		gap = time.Duration(cfg.Delay * float64(time.Second))
	}
	return duration, gap
}

// Initialize stops any previous rotation, then starts tracking and
// rotating when cfg is enabled and lists images. It reports whether the
// rotation is running.
func (s *Service) Initialize(cfg config.DeadShowImage, hotReload bool) bool {
	s.Release()

	if !cfg.Enabled || len(cfg.Images) == 0 {
		s.logger.Info("dead image disabled",
			"enabled", cfg.Enabled,
			"images", len(cfg.Images),
		)
		return false
	}

	duration, gap := Timing(cfg)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.images = append([]string(nil), cfg.Images...)
	s.html = duration
	s.index = 0

	s.hook(EventDeath, s.onDeath)
	s.hook(EventSpawn, s.onSpawn)
	s.hook(EventRoundPrestart, s.onRoundPrestart)

	s.cancel = append(s.cancel, s.deps.Timers.Repeat(gap, duration+gap, s.tick))

	s.logger.Info("dead image started",
		"images", len(s.images),
		"duration", duration,
		"gap", gap,
		"hot_reload", hotReload,
	)
	return true
}

// hook subscribes h to the named event. Must be called with s.mu held.
func (s *Service) hook(name string, h host.Handler) {
	desc, ok := s.deps.Catalog.Resolve(name)
	if !ok {
		s.logger.Warn("dead image event not in catalog", "event", name)
		return
	}
	unsubscribe, err := s.deps.Bus.Subscribe(desc, h)
	if err != nil {
		s.logger.Error("dead image subscribe failed",
			"event", desc.Name(),
			"error", err,
		)
		return
	}
	if unsubscribe != nil {
		s.cancel = append(s.cancel, unsubscribe)
	}
}

func (s *Service) onDeath(_ context.Context, inst any) {
	p, ok := resolve.PlayerOf(inst)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(p.ID()) < 0 {
		s.dead = append(s.dead, p)
	}
}

func (s *Service) onSpawn(_ context.Context, inst any) {
	p, ok := resolve.PlayerOf(inst)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(p.ID())
}

func (s *Service) onRoundPrestart(context.Context, any) {
	if s.deps.Rules.TotalRoundsPlayed() < 1 {
		return
	}

	s.mu.Lock()
	var cleared []event.Player
	kept := s.dead[:0]
	for _, p := range s.dead {
		switch s.deps.Rules.Team(p) {
		case host.TeamNone, host.TeamSpectator:
			kept = append(kept, p)
		default:
			cleared = append(cleared, p)
		}
	}
	s.dead = kept
	s.mu.Unlock()

	for _, p := range cleared {
		s.deps.HUD.SendCenterHTML(p, "", clearDuration)
	}
}

func (s *Service) tick() {
	s.mu.Lock()
	if len(s.images) == 0 {
		s.mu.Unlock()
		return
	}
	html := ImageHTML(s.images[s.index%len(s.images)])
	s.index++
	targets := append([]event.Player(nil), s.dead...)
	d := s.html
	s.mu.Unlock()

	for _, p := range targets {
		s.deps.HUD.SendCenterHTML(p, html, d)
	}
}

// ImageHTML is the center-screen markup for one image URL.
func ImageHTML(src string) string {
	return fmt.Sprintf("<img src='%s' />", src)
}

// Dead returns the IDs of the players currently tracked as dead, in order
// of death.
func (s *Service) Dead() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.dead))
	for i, p := range s.dead {
		out[i] = p.ID()
	}
	return out
}

// Release stops the rotation, drops the event hooks and forgets every
// tracked player.
func (s *Service) Release() {
	s.mu.Lock()
	cancels := s.cancel
	s.cancel = nil
	s.dead = nil
	s.images = nil
	s.mu.Unlock()

	for _, c := range cancels {
		c()
	}
}

func (s *Service) find(id string) int {
	for i, p := range s.dead {
		if p.ID() == id {
			return i
		}
	}
	return -1
}

func (s *Service) remove(id string) {
	if i := s.find(id); i >= 0 {
		s.dead = append(s.dead[:i], s.dead[i+1:]...)
	}
}
