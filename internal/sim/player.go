package sim

import (
	"github.com/roach88/msgpulse/internal/event"
)

// Player is a simulated connected player.
type Player struct {
	id     string
	name   string
	lang   string
	attrs  map[string]any
	schema *event.Schema
}

// Schema implements event.Entity.
func (p *Player) Schema() *event.Schema { return p.schema }

// ID implements event.Player.
func (p *Player) ID() string { return p.id }

// Language implements event.Player.
func (p *Player) Language() string { return p.lang }

// Name returns the display name.
func (p *Player) Name() string { return p.name }

// String renders the player as its name.
func (p *Player) String() string { return p.name }

// PlayerSpec describes a player in a roster file.
type PlayerSpec struct {
	ID       string         `yaml:"id" json:"id"`
	Name     string         `yaml:"name" json:"name"`
	Language string         `yaml:"language" json:"language"`
	Team     string         `yaml:"team" json:"team"`
	Fields   map[string]any `yaml:"fields" json:"fields"`
}

func (p *Player) attr(name string) any {
	v, ok := p.attrs[event.Fold(name)]
	if !ok {
		return nil
	}
	return v
}
