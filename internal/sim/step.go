package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/roach88/msgpulse/internal/host"

	"gopkg.in/yaml.v3"
)

// Step is one input to the simulated server: an event to fire, a player
// connecting or leaving, a command typed by a player, time passing or the
// round counter moving. Exactly one action is set.
type Step struct {
	Event  string            `json:"event,omitempty" yaml:"event,omitempty"`
	Roles  map[string]string `json:"roles,omitempty" yaml:"roles,omitempty"`
	Fields map[string]any    `json:"fields,omitempty" yaml:"fields,omitempty"`

	Connect    *PlayerSpec `json:"connect,omitempty" yaml:"connect,omitempty"`
	Disconnect string      `json:"disconnect,omitempty" yaml:"disconnect,omitempty"`

	Command string `json:"command,omitempty" yaml:"command,omitempty"`
	Sender  string `json:"sender,omitempty" yaml:"sender,omitempty"`

	// Advance is a Go duration such as "60s".
	Advance      string `json:"advance,omitempty" yaml:"advance,omitempty"`
	RoundsPlayed *int   `json:"rounds_played,omitempty" yaml:"rounds_played,omitempty"`
}

// Validate checks that exactly one action is set.
func (s Step) Validate() error {
	n := 0
	actions := []bool{
		s.Event != "",
		s.Connect != nil,
		s.Disconnect != "",
		s.Command != "",
		s.Advance != "",
		s.RoundsPlayed != nil,
	}
	for _, set := range actions {
		if set {
			n++
		}
	}
	if n != 1 {
		return errors.New("step must set exactly one of event, connect, disconnect, command, advance, rounds_played")
	}
	return nil
}

// Apply performs one step against the server.
func (s *Server) Apply(ctx context.Context, reg *Registry, step Step) error {
	if err := step.Validate(); err != nil {
		return err
	}

	switch {
	case step.Connect != nil:
		return s.Connect(reg, *step.Connect)

	case step.Disconnect != "":
		if !s.Roster.Remove(step.Disconnect) {
			return fmt.Errorf("player %q is not connected", step.Disconnect)
		}
		s.Rules.SetTeam(step.Disconnect, host.TeamNone)
		return nil

	case step.Advance != "":
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return fmt.Errorf("advance: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("advance: negative duration %s", step.Advance)
		}
		s.Timers.Advance(d)
		return nil

	case step.RoundsPlayed != nil:
		s.Rules.SetRoundsPlayed(*step.RoundsPlayed)
		return nil

	case step.Command != "":
		var sender *Player
		if step.Sender != "" {
			p, ok := s.Roster.Get(step.Sender)
			if !ok {
				return fmt.Errorf("command %s: unknown sender %q", step.Command, step.Sender)
			}
			sender = p
		}
		return s.RunCommand(step.Command, sender)
	}

	players := s.Roster.Index()
	roles, err := RolesFrom(step.Roles, players)
	if err != nil {
		return fmt.Errorf("event %s: %w", step.Event, err)
	}
	desc, inst, err := reg.NewEvent(step.Event, roles, step.Fields, players)
	if err != nil {
		return err
	}
	s.Bus.Fire(ctx, desc, inst)
	return nil
}

// Connect adds a player described by spec to the roster and its team.
func (s *Server) Connect(reg *Registry, spec PlayerSpec) error {
	team, err := ParseTeam(spec.Team)
	if err != nil {
		return fmt.Errorf("player %s: %w", spec.ID, err)
	}
	p, err := reg.NewPlayer(spec)
	if err != nil {
		return err
	}
	if err := s.Roster.Add(p); err != nil {
		return err
	}
	s.Rules.SetTeam(p.ID(), team)
	return nil
}

// StepDecoder reads JSON-lines steps.
type StepDecoder struct {
	dec  *json.Decoder
	line int
}

// NewStepDecoder reads steps from r, one JSON object per line.
func NewStepDecoder(r io.Reader) *StepDecoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &StepDecoder{dec: dec}
}

// Next returns the next step, or io.EOF at the end of input.
func (d *StepDecoder) Next() (Step, error) {
	var step Step
	d.line++
	if err := d.dec.Decode(&step); err != nil {
		if errors.Is(err, io.EOF) {
			return Step{}, io.EOF
		}
		return Step{}, fmt.Errorf("step %d: %w", d.line, err)
	}
	return step, nil
}

// ParsePlayers decodes a YAML (or JSON) list of players.
func ParsePlayers(data []byte) ([]PlayerSpec, error) {
	var specs []PlayerSpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&specs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse players: %w", err)
	}
	return specs, nil
}
