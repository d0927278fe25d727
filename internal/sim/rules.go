package sim

import (
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/msgpulse/internal/event"
	"github.com/roach88/msgpulse/internal/host"
)

// Rules holds simulated match state. It implements host.GameRules.
type Rules struct {
	mu     sync.RWMutex
	rounds int
	teams  map[string]host.Team
}

// NewRules creates match state before the first round.
func NewRules() *Rules {
	return &Rules{teams: make(map[string]host.Team)}
}

// TotalRoundsPlayed implements host.GameRules.
func (r *Rules) TotalRoundsPlayed() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rounds
}

// SetRoundsPlayed overrides the round counter.
func (r *Rules) SetRoundsPlayed(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds = n
}

// Team implements host.GameRules. Unknown players are on no team.
func (r *Rules) Team(p event.Player) host.Team {
	if p == nil {
		return host.TeamNone
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.teams[p.ID()]
}

// SetTeam moves a player to a team.
func (r *Rules) SetTeam(id string, team host.Team) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if team == host.TeamNone {
		delete(r.teams, id)
		return
	}
	r.teams[id] = team
}

// ParseTeam reads a team name as written in player files.
func ParseTeam(s string) (host.Team, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return host.TeamNone, nil
	case "spec", "spectator":
		return host.TeamSpectator, nil
	case "t", "terrorist":
		return host.TeamT, nil
	case "ct", "counterterrorist", "counter-terrorist":
		return host.TeamCT, nil
	}
	return host.TeamNone, fmt.Errorf("unknown team %q", s)
}
