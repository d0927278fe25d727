package harness

import (
	"github.com/roach88/msgpulse/internal/ir"
	"github.com/roach88/msgpulse/internal/sim"
)

// Problem is a rule problem reported when the plugin loaded.
type Problem struct {
	Code      string `json:"code"`
	Event     string `json:"event"`
	RuleIndex int    `json:"rule_index"`
}

// Transcript is everything the players saw, plus what the journal kept.
type Transcript struct {
	Chat       []sim.ChatLine `json:"chat"`
	HUD        []sim.HUDFrame `json:"hud"`
	Problems   []Problem      `json:"problems"`
	Deliveries []ir.Delivery  `json:"deliveries"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	Transcript Transcript `json:"transcript"`

	// Errors holds one message per failed assertion.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result with an empty transcript.
func NewResult() *Result {
	return &Result{
		Pass: true,
		Transcript: Transcript{
			Chat:       []sim.ChatLine{},
			HUD:        []sim.HUDFrame{},
			Problems:   []Problem{},
			Deliveries: []ir.Delivery{},
		},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
