package engine

import (
	"github.com/roach88/msgpulse/internal/event"
	"github.com/roach88/msgpulse/internal/ir"
	"github.com/roach88/msgpulse/internal/message"
	"github.com/roach88/msgpulse/internal/template"
)

// Target selectors understood by the dispatcher. Matching is
// case-insensitive; any other value never fires.
const (
	TargetAll    = "all"
	TargetPlayer = "player"
)

type keyState int

const (
	keyUnknown keyState = iota // decided per render
	keyYes
	keyNo
)

// Binding is one rule attached to a resolved event type.
// Immutable after Initialize creates it.
type Binding struct {
	Descriptor *event.Descriptor
	Template   *template.Template
	Target     string
	// Broadcast is carried from the rule for callers that inspect bindings;
	// dispatch does not consult it.
	Broadcast bool
	RuleIndex int

	key keyState
}

func newBinding(desc *event.Descriptor, rule ir.Rule, index int) *Binding {
	b := &Binding{
		Descriptor: desc,
		Template:   template.Compile(rule.Message),
		Target:     rule.Target,
		Broadcast:  rule.Broadcast,
		RuleIndex:  index,
	}

	// A leading literal at least as long as the prefix fixes the answer
	// for every render.
	if lead := b.Template.LeadingLiteral(); len(lead) >= len(message.TranslationPrefix) {
		if message.IsTranslationKey(lead) {
			b.key = keyYes
		} else {
			b.key = keyNo
		}
	}
	return b
}

// isTranslation reports whether rendered text must be localized per
// recipient.
func (b *Binding) isTranslation(rendered string) bool {
	switch b.key {
	case keyYes:
		return true
	case keyNo:
		return false
	}
	return message.IsTranslationKey(rendered)
}
