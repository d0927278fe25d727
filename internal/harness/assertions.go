package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/msgpulse/internal/sim"
	"github.com/roach88/msgpulse/internal/store"
)

// AssertionContext gives assertions access to the run's journal.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Chat     []sim.ChatLine // full chat for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Chat) > 0 {
		fmt.Fprintf(&buf, "\nChat:\n")
		for i, line := range e.Chat {
			fmt.Fprintf(&buf, "  [%d] %s: %s\n", i+1, line.PlayerID, line.Text)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns one message per
// failure, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result.Transcript, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(t Transcript, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertChatContains:
		return assertChatContains(t.Chat, a)
	case AssertChatOrder:
		return assertChatOrder(t.Chat, a)
	case AssertChatCount:
		return assertChatCount(t.Chat, a)
	case AssertHUDContains:
		return assertHUDContains(t.HUD, a)
	case AssertProblem:
		return assertProblem(t.Problems, a)
	case AssertJournalCount:
		return assertJournalCount(actx, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func linesFor(chat []sim.ChatLine, player string) []string {
	var out []string
	for _, line := range chat {
		if player == "" || line.PlayerID == player {
			out = append(out, line.Text)
		}
	}
	return out
}

// assertChatContains checks that player received text exactly.
func assertChatContains(chat []sim.ChatLine, a Assertion) error {
	for _, text := range linesFor(chat, a.Player) {
		if text == a.Text {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertChatContains,
		Expected: fmt.Sprintf("player %s received %q", a.Player, a.Text),
		Actual:   "not found in chat",
		Chat:     chat,
	}
}

// assertChatOrder checks that texts reached player in order. Other lines
// may come in between.
func assertChatOrder(chat []sim.ChatLine, a Assertion) error {
	lines := linesFor(chat, a.Player)
	next := 0
	for _, text := range lines {
		if next < len(a.Texts) && text == a.Texts[next] {
			next++
		}
	}
	if next == len(a.Texts) {
		return nil
	}
	return &AssertionError{
		Type:     AssertChatOrder,
		Expected: fmt.Sprintf("player %s received in order: %q", a.Player, a.Texts),
		Actual:   fmt.Sprintf("missing or out of order: %q", a.Texts[next]),
		Chat:     chat,
	}
}

// assertChatCount checks how many lines player received; every player
// when Player is empty. A non-empty Text counts only that text.
func assertChatCount(chat []sim.ChatLine, a Assertion) error {
	count := 0
	for _, text := range linesFor(chat, a.Player) {
		if a.Text == "" || text == a.Text {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	who := "all players"
	if a.Player != "" {
		who = "player " + a.Player
	}
	return &AssertionError{
		Type:     AssertChatCount,
		Expected: fmt.Sprintf("%d lines for %s", a.Count, who),
		Actual:   fmt.Sprintf("%d lines", count),
		Chat:     chat,
	}
}

func assertHUDContains(frames []sim.HUDFrame, a Assertion) error {
	for _, f := range frames {
		if f.PlayerID == a.Player && f.HTML == a.HTML {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertHUDContains,
		Expected: fmt.Sprintf("player %s was shown %q", a.Player, a.HTML),
		Actual:   fmt.Sprintf("%d frames, none matching", len(frames)),
	}
}

func assertProblem(problems []Problem, a Assertion) error {
	var seen []string
	for _, p := range problems {
		if p.Code == a.Code && (a.Event == "" || strings.EqualFold(p.Event, a.Event)) {
			return nil
		}
		seen = append(seen, p.Code)
	}
	return &AssertionError{
		Type:     AssertProblem,
		Expected: fmt.Sprintf("rule problem %s", a.Code),
		Actual:   fmt.Sprintf("problems: %v", seen),
	}
}

// assertJournalCount checks the number of journaled deliveries matching
// Event and Player.
func assertJournalCount(actx *AssertionContext, a Assertion) error {
	if actx == nil || actx.Store == nil {
		return fmt.Errorf("journal_count assertion requires a journal")
	}
	ctx := actx.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	deliveries, err := actx.Store.ReadDeliveries(ctx, store.DeliveryFilter{
		Event:       a.Event,
		RecipientID: a.Player,
	})
	if err != nil {
		return &AssertionError{
			Type:     AssertJournalCount,
			Expected: "query journal",
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	if len(deliveries) != a.Count {
		return &AssertionError{
			Type:     AssertJournalCount,
			Expected: fmt.Sprintf("%d deliveries (event=%q player=%q)", a.Count, a.Event, a.Player),
			Actual:   fmt.Sprintf("%d deliveries", len(deliveries)),
		}
	}
	return nil
}
