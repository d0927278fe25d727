package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/msgpulse/internal/event"
	"github.com/roach88/msgpulse/internal/ir"
	"github.com/roach88/msgpulse/internal/resolve"
)

// Dispatch delivers every binding registered for desc, in configuration
// order. It is the bus handler installed by Initialize and may also be
// called directly. inst is the fired event instance.
//
// A panic while delivering one binding is recovered and logged; the
// remaining bindings still run.
func (e *Engine) Dispatch(ctx context.Context, desc *event.Descriptor, inst any) {
	e.mu.RLock()
	bindings := slices.Clone(e.rules[desc])
	rulesetHash := e.rulesetHash
	e.mu.RUnlock()

	if len(bindings) == 0 {
		return
	}

	ctx, span := e.tracer.Start(ctx, "engine.Dispatch", trace.WithAttributes(
		attribute.String("event", desc.Name()),
		attribute.Int("binding_count", len(bindings)),
	))
	defer span.End()

	firing := ir.Firing{
		ID:            e.ids.Generate(),
		Seq:           e.clock.Next(),
		Event:         desc.Name(),
		RulesetHash:   rulesetHash,
		EngineVersion: ir.EngineVersion,
	}

	for _, b := range bindings {
		firing.Deliveries = append(firing.Deliveries, e.fire(ctx, b, inst, firing.ID)...)
	}

	span.SetAttributes(
		attribute.String("firing_id", firing.ID),
		attribute.Int("delivery_count", len(firing.Deliveries)),
	)

	if e.journal != nil && len(firing.Deliveries) > 0 {
		if err := e.journal.WriteFiring(ctx, firing); err != nil {
			span.RecordError(err)
			e.logger.Error("journal write failed",
				"firing_id", firing.ID,
				"event", firing.Event,
				"error", err,
			)
		}
	}
}

// fire renders one binding and delivers it to its recipients.
func (e *Engine) fire(ctx context.Context, b *Binding, inst any, firingID string) (out []ir.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			trace.SpanFromContext(ctx).SetStatus(codes.Error, "dispatch panic")
			e.logger.Error("binding dispatch panicked",
				"code", string(ErrCodeDispatchPanic),
				"event", b.Descriptor.Name(),
				"rule_index", b.RuleIndex,
				"panic", fmt.Sprint(r),
			)
		}
	}()

	recipients := e.recipients(ctx, b, inst)
	if len(recipients) == 0 {
		return nil
	}

	schema := b.Descriptor.Schema()
	rendered := b.Template.Render(func(path string) string {
		return e.lookup(ctx, b, schema, inst, path)
	})
	translate := b.isTranslation(rendered)

	for _, p := range recipients {
		sent := e.deliver(p, schema, inst, rendered, translate)
		out = append(out, ir.Delivery{
			FiringID:    firingID,
			Seq:         e.clock.Next(),
			Event:       b.Descriptor.Name(),
			RuleIndex:   b.RuleIndex,
			Target:      b.Target,
			RecipientID: p.ID(),
			Text:        sent,
			Translated:  translate,
		})
	}
	return out
}

// deliver is the per-recipient pipeline: an untranslated line goes out as
// rendered; a translation key is localized for p and its tokens are
// substituted again from the same event instance.
func (e *Engine) deliver(p event.Player, schema *event.Schema, inst any, rendered string, translate bool) string {
	text := rendered
	if translate {
		text = resolve.Substitute(schema, inst, e.processor.Localize(p, rendered))
	}
	return e.processor.SendToPlayer(p, text)
}

// recipients resolves the binding's target for this instance.
func (e *Engine) recipients(ctx context.Context, b *Binding, inst any) []event.Player {
	switch {
	case strings.EqualFold(b.Target, TargetAll):
		return e.players.ValidPlayers()
	case strings.EqualFold(b.Target, TargetPlayer):
		p, ok := resolve.PlayerOf(inst)
		if !ok {
			e.logger.DebugContext(ctx, "no recipient for player target",
				"code", string(ErrCodeNoRecipient),
				"event", b.Descriptor.Name(),
				"rule_index", b.RuleIndex,
			)
			return nil
		}
		return []event.Player{p}
	default:
		return nil
	}
}

// lookup resolves one token, logging misses when debug logs are on.
func (e *Engine) lookup(ctx context.Context, b *Binding, schema *event.Schema, inst any, path string) string {
	res := resolve.Lookup(schema, inst, path)
	if e.debug.Load() && res.Status != resolve.Resolved {
		code := ErrCodeUnresolvedPath
		if res.Status == resolve.Null {
			code = ErrCodeNullIntermediate
		}
		e.logger.Log(ctx, slog.LevelDebug, "token did not resolve",
			"code", string(code),
			"event", b.Descriptor.Name(),
			"rule_index", b.RuleIndex,
			"path", path,
		)
	}
	return res.Text
}
