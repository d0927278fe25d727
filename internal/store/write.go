package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/roach88/msgpulse/internal/ir"
)

// WriteRuleset stores the rules behind a ruleset hash.
// Uses ON CONFLICT(hash) DO NOTHING; rewriting a known ruleset is a no-op.
func (s *Store) WriteRuleset(ctx context.Context, hash string, rules []ir.Rule) error {
	rulesJSON, err := marshalRules(rules)
	if err != nil {
		return fmt.Errorf("write ruleset: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rulesets (hash, rules, rule_count)
		VALUES (?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, hash, rulesJSON, len(rules))
	if err != nil {
		return fmt.Errorf("write ruleset: %w", err)
	}
	return nil
}

// WriteFiring inserts a firing and its deliveries in one transaction.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing a firing whose
// ID already exists leaves the stored firing and deliveries untouched.
func (s *Store) WriteFiring(ctx context.Context, f ir.Firing) error {
	deliveries := make([]ir.Delivery, len(f.Deliveries))
	for i, d := range f.Deliveries {
		if d.FiringID != "" && d.FiringID != f.ID {
			return fmt.Errorf("write firing: delivery %d belongs to firing %q", d.Seq, d.FiringID)
		}
		d.FiringID = f.ID
		deliveries[i] = d
	}
	// Stored transcripts are hashed in read order.
	slices.SortStableFunc(deliveries, func(a, b ir.Delivery) int { return cmp.Compare(a.Seq, b.Seq) })

	transcript, err := ir.TranscriptHash(deliveries)
	if err != nil {
		return fmt.Errorf("write firing: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write firing: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO firings
		(id, seq, event, ruleset_hash, engine_version, transcript_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		f.ID,
		f.Seq,
		f.Event,
		f.RulesetHash,
		f.EngineVersion,
		transcript,
	)
	if err != nil {
		return fmt.Errorf("write firing: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write firing: rows affected: %w", err)
	}
	if inserted == 0 {
		return nil
	}

	for _, d := range deliveries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO deliveries
			(firing_id, seq, event, rule_index, target, recipient_id, text, translated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			f.ID,
			d.Seq,
			d.Event,
			d.RuleIndex,
			d.Target,
			d.RecipientID,
			d.Text,
			boolToInt(d.Translated),
		)
		if err != nil {
			return fmt.Errorf("write delivery %d: %w", d.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write firing: commit: %w", err)
	}
	return nil
}
