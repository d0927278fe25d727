package store

import (
	"context"
	"fmt"

	"github.com/roach88/msgpulse/internal/ir"
)

// Mismatch is a firing whose stored deliveries no longer hash to the
// transcript hash recorded when it was written.
type Mismatch struct {
	FiringID string
	Stored   string
	Computed string
}

// VerifyResult summarizes a journal integrity check.
type VerifyResult struct {
	Firings         int
	Deliveries      int
	Mismatches      []Mismatch
	MissingRulesets []string // ruleset hashes referenced by firings but not stored
}

// OK reports whether the journal is consistent.
func (r VerifyResult) OK() bool {
	return len(r.Mismatches) == 0 && len(r.MissingRulesets) == 0
}

// Verify recomputes every firing's transcript hash and checks that each
// referenced ruleset is stored.
func (s *Store) Verify(ctx context.Context) (VerifyResult, error) {
	var result VerifyResult

	stored := make(map[string]string)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transcript_hash FROM firings
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return result, fmt.Errorf("verify: query firings: %w", err)
	}
	var order []string
	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			rows.Close()
			return result, fmt.Errorf("verify: scan firing: %w", err)
		}
		stored[id] = hash
		order = append(order, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("verify: iterate firings: %w", err)
	}
	result.Firings = len(order)

	all, err := s.ReadDeliveries(ctx, DeliveryFilter{})
	if err != nil {
		return result, fmt.Errorf("verify: %w", err)
	}
	result.Deliveries = len(all)

	byFiring := make(map[string][]ir.Delivery, len(order))
	for _, d := range all {
		byFiring[d.FiringID] = append(byFiring[d.FiringID], d)
	}

	for _, id := range order {
		computed, err := ir.TranscriptHash(byFiring[id])
		if err != nil {
			return result, fmt.Errorf("verify %s: %w", id, err)
		}
		if computed != stored[id] {
			result.Mismatches = append(result.Mismatches, Mismatch{
				FiringID: id,
				Stored:   stored[id],
				Computed: computed,
			})
		}
	}

	missing, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT f.ruleset_hash
		FROM firings f
		LEFT JOIN rulesets r ON r.hash = f.ruleset_hash
		WHERE r.hash IS NULL AND f.ruleset_hash != ''
		ORDER BY f.ruleset_hash COLLATE BINARY ASC
	`)
	if err != nil {
		return result, fmt.Errorf("verify: query rulesets: %w", err)
	}
	defer missing.Close()
	for missing.Next() {
		var hash string
		if err := missing.Scan(&hash); err != nil {
			return result, fmt.Errorf("verify: scan ruleset: %w", err)
		}
		result.MissingRulesets = append(result.MissingRulesets, hash)
	}
	return result, missing.Err()
}
