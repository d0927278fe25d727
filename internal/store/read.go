package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/msgpulse/internal/ir"
)

// DeliveryFilter narrows ReadDeliveries. Zero fields match everything.
type DeliveryFilter struct {
	FiringID    string
	Event       string // case-insensitive
	RecipientID string
	AfterSeq    int64 // firings with seq > AfterSeq
	Limit       int   // most recent N firings' deliveries; 0 = all
}

// ReadFiring retrieves one firing with its deliveries.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadFiring(ctx context.Context, id string) (ir.Firing, error) {
	var f ir.Firing
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seq, event, ruleset_hash, engine_version
		FROM firings
		WHERE id = ?
	`, id).Scan(&f.ID, &f.Seq, &f.Event, &f.RulesetHash, &f.EngineVersion)
	if err != nil {
		return ir.Firing{}, err
	}

	f.Deliveries, err = s.ReadDeliveries(ctx, DeliveryFilter{FiringID: id})
	if err != nil {
		return ir.Firing{}, err
	}
	return f, nil
}

// ReadFirings returns firings without deliveries, oldest first.
// A positive limit keeps only the most recent limit firings.
func (s *Store) ReadFirings(ctx context.Context, limit int) ([]ir.Firing, error) {
	query := `
		SELECT id, seq, event, ruleset_hash, engine_version
		FROM firings
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`
	var args []any
	if limit > 0 {
		query = `
			SELECT id, seq, event, ruleset_hash, engine_version FROM (
				SELECT id, seq, event, ruleset_hash, engine_version
				FROM firings
				ORDER BY seq DESC, id COLLATE BINARY DESC
				LIMIT ?
			)
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query firings: %w", err)
	}
	defer rows.Close()

	firings := []ir.Firing{}
	for rows.Next() {
		var f ir.Firing
		if err := rows.Scan(&f.ID, &f.Seq, &f.Event, &f.RulesetHash, &f.EngineVersion); err != nil {
			return nil, fmt.Errorf("scan firing: %w", err)
		}
		firings = append(firings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate firings: %w", err)
	}
	return firings, nil
}

// ReadDeliveries returns deliveries matching filter in dispatch order:
// ORDER BY firing seq, then delivery seq.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ReadDeliveries(ctx context.Context, filter DeliveryFilter) ([]ir.Delivery, error) {
	var (
		where []string
		args  []any
	)
	if filter.FiringID != "" {
		where = append(where, "d.firing_id = ?")
		args = append(args, filter.FiringID)
	}
	if filter.Event != "" {
		where = append(where, "d.event = ? COLLATE NOCASE")
		args = append(args, filter.Event)
	}
	if filter.RecipientID != "" {
		where = append(where, "d.recipient_id = ?")
		args = append(args, filter.RecipientID)
	}
	if filter.AfterSeq > 0 {
		where = append(where, "f.seq > ?")
		args = append(args, filter.AfterSeq)
	}
	if filter.Limit > 0 {
		where = append(where, `f.id IN (
			SELECT id FROM firings ORDER BY seq DESC, id COLLATE BINARY DESC LIMIT ?
		)`)
		args = append(args, filter.Limit)
	}

	query := `
		SELECT d.firing_id, d.seq, d.event, d.rule_index, d.target, d.recipient_id, d.text, d.translated
		FROM deliveries d
		JOIN firings f ON d.firing_id = f.id
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY f.seq ASC, f.id COLLATE BINARY ASC, d.seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	deliveries := []ir.Delivery{}
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return deliveries, nil
}

// ReadRuleset returns the rules stored for a ruleset hash.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRuleset(ctx context.Context, hash string) ([]ir.Rule, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT rules FROM rulesets WHERE hash = ?`, hash).Scan(&data)
	if err != nil {
		return nil, err
	}
	return unmarshalRules(data)
}

// MaxSeq returns the highest seq recorded in the journal, 0 when empty.
// Engines resuming a journal start their clock here.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM (
			SELECT seq FROM firings
			UNION ALL
			SELECT seq FROM deliveries
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq.Int64, nil
}

func scanDelivery(rows *sql.Rows) (ir.Delivery, error) {
	var (
		d          ir.Delivery
		translated int
	)
	if err := rows.Scan(&d.FiringID, &d.Seq, &d.Event, &d.RuleIndex, &d.Target, &d.RecipientID, &d.Text, &translated); err != nil {
		return ir.Delivery{}, fmt.Errorf("scan delivery: %w", err)
	}
	d.Translated = translated != 0
	return d, nil
}
