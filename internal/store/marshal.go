package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/msgpulse/internal/ir"
)

// marshalRules converts a rule list to canonical JSON TEXT for storage.
func marshalRules(rules []ir.Rule) (string, error) {
	if rules == nil {
		rules = []ir.Rule{}
	}
	data, err := ir.MarshalCanonical(rules)
	if err != nil {
		return "", fmt.Errorf("marshal rules: %w", err)
	}
	return string(data), nil
}

// unmarshalRules parses stored rules TEXT.
func unmarshalRules(data string) ([]ir.Rule, error) {
	rules := []ir.Rule{}
	if data == "" {
		return rules, nil
	}
	if err := json.Unmarshal([]byte(data), &rules); err != nil {
		return nil, fmt.Errorf("unmarshal rules: %w", err)
	}
	return rules, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
