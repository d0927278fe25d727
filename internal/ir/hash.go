package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes keep hashes of different record kinds apart.
const (
	DomainRuleset    = "msgpulse/ruleset/v1"
	DomainTranscript = "msgpulse/transcript/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RulesetHash identifies a rule list by content. The engine stamps it on
// every journaled firing so deliveries can be traced to the config that
// produced them. Order matters: dispatch order follows rule order.
func RulesetHash(rules []Rule) (string, error) {
	if rules == nil {
		rules = []Rule{}
	}
	canonical, err := MarshalCanonical(rules)
	if err != nil {
		return "", fmt.Errorf("RulesetHash: %w", err)
	}
	return hashWithDomain(DomainRuleset, canonical), nil
}

// TranscriptHash identifies a list of deliveries by content.
func TranscriptHash(deliveries []Delivery) (string, error) {
	if deliveries == nil {
		deliveries = []Delivery{}
	}
	canonical, err := MarshalCanonical(deliveries)
	if err != nil {
		return "", fmt.Errorf("TranscriptHash: %w", err)
	}
	return hashWithDomain(DomainTranscript, canonical), nil
}
