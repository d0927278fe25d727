package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesetHashDeterminism(t *testing.T) {
	rules := []Rule{
		{Event: "EventPlayerDeath", Message: "{Player.Name} died", Target: "all", Broadcast: true},
		{Event: "EventRoundStart", Message: "chat.round_start", Target: "all", Broadcast: true},
	}

	h1, err := RulesetHash(rules)
	require.NoError(t, err)
	h2, err := RulesetHash(rules)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestRulesetHashIsOrderSensitive(t *testing.T) {
	a := Rule{Event: "A", Message: "a", Target: "all"}
	b := Rule{Event: "B", Message: "b", Target: "all"}

	h1, err := RulesetHash([]Rule{a, b})
	require.NoError(t, err)
	h2, err := RulesetHash([]Rule{b, a})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestRulesetHashNilEqualsEmpty(t *testing.T) {
	h1, err := RulesetHash(nil)
	require.NoError(t, err)
	h2, err := RulesetHash([]Rule{})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte("[]")
	assert.NotEqual(t,
		hashWithDomain(DomainRuleset, data),
		hashWithDomain(DomainTranscript, data))
}

func TestTranscriptHashChangesWithText(t *testing.T) {
	d := Delivery{FiringID: "f", Event: "E", Target: "all", RecipientID: "1", Text: "hi"}
	h1, err := TranscriptHash([]Delivery{d})
	require.NoError(t, err)

	d.Text = "bye"
	h2, err := TranscriptHash([]Delivery{d})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}
