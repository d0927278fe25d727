package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/msgpulse/internal/event"
	"github.com/roach88/msgpulse/internal/ir"
)

func codes(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestValidateCatalogValid(t *testing.T) {
	cat := &ir.Catalog{
		Entities: []ir.EntitySpec{
			{Name: "Player", Fields: []ir.FieldSpec{{Name: "SteamID", Type: ir.TypeInt}}},
			{Name: "Weapon", Fields: []ir.FieldSpec{{Name: "Owner", Type: "Player"}}},
		},
		Events: []ir.EventSpec{
			{Name: "EventPlayerDeath", Accessor: true, Fields: []ir.FieldSpec{{Name: "Weapon", Type: "Weapon"}}},
		},
	}
	assert.Empty(t, ValidateCatalog(cat))
}

func TestValidateCatalogProblems(t *testing.T) {
	cat := &ir.Catalog{
		Entities: []ir.EntitySpec{
			{Name: "Weapon", Fields: []ir.FieldSpec{
				{Name: "Name", Type: ir.TypeString},
				{Name: "name", Type: ir.TypeString},
			}},
			{Name: "weapon"},
		},
		Events: []ir.EventSpec{
			{Name: "EventA", Fields: []ir.FieldSpec{
				{Name: "Count", Type: "integer"},
				{Name: "Team", Type: "Team"},
			}},
			{Name: "eventa"},
		},
	}

	errs := ValidateCatalog(cat)
	assert.ElementsMatch(t, []string{
		ErrDuplicateName, // weapon entity
		ErrDuplicateName, // name field
		ErrInvalidFieldType,
		ErrUnknownEntity,
		ErrDuplicateName, // eventa
	}, codes(errs))
	assert.True(t, HasErrors(errs))
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "rules[0].event", Message: "unknown event \"X\"", Code: ErrUnresolvedEvent}
	assert.Equal(t, `[E201] rules[0].event: unknown event "X"`, e.Error())
	assert.False(t, e.IsWarning())

	e.Line = 4
	e.Code = WarnEmptyMessage
	assert.Equal(t, `[W205] line 4: rules[0].event: unknown event "X"`, e.Error())
	assert.True(t, e.IsWarning())
}

func TestHasErrorsOnlyWarnings(t *testing.T) {
	assert.False(t, HasErrors(nil))
	assert.False(t, HasErrors([]ValidationError{{Code: WarnUnknownTarget}}))
}

type weapon struct{ name string }

var (
	weaponSchema = event.MustSchema("Weapon",
		event.FieldOf("Name", func(w *weapon) any { return w.name }),
	)
	playerSchema = event.MustSchema("Player",
		event.FieldOf("Name", func(any) any { return nil }),
	)
	deathSchema = event.MustSchema("EventPlayerDeath",
		event.Field{Name: "Weapon", Get: func(any) any { return nil }, Nested: weaponSchema},
		event.FieldOf("Headshot", func(any) any { return nil }),
	)
	roundSchema = event.MustSchema("EventRoundStart",
		event.FieldOf("TimeLimit", func(any) any { return nil }),
	)
)

func testCatalog(t *testing.T) event.Catalog {
	t.Helper()
	reg, err := event.NewRegistry(
		event.NewDescriptor("EventPlayerDeath", deathSchema, event.WithAccessor(playerSchema, nil)),
		event.NewDescriptor("EventRoundStart", roundSchema),
	)
	require.NoError(t, err)
	return reg
}

func TestValidateRulesClean(t *testing.T) {
	rules := []ir.Rule{
		{Event: "eventplayerdeath", Message: "{Attacker.Name} killed {Player.Name} with {Weapon.Name} {Headshot}", Target: "all"},
		{Event: "EventPlayerDeath", Message: "chat.you_died", Target: "PLAYER"},
		{Event: "EventRoundStart", Message: "Round {TimeLimit} {Weapon..}", Target: "all"},
	}
	errs := ValidateRules(testCatalog(t), rules)
	// {Weapon..} is not a field of EventRoundStart.
	require.Len(t, errs, 1)
	assert.Equal(t, WarnUnknownFieldPath, errs[0].Code)
	assert.Equal(t, "rules[2].message", errs[0].Field)
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name  string
		rule  ir.Rule
		codes []string
	}{
		{"unknown event", ir.Rule{Event: "EventNope", Message: "x", Target: "all"}, []string{ErrUnresolvedEvent}},
		{"empty event", ir.Rule{Message: "x", Target: "all"}, []string{WarnEmptyEvent}},
		{"unmatched brace", ir.Rule{Event: "EventRoundStart", Message: "Round {TimeLimit", Target: "all"}, []string{WarnUnmatchedBrace}},
		{"unknown root", ir.Rule{Event: "EventRoundStart", Message: "{Winner}", Target: "all"}, []string{WarnUnknownFieldPath}},
		{"unknown nested", ir.Rule{Event: "EventPlayerDeath", Message: "{Weapon.Ammo}", Target: "all"}, []string{WarnUnknownFieldPath}},
		{"unknown accessor field", ir.Rule{Event: "EventPlayerDeath", Message: "{Victim.Score}", Target: "all"}, []string{WarnUnknownFieldPath}},
		{"past scalar", ir.Rule{Event: "EventPlayerDeath", Message: "{Headshot.Value}", Target: "all"}, []string{WarnNotARecord}},
		{"empty token", ir.Rule{Event: "EventRoundStart", Message: "{}", Target: "all"}, []string{WarnUnknownFieldPath}},
		{"accessor root without accessor", ir.Rule{Event: "EventRoundStart", Message: "{Player.Name}", Target: "all"}, []string{WarnUnknownFieldPath}},
		{"unknown target", ir.Rule{Event: "EventRoundStart", Message: "x", Target: "team"}, []string{WarnUnknownTarget}},
		{"player target without accessor", ir.Rule{Event: "EventRoundStart", Message: "x", Target: "player"}, []string{WarnPlayerNoAccessor}},
		{"empty message", ir.Rule{Event: "EventRoundStart", Target: "all"}, []string{WarnEmptyMessage}},
	}

	cat := testCatalog(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateRules(cat, []ir.Rule{tt.rule})
			assert.Equal(t, tt.codes, codes(errs))
		})
	}
}

func TestValidateRulesCollectsAll(t *testing.T) {
	rules := []ir.Rule{
		{Event: "EventNope", Message: "x", Target: "all"},
		{Event: "EventRoundStart", Message: "{Nope} {", Target: "everyone"},
	}
	errs := ValidateRules(testCatalog(t), rules)
	assert.Equal(t, []string{ErrUnresolvedEvent, WarnUnknownTarget, WarnUnmatchedBrace, WarnUnknownFieldPath}, codes(errs))
	assert.True(t, HasErrors(errs))
}
