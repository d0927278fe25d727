package template

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillUpper(path string) string { return strings.ToUpper(path) }

func TestCompile_Segments(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Segment
	}{
		{
			name: "empty",
			src:  "",
			want: []Segment{},
		},
		{
			name: "literal only",
			src:  "Welcome!",
			want: []Segment{{Literal, "Welcome!"}},
		},
		{
			name: "token in the middle",
			src:  "{Player.Name} died to {Attacker.Name}.",
			want: []Segment{
				{Field, "Player.Name"},
				{Literal, " died to "},
				{Field, "Attacker.Name"},
				{Literal, "."},
			},
		},
		{
			name: "adjacent tokens",
			src:  "{A}{B}",
			want: []Segment{{Field, "A"}, {Field, "B"}},
		},
		{
			name: "empty token",
			src:  "x{}y",
			want: []Segment{{Literal, "x"}, {Field, ""}, {Literal, "y"}},
		},
		{
			name: "nested open brace is part of the token",
			src:  "{a{b}c",
			want: []Segment{{Field, "a{b"}, {Literal, "c"}},
		},
		{
			name: "stray closing brace is literal",
			src:  "a}b",
			want: []Segment{{Literal, "a}b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := Compile(tt.src)
			assert.Equal(t, tt.want, tmpl.Segments())
			assert.Nil(t, tmpl.Truncation())
			assert.Equal(t, tt.src, tmpl.Source())
		})
	}
}

func TestCompile_UnmatchedBraceTruncates(t *testing.T) {
	tmpl := Compile("Kill by {Attacker.Name")

	assert.Equal(t, []Segment{{Literal, "Kill by "}}, tmpl.Segments())
	require.NotNil(t, tmpl.Truncation())
	assert.Equal(t, 8, tmpl.Truncation().Offset)
	assert.Equal(t, "{Attacker.Name", tmpl.Truncation().Dropped)
	assert.Contains(t, tmpl.Truncation().String(), "offset 8")

	assert.Equal(t, "Kill by ", tmpl.Render(fillUpper))
}

func TestCompile_UnmatchedAfterToken(t *testing.T) {
	tmpl := Compile("{A} then {B")

	assert.Equal(t, []Segment{{Field, "A"}, {Literal, " then "}}, tmpl.Segments())
	assert.Equal(t, "A then ", tmpl.Render(fillUpper))
}

func TestRender_LiteralTemplateIsIdentity(t *testing.T) {
	for _, src := range []string{"", "hello", "a } b", "chat.welcome", "100% sure"} {
		called := false
		got := Compile(src).Render(func(string) string {
			called = true
			return "x"
		})
		assert.Equal(t, src, got)
		assert.False(t, called)
	}
}

func TestRender_ReplacesEveryToken(t *testing.T) {
	tmpl := Compile("[{a}] {b.c} and {a}")
	assert.Equal(t, "[A] B.C and A", tmpl.Render(fillUpper))
	// Rendering is repeatable.
	assert.Equal(t, "[A] B.C and A", tmpl.Render(fillUpper))
}

func TestTemplate_PathsAndLeadingLiteral(t *testing.T) {
	tmpl := Compile("chat.kill {Attacker.Name} {Player.Name}")
	assert.Equal(t, []string{"Attacker.Name", "Player.Name"}, tmpl.Paths())
	assert.Equal(t, "chat.kill ", tmpl.LeadingLiteral())

	assert.Equal(t, "", Compile("{Key}").LeadingLiteral())
	assert.Equal(t, "all literal", Compile("all literal").LeadingLiteral())
}
