// Package template compiles message templates into reusable segment lists.
//
// A template is plain text with {dotted.path} tokens. Compilation happens
// once per rule at load time; rendering fills each field segment through a
// caller-supplied function and is free of side effects.
package template

import (
	"fmt"
	"strings"
)

// Kind distinguishes literal text from field tokens.
type Kind int

const (
	Literal Kind = iota
	Field
)

// Segment is one piece of a compiled template.
// For Literal segments Text is emitted verbatim; for Field segments Text is
// the raw dotted path between the braces.
type Segment struct {
	Kind Kind
	Text string
}

// UnmatchedBrace reports an opening brace with no closing brace. Everything
// from Offset onward is dropped from the compiled template.
type UnmatchedBrace struct {
	Offset  int
	Dropped string
}

func (w UnmatchedBrace) String() string {
	return fmt.Sprintf("unmatched '{' at offset %d; %q is dropped", w.Offset, w.Dropped)
}

// Template is an immutable compiled template, safe for concurrent use.
type Template struct {
	source    string
	segments  []Segment
	truncated *UnmatchedBrace
}

// Compile parses src left to right.
//
// Text before a '{' becomes a Literal; the text up to the next '}' becomes a
// Field. An opening brace without a closing brace ends parsing and the rest
// of the template is discarded (see Truncation).
func Compile(src string) *Template {
	t := &Template{source: src}
	index := 0

	for {
		start := strings.IndexByte(src[index:], '{')
		if start < 0 {
			if index < len(src) {
				t.segments = append(t.segments, Segment{Kind: Literal, Text: src[index:]})
			}
			break
		}
		start += index

		if start > index {
			t.segments = append(t.segments, Segment{Kind: Literal, Text: src[index:start]})
		}

		end := strings.IndexByte(src[start+1:], '}')
		if end < 0 {
			t.truncated = &UnmatchedBrace{Offset: start, Dropped: src[start:]}
			break
		}
		end += start + 1

		t.segments = append(t.segments, Segment{Kind: Field, Text: src[start+1 : end]})
		index = end + 1
	}

	return t
}

// Source returns the template text as configured.
func (t *Template) Source() string { return t.source }

// Segments returns a copy of the compiled segments.
func (t *Template) Segments() []Segment {
	out := make([]Segment, len(t.segments))
	copy(out, t.segments)
	return out
}

// Truncation returns the unmatched-brace warning, or nil when every
// opening brace was closed.
func (t *Template) Truncation() *UnmatchedBrace { return t.truncated }

// Paths returns the field paths in template order.
func (t *Template) Paths() []string {
	var out []string
	for _, s := range t.segments {
		if s.Kind == Field {
			out = append(out, s.Text)
		}
	}
	return out
}

// LeadingLiteral returns the literal text before the first field segment.
func (t *Template) LeadingLiteral() string {
	var b strings.Builder
	for _, s := range t.segments {
		if s.Kind != Literal {
			break
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// Render concatenates the segments, resolving each field through fill.
func (t *Template) Render(fill func(path string) string) string {
	var b strings.Builder
	for _, s := range t.segments {
		if s.Kind == Literal {
			b.WriteString(s.Text)
			continue
		}
		b.WriteString(fill(s.Text))
	}
	return b.String()
}
