// Package markup implements the per-sentence context-graph engine: lexical
// matching, span pruning, modifier scope resolution, and nearest-modifier
// disambiguation across a report.
package markup

import "github.com/radnlp/tbiextract/internal/lexicon"

// Span is a half-open character range [Start,End) in sentence-local offsets.
// Offsets are only ever compared within the same sentence.
type Span struct {
	Start int
	End   int
}

// Len returns the span length
func (s Span) Len() int {
	return s.End - s.Start
}

// ProperlyContains reports whether other lies strictly inside s: fully
// covered and shorter. Equal spans do not contain each other.
func (s Span) ProperlyContains(other Span) bool {
	return s.Start <= other.Start && s.End >= other.End && s.Len() > other.Len()
}

// Role distinguishes clinical concepts from their qualifiers
type Role string

const (
	RoleTarget   Role = "target"
	RoleModifier Role = "modifier"
)

// SpanMark is one matched lexical item in a sentence. Marks are never
// mutated after creation; pruning replaces the mark set instead.
type SpanMark struct {
	Span     Span
	Phrase   string // Matched sentence text
	Category string
	Role     Role
	Rule     lexicon.Rule
}
