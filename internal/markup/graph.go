package markup

import (
	"sort"

	"github.com/radnlp/tbiextract/internal/lexicon"
)

// ContextGraph is the markup of one sentence: a node arena of SpanMarks plus
// an adjacency list of modifier→target edges ("modifier qualifies target").
// Invariant: a target node never appears as an edge source.
type ContextGraph struct {
	Marks []SpanMark
	Edges []Edge
}

// Edge links Marks[Modifier] to Marks[Target] by arena index
type Edge struct {
	Modifier int
	Target   int
}

// MarkSentence builds the resolved context graph for one normalized
// sentence. A sentence with no lexical matches yields an empty graph.
func MarkSentence(sentence string, targets, modifiers []lexicon.Item) *ContextGraph {
	g := &ContextGraph{}
	g.Marks = append(g.Marks, markItems(sentence, modifiers, RoleModifier)...)
	g.Marks = append(g.Marks, markItems(sentence, targets, RoleTarget)...)

	g.pruneMarks()
	g.applyModifiers()
	g.dropInactiveModifiers()

	return g
}

// markItems finds every non-overlapping match of each item in the sentence
func markItems(sentence string, items []lexicon.Item, role Role) []SpanMark {
	var marks []SpanMark
	for _, item := range items {
		for _, loc := range item.Pattern.FindAllStringIndex(sentence, -1) {
			marks = append(marks, SpanMark{
				Span:     Span{Start: loc[0], End: loc[1]},
				Phrase:   sentence[loc[0]:loc[1]],
				Category: item.Category,
				Role:     role,
				Rule:     item.Rule,
			})
		}
	}
	return marks
}

// pruneMarks discards marks whose span lies strictly inside another mark of
// the same role, so a substring entry never double-counts against a longer
// overlapping entry. Targets and modifiers are pruned separately. Exact
// duplicates (same span, role, category) collapse to one mark.
func (g *ContextGraph) pruneMarks() {
	type key struct {
		span     Span
		role     Role
		category string
	}
	seen := make(map[key]bool)

	var kept []SpanMark
	for i, m := range g.Marks {
		subsumed := false
		for j, other := range g.Marks {
			if i == j || other.Role != m.Role {
				continue
			}
			if other.Span.ProperlyContains(m.Span) {
				subsumed = true
				break
			}
		}
		if subsumed {
			continue
		}
		k := key{m.Span, m.Role, m.Category}
		if seen[k] {
			continue
		}
		seen[k] = true
		kept = append(kept, m)
	}

	sort.SliceStable(kept, func(a, b int) bool {
		if kept[a].Span.Start != kept[b].Span.Start {
			return kept[a].Span.Start < kept[b].Span.Start
		}
		return kept[a].Span.End < kept[b].Span.End
	})
	g.Marks = kept
}

// applyModifiers establishes edges from each modifier to every target inside
// its directional scope. Scope runs from the modifier to the sentence edge
// and is cut short at the nearest termination mark on that side.
func (g *ContextGraph) applyModifiers() {
	for mi, m := range g.Marks {
		if m.Role != RoleModifier || m.Rule == lexicon.RuleTerminate {
			continue
		}

		forward := m.Rule == lexicon.RuleForward || m.Rule == lexicon.RuleBidirectional
		backward := m.Rule == lexicon.RuleBackward || m.Rule == lexicon.RuleBidirectional

		if forward {
			bound := g.forwardBoundary(m.Span.End)
			for ti, t := range g.Marks {
				if t.Role != RoleTarget {
					continue
				}
				if t.Span.Start >= m.Span.End && (bound < 0 || t.Span.End <= bound) {
					g.Edges = append(g.Edges, Edge{Modifier: mi, Target: ti})
				}
			}
		}
		if backward {
			bound := g.backwardBoundary(m.Span.Start)
			for ti, t := range g.Marks {
				if t.Role != RoleTarget {
					continue
				}
				if t.Span.End <= m.Span.Start && t.Span.Start >= bound {
					g.Edges = append(g.Edges, Edge{Modifier: mi, Target: ti})
				}
			}
		}
	}
}

// forwardBoundary returns the start of the first termination mark at or past
// from, or -1 when the scope runs to the end of the sentence.
func (g *ContextGraph) forwardBoundary(from int) int {
	bound := -1
	for _, m := range g.Marks {
		if m.Rule != lexicon.RuleTerminate || m.Span.Start < from {
			continue
		}
		if bound < 0 || m.Span.Start < bound {
			bound = m.Span.Start
		}
	}
	return bound
}

// backwardBoundary returns the end of the last termination mark at or before
// to, or 0 when the scope runs to the start of the sentence.
func (g *ContextGraph) backwardBoundary(to int) int {
	bound := 0
	for _, m := range g.Marks {
		if m.Rule != lexicon.RuleTerminate || m.Span.End > to {
			continue
		}
		if m.Span.End > bound {
			bound = m.Span.End
		}
	}
	return bound
}

// dropInactiveModifiers removes modifier marks with no outgoing edges.
// They matched the lexicon but attached to nothing, so they carry no
// clinical signal. Termination marks are dropped here too; their boundary
// work is done.
func (g *ContextGraph) dropInactiveModifiers() {
	active := make(map[int]bool)
	for _, e := range g.Edges {
		active[e.Modifier] = true
	}

	remap := make(map[int]int, len(g.Marks))
	var kept []SpanMark
	for i, m := range g.Marks {
		if m.Role == RoleModifier && !active[i] {
			continue
		}
		remap[i] = len(kept)
		kept = append(kept, m)
	}

	edges := make([]Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		edges = append(edges, Edge{Modifier: remap[e.Modifier], Target: remap[e.Target]})
	}

	g.Marks = kept
	g.Edges = edges
}

// Modifiers returns the arena indexes of modifiers linked to the target at
// index ti, in edge order.
func (g *ContextGraph) Modifiers(ti int) []int {
	var mods []int
	for _, e := range g.Edges {
		if e.Target == ti {
			mods = append(mods, e.Modifier)
		}
	}
	return mods
}

// OutDegree returns the number of outgoing edges for the mark at index i
func (g *ContextGraph) OutDegree(i int) int {
	n := 0
	for _, e := range g.Edges {
		if e.Modifier == i {
			n++
		}
	}
	return n
}
