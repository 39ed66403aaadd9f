package markup

import "github.com/radnlp/tbiextract/internal/model"

// distance is an optional character distance. A modifier that is not
// actually positioned on a given side of the target has no distance on that
// side, which must never compare equal to zero.
type distance struct {
	v  int
	ok bool
}

func sideDistance(diff int) distance {
	if diff < 0 {
		return distance{}
	}
	return distance{v: diff, ok: true}
}

// Resolve walks every target node in the document and emits one finding per
// selected modifier. Targets with a single modifier pass through directly;
// targets with several keep only the nearest by character distance, with
// ties retained as separate rows. When no candidate has a defined distance
// (pathological geometry) all candidates are kept rather than dropping
// signal. Targets with no modifier emit nothing here; default-fill picks
// them up later. Exact duplicate rows are removed at the end.
func Resolve(doc *DocumentAnnotations) []model.FindingRecord {
	var rows []model.FindingRecord

	for _, g := range doc.Sentences {
		for ti, t := range g.Marks {
			if t.Role != RoleTarget {
				continue
			}
			mods := g.Modifiers(ti)
			if len(mods) == 0 {
				continue
			}
			if len(mods) == 1 {
				rows = append(rows, record(t, g.Marks[mods[0]]))
				continue
			}
			for _, mi := range nearestModifiers(g, t, mods) {
				rows = append(rows, record(t, g.Marks[mi]))
			}
		}
	}

	return dedupeRows(rows)
}

// nearestModifiers selects the candidate modifiers at the minimum defined
// distance from the target, on either side.
func nearestModifiers(g *ContextGraph, t SpanMark, mods []int) []int {
	lefts := make([]distance, len(mods))
	rights := make([]distance, len(mods))

	min := distance{}
	for i, mi := range mods {
		m := g.Marks[mi]
		lefts[i] = sideDistance(t.Span.Start - m.Span.End)
		rights[i] = sideDistance(m.Span.Start - t.Span.End)

		for _, d := range [2]distance{lefts[i], rights[i]} {
			if d.ok && (!min.ok || d.v < min.v) {
				min = d
			}
		}
	}

	if !min.ok {
		// No side distance could be established; keep everything.
		return mods
	}

	var nearest []int
	for i, mi := range mods {
		if (lefts[i].ok && lefts[i].v == min.v) || (rights[i].ok && rights[i].v == min.v) {
			nearest = append(nearest, mi)
		}
	}
	return nearest
}

func record(target, modifier SpanMark) model.FindingRecord {
	return model.FindingRecord{
		TargetPhrase:   target.Phrase,
		TargetGroup:    target.Category,
		ModifierPhrase: modifier.Phrase,
		ModifierGroup:  modifier.Category,
	}
}

func dedupeRows(rows []model.FindingRecord) []model.FindingRecord {
	seen := make(map[model.FindingRecord]bool, len(rows))
	out := rows[:0]
	for _, r := range rows {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
