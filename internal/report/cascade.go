// Package report reconciles the per-sentence finding rows of one report into
// exactly one row per clinical concept. The cascade runs a fixed sequence of
// passes over the table; order is load-bearing because later passes assume
// the normalization done by earlier ones.
package report

import (
	"strings"

	"github.com/radnlp/tbiextract/internal/model"
)

// Audit suffixes appended to modifier phrases by rewriting passes
const (
	suffixPhysicianMatch   = ", modifier_type_physician_match"
	suffixSpecificBleed    = ", is_specific_hemorrhage"
	suffixFluidCollection  = ", is_extraaxial_fluid_collection"
	suffixPathologyDerived = ", is_intracranial_pathology"
)

// Target groups whose default and remapped vocabulary is normal/abnormal
// instead of absent/present.
var normalDefaultGroups = map[string]bool{
	"cistern":                    true,
	"gray_white_differentiation": true,
}

// Specific hemorrhage diagnoses that subsume the hemorrhage NOS group
var specificHemorrhages = []string{
	"epidural_hemorrhage",
	"subarachnoid_hemorrhage",
	"subdural_hemorrhage",
}

// Groups whose positive findings escalate the intracranial_pathology target
var pathologyGroups = []string{
	"gray_white_differentiation",
	"cistern",
	"hydrocephalus",
	"pneumocephalus",
	"midline_shift",
	"mass_effect",
	"diffuse_axonal",
	"anoxic",
	"herniation",
	"aneurysm",
	"contusion",
	"fluid",
	"swelling",
	"ischemia",
	"hemorrhage",
	"intraventricular_hemorrhage",
	"intraparenchymal_hemorrhage",
}

// Duplicate-resolution tie-break orders. For the catch-all groups a
// conservative reading wins ties; everywhere else positive evidence wins.
var (
	conservativePriority = []string{
		model.ModifierAbsent,
		model.ModifierIndeterminate,
		model.ModifierSuspected,
		model.ModifierPresent,
		model.ModifierNormal,
		model.ModifierAbnormal,
	}
	positivePriority = []string{
		model.ModifierPresent,
		model.ModifierSuspected,
		model.ModifierIndeterminate,
		model.ModifierAbsent,
		model.ModifierAbnormal,
		model.ModifierNormal,
	}
	conservativePriorityGroups = map[string]bool{
		"fluid":                  true,
		"hemorrhage":             true,
		"intracranial_pathology": true,
	}
)

// Cascade runs the report-level rule passes for a fixed target list
type Cascade struct {
	targetList []string
}

// NewCascade creates a cascade over the configured target groups
func NewCascade(targetList []string) *Cascade {
	return &Cascade{targetList: targetList}
}

// Run applies the passes in order. Every pass is a pure transformation: it
// consumes the previous table and returns a new one, so each pass sees the
// rows created or rewritten by the passes before it.
func (c *Cascade) Run(rows []model.FindingRecord) []model.FindingRecord {
	rows = c.fillOmitted(rows)
	rows = resolveDuplicates(rows)
	rows = c.physicianMatch(rows)
	rows = suppressHemorrhageNOS(rows)
	rows = deriveFluidCollection(rows)
	rows = escalateIntracranialPathology(rows)
	return rows
}

// fillOmitted inserts a default row for every configured target group the
// report never mentioned: normal for the normal/abnormal groups, absent for
// everything else.
func (c *Cascade) fillOmitted(rows []model.FindingRecord) []model.FindingRecord {
	out := append([]model.FindingRecord(nil), rows...)

	present := make(map[string]bool, len(rows))
	for _, r := range rows {
		present[r.TargetGroup] = true
	}

	for _, group := range c.targetList {
		if present[group] {
			continue
		}
		mg := model.ModifierAbsent
		if normalDefaultGroups[group] {
			mg = model.ModifierNormal
		}
		out = append(out, model.FindingRecord{
			TargetPhrase:   group,
			TargetGroup:    group,
			ModifierPhrase: model.DefaultModifierPhrase,
			ModifierGroup:  mg,
		})
	}

	return out
}

// resolveDuplicates collapses every target group with two or more rows to a
// single row. The most frequent modifier group wins; groups tied at the
// maximum are broken by the fixed priority order for the group's semantic
// class. Surviving rows are merged by comma-joining their deduplicated
// phrases.
func resolveDuplicates(rows []model.FindingRecord) []model.FindingRecord {
	out := append([]model.FindingRecord(nil), rows...)

	for _, group := range duplicatedGroups(out) {
		counts := make(map[string]int)
		max := 0
		for _, r := range out {
			if r.TargetGroup != group {
				continue
			}
			counts[r.ModifierGroup]++
			if counts[r.ModifierGroup] > max {
				max = counts[r.ModifierGroup]
			}
		}

		majority := make(map[string]bool)
		for mg, n := range counts {
			if n == max {
				majority[mg] = true
			}
		}

		for _, mg := range priorityFor(group) {
			if !majority[mg] {
				continue
			}
			out = dropNonWinning(out, group, mg)
			break
		}

		out = collapseGroup(out, group)
	}

	return out
}

// duplicatedGroups returns groups with more than one row, in first-seen order
func duplicatedGroups(rows []model.FindingRecord) []string {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.TargetGroup]++
	}
	var groups []string
	seen := make(map[string]bool)
	for _, r := range rows {
		if counts[r.TargetGroup] > 1 && !seen[r.TargetGroup] {
			seen[r.TargetGroup] = true
			groups = append(groups, r.TargetGroup)
		}
	}
	return groups
}

func priorityFor(group string) []string {
	if conservativePriorityGroups[group] {
		return conservativePriority
	}
	return positivePriority
}

// dropNonWinning removes the group's rows whose modifier group lost the vote
func dropNonWinning(rows []model.FindingRecord, group, winner string) []model.FindingRecord {
	out := rows[:0:0]
	for _, r := range rows {
		if r.TargetGroup == group && r.ModifierGroup != winner {
			continue
		}
		out = append(out, r)
	}
	return out
}

// collapseGroup merges the group's remaining rows: phrases are deduplicated
// and comma-joined across the group, then one row per distinct
// (target_group, modifier_group) is kept.
func collapseGroup(rows []model.FindingRecord, group string) []model.FindingRecord {
	var targetPhrases, modifierPhrases []string
	for _, r := range rows {
		if r.TargetGroup == group {
			targetPhrases = append(targetPhrases, r.TargetPhrase)
			modifierPhrases = append(modifierPhrases, r.ModifierPhrase)
		}
	}
	joinedTargets := joinUnique(targetPhrases)
	joinedModifiers := joinUnique(modifierPhrases)

	out := rows[:0:0]
	kept := make(map[string]bool)
	for _, r := range rows {
		if r.TargetGroup != group {
			out = append(out, r)
			continue
		}
		if kept[r.ModifierGroup] {
			continue
		}
		kept[r.ModifierGroup] = true
		r.TargetPhrase = joinedTargets
		r.ModifierPhrase = joinedModifiers
		out = append(out, r)
	}
	return out
}

// joinUnique comma-joins phrases, deduplicated, preserving first-seen order
func joinUnique(phrases []string) string {
	seen := make(map[string]bool, len(phrases))
	var unique []string
	for _, p := range phrases {
		if !seen[p] {
			seen[p] = true
			unique = append(unique, p)
		}
	}
	return strings.Join(unique, ", ")
}

// physicianMatch normalizes modifier groups to the vocabulary reported to
// physicians. The normal/abnormal groups collapse {normal,absent} → normal
// and {abnormal,present,suspected,indeterminate} → abnormal, abnormal
// winning when both occur; every other group maps abnormal → present and
// normal → absent. A group is only remapped when it carries non-default
// evidence, and rows whose modifier group actually changes get an audit
// suffix.
func (c *Cascade) physicianMatch(rows []model.FindingRecord) []model.FindingRecord {
	out := append([]model.FindingRecord(nil), rows...)

	for _, group := range c.targetList {
		evidence := nonDefaultEvidence(out, group)
		if evidence == "" {
			continue
		}

		if normalDefaultGroups[group] {
			hasAbnormal := false
			hasNormal := false
			for _, r := range out {
				if r.TargetGroup != group {
					continue
				}
				switch r.ModifierGroup {
				case model.ModifierAbnormal, model.ModifierPresent, model.ModifierSuspected, model.ModifierIndeterminate:
					hasAbnormal = true
				case model.ModifierNormal, model.ModifierAbsent:
					hasNormal = true
				}
			}

			target := ""
			if hasAbnormal {
				target = model.ModifierAbnormal
			} else if hasNormal {
				target = model.ModifierNormal
			}
			if target == "" {
				continue
			}
			for i := range out {
				if out[i].TargetGroup != group {
					continue
				}
				if out[i].ModifierGroup != target {
					out[i].ModifierGroup = target
					out[i].ModifierPhrase = evidence + suffixPhysicianMatch
				} else {
					out[i].ModifierPhrase = evidence
				}
			}
			continue
		}

		for i := range out {
			if out[i].TargetGroup != group {
				continue
			}
			switch out[i].ModifierGroup {
			case model.ModifierAbnormal:
				out[i].ModifierGroup = model.ModifierPresent
				out[i].ModifierPhrase = evidence + suffixPhysicianMatch
			case model.ModifierNormal:
				out[i].ModifierGroup = model.ModifierAbsent
				out[i].ModifierPhrase = evidence + suffixPhysicianMatch
			}
		}
	}

	return out
}

// nonDefaultEvidence joins the group's modifier phrases, skipping rows still
// in their default-fill state.
func nonDefaultEvidence(rows []model.FindingRecord, group string) string {
	var phrases []string
	for _, r := range rows {
		if r.TargetGroup == group && r.ModifierPhrase != model.DefaultModifierPhrase {
			phrases = append(phrases, r.ModifierPhrase)
		}
	}
	return strings.Join(phrases, ", ")
}

// suppressHemorrhageNOS forces the catch-all hemorrhage group to absent when
// a specific hemorrhage diagnosis is present or suspected: the bleed is
// already captured by the specific row.
func suppressHemorrhageNOS(rows []model.FindingRecord) []model.FindingRecord {
	out := append([]model.FindingRecord(nil), rows...)

	triggered := false
	for _, r := range out {
		if inList(r.TargetGroup, specificHemorrhages) &&
			(r.ModifierGroup == model.ModifierPresent || r.ModifierGroup == model.ModifierSuspected) {
			triggered = true
			break
		}
	}
	if !triggered {
		return out
	}

	evidence := groupPhrases(out, "hemorrhage")
	for i := range out {
		if out[i].TargetGroup == "hemorrhage" {
			out[i].ModifierGroup = model.ModifierAbsent
			out[i].ModifierPhrase = evidence + suffixSpecificBleed
		}
	}
	return out
}

// deriveFluidCollection derives the extra-axial fluid collection group from
// the specific hemorrhages: any present hemorrhage forces fluid present;
// a suspected hemorrhage (with none present) promotes fluid to suspected
// only when fluid is still in its default state. Otherwise fluid keeps its
// annotated value.
func deriveFluidCollection(rows []model.FindingRecord) []model.FindingRecord {
	out := append([]model.FindingRecord(nil), rows...)

	anyPresent := false
	anySuspected := false
	for _, r := range out {
		if !inList(r.TargetGroup, specificHemorrhages) {
			continue
		}
		switch r.ModifierGroup {
		case model.ModifierPresent:
			anyPresent = true
		case model.ModifierSuspected:
			anySuspected = true
		}
	}

	evidence := groupPhrases(out, "fluid")

	switch {
	case anyPresent:
		for i := range out {
			if out[i].TargetGroup == "fluid" {
				out[i].ModifierGroup = model.ModifierPresent
				out[i].ModifierPhrase = evidence + suffixFluidCollection
			}
		}
	case anySuspected:
		stillDefault := false
		for _, r := range out {
			if r.TargetGroup == "fluid" && r.ModifierPhrase == model.DefaultModifierPhrase {
				stillDefault = true
				break
			}
		}
		if stillDefault {
			for i := range out {
				if out[i].TargetGroup == "fluid" {
					out[i].ModifierGroup = model.ModifierSuspected
					out[i].ModifierPhrase = evidence + suffixFluidCollection
				}
			}
		}
	}

	return out
}

// escalateIntracranialPathology forces the intracranial_pathology group to
// present when any pathology group carries present, suspected, or abnormal
// evidence, unless the existing intracranial_pathology phrase contains a
// negation token. The negation check is a raw "no" substring test against
// the concatenated phrase; "normal" therefore counts as negated. Do not
// tighten it to a word match without revalidating against annotated reports.
func escalateIntracranialPathology(rows []model.FindingRecord) []model.FindingRecord {
	out := append([]model.FindingRecord(nil), rows...)

	triggered := false
	for _, r := range out {
		if !inList(r.TargetGroup, pathologyGroups) {
			continue
		}
		switch r.ModifierGroup {
		case model.ModifierPresent, model.ModifierSuspected, model.ModifierAbnormal:
			triggered = true
		}
		if triggered {
			break
		}
	}

	evidence := groupPhrases(out, "intracranial_pathology")
	if !triggered || strings.Contains(evidence, "no") {
		return out
	}

	for i := range out {
		if out[i].TargetGroup == "intracranial_pathology" {
			out[i].ModifierGroup = model.ModifierPresent
			out[i].ModifierPhrase = evidence + suffixPathologyDerived
		}
	}
	return out
}

// groupPhrases joins all modifier phrases currently recorded for a group
func groupPhrases(rows []model.FindingRecord, group string) string {
	var phrases []string
	for _, r := range rows {
		if r.TargetGroup == group {
			phrases = append(phrases, r.ModifierPhrase)
		}
	}
	return strings.Join(phrases, ", ")
}

func inList(s string, list []string) bool {
	for _, item := range list {
		if s == item {
			return true
		}
	}
	return false
}
