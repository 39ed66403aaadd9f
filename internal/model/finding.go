package model

import "time"

// FindingRecord is the resolved unit of output: one clinical concept paired
// with the modifier that qualifies it in the report.
type FindingRecord struct {
	TargetPhrase   string `json:"target_phrase,omitempty"`   // Text matched in the report (comma-joined when collapsed)
	TargetGroup    string `json:"target_group"`              // Clinical concept category (e.g. "midline_shift")
	ModifierPhrase string `json:"modifier_phrase,omitempty"` // Qualifier text, plus audit suffixes from derived rules
	ModifierGroup  string `json:"modifier_group"`            // Qualifier category (e.g. "present")
}

// Modifier group vocabulary. Lexicon files may only use these categories for
// modifier entries; the rule cascade depends on the exact strings.
const (
	ModifierPresent       = "present"
	ModifierAbsent        = "absent"
	ModifierSuspected     = "suspected"
	ModifierIndeterminate = "indeterminate"
	ModifierNormal        = "normal"
	ModifierAbnormal      = "abnormal"
)

// DefaultModifierPhrase marks rows inserted by default-fill rather than
// derived from report evidence.
const DefaultModifierPhrase = "default"

// AnnotatedReport is the complete output for one report.
type AnnotatedReport struct {
	Source      string          `json:"source"`       // Report file path or "-" for inline text
	AnnotatedAt time.Time       `json:"annotated_at"` // When annotation ran
	Findings    []FindingRecord `json:"findings"`     // One row per target group, sorted by group

	LLM *Summary `json:"llm,omitempty"` // Optional narrative summary (never affects findings)
}

// Summary contains an optional LLM-generated narrative of the finding table.
// CRITICAL: this is presentation only and never feeds back into the findings.
type Summary struct {
	Enabled   bool     `json:"enabled"`
	Provider  string   `json:"provider,omitempty"`
	Model     string   `json:"model,omitempty"`
	SummaryMD string   `json:"summary_md,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}
