package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/radnlp/tbiextract/internal/model"
)

// Renderer writes an annotated report to its output formats. Phrase columns
// are included only when requested by the caller.
type Renderer struct {
	saveTargetPhrases   bool
	saveModifierPhrases bool
}

// NewRenderer creates a renderer with the given column selection
func NewRenderer(saveTargetPhrases, saveModifierPhrases bool) *Renderer {
	return &Renderer{
		saveTargetPhrases:   saveTargetPhrases,
		saveModifierPhrases: saveModifierPhrases,
	}
}

// columns returns the selected column headers, in the canonical order
// target_phrase, target_group, modifier_phrase, modifier_group.
func (r *Renderer) columns() []string {
	var cols []string
	if r.saveTargetPhrases {
		cols = append(cols, "target_phrase")
	}
	cols = append(cols, "target_group")
	if r.saveModifierPhrases {
		cols = append(cols, "modifier_phrase")
	}
	return append(cols, "modifier_group")
}

func (r *Renderer) row(f model.FindingRecord) []string {
	var row []string
	if r.saveTargetPhrases {
		row = append(row, f.TargetPhrase)
	}
	row = append(row, f.TargetGroup)
	if r.saveModifierPhrases {
		row = append(row, f.ModifierPhrase)
	}
	return append(row, f.ModifierGroup)
}

// strip clears the phrase fields the caller did not ask for
func (r *Renderer) strip(annotated *model.AnnotatedReport) *model.AnnotatedReport {
	out := *annotated
	out.Findings = append([]model.FindingRecord(nil), annotated.Findings...)
	for i := range out.Findings {
		if !r.saveTargetPhrases {
			out.Findings[i].TargetPhrase = ""
		}
		if !r.saveModifierPhrases {
			out.Findings[i].ModifierPhrase = ""
		}
	}
	return &out
}

// RenderCSV writes the finding table as CSV
func (r *Renderer) RenderCSV(annotated *model.AnnotatedReport, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close csv: %w", closeErr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(r.columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, finding := range annotated.Findings {
		if err := w.Write(r.row(finding)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// RenderJSON writes the annotated report as indented JSON
func (r *Renderer) RenderJSON(annotated *model.AnnotatedReport, path string) error {
	data, err := json.MarshalIndent(r.strip(annotated), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// RenderMarkdown writes the finding table as a Markdown document
func (r *Renderer) RenderMarkdown(annotated *model.AnnotatedReport, path string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Findings: %s\n\n", annotated.Source)
	fmt.Fprintf(&b, "Annotated at %s\n\n", annotated.AnnotatedAt.Format("2006-01-02 15:04:05 UTC"))

	cols := r.columns()
	b.WriteString("| " + strings.Join(cols, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(cols)) + "\n")
	for _, finding := range annotated.Findings {
		b.WriteString("| " + strings.Join(r.row(finding), " | ") + " |\n")
	}

	if annotated.LLM != nil && annotated.LLM.SummaryMD != "" {
		b.WriteString("\n## Narrative summary (LLM, non-authoritative)\n\n")
		b.WriteString(annotated.LLM.SummaryMD)
		b.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}
	return nil
}

// RenderSummary prints a compact table to w for interactive runs
func (r *Renderer) RenderSummary(annotated *model.AnnotatedReport, w io.Writer) {
	fmt.Fprintf(w, "\n%s\n", annotated.Source)
	for _, finding := range annotated.Findings {
		fmt.Fprintf(w, "  %-30s %s\n", finding.TargetGroup, finding.ModifierGroup)
	}
	fmt.Fprintln(w)
}
