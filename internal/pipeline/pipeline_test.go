package pipeline

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/radnlp/tbiextract/internal/model"
)

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false
	return cfg
}

func newTestPipeline(t *testing.T, cfg *model.Config) *Pipeline {
	t.Helper()
	p, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return p
}

func findingsByGroup(findings []model.FindingRecord) map[string]model.FindingRecord {
	out := make(map[string]model.FindingRecord, len(findings))
	for _, f := range findings {
		out[f.TargetGroup] = f
	}
	return out
}

func TestAnnotateText_EndToEnd(t *testing.T) {
	p := newTestPipeline(t, testConfig())

	report := "No evidence of subdural hematoma. Mild midline shift is seen."
	findings, err := p.AnnotateText(context.Background(), report)
	if err != nil {
		t.Fatalf("AnnotateText() error: %v", err)
	}

	// One row per configured target group, every group covered.
	if len(findings) != len(p.TargetList()) {
		t.Fatalf("got %d rows, want %d (one per target group)", len(findings), len(p.TargetList()))
	}
	counts := make(map[string]int)
	for _, f := range findings {
		counts[f.TargetGroup]++
	}
	for _, group := range p.TargetList() {
		if counts[group] != 1 {
			t.Errorf("group %q has %d rows, want 1", group, counts[group])
		}
	}

	if !sort.SliceIsSorted(findings, func(i, j int) bool {
		return findings[i].TargetGroup < findings[j].TargetGroup
	}) {
		t.Error("findings should be sorted by target group")
	}

	m := findingsByGroup(findings)
	wantModifiers := map[string]string{
		"subdural_hemorrhage":        model.ModifierAbsent,
		"midline_shift":              model.ModifierPresent,
		"cistern":                    model.ModifierNormal,
		"gray_white_differentiation": model.ModifierNormal,
		"hemorrhage":                 model.ModifierAbsent,
		"fluid":                      model.ModifierAbsent,
		"intracranial_pathology":     model.ModifierPresent, // Escalated by the midline shift
	}
	for group, want := range wantModifiers {
		if m[group].ModifierGroup != want {
			t.Errorf("%s = %q, want %q", group, m[group].ModifierGroup, want)
		}
	}
}

func TestAnnotateText_EmptyReportGetsDefaults(t *testing.T) {
	p := newTestPipeline(t, testConfig())

	findings, err := p.AnnotateText(context.Background(), "")
	if err != nil {
		t.Fatalf("AnnotateText() error: %v", err)
	}
	if len(findings) != len(p.TargetList()) {
		t.Fatalf("empty report should still yield one default row per group, got %d", len(findings))
	}
	for _, f := range findings {
		if f.ModifierPhrase != model.DefaultModifierPhrase {
			t.Errorf("%s: phrase = %q, want default", f.TargetGroup, f.ModifierPhrase)
		}
	}
}

func TestAnnotateText_IncludeTargetsNarrowsOutput(t *testing.T) {
	cfg := testConfig()
	cfg.Targets.Include = []string{"subdural_hemorrhage", "midline_shift"}
	p := newTestPipeline(t, cfg)

	findings, err := p.AnnotateText(context.Background(), "No evidence of subdural hematoma.")
	if err != nil {
		t.Fatalf("AnnotateText() error: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("got %d rows, want 2: %v", len(findings), findings)
	}
}

func TestAnnotateText_CacheRoundTrip(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Enabled = true
	cfg.Cache.Dir = t.TempDir()
	p := newTestPipeline(t, cfg)

	report := "Subarachnoid hemorrhage is seen."
	first, err := p.AnnotateText(context.Background(), report)
	if err != nil {
		t.Fatalf("first AnnotateText() error: %v", err)
	}
	second, err := p.AnnotateText(context.Background(), report)
	if err != nil {
		t.Fatalf("second AnnotateText() error: %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached result differs from computed (-first +second):\n%s", diff)
	}
}

func TestAnnotateText_CacheIsScopedToTargetSelection(t *testing.T) {
	dir := t.TempDir()
	report := "No evidence of subdural hematoma."

	// A narrowed run populates the shared cache first.
	narrowCfg := testConfig()
	narrowCfg.Cache.Enabled = true
	narrowCfg.Cache.Dir = dir
	narrowCfg.Targets.Include = []string{"subdural_hemorrhage"}
	narrow := newTestPipeline(t, narrowCfg)

	narrowFindings, err := narrow.AnnotateText(context.Background(), report)
	if err != nil {
		t.Fatalf("narrow AnnotateText() error: %v", err)
	}
	if len(narrowFindings) != 1 {
		t.Fatalf("narrow run: got %d rows, want 1", len(narrowFindings))
	}

	// An unrestricted run over the same report and cache dir must not be
	// served the narrowed table.
	fullCfg := testConfig()
	fullCfg.Cache.Enabled = true
	fullCfg.Cache.Dir = dir
	full := newTestPipeline(t, fullCfg)

	fullFindings, err := full.AnnotateText(context.Background(), report)
	if err != nil {
		t.Fatalf("full AnnotateText() error: %v", err)
	}
	if len(fullFindings) != len(full.TargetList()) {
		t.Errorf("full run: got %d rows, want %d (one per group)", len(fullFindings), len(full.TargetList()))
	}
}

func TestAnnotateText_ContextCancellation(t *testing.T) {
	p := newTestPipeline(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.AnnotateText(ctx, "No acute hemorrhage."); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestNew_ConflictingTargetSelection(t *testing.T) {
	cfg := testConfig()
	cfg.Targets.Include = []string{"cistern"}
	cfg.Targets.Exclude = []string{"edema"}

	if _, err := New(cfg, zap.NewNop()); err == nil {
		t.Error("expected error for conflicting include and exclude lists")
	}
}

func TestNew_UnknownIncludeOnlyIsFatal(t *testing.T) {
	cfg := testConfig()
	cfg.Targets.Include = []string{"not_a_group"}

	if _, err := New(cfg, zap.NewNop()); err == nil {
		t.Error("expected error when selection resolves to an empty set")
	}
}

func TestAnnotateFile_MissingFile(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	if _, err := p.AnnotateFile(context.Background(), "/does/not/exist.txt"); err == nil {
		t.Error("expected error for missing report file")
	}
}
