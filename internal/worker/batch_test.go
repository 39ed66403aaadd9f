package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/radnlp/tbiextract/internal/model"
)

// fakeAnnotator returns a canned finding table, failing for paths that
// contain "bad".
type fakeAnnotator struct{}

func (f *fakeAnnotator) AnnotateFile(ctx context.Context, path string) (*model.AnnotatedReport, error) {
	if strings.Contains(path, "bad") {
		return nil, fmt.Errorf("unreadable report %s", path)
	}
	return &model.AnnotatedReport{
		Source: path,
		Findings: []model.FindingRecord{
			{TargetGroup: "hemorrhage", ModifierGroup: model.ModifierAbsent},
		},
	}, nil
}

// deadlineAnnotator fails when its context has already ended
type deadlineAnnotator struct{}

func (d *deadlineAnnotator) AnnotateFile(ctx context.Context, path string) (*model.AnnotatedReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &model.AnnotatedReport{Source: path}, nil
}

func TestProcessPaths(t *testing.T) {
	b := NewBatchProcessor(&fakeAnnotator{}, 2)

	results := b.ProcessPaths(context.Background(), []string{"a.txt", "bad.txt", "c.txt"})
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	failures := 0
	for _, r := range results {
		if r.GetError() != nil {
			failures++
			continue
		}
		if r.Report == nil || len(r.Report.Findings) != 1 {
			t.Errorf("%s: unexpected report %+v", r.Path, r.Report)
		}
	}
	if failures != 1 {
		t.Errorf("got %d failures, want 1", failures)
	}
}

func TestProcessPaths_ManyMoreReportsThanWorkers(t *testing.T) {
	b := NewBatchProcessor(&fakeAnnotator{}, 2)

	paths := make([]string, 30)
	for i := range paths {
		paths[i] = fmt.Sprintf("report-%02d.txt", i)
	}

	results := b.ProcessPaths(context.Background(), paths)
	if len(results) != len(paths) {
		t.Fatalf("got %d results, want %d", len(results), len(paths))
	}
	for _, r := range results {
		if r.GetError() != nil {
			t.Errorf("%s: unexpected error %v", r.Path, r.GetError())
		}
	}
}

func TestProcessPaths_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBatchProcessor(&deadlineAnnotator{}, 2)
	results := b.ProcessPaths(ctx, []string{"a.txt", "b.txt", "c.txt"})

	// Queued reports may be dropped outright; any that still run must see
	// the cancelled context.
	for _, r := range results {
		if r.GetError() == nil {
			t.Errorf("%s: annotated despite cancelled context", r.Path)
		}
	}
}

func TestProcessPaths_Empty(t *testing.T) {
	b := NewBatchProcessor(&fakeAnnotator{}, 2)
	if results := b.ProcessPaths(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestProcessSource_Directory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("No acute findings."), 0644); err != nil {
			t.Fatal(err)
		}
	}

	b := NewBatchProcessor(&fakeAnnotator{}, 2)
	results, err := b.ProcessSource(context.Background(), dir)
	if err != nil {
		t.Fatalf("ProcessSource() error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}

func TestProcessSource_MissingSource(t *testing.T) {
	b := NewBatchProcessor(&fakeAnnotator{}, 2)
	if _, err := b.ProcessSource(context.Background(), "/does/not/exist"); err == nil {
		t.Error("expected error for missing batch source")
	}
}

func TestCollectReportFiles(t *testing.T) {
	dir := t.TempDir()
	files := map[string]bool{ // name -> should be collected
		"b.txt":      true,
		"a.txt":      true,
		"report.HTM": true,
		"page.html":  true,
		"scan.pdf":   false,
		"notes.md":   false,
	}
	for name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err := CollectReportFiles(dir)
	if err != nil {
		t.Fatalf("CollectReportFiles() error: %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "page.html"),
		filepath.Join(dir, "report.HTM"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CollectReportFiles() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadPathsFromFile(t *testing.T) {
	list := filepath.Join(t.TempDir(), "reports.txt")
	content := "# batch of reports\n/data/a.txt\n\n/data/b.txt\n/data/a.txt\n"
	if err := os.WriteFile(list, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadPathsFromFile(list)
	if err != nil {
		t.Fatalf("ReadPathsFromFile() error: %v", err)
	}

	want := []string{"/data/a.txt", "/data/b.txt"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadPathsFromFile() mismatch (-want +got):\n%s", diff)
	}
}
