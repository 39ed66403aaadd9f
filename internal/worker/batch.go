package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/radnlp/tbiextract/internal/model"
)

// Annotator annotates one report file; satisfied by pipeline.Pipeline
type Annotator interface {
	AnnotateFile(ctx context.Context, path string) (*model.AnnotatedReport, error)
}

// AnnotateJob annotates a single report file
type AnnotateJob struct {
	Path      string
	Annotator Annotator
}

// Execute runs the annotation
func (j *AnnotateJob) Execute(ctx context.Context) Result {
	annotated, err := j.Annotator.AnnotateFile(ctx, j.Path)
	return &AnnotateResult{
		Path:   j.Path,
		Report: annotated,
		Err:    err,
	}
}

// AnnotateResult is the outcome of one report annotation
type AnnotateResult struct {
	Path   string
	Report *model.AnnotatedReport
	Err    error
}

// GetError returns the annotation error, if any
func (r *AnnotateResult) GetError() error {
	return r.Err
}

// BatchProcessor annotates many report files concurrently
type BatchProcessor struct {
	annotator   Annotator
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(annotator Annotator, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		annotator:   annotator,
		concurrency: concurrency,
	}
}

// ProcessPaths annotates the given report files concurrently. Cancelling ctx
// abandons queued reports and cancels the ones in flight.
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string) []*AnnotateResult {
	if len(paths) == 0 {
		return []*AnnotateResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, path := range paths {
		pool.Submit(&AnnotateJob{Path: path, Annotator: b.annotator})
	}

	results := pool.Wait()
	out := make([]*AnnotateResult, len(results))
	for i, result := range results {
		out[i] = result.(*AnnotateResult)
	}
	return out
}

// ProcessSource resolves a batch source and annotates its reports. A
// directory is scanned for report files; anything else is read as a list
// file of paths, one per line.
func (b *BatchProcessor) ProcessSource(ctx context.Context, source string) ([]*AnnotateResult, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("stat batch source: %w", err)
	}

	var paths []string
	if info.IsDir() {
		paths, err = CollectReportFiles(source)
	} else {
		paths, err = ReadPathsFromFile(source)
	}
	if err != nil {
		return nil, err
	}

	return b.ProcessPaths(ctx, paths), nil
}

// CollectReportFiles returns the report files directly under dir, sorted
func CollectReportFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read report dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".txt", ".html", ".htm":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadPathsFromFile reads report paths from a list file, one per line.
// Blank lines and # comments are skipped; duplicates are dropped.
func ReadPathsFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open list file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan list file: %w", err)
	}

	return paths, nil
}
