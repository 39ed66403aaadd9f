package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/radnlp/tbiextract/internal/pipeline"
	"github.com/radnlp/tbiextract/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir|list-file>",
	Short: "Annotate many reports in parallel",
	Long: `Batch annotates multiple report files concurrently:
- A directory argument scans for .txt/.html reports
- A file argument is read as a list of report paths, one per line
- Each report is annotated independently with the same lexicon
- One CSV per report is written to the output directory

Example:
  tbiextract batch ./reports
  tbiextract batch reports.txt --concurrency 8 --output-dir ./findings`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./tbiextract-findings", "output directory for per-report findings")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")

	// Shared with annotate
	batchCmd.Flags().BoolVar(&saveTargetPhrases, "save-target-phrases", false, "include the matched target phrases in the output")
	batchCmd.Flags().BoolVar(&saveModifierPhrases, "save-modifier-phrases", false, "include the matched modifier phrases in the output")
	batchCmd.Flags().StringSliceVar(&includeTargets, "include-targets", nil, "limit annotation to these target groups")
	batchCmd.Flags().StringSliceVar(&excludeTargets, "exclude-targets", nil, "annotate all target groups except these")
	batchCmd.Flags().StringVar(&targetsFile, "targets-file", "", "lexical targets TSV (default: embedded lexicon)")
	batchCmd.Flags().StringVar(&modifiersFile, "modifiers-file", "", "lexical modifiers TSV (default: embedded lexicon)")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
}

func runBatch(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	cfg.Workers.Count = concurrency

	p, err := pipeline.New(cfg, log)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Batch source: %s\n", source)
	fmt.Fprintf(os.Stderr, "Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "Output dir:   %s\n\n", outputDir)

	processor := worker.NewBatchProcessor(p, concurrency)
	results, err := processor.ProcessSource(ctx, source)
	if err != nil {
		return fmt.Errorf("process batch: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.SaveTargetPhrases, cfg.Output.SaveModifierPhrases)

	successCount := 0
	failureCount := 0
	for _, result := range results {
		if result.Err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Err)
			continue
		}

		csvPath := filepath.Join(outputDir, findingsName(result.Path))
		if err := renderer.RenderCSV(result.Report, csvPath); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: write findings: %v\n", result.Path, err)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (%d findings)\n", result.Path, len(result.Report.Findings))
	}

	fmt.Fprintf(os.Stderr, "\nTotal: %d  Success: %d  Failures: %d\n", len(results), successCount, failureCount)
	if failureCount > 0 {
		return fmt.Errorf("%d of %d reports failed", failureCount, len(results))
	}
	return nil
}

// findingsName derives the per-report output file name
func findingsName(reportPath string) string {
	base := filepath.Base(reportPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + ".findings.csv"
}
