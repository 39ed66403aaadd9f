package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/radnlp/tbiextract/internal/model"
	"github.com/radnlp/tbiextract/internal/pipeline"
)

var (
	outCSV              string
	outJSON             string
	outMD               string
	timeout             time.Duration
	saveTargetPhrases   bool
	saveModifierPhrases bool
	includeTargets      []string
	excludeTargets      []string
	targetsFile         string
	modifiersFile       string
	noCache             bool
	llmEnabled          bool
	llmModel            string
)

// annotateCmd represents the annotate command
var annotateCmd = &cobra.Command{
	Use:   "annotate <report>",
	Short: "Annotate a single radiology report",
	Long: `Annotate runs the full extraction over one report file (.txt or .html):
- Segment the report into sentences
- Mark lexical targets and modifiers, pruning subsumed spans
- Link modifiers to targets by directional scope and nearest distance
- Reconcile all sentences with the report rule cascade
- Emit exactly one row per clinical concept

Example:
  tbiextract annotate report.txt
  tbiextract annotate report.txt --csv findings.csv --save-modifier-phrases
  tbiextract annotate report.txt --include-targets subdural_hemorrhage --include-targets midline_shift`,
	Args: cobra.ExactArgs(1),
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)

	// Output flags
	annotateCmd.Flags().StringVar(&outCSV, "csv", "findings.csv", "output CSV path")
	annotateCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	annotateCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	annotateCmd.Flags().BoolVar(&saveTargetPhrases, "save-target-phrases", false, "include the matched target phrases in the output")
	annotateCmd.Flags().BoolVar(&saveModifierPhrases, "save-modifier-phrases", false, "include the matched modifier phrases in the output")

	// Lexicon and target selection flags
	annotateCmd.Flags().StringSliceVar(&includeTargets, "include-targets", nil, "limit annotation to these target groups (mutually exclusive with --exclude-targets)")
	annotateCmd.Flags().StringSliceVar(&excludeTargets, "exclude-targets", nil, "annotate all target groups except these (mutually exclusive with --include-targets)")
	annotateCmd.Flags().StringVar(&targetsFile, "targets-file", "", "lexical targets TSV (default: embedded lexicon)")
	annotateCmd.Flags().StringVar(&modifiersFile, "modifiers-file", "", "lexical modifiers TSV (default: embedded lexicon)")

	// Run flags
	annotateCmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall annotation timeout")
	annotateCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache (force re-annotation)")

	// LLM flags
	annotateCmd.Flags().BoolVar(&llmEnabled, "llm", false, "generate an LLM narrative summary (never affects findings)")
	annotateCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

// buildConfig assembles the run configuration from flags
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	cfg.Lexicon.TargetsFile = targetsFile
	cfg.Lexicon.ModifiersFile = modifiersFile
	cfg.Targets.Include = includeTargets
	cfg.Targets.Exclude = excludeTargets
	cfg.Output.SaveTargetPhrases = saveTargetPhrases
	cfg.Output.SaveModifierPhrases = saveModifierPhrases
	cfg.Output.Verbose = verbose
	cfg.Cache.Enabled = !noCache

	if llmEnabled {
		cfg.LLM.Enabled = true
		cfg.LLM.Model = llmModel
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	}

	return cfg, nil
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	reportPath := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
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

	p, err := pipeline.New(cfg, log)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Annotating: %s\n", reportPath)
		fmt.Fprintf(os.Stderr, "Target groups: %d\n", len(p.TargetList()))
		fmt.Fprintln(os.Stderr)
	}

	annotated, err := p.AnnotateFile(ctx, reportPath)
	if err != nil {
		return fmt.Errorf("annotate failed: %w", err)
	}

	log.Debug("annotation complete",
		zap.String("report", reportPath),
		zap.Int("findings", len(annotated.Findings)))

	return renderOutputs(annotated, cfg)
}

// renderOutputs writes the requested output files and the stdout summary
func renderOutputs(annotated *model.AnnotatedReport, cfg *model.Config) error {
	renderer := pipeline.NewRenderer(cfg.Output.SaveTargetPhrases, cfg.Output.SaveModifierPhrases)

	if outCSV != "" {
		if err := renderer.RenderCSV(annotated, outCSV); err != nil {
			return fmt.Errorf("render CSV: %w", err)
		}
		if cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote CSV: %s\n", outCSV)
		}
	}
	if outJSON != "" {
		if err := renderer.RenderJSON(annotated, outJSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", outJSON)
		}
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(annotated, outMD); err != nil {
			return fmt.Errorf("render Markdown: %w", err)
		}
		if cfg.Output.Verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", outMD)
		}
	}

	renderer.RenderSummary(annotated, os.Stdout)
	return nil
}
