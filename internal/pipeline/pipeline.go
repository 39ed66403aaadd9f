// Package pipeline orchestrates the complete annotation of one report:
// read, segment, sentence markup, document aggregation, distance
// disambiguation, and the report rule cascade.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radnlp/tbiextract/internal/cache"
	"github.com/radnlp/tbiextract/internal/lexicon"
	"github.com/radnlp/tbiextract/internal/llm"
	"github.com/radnlp/tbiextract/internal/markup"
	"github.com/radnlp/tbiextract/internal/model"
	"github.com/radnlp/tbiextract/internal/report"
	"github.com/radnlp/tbiextract/internal/segment"
)

// Pipeline annotates reports against a fixed, resolved lexicon
type Pipeline struct {
	targets     []lexicon.Item
	modifiers   []lexicon.Item
	targetList  []string
	cascade     *report.Cascade
	results     cache.Cache // nil when caching is disabled
	fingerprint string      // Scopes cache entries to this lexicon and target selection
	summarizer  *llm.Summarizer
	cfg         *model.Config
	log         *zap.Logger
}

// New creates a pipeline from configuration. Lexicon loading and target
// selection happen once here; an invalid target selection refuses to build
// the pipeline rather than running with a guessed default.
func New(cfg *model.Config, log *zap.Logger) (*Pipeline, error) {
	targets, err := loadItems(cfg.Lexicon.TargetsFile, lexicon.DefaultTargets)
	if err != nil {
		return nil, fmt.Errorf("load targets: %w", err)
	}
	modifiers, err := loadItems(cfg.Lexicon.ModifiersFile, lexicon.DefaultModifiers)
	if err != nil {
		return nil, fmt.Errorf("load modifiers: %w", err)
	}

	available := lexicon.Groups(targets)
	selected, ignored, err := lexicon.SelectTargets(available, cfg.Targets.Include, cfg.Targets.Exclude)
	if err != nil {
		return nil, fmt.Errorf("select targets: %w", err)
	}
	if len(ignored) > 0 {
		log.Warn("ignoring unknown target groups",
			zap.Strings("ignored", ignored),
			zap.Strings("available", available))
	}

	var results cache.Cache
	if cfg.Cache.Enabled {
		results = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	var summarizer *llm.Summarizer
	if cfg.LLM.Enabled {
		s, err := llm.NewSummarizer(llm.Config{
			Model:   cfg.LLM.Model,
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Timeout: cfg.LLM.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init summarizer: %w", err)
		}
		summarizer = s
	}

	selectedTargets := lexicon.FilterItems(targets, selected)
	fingerprint := strings.Join(selected, ",") + "|" +
		lexicon.Digest(selectedTargets) + "|" + lexicon.Digest(modifiers)

	return &Pipeline{
		targets:     selectedTargets,
		modifiers:   modifiers,
		targetList:  selected,
		cascade:     report.NewCascade(selected),
		results:     results,
		fingerprint: fingerprint,
		summarizer:  summarizer,
		cfg:         cfg,
		log:         log,
	}, nil
}

func loadItems(path string, fallback func() ([]lexicon.Item, error)) ([]lexicon.Item, error) {
	if path == "" {
		return fallback()
	}
	return lexicon.LoadFile(path)
}

// TargetList returns the resolved target groups, sorted
func (p *Pipeline) TargetList() []string {
	return p.targetList
}

// AnnotateFile annotates one report file end to end
func (p *Pipeline) AnnotateFile(ctx context.Context, path string) (*model.AnnotatedReport, error) {
	text, err := ReadReport(path)
	if err != nil {
		return nil, err
	}

	findings, err := p.AnnotateText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("annotate %s: %w", path, err)
	}

	annotated := &model.AnnotatedReport{
		Source:      path,
		AnnotatedAt: time.Now().UTC(),
		Findings:    findings,
	}

	// Narrative summary is strictly post-hoc: it reads the finished table
	// and never feeds back into it.
	if p.summarizer != nil && p.summarizer.IsEnabled() {
		summary, err := p.summarizer.Summarize(ctx, findings)
		if err != nil {
			p.log.Warn("summary generation failed", zap.Error(err))
		} else {
			annotated.LLM = summary
		}
	}

	return annotated, nil
}

// AnnotateText runs the core engine over raw report text and returns the
// final one-row-per-concept table, sorted by target group.
func (p *Pipeline) AnnotateText(ctx context.Context, text string) ([]model.FindingRecord, error) {
	key := cache.Key(text, p.fingerprint)
	if p.results != nil {
		if data, ok := p.results.Get(key); ok {
			var findings []model.FindingRecord
			if err := json.Unmarshal(data, &findings); err == nil {
				p.log.Debug("cache hit", zap.String("key", key))
				return findings, nil
			}
			// Corrupt entry: drop it and recompute.
			_ = p.results.Delete(key)
		}
	}

	sentences := segment.Split(text)
	doc := markup.NewDocumentAnnotations()
	for _, sentence := range sentences {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc.Add(markup.MarkSentence(segment.Normalize(sentence), p.targets, p.modifiers))
	}
	p.log.Debug("marked sentences", zap.Int("count", len(sentences)))

	findings := markup.Resolve(doc)
	findings = p.cascade.Run(findings)

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].TargetGroup < findings[j].TargetGroup
	})

	if p.results != nil {
		if data, err := json.Marshal(findings); err == nil {
			if err := p.results.Set(key, data, 0); err != nil {
				p.log.Warn("cache write failed", zap.Error(err))
			}
		}
	}

	return findings, nil
}
