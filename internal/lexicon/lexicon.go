// Package lexicon loads and filters the lexical item store: literal phrases
// and patterns for clinical targets and their contextual modifiers.
package lexicon

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
)

//go:embed data/lexical_targets.tsv data/lexical_modifiers.tsv
var defaultData embed.FS

// Rule is the directionality rule of a lexical item: which way a modifier's
// influence extends from its match position within a sentence.
type Rule string

const (
	RuleForward       Rule = "forward"
	RuleBackward      Rule = "backward"
	RuleBidirectional Rule = "bidirectional"
	RuleTerminate     Rule = "terminate" // Marks a scope boundary, links to nothing
	RuleNone          Rule = ""          // Targets carry no rule
)

// Item is one immutable lexical entry. Pattern is compiled once at load time
// and matched against lowercase, whitespace-normalized sentence text.
type Item struct {
	Literal  string
	Category string
	Pattern  *regexp.Regexp
	Rule     Rule
}

// Target-selection failures. The engine refuses to run rather than silently
// picking a default.
var (
	ErrConflictingSelection = errors.New("lexicon: include and exclude target lists cannot both be set")
	ErrEmptySelection       = errors.New("lexicon: target selection resolved to an empty set")
)

// DefaultTargets returns the embedded lexical target entries
func DefaultTargets() ([]Item, error) {
	data, err := defaultData.ReadFile("data/lexical_targets.tsv")
	if err != nil {
		return nil, fmt.Errorf("read embedded targets: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// DefaultModifiers returns the embedded lexical modifier entries
func DefaultModifiers() ([]Item, error) {
	data, err := defaultData.ReadFile("data/lexical_modifiers.tsv")
	if err != nil {
		return nil, fmt.Errorf("read embedded modifiers: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// LoadFile parses a lexicon TSV from disk
func LoadFile(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon: %w", err)
	}
	defer func() { _ = f.Close() }()

	items, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse lexicon %s: %w", path, err)
	}
	return items, nil
}

// Parse reads lexical items from tab-separated input. Columns:
// literal, category, regex (optional), rule (optional). An empty regex
// derives a word-boundary pattern from the literal. Lines starting with #
// are comments.
func Parse(r io.Reader) ([]Item, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var items []Item
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		line++

		if len(record) < 2 {
			return nil, fmt.Errorf("record %d: want at least literal and category, got %d fields", line, len(record))
		}

		literal := strings.ToLower(strings.TrimSpace(record[0]))
		category := strings.TrimSpace(record[1])
		if literal == "" || category == "" {
			return nil, fmt.Errorf("record %d: empty literal or category", line)
		}

		expr := ""
		if len(record) > 2 {
			expr = strings.TrimSpace(record[2])
		}
		rule := RuleNone
		if len(record) > 3 {
			rule = Rule(strings.TrimSpace(record[3]))
		}
		switch rule {
		case RuleNone, RuleForward, RuleBackward, RuleBidirectional, RuleTerminate:
		default:
			return nil, fmt.Errorf("record %d: unknown rule %q", line, rule)
		}

		pattern, err := compilePattern(literal, expr)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", line, literal, err)
		}

		items = append(items, Item{
			Literal:  literal,
			Category: category,
			Pattern:  pattern,
			Rule:     rule,
		})
	}

	return items, nil
}

// compilePattern builds the match pattern for an item. Explicit expressions
// are wrapped in word boundaries as-is; otherwise the literal is quoted with
// flexible whitespace between words.
func compilePattern(literal, expr string) (*regexp.Regexp, error) {
	if expr == "" {
		expr = strings.ReplaceAll(regexp.QuoteMeta(literal), " ", `\s+`)
	}
	re, err := regexp.Compile(`\b(?:` + expr + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}
	return re, nil
}

// Digest returns a stable hash of a lexicon's content. Results derived from
// a lexicon (such as cached finding tables) are scoped by this digest, so
// editing a lexicon file invalidates them.
func Digest(items []Item) string {
	h := sha256.New()
	for _, item := range items {
		fmt.Fprintf(h, "%s\x1f%s\x1f%s\x1f%s\x1e", item.Literal, item.Category, item.Pattern.String(), item.Rule)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Groups returns the sorted set of distinct categories in a lexicon
func Groups(items []Item) []string {
	seen := make(map[string]bool)
	var groups []string
	for _, item := range items {
		if !seen[item.Category] {
			seen[item.Category] = true
			groups = append(groups, item.Category)
		}
	}
	sort.Strings(groups)
	return groups
}

// SelectTargets narrows the available target groups by an include or exclude
// list. Entries not present in the available set are returned as ignored so
// the caller can report them. Setting both lists, or selecting down to an
// empty set, is an error.
func SelectTargets(available, include, exclude []string) (selected, ignored []string, err error) {
	if len(include) > 0 && len(exclude) > 0 {
		return nil, nil, ErrConflictingSelection
	}

	availSet := make(map[string]bool, len(available))
	for _, g := range available {
		availSet[g] = true
	}

	switch {
	case len(include) > 0:
		seen := make(map[string]bool)
		for _, g := range include {
			if !availSet[g] {
				ignored = append(ignored, g)
				continue
			}
			if !seen[g] {
				seen[g] = true
				selected = append(selected, g)
			}
		}
	case len(exclude) > 0:
		excludeSet := make(map[string]bool)
		for _, g := range exclude {
			if !availSet[g] {
				ignored = append(ignored, g)
				continue
			}
			excludeSet[g] = true
		}
		for _, g := range available {
			if !excludeSet[g] {
				selected = append(selected, g)
			}
		}
	default:
		selected = append(selected, available...)
	}

	if len(selected) == 0 {
		return nil, ignored, ErrEmptySelection
	}
	sort.Strings(selected)
	return selected, ignored, nil
}

// FilterItems keeps only items whose category is in groups
func FilterItems(items []Item, groups []string) []Item {
	keep := make(map[string]bool, len(groups))
	for _, g := range groups {
		keep[g] = true
	}
	var out []Item
	for _, item := range items {
		if keep[item.Category] {
			out = append(out, item)
		}
	}
	return out
}
