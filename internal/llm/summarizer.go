// Package llm generates an optional narrative summary of a finished finding
// table. The summary is presentation only: it is produced after the rule
// cascade and never feeds back into the findings.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/radnlp/tbiextract/internal/model"
)

// Config holds summarizer configuration
type Config struct {
	Model   string
	APIKey  string
	BaseURL string // Custom endpoint for OpenAI-compatible servers
	Timeout time.Duration

	// MaxTokens limits the response length
	MaxTokens int
}

// Summarizer turns a finding table into a short clinical narrative
type Summarizer struct {
	client *openai.Client
	config Config
}

// NewSummarizer creates a summarizer. An API key is required; the engine
// itself never talks to the network, so a missing key disables summaries
// rather than degrading annotation.
func NewSummarizer(config Config) (*Summarizer, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("llm: API key is required")
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 600
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Summarizer{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// IsEnabled reports whether the summarizer is configured
func (s *Summarizer) IsEnabled() bool {
	return s != nil && s.client != nil
}

// Summarize generates a Markdown narrative of the finding table. The prompt
// restricts the model to restating the table; it must not infer findings the
// table does not contain.
func (s *Summarizer) Summarize(ctx context.Context, findings []model.FindingRecord) (*model.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: s.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You restate structured radiology findings in prose. " +
					"Only describe the rows you are given; never add, infer, or grade findings. " +
					"This is not medical advice.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(findings),
			},
		},
		MaxTokens:   s.config.MaxTokens,
		Temperature: 0.2,
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm: empty response")
	}

	summary := &model.Summary{
		Enabled:   true,
		Provider:  "openai",
		Model:     s.config.Model,
		SummaryMD: strings.TrimSpace(resp.Choices[0].Message.Content),
	}

	// Flag responses that mention concepts outside the table so the caller
	// can surface possible hallucination.
	if warning := checkLeakage(summary.SummaryMD, findings); warning != "" {
		summary.Warnings = append(summary.Warnings, warning)
	}

	return summary, nil
}

// BuildPrompt renders the finding table for the model
func BuildPrompt(findings []model.FindingRecord) string {
	var b strings.Builder
	b.WriteString("Summarize the following structured findings in one short paragraph.\n")
	b.WriteString("Findings (target_group: modifier_group):\n")
	for _, f := range findings {
		fmt.Fprintf(&b, "- %s: %s\n", f.TargetGroup, f.ModifierGroup)
	}
	return b.String()
}

// checkLeakage looks for the strongest hallucination tell: asserting a
// finding as present that the table marks otherwise.
func checkLeakage(summary string, findings []model.FindingRecord) string {
	lower := strings.ToLower(summary)
	for _, f := range findings {
		if f.ModifierGroup != model.ModifierAbsent {
			continue
		}
		phrase := strings.ReplaceAll(f.TargetGroup, "_", " ")
		if strings.Contains(lower, phrase+" is present") {
			return fmt.Sprintf("summary asserts %q present but table marks it absent", f.TargetGroup)
		}
	}
	return ""
}
