package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/radnlp/tbiextract/internal/model"
)

func TestNewSummarizer_RequiresAPIKey(t *testing.T) {
	if _, err := NewSummarizer(Config{}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestNewSummarizer_Defaults(t *testing.T) {
	s, err := NewSummarizer(Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewSummarizer() error: %v", err)
	}
	if !s.IsEnabled() {
		t.Error("summarizer with a key should be enabled")
	}
	if s.config.Model == "" || s.config.Timeout == 0 || s.config.MaxTokens == 0 {
		t.Errorf("defaults not applied: %+v", s.config)
	}
}

func TestSummarize(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) == 2 {
			gotPrompt = req.Messages[1].Content
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-test",
			"object": "chat.completion",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "No hemorrhage is described; a midline shift is noted."},
				"finish_reason": "stop"
			}]
		}`))
	}))
	defer server.Close()

	s, err := NewSummarizer(Config{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
	})
	if err != nil {
		t.Fatalf("NewSummarizer() error: %v", err)
	}

	findings := []model.FindingRecord{
		{TargetGroup: "hemorrhage", ModifierGroup: model.ModifierAbsent},
		{TargetGroup: "midline_shift", ModifierGroup: model.ModifierPresent},
	}
	summary, err := s.Summarize(context.Background(), findings)
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}

	if summary.SummaryMD != "No hemorrhage is described; a midline shift is noted." {
		t.Errorf("SummaryMD = %q", summary.SummaryMD)
	}
	if summary.Provider != "openai" || !summary.Enabled {
		t.Errorf("unexpected summary metadata: %+v", summary)
	}
	if len(summary.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", summary.Warnings)
	}

	if !strings.Contains(gotPrompt, "- hemorrhage: absent") || !strings.Contains(gotPrompt, "- midline_shift: present") {
		t.Errorf("prompt missing finding rows:\n%s", gotPrompt)
	}
}

func TestSummarize_FlagsContradictions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "Subdural hemorrhage is present."},
				"finish_reason": "stop"
			}]
		}`))
	}))
	defer server.Close()

	s, err := NewSummarizer(Config{APIKey: "test-key", BaseURL: server.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewSummarizer() error: %v", err)
	}

	findings := []model.FindingRecord{
		{TargetGroup: "subdural_hemorrhage", ModifierGroup: model.ModifierAbsent},
	}
	summary, err := s.Summarize(context.Background(), findings)
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if len(summary.Warnings) != 1 {
		t.Errorf("expected a contradiction warning, got %v", summary.Warnings)
	}
}

func TestSummarize_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "boom"}}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	s, err := NewSummarizer(Config{APIKey: "test-key", BaseURL: server.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewSummarizer() error: %v", err)
	}

	if _, err := s.Summarize(context.Background(), nil); err == nil {
		t.Error("expected error from failing backend")
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt([]model.FindingRecord{
		{TargetGroup: "edema", ModifierGroup: model.ModifierAbsent},
	})
	if !strings.Contains(prompt, "- edema: absent") {
		t.Errorf("prompt missing finding line:\n%s", prompt)
	}
}
