package model

import "time"

// Config is the complete tbiextract configuration tree
type Config struct {
	Lexicon LexiconConfig `yaml:"lexicon" json:"lexicon"`
	Targets TargetConfig  `yaml:"targets" json:"targets"`
	Output  OutputConfig  `yaml:"output" json:"output"`
	Cache   CacheConfig   `yaml:"cache" json:"cache"`
	Workers WorkerConfig  `yaml:"workers" json:"workers"`
	LLM     LLMConfig     `yaml:"llm" json:"llm"`
}

// LexiconConfig points at the lexical item files. Empty paths select the
// embedded default lexicons.
type LexiconConfig struct {
	TargetsFile   string `yaml:"targets_file" json:"targets_file"`
	ModifiersFile string `yaml:"modifiers_file" json:"modifiers_file"`
}

// TargetConfig narrows the annotated target groups. Include and Exclude are
// mutually exclusive; setting both is a fatal configuration error.
type TargetConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// OutputConfig controls which columns and how much chatter the run produces
type OutputConfig struct {
	SaveTargetPhrases   bool `yaml:"save_target_phrases" json:"save_target_phrases"`
	SaveModifierPhrases bool `yaml:"save_modifier_phrases" json:"save_modifier_phrases"`
	Verbose             bool `yaml:"verbose" json:"verbose"`
}

// CacheConfig controls the annotation result cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Dir       string        `yaml:"dir" json:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" json:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" json:"disk_ttl"`
}

// WorkerConfig controls batch concurrency
type WorkerConfig struct {
	Count int `yaml:"count" json:"count"`
}

// LLMConfig configures the optional narrative summarizer
type LLMConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	Model   string        `yaml:"model" json:"model"`
	APIKey  string        `yaml:"-" json:"-"` // Never serialized; from OPENAI_API_KEY
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			SaveTargetPhrases:   false,
			SaveModifierPhrases: false,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".tbiextract-cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Workers: WorkerConfig{
			Count: 4,
		},
		LLM: LLMConfig{
			Enabled: false,
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
	}
}
