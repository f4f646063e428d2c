package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"LLM_PROVIDER", "SEARCH_PROVIDER", "ITERATION_CAP", "RESULT_COUNT", "DESIRED_WORDS", "EVIDENCE_BACKEND", "TOP_K"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.LLMProvider != "googleai" {
		t.Errorf("LLMProvider = %q, want googleai", cfg.LLMProvider)
	}
	if cfg.SearchProvider != "google" {
		t.Errorf("SearchProvider = %q, want google", cfg.SearchProvider)
	}
	if cfg.IterationCap != 3 || cfg.ResultCount != 5 || cfg.DesiredWords != 500 {
		t.Errorf("loop defaults = (%d, %d, %d), want (3, 5, 500)", cfg.IterationCap, cfg.ResultCount, cfg.DesiredWords)
	}
	if cfg.Rag == nil || cfg.Rag.Backend != "memory" || cfg.Rag.TopK != 5 {
		t.Errorf("unexpected rag defaults: %+v", cfg.Rag)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ITERATION_CAP", "7")
	t.Setenv("RESULT_COUNT", "not-a-number")
	t.Setenv("EVIDENCE_BACKEND", "PGVector")

	cfg := Load()
	if cfg.LLMProvider != "openai" {
		t.Errorf("LLMProvider = %q, want openai", cfg.LLMProvider)
	}
	if cfg.APIKey() != "sk-test" {
		t.Errorf("APIKey() = %q, want sk-test", cfg.APIKey())
	}
	if cfg.IterationCap != 7 {
		t.Errorf("IterationCap = %d, want 7", cfg.IterationCap)
	}
	if cfg.ResultCount != 5 {
		t.Errorf("ResultCount = %d, want fallback 5", cfg.ResultCount)
	}
	if cfg.Rag.Backend != "pgvector" {
		t.Errorf("Rag.Backend = %q, want pgvector", cfg.Rag.Backend)
	}
}

func TestAPIKeyPerProvider(t *testing.T) {
	cfg := &Config{GoogleApiKey: "g", OpenAIApiKey: "o", AnthropicApiKey: "a"}
	tests := []struct {
		provider string
		want     string
	}{
		{"googleai", "g"},
		{"openai", "o"},
		{"anthropic", "a"},
		{"", "g"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg.LLMProvider = tt.provider
			if got := cfg.APIKey(); got != tt.want {
				t.Errorf("APIKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadJobSettings(t *testing.T) {
	t.Setenv("STRUCTURED_REASONING", "")
	t.Setenv("MAX_CONCURRENT_JOBS", "")
	cfg := Load()
	if !cfg.StructuredReasoning || cfg.MaxConcurrentJobs != 4 {
		t.Errorf("defaults = (%v, %d), want (true, 4)", cfg.StructuredReasoning, cfg.MaxConcurrentJobs)
	}

	t.Setenv("STRUCTURED_REASONING", "false")
	t.Setenv("MAX_CONCURRENT_JOBS", "1")
	cfg = Load()
	if cfg.StructuredReasoning || cfg.MaxConcurrentJobs != 1 {
		t.Errorf("overrides = (%v, %d), want (false, 1)", cfg.StructuredReasoning, cfg.MaxConcurrentJobs)
	}
}
