package config

import (
	"testing"
	"time"
)

func TestLoadWithLookupDefaults(t *testing.T) {
	cfg := LoadWithLookup(func(string) string { return "" })

	if cfg.DefaultMethod != "llm" {
		t.Fatalf("expected default method llm, got %q", cfg.DefaultMethod)
	}
	if cfg.LLMBaseURL != "https://integrate.api.nvidia.com/v1" {
		t.Fatalf("unexpected llm base url %q", cfg.LLMBaseURL)
	}
	if cfg.LLMMaxTokens != 2048 || cfg.LLMTemperature != 0.1 || cfg.LLMTopP != 0.9 {
		t.Fatalf("unexpected sampling defaults: %+v", cfg)
	}
	if cfg.NERModelName != "pacovalentino/Text2NER" {
		t.Fatalf("unexpected ner model %q", cfg.NERModelName)
	}
	if cfg.PersistenceEnabled || cfg.WorkerEnabled {
		t.Fatal("expected optional subsystems disabled by default")
	}
	if cfg.LLMTimeout != 0 {
		t.Fatalf("LLM calls should only be bounded by the caller, got %v", cfg.LLMTimeout)
	}
	if cfg.ClaimTimeout != 10*time.Minute {
		t.Fatalf("unexpected claim timeout %v", cfg.ClaimTimeout)
	}
	if cfg.DLPRulesPath != "" || cfg.TerminologyPath != "" {
		t.Fatal("expected built-in masking rules and catalog by default")
	}
}

func TestLoadWithLookupResourcePaths(t *testing.T) {
	values := map[string]string{
		"DLP_RULES_PATH":           "/etc/clinextract/dlp.yaml",
		"TERMINOLOGY_PATH":         "/etc/clinextract/terminology.yaml",
		"EXTRACTION_CLAIM_TIMEOUT": "90s",
	}
	cfg := LoadWithLookup(func(key string) string { return values[key] })

	if cfg.DLPRulesPath != "/etc/clinextract/dlp.yaml" {
		t.Fatalf("unexpected dlp path %q", cfg.DLPRulesPath)
	}
	if cfg.TerminologyPath != "/etc/clinextract/terminology.yaml" {
		t.Fatalf("unexpected terminology path %q", cfg.TerminologyPath)
	}
	if cfg.ClaimTimeout != 90*time.Second {
		t.Fatalf("unexpected claim timeout %v", cfg.ClaimTimeout)
	}
}

func TestLoadWithLookupOverrides(t *testing.T) {
	values := map[string]string{
		"NVIDIA_API_KEY":    "nv-key",
		"KAFKA_BROKERS":     "k1:9092, k2:9092",
		"LLM_TIMEOUT":       "5s",
		"NER_LOAD_ATTEMPTS": "not-a-number",
		"WORKER_ENABLED":    "true",
		"LLM_TOP_P":         "0.5",
	}
	cfg := LoadWithLookup(func(key string) string { return values[key] })

	if cfg.LLMAPIKey != "nv-key" {
		t.Fatalf("expected NVIDIA_API_KEY fallback, got %q", cfg.LLMAPIKey)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.LLMTimeout != 5*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.LLMTimeout)
	}
	if cfg.NERLoadAttempts != 3 {
		t.Fatalf("invalid int should keep default, got %d", cfg.NERLoadAttempts)
	}
	if !cfg.WorkerEnabled {
		t.Fatal("expected worker enabled")
	}
	if cfg.LLMTopP != 0.5 {
		t.Fatalf("unexpected top_p %v", cfg.LLMTopP)
	}
}

func TestLLMAPIKeyPrefersExplicitKey(t *testing.T) {
	values := map[string]string{"LLM_API_KEY": "primary", "NVIDIA_API_KEY": "secondary"}
	cfg := LoadWithLookup(func(key string) string { return values[key] })
	if cfg.LLMAPIKey != "primary" {
		t.Fatalf("expected primary key, got %q", cfg.LLMAPIKey)
	}
}
