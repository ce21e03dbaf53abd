// Package engine assembles the extraction service from configuration.
package engine

import (
	"fmt"
	"strings"

	"github.com/synaptica-ai/clinextract/pkg/common/config"
	"github.com/synaptica-ai/clinextract/pkg/common/logger"
	"github.com/synaptica-ai/clinextract/pkg/dlp"
	"github.com/synaptica-ai/clinextract/pkg/extraction"
	"github.com/synaptica-ai/clinextract/pkg/llm"
	"github.com/synaptica-ai/clinextract/pkg/ner"
	"github.com/synaptica-ai/clinextract/pkg/terminology"
)

// NewClassifier picks the token classifier named by NER_ENGINE.
func NewClassifier(cfg *config.Config) (ner.TokenClassifier, error) {
	switch strings.ToLower(cfg.NEREngine) {
	case "http", "inference":
		// A missing URL fails Load, leaving the NER backend unavailable.
		return ner.NewInferenceClassifier(cfg.NERInferenceURL, cfg.NERAPIToken, cfg.NERModelName, cfg.NERTimeout), nil
	case "rules", "":
		rules, err := ner.LoadRules(cfg.NERRulesPath)
		if err != nil {
			return nil, fmt.Errorf("load NER rules: %w", err)
		}
		return ner.NewRuleClassifier(rules)
	default:
		return nil, fmt.Errorf("unknown NER engine %q", cfg.NEREngine)
	}
}

func NewNERBackend(cfg *config.Config) (*ner.Backend, error) {
	classifier, err := NewClassifier(cfg)
	if err != nil {
		return nil, err
	}
	labels, err := ner.LoadLabelMap(cfg.NERLabelsPath)
	if err != nil {
		return nil, fmt.Errorf("load NER labels: %w", err)
	}
	return ner.NewBackend(classifier, labels, ner.Options{
		Model:        cfg.NERModelName,
		LoadAttempts: cfg.NERLoadAttempts,
	}), nil
}

// NewMasker compiles the PII rules at DLP_RULES_PATH, or the built-in rules
// when unset.
func NewMasker(cfg *config.Config) (*dlp.Detector, error) {
	rules, err := dlp.LoadRules(cfg.DLPRulesPath)
	if err != nil {
		return nil, fmt.Errorf("load DLP rules: %w", err)
	}
	detector, err := dlp.NewDetector(rules)
	if err != nil {
		return nil, fmt.Errorf("compile DLP rules: %w", err)
	}
	return detector, nil
}

func NewCatalog(cfg *config.Config) (*terminology.Catalog, error) {
	catalog, err := terminology.Load(cfg.TerminologyPath)
	if err != nil {
		return nil, fmt.Errorf("load terminology: %w", err)
	}
	return &catalog, nil
}

func NewLLMBackend(cfg *config.Config, masker *dlp.Detector) *llm.Backend {
	return llm.NewBackend(nil, llm.Options{
		Provider:    cfg.LLMProvider,
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModelName,
		Temperature: cfg.LLMTemperature,
		TopP:        cfg.LLMTopP,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout,
		Masker:      masker,
	})
}

// Build wires both backends into an extraction service. Backends are not
// initialised; callers run Service.Init.
func Build(cfg *config.Config) (*extraction.Service, error) {
	nerBackend, err := NewNERBackend(cfg)
	if err != nil {
		return nil, err
	}
	masker, err := NewMasker(cfg)
	if err != nil {
		return nil, err
	}
	svc := extraction.NewService(cfg.DefaultMethod, NewLLMBackend(cfg, masker), nerBackend)

	logger.Log.WithFields(map[string]interface{}{
		"default_method": svc.DefaultMethod(),
		"ner_engine":     cfg.NEREngine,
		"llm_model":      cfg.LLMModelName,
	}).Info("extraction engine assembled")
	return svc, nil
}
