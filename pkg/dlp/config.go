package dlp

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Rule struct {
	Name    string `yaml:"name" json:"name"`
	Type    string `yaml:"type" json:"type"`
	Pattern string `yaml:"pattern" json:"pattern"`
	Mask    string `yaml:"mask" json:"mask"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

type RulesConfig struct {
	Rules []Rule `yaml:"rules" json:"rules"`
}

func LoadRules(path string) (RulesConfig, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultRules(), err
	}

	var cfg RulesConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return RulesConfig{}, err
	}
	if len(cfg.Rules) == 0 {
		return RulesConfig{}, errors.New("no DLP rules configured")
	}
	return cfg, nil
}

// DefaultRules masks the identifiers that show up in Italian transcripts.
// Rules run in order, so the fiscal code goes before anything numeric.
func DefaultRules() RulesConfig {
	return RulesConfig{Rules: []Rule{
		{Name: "Codice fiscale", Type: "fiscal_code", Pattern: `(?i)\b[A-Z]{6}\d{2}[A-EHLMPR-T]\d{2}[A-Z]\d{3}[A-Z]\b`, Mask: "[CF]", Enabled: true},
		{Name: "Email", Type: "email", Pattern: `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`, Mask: "[EMAIL]", Enabled: true},
		{Name: "Mobile", Type: "phone", Pattern: `(?:\+39[\s.]?)?\b3\d{2}[\s.-]?\d{3}[\s.-]?\d{3,4}\b`, Mask: "[TEL]", Enabled: true},
		{Name: "Landline", Type: "phone", Pattern: `(?:\+39[\s.]?)?\b0\d{1,3}[\s.-]?\d{5,8}\b`, Mask: "[TEL]", Enabled: true},
		{Name: "Date", Type: "date", Pattern: `\b\d{1,2}[/.-]\d{1,2}[/.-]\d{4}\b`, Mask: "[DATA]", Enabled: true},
	}}
}
