package ner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// Rule tags the first capture group of Pattern (or the whole match) with Label.
type Rule struct {
	Name    string `yaml:"name" json:"name"`
	Label   string `yaml:"label" json:"label"`
	Pattern string `yaml:"pattern" json:"pattern"`
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
		return RulesConfig{}, errors.New("no NER rules configured")
	}

	return cfg, nil
}

// DefaultRules is a small Italian emergency-medicine vocabulary emitting the
// same labels as the Text2NER model.
func DefaultRules() RulesConfig {
	r := func(name, label, pattern string) Rule {
		return Rule{Name: name, Label: label, Pattern: pattern, Enabled: true}
	}
	return RulesConfig{Rules: []Rule{
		r("patient-name", "NOME_COGNOME", `(?:[Pp]aziente|[Ss]ignor[ae]?|[Ss]ig\.(?:ra)?|[Nn]ome)\s+(\p{Lu}\p{Ll}+(?:\s+\p{Lu}\p{Ll}+)+)`),
		r("sex", "SESSO", `(?i)\b(maschio|femmina|uomo|donna)\b`),
		r("birth-date", "DATA_NASCITA", `(?i)\bnat[oa]\s+(?:a\s+\p{L}+\s+)?il\s+(\d{1,2}(?:[/.\-]\d{1,2}[/.\-]\d{2,4}|\s+\p{L}+\s+\d{4}))`),
		r("birth-place", "LUOGO_NASCITA", `[Nn]at[oa]\s+a\s+(\p{Lu}\p{Ll}+(?:\s+\p{Lu}\p{Ll}+)*)`),
		r("fiscal-code", "CODICE_FISCALE", `\b([A-Z]{6}\d{2}[A-Z]\d{2}[A-Z]\d{3}[A-Z])\b`),
		r("residence-city", "COMUNE_RESIDENZA", `[Rr]esidente\s+a\s+(\p{Lu}\p{Ll}+(?:\s+\p{Lu}\p{Ll}+)*)`),
		r("residence-street", "VIA_RESIDENZA", `\b((?:[Vv]ia|[Vv]iale|[Pp]iazza|[Cc]orso)\s+[\p{L}' ]+?\s*\d+)`),
		r("phone", "TELEFONO", `((?:\+39\s?)?3\d{2}[\s.\-]?\d{3}[\s.\-]?\d{3,4})\b`),
		r("age", "ETA", `\b(\d{1,3}\s+anni)\b`),
		r("access-mode", "MODALITA_ACCESSO", `(?i)\b(ambulanza|mezzi propri|elisoccorso|automedica)\b`),
		r("heart-rate", "FC_BPM", `(?i)\b((?:fc|frequenza cardiaca)\s*:?\s*\d{2,3}(?:\s*(?:bpm|battiti))?|\d{2,3}\s*(?:bpm|battiti))`),
		r("saturation", "SpO2", `(?i)\b((?:spo2|saturazione)\s*:?\s*\d{2,3}\s*%?|\d{2,3}\s*%)`),
		r("blood-pressure", "PA_MMHG", `(?i)\b((?:pa|pressione(?:\s+arteriosa)?)\s*:?\s*\d{2,3}\s*(?:/|-|su)\s*\d{2,3}(?:\s*mmhg)?)`),
		r("temperature", "TEMPERATURA", `(?i)\b((?:temperatura|tc)\s*:?\s*\d{2}(?:\s*[.,]\s*\d)?(?:\s*(?:°c?|gradi))?|\d{2}(?:[.,]\d)?\s*(?:°c?|gradi))`),
		r("glucose", "GLICEMIA", `(?i)\b((?:glicemia|hgt|glucosio)\s*:?\s*\d{1,3}(?:[.,]\d+)?(?:\s*(?:mg/dl|mmol/l))?)`),
		r("skin", "CUTE", `(?i)\b(cute\s+\p{L}+|pallid[oa]|sudat[oa]|cianotic[oa])\b`),
		r("consciousness", "COSCIENZA", `(?i)\b(vigile|cosciente|incosciente|soporos[oa]|confus[oa]|orientat[oa]|disorientat[oa])\b`),
		r("pupils", "PUPILLE_REATTIVITA", `(?i)\b(pupille\s+(?:isocoriche|anisocoriche|reagenti|miotiche|midriatiche)(?:\s+e\s+\p{L}+)?)`),
		r("breathing", "RESPIRO", `(?i)\b(eupnoic[oa]|dispnoic[oa]|tachipnoic[oa]|bradipnoic[oa]|apnoic[oa])\b`),
		r("history", "ANAMNESI", `(?i)\b(?:anamnesi|in anamnesi)\s*:?\s+([^.;]+)`),
		r("medication", "MEDICINA", `(?i)\b(cardioaspirina|aspirina|paracetamolo|ibuprofene|warfarin|metformina|insulina|morfina|adrenalina|ramipril|bisoprololo)\b`),
		r("allergy", "ALLERGIA", `(?i)\ballergic[oa]\s+(?:(?:alla|alle|agli|al|ai|a)\s+)?(\p{L}+)`),
		r("symptom", "CONDIZIONE_RIFERITA", `(?i)\b(dolore\s+(?:toracico|addominale|al petto|alla testa)|cefalea|nausea|vomito|febbre|vertigini|dispnea|tosse|sincope)\b`),
		r("airway-actions", "PROVVEDIMENTI_RESPIRO", `(?i)\b(ossigenoterapia|intubazione|ventilazione)\b`),
		r("circulation-actions", "PROVVEDIMENTI_CIRCOLO", `(?i)\b(accesso venoso|massaggio cardiaco|defibrillazione)\b`),
		r("immobilization", "PROVVEDIMENTI_IMMOBILIZZAZIONE", `(?i)\b(collare cervicale|tavola spinale|steccobenda)\b`),
		r("diagnosis", "DIAGNOSI", `(?i)\b(?:diagnosi|sospett[oa])\s*:?\s+(?:di\s+)?([^.;,]+)`),
		r("plan", "TRATTAMENTO", `(?i)\b(?:si\s+dispone|piano)\s*:?\s+([^.;]+)`),
		r("triage", "CODICE_USCITA", `(?i)\bcodice\s+(bianco|verde|giallo|rosso|nero|arancione|azzurro)\b`),
	}}
}

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// RuleClassifier is a local TokenClassifier driven by regular expressions.
// It needs no model download, so it also serves as the offline engine.
type RuleClassifier struct {
	rules []compiledRule
}

func NewRuleClassifier(cfg RulesConfig) (*RuleClassifier, error) {
	var compiled []compiledRule
	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}
	return &RuleClassifier{rules: compiled}, nil
}

func (c *RuleClassifier) Name() string {
	return "rules"
}

func (c *RuleClassifier) Load(context.Context) error {
	if c == nil || len(c.rules) == 0 {
		return errors.New("no NER rules enabled")
	}
	return nil
}

func (c *RuleClassifier) Classify(_ context.Context, sentence string) ([]Entity, error) {
	var entities []Entity
	for _, cr := range c.rules {
		for _, loc := range cr.re.FindAllStringSubmatchIndex(sentence, -1) {
			start, end := loc[0], loc[1]
			if len(loc) >= 4 && loc[2] >= 0 {
				start, end = loc[2], loc[3]
			}
			entities = append(entities, Entity{
				Text:  sentence[start:end],
				Label: cr.rule.Label,
				Score: 1,
				Start: start,
				End:   end,
			})
		}
	}
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].Start < entities[j].Start
	})
	return entities, nil
}
