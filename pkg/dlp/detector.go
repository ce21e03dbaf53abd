// Package dlp masks personal identifiers in text that leaves the process
// through logs or dead-letter events.
package dlp

import (
	"regexp"
	"sort"
)

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// Finding is one identifier located in a text.
type Finding struct {
	Type  string `json:"type"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type Detector struct {
	rules []compiledRule
}

func NewDetector(cfg RulesConfig) (*Detector, error) {
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
	return &Detector{rules: compiled}, nil
}

var defaultDetector, _ = NewDetector(DefaultRules())

// Default returns a detector for DefaultRules.
func Default() *Detector {
	return defaultDetector
}

// Find lists identifiers by position. Overlapping matches from later rules
// are dropped.
func (d *Detector) Find(text string) []Finding {
	if d == nil {
		return nil
	}
	var out []Finding
	for _, rule := range d.rules {
		for _, m := range rule.re.FindAllStringIndex(text, -1) {
			if overlaps(out, m[0], m[1]) {
				continue
			}
			out = append(out, Finding{Type: rule.rule.Type, Start: m[0], End: m[1]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func overlaps(found []Finding, start, end int) bool {
	for _, f := range found {
		if start < f.End && f.Start < end {
			return true
		}
	}
	return false
}

// Redact replaces every identifier with its rule's mask.
func (d *Detector) Redact(text string) string {
	if d == nil {
		return text
	}
	for _, rule := range d.rules {
		text = rule.re.ReplaceAllString(text, rule.rule.Mask)
	}
	return text
}

// Preview redacts text and truncates it to at most limit runes.
func (d *Detector) Preview(text string, limit int) string {
	runes := []rune(d.Redact(text))
	if limit > 0 && len(runes) > limit {
		return string(runes[:limit]) + "…"
	}
	return string(runes)
}

// Sanitize returns a deep copy of data with every string redacted.
func (d *Detector) Sanitize(data map[string]interface{}) map[string]interface{} {
	if d == nil {
		return data
	}
	out := make(map[string]interface{}, len(data))
	for key, value := range data {
		out[key] = d.sanitizeValue(value)
	}
	return out
}

func (d *Detector) sanitizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return d.Redact(v)
	case map[string]interface{}:
		return d.Sanitize(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, nested := range v {
			out[i] = d.sanitizeValue(nested)
		}
		return out
	default:
		return value
	}
}
