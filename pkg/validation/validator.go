package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/synaptica-ai/clinextract/pkg/clinical"
)

// Mode controls how far the validator trusts extracted values.
type Mode int

const (
	// Lenient checks shape and ranges only.
	Lenient Mode = iota
	// Strict additionally requires names, ages and temperatures to appear
	// verbatim in the transcript, catching generated values that were never said.
	Strict
)

const (
	minNameLength  = 2
	ageMin         = 0
	ageMax         = 130
	temperatureMin = 0.0
	temperatureMax = 50.0
)

type Validator struct {
	mode Mode
}

func NewValidator(mode Mode) *Validator {
	return &Validator{mode: mode}
}

// Validate returns de-duplicated "<field>: <reason>" messages in the order
// they were found. It never fails; an empty slice means no concerns.
func (v *Validator) Validate(fs clinical.FieldSet, transcript string) []string {
	mode := Lenient
	if v != nil {
		mode = v.mode
	}
	issues := newIssueList()
	text := strings.ToLower(transcript)

	checkName(issues, clinical.FieldFirstName, fs.FirstName, text, mode)
	checkName(issues, clinical.FieldLastName, fs.LastName, text, mode)

	if age := strings.TrimSpace(fs.Age); age != "" {
		n, err := strconv.Atoi(age)
		switch {
		case err != nil:
			issues.add(clinical.FieldAge, "not a number")
		case n < ageMin || n > ageMax:
			issues.add(clinical.FieldAge, fmt.Sprintf("outside range %d-%d", ageMin, ageMax))
		case !strings.Contains(text, age):
			issues.add(clinical.FieldAge, "not found in transcript")
		}
	}

	if temp := strings.TrimSpace(fs.Temperature); temp != "" {
		value, err := parseTemperature(temp)
		switch {
		case err != nil:
			issues.add(clinical.FieldTemperature, "invalid format")
		case value < temperatureMin || value > temperatureMax:
			issues.add(clinical.FieldTemperature, fmt.Sprintf("outside range %.0f-%.0f°C", temperatureMin, temperatureMax))
		case mode == Strict && !strings.Contains(text, strconv.Itoa(int(value))):
			issues.add(clinical.FieldTemperature, "not found in transcript")
		}
	}

	if code := strings.TrimSpace(fs.TriageCode); code != "" && !clinical.TriageCode(code).Valid() {
		issues.add(clinical.FieldTriageCode, "not a known triage code")
	}

	return issues.list()
}

func checkName(issues *issueList, field, value, text string, mode Mode) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if len([]rune(value)) < minNameLength {
		issues.add(field, "too short")
		return
	}
	if mode == Strict && !strings.Contains(text, strings.ToLower(value)) {
		issues.add(field, "not found in transcript")
	}
}

func parseTemperature(value string) (float64, error) {
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "°C"))
	value = strings.Replace(value, ",", ".", 1)
	return strconv.ParseFloat(value, 64)
}

type issueList struct {
	seen  map[string]struct{}
	items []string
}

func newIssueList() *issueList {
	return &issueList{seen: make(map[string]struct{})}
}

func (l *issueList) add(field, reason string) {
	msg := field + ": " + reason
	if _, dup := l.seen[msg]; dup {
		return
	}
	l.seen[msg] = struct{}{}
	l.items = append(l.items, msg)
}

func (l *issueList) list() []string {
	if len(l.items) == 0 {
		return []string{}
	}
	return l.items
}
