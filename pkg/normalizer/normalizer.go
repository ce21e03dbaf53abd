// Package normalizer canonicalizes extracted clinical values. Both extraction
// backends run their raw field sets through Normalize so that vital signs,
// dates, gender and triage codes share one representation.
package normalizer

import (
	"strings"

	"github.com/synaptica-ai/clinextract/pkg/clinical"
)

// Func canonicalizes one raw value. parsed=false marks a value that was
// defaulted or passed through rather than recognised.
type Func func(raw string) (canonical string, parsed bool)

var fieldFuncs = map[string]Func{
	clinical.FieldHeartRate:     HeartRate,
	clinical.FieldOxygenation:   Oxygenation,
	clinical.FieldTemperature:   Temperature,
	clinical.FieldBloodGlucose:  BloodGlucose,
	clinical.FieldBloodPressure: BloodPressure,
	clinical.FieldGender:        Gender,
	clinical.FieldBirthDate:     BirthDate,
	clinical.FieldTriageCode:    Triage,
	clinical.FieldAge:           Age,
}

var unitFields = map[string]struct{}{
	clinical.FieldHeartRate:     {},
	clinical.FieldOxygenation:   {},
	clinical.FieldTemperature:   {},
	clinical.FieldBloodGlucose:  {},
	clinical.FieldBloodPressure: {},
}

var nullTokens = map[string]struct{}{
	"unknown":         {},
	"na":              {},
	"n/a":             {},
	"null":            {},
	"none":            {},
	"sconosciuto":     {},
	"non specificato": {},
	"non noto":        {},
}

// checkupFields are the only fields a Checkup visit may populate.
var checkupFields = map[string]struct{}{
	clinical.FieldFirstName:        {},
	clinical.FieldLastName:         {},
	clinical.FieldMedicationsTaken: {},
	clinical.FieldHeartRate:        {},
	clinical.FieldOxygenation:      {},
	clinical.FieldBloodPressure:    {},
	clinical.FieldTemperature:      {},
	clinical.FieldBloodGlucose:     {},
	clinical.FieldMedicalActions:   {},
	clinical.FieldAssessment:       {},
	clinical.FieldPlan:             {},
	clinical.FieldSymptoms:         {},
}

// Report collects what Normalize could not recognise.
type Report struct {
	Unparsed []string
}

// IsUnitField reports whether the field carries a unit of measurement.
func IsUnitField(field string) bool {
	_, ok := unitFields[field]
	return ok
}

// IsNull reports whether raw is one of the placeholder tokens models emit
// for "not mentioned".
func IsNull(raw string) bool {
	_, ok := nullTokens[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// Normalize trims and canonicalizes every field, then applies the usage-mode
// filter as its final step.
func Normalize(fs clinical.FieldSet, mode clinical.UsageMode) (clinical.FieldSet, Report) {
	var report Report
	out := fs
	out.Each(func(name string, value *string) {
		v := strings.TrimSpace(*value)
		if v == "" || IsNull(v) {
			*value = ""
			return
		}
		if fn, ok := fieldFuncs[name]; ok {
			canonical, parsed := fn(v)
			if !parsed {
				report.Unparsed = append(report.Unparsed, name)
			}
			v = canonical
		}
		*value = v
	})

	if mode.Restricted() {
		out = FilterForMode(out, mode)
		kept := report.Unparsed[:0]
		for _, name := range report.Unparsed {
			if _, ok := checkupFields[name]; ok {
				kept = append(kept, name)
			}
		}
		report.Unparsed = kept
	}
	if len(report.Unparsed) == 0 {
		report.Unparsed = nil
	}
	return out, report
}

// FilterForMode zeroes every field the mode does not allow.
func FilterForMode(fs clinical.FieldSet, mode clinical.UsageMode) clinical.FieldSet {
	if !mode.Restricted() {
		return fs
	}
	fs.Each(func(name string, value *string) {
		if _, ok := checkupFields[name]; !ok {
			*value = ""
		}
	})
	return fs
}

// FromSpans picks the first span that canonicalizes for a unit-bearing
// field. Spans are tried one by one, then joined, so a value the tokenizer
// split across two spans can still be recovered.
func FromSpans(field string, spans []string) string {
	fn, ok := fieldFuncs[field]
	if !ok {
		return ""
	}
	for _, span := range spans {
		if out, parsed := fn(span); parsed {
			return out
		}
	}
	if len(spans) > 1 {
		if out, parsed := fn(strings.Join(spans, " ")); parsed {
			return out
		}
	}
	return ""
}
