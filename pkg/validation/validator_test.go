package validation

import (
	"testing"

	"github.com/synaptica-ai/clinextract/pkg/clinical"
)

const transcript = "Il paziente Mario Rossi, 45 anni, temperatura 36.8 gradi."

func TestValidateCleanRecord(t *testing.T) {
	fs := clinical.FieldSet{FirstName: "Mario", LastName: "Rossi", Age: "45", Temperature: "36.8°C", TriageCode: "green"}
	for _, mode := range []Mode{Lenient, Strict} {
		if issues := NewValidator(mode).Validate(fs, transcript); len(issues) != 0 {
			t.Fatalf("mode %d: expected no issues, got %v", mode, issues)
		}
	}
}

func TestValidateShortNames(t *testing.T) {
	fs := clinical.FieldSet{FirstName: "M", LastName: "R"}
	issues := NewValidator(Lenient).Validate(fs, transcript)
	if len(issues) != 2 || issues[0] != "first_name: too short" || issues[1] != "last_name: too short" {
		t.Fatalf("unexpected issues %v", issues)
	}
}

func TestStrictFlagsValuesMissingFromTranscript(t *testing.T) {
	fs := clinical.FieldSet{FirstName: "Luigi", LastName: "rossi", Temperature: "39°C"}

	lenient := NewValidator(Lenient).Validate(fs, transcript)
	if len(lenient) != 0 {
		t.Fatalf("lenient mode must not check presence, got %v", lenient)
	}

	strict := NewValidator(Strict).Validate(fs, transcript)
	want := []string{"first_name: not found in transcript", "temperature: not found in transcript"}
	if len(strict) != len(want) {
		t.Fatalf("expected %v, got %v", want, strict)
	}
	for i := range want {
		if strict[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, strict)
		}
	}
}

func TestValidateAgeAndTemperatureRanges(t *testing.T) {
	fs := clinical.FieldSet{Age: "140", Temperature: "55°C"}
	issues := NewValidator(Lenient).Validate(fs, "età 140, temperatura 55")
	if len(issues) != 2 {
		t.Fatalf("expected two range issues, got %v", issues)
	}

	fs = clinical.FieldSet{Age: "52"}
	issues = NewValidator(Lenient).Validate(fs, transcript)
	if len(issues) != 1 || issues[0] != "age: not found in transcript" {
		t.Fatalf("expected missing age, got %v", issues)
	}

	fs = clinical.FieldSet{Temperature: "calda"}
	issues = NewValidator(Lenient).Validate(fs, transcript)
	if len(issues) != 1 || issues[0] != "temperature: invalid format" {
		t.Fatalf("expected invalid temperature, got %v", issues)
	}
}

func TestValidateNeverReturnsNil(t *testing.T) {
	var v *Validator
	issues := v.Validate(clinical.FieldSet{}, "")
	if issues == nil || len(issues) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", issues)
	}
}
