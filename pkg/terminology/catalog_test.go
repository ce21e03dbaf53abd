package terminology

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/synaptica-ai/clinextract/pkg/clinical"
)

func TestAnnotateCodesPopulatedVitals(t *testing.T) {
	fs := clinical.FieldSet{FirstName: "Mario", HeartRate: "120 bpm", BloodPressure: "140/85 mmHg"}
	codings := DefaultCatalog().Annotate(fs)

	if len(codings) != 2 {
		t.Fatalf("expected 2 codings, got %+v", codings)
	}
	if codings[0].Field != clinical.FieldHeartRate || codings[0].LOINC != "8867-4" || codings[0].Value != "120 bpm" {
		t.Fatalf("unexpected heart rate coding %+v", codings[0])
	}
	if codings[1].Field != clinical.FieldBloodPressure || codings[1].Unit != "mm[Hg]" {
		t.Fatalf("unexpected blood pressure coding %+v", codings[1])
	}

	if got := DefaultCatalog().Annotate(clinical.FieldSet{}); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil codings, got %#v", got)
	}
}

func TestLoadValidatesFields(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(good, []byte("concepts:\n  temperature:\n    display: Temp\n    loinc: 8310-5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cat, err := Load(good)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c, ok := cat.Lookup("Temperature"); !ok || c.LOINC != "8310-5" {
		t.Fatalf("unexpected lookup %+v %v", c, ok)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("concepts:\n  pulse:\n    display: Pulse\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatal("expected error for unknown field")
	}
}
