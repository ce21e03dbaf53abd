package normalizer

import (
	"strconv"
	"testing"

	"github.com/synaptica-ai/clinextract/pkg/clinical"
)

func TestHeartRate(t *testing.T) {
	cases := map[string]string{
		"120 bpm":              "120 bpm",
		"FC 120 bpm":           "120 bpm",
		"80":                   "80 bpm",
		"90 battiti al minuto": "90 bpm",
		"FC: 300":              "",
		"tachicardico":         "",
		"frequenza 15 poi 72":  "72 bpm",
	}
	for in, want := range cases {
		got, _ := HeartRate(in)
		if got != want {
			t.Fatalf("HeartRate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHeartRateIdempotent(t *testing.T) {
	for v := heartRateMin; v <= heartRateMax; v++ {
		for _, in := range []string{strconv.Itoa(v), strconv.Itoa(v) + " bpm", strconv.Itoa(v) + "bpm", strconv.Itoa(v) + " battiti"} {
			first, ok := HeartRate(in)
			if !ok {
				t.Fatalf("HeartRate(%q) not parsed", in)
			}
			second, _ := HeartRate(first)
			if first != second {
				t.Fatalf("not idempotent: %q -> %q -> %q", in, first, second)
			}
		}
	}
}

func TestOxygenation(t *testing.T) {
	cases := map[string]string{
		"SpO2 95%":           "95%",
		"95":                 "95%",
		"saturazione 98 %":   "98%",
		"SpO2 40%":           "",
		"novantacinque":      "",
		"98 percento in aa.": "98%",
	}
	for in, want := range cases {
		if got, _ := Oxygenation(in); got != want {
			t.Fatalf("Oxygenation(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTemperature(t *testing.T) {
	cases := map[string]string{
		"36. 8 gradi": "36.8°C",
		"36,8":        "36.8°C",
		"37.2°C":      "37.2°C",
		"38 gradi":    "38°C",
		"TC 39, 5":    "39.5°C",
		"37, 80 bpm":  "37°C",
		"36, 8°":      "36.8°C",
		"38,25":       "38.25°C",
		"50":          "",
		"febbrile":    "",
	}
	for in, want := range cases {
		if got, _ := Temperature(in); got != want {
			t.Fatalf("Temperature(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBloodGlucose(t *testing.T) {
	cases := map[string]string{
		"110 mg/dl":       "110 mg/dl",
		"glicemia 95":     "95 mg/dl",
		"5.5 mmol/L":      "99 mg/dl",
		"6,1 mmol/l":      "110 mg/dl",
		"HGT 700":         "",
		"40 mmol/l":       "",
		"glicemia 20 mg":  "",
		"stick 250 mg/dl": "250 mg/dl",
	}
	for in, want := range cases {
		if got, _ := BloodGlucose(in); got != want {
			t.Fatalf("BloodGlucose(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBloodPressureSeparators(t *testing.T) {
	for _, in := range []string{"140/85", "140 / 85", "140-85", "140 - 85", "140 su 85", "140 over 85", "PA 140/85 mmHg", "140/85 mmHg"} {
		got, ok := BloodPressure(in)
		if !ok || got != "140/85 mmHg" {
			t.Fatalf("BloodPressure(%q) = %q, %v", in, got, ok)
		}
	}
	for _, in := range []string{"85/140", "300/100", "120/20", "120", "pressione nella norma"} {
		if got, _ := BloodPressure(in); got != "" {
			t.Fatalf("BloodPressure(%q) = %q, want empty", in, got)
		}
	}
	if got, _ := BloodPressure("sistolica 130, diastolica 80"); got != "130/80 mmHg" {
		t.Fatalf("unexpected worded pressure %q", got)
	}
}

func TestGenderTotal(t *testing.T) {
	for _, v := range maleVariants {
		if got, ok := Gender(v); got != GenderMale || !ok {
			t.Fatalf("Gender(%q) = %q", v, got)
		}
	}
	for _, v := range femaleVariants {
		if got, ok := Gender(v); got != GenderFemale || !ok {
			t.Fatalf("Gender(%q) = %q", v, got)
		}
	}
	cases := map[string]string{
		"Femmina":         GenderFemale,
		"sesso maschile":  GenderMale,
		"una woman":       GenderFemale,
		"FEMALE":          GenderFemale,
		"paziente donna.": GenderFemale,
		"boh":             GenderOther,
		"Franco":          GenderOther,
	}
	for in, want := range cases {
		if got, _ := Gender(in); got != want {
			t.Fatalf("Gender(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBirthDate(t *testing.T) {
	cases := map[string]string{
		"23/02/1990":        "1990-02-23",
		"3-2-1990":          "1990-02-03",
		"1990/02/23":        "1990-02-23",
		"1990-2-3":          "1990-02-03",
		"23.02.90":          "1990-02-23",
		"01/03/05":          "2005-03-01",
		"23 febbraio 1990":  "1990-02-23",
		"23 feb 1990":       "1990-02-23",
		"5 Sett. 1948":      "1948-09-05",
		"feb 23, 1990":      "1990-02-23",
		"  Ieri Pomeriggio": "ieri pomeriggio",
		"31/02/1990":        "31/02/1990",
	}
	for in, want := range cases {
		if got, _ := BirthDate(in); got != want {
			t.Fatalf("BirthDate(%q) = %q, want %q", in, got, want)
		}
	}
	if _, ok := BirthDate("non ricorda"); ok {
		t.Fatal("free text must be reported as unparsed")
	}
}

func TestTriage(t *testing.T) {
	cases := map[string]string{
		"codice rosso": "red",
		"Giallo":       "yellow",
		"green":        "green",
		"nero":         "black",
		"arancione":    "white",
		"bianco":       "white",
	}
	for in, want := range cases {
		if got, _ := Triage(in); got != want {
			t.Fatalf("Triage(%q) = %q, want %q", in, got, want)
		}
	}
	if _, ok := Triage("arancione"); ok {
		t.Fatal("unknown triage word must be marked unparsed")
	}
}

func TestNormalizeScrubsAndCanonicalizes(t *testing.T) {
	fs := clinical.FieldSet{
		FirstName:     "  Mario ",
		LastName:      "N/A",
		HeartRate:     "FC 120 bpm",
		BloodPressure: "140 su 85",
		Temperature:   "36. 8 gradi",
		Gender:        "uomo",
		TriageCode:    "arancione",
		History:       "sconosciuto",
		Age:           "45 anni",
	}
	out, report := Normalize(fs, "")

	if out.FirstName != "Mario" || out.LastName != "" || out.History != "" {
		t.Fatalf("unexpected scrubbed names %+v", out)
	}
	if out.HeartRate != "120 bpm" || out.BloodPressure != "140/85 mmHg" || out.Temperature != "36.8°C" {
		t.Fatalf("unexpected vitals %+v", out)
	}
	if out.Gender != "M" || out.TriageCode != "white" || out.Age != "45" {
		t.Fatalf("unexpected demographics %+v", out)
	}
	if len(report.Unparsed) != 1 || report.Unparsed[0] != clinical.FieldTriageCode {
		t.Fatalf("expected triage reported as unparsed, got %v", report.Unparsed)
	}

	again, _ := Normalize(out, "")
	if again != out {
		t.Fatalf("normalization is not idempotent:\n%+v\n%+v", out, again)
	}
}

func TestNormalizeCheckupFilter(t *testing.T) {
	fs := clinical.FieldSet{
		FirstName:  "Anna",
		FiscalCode: "RSSMRA80A01H501U",
		BirthPlace: "Roma",
		HeartRate:  "72",
		TriageCode: "viola",
		Plan:       "controllo tra 6 mesi",
	}
	out, report := Normalize(fs, clinical.UsageModeCheckup)
	if out.FiscalCode != "" || out.BirthPlace != "" || out.TriageCode != "" {
		t.Fatalf("checkup must drop non allow-listed fields: %+v", out)
	}
	if out.FirstName != "Anna" || out.HeartRate != "72 bpm" || out.Plan == "" {
		t.Fatalf("checkup must keep allow-listed fields: %+v", out)
	}
	if report.Unparsed != nil {
		t.Fatalf("filtered fields must not be reported, got %v", report.Unparsed)
	}
}

func TestFromSpans(t *testing.T) {
	if got := FromSpans(clinical.FieldTemperature, []string{"febbre", "36. 8 gradi"}); got != "36.8°C" {
		t.Fatalf("unexpected temperature %q", got)
	}
	if got := FromSpans(clinical.FieldBloodPressure, []string{"120 / 70"}); got != "120/70 mmHg" {
		t.Fatalf("unexpected pressure %q", got)
	}
	if got := FromSpans(clinical.FieldHeartRate, []string{"tachicardia"}); got != "" {
		t.Fatalf("expected empty heart rate, got %q", got)
	}
	if got := FromSpans(clinical.FieldSkinState, []string{"pallida"}); got != "" {
		t.Fatalf("fields without a canonicalizer yield nothing, got %q", got)
	}
}
