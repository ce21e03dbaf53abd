package ner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/synaptica-ai/clinextract/pkg/clinical"
)

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("Paziente vigile. Ok! FC 80 bpm: PA 120/80? fine")
	want := []string{"Paziente vigile.", "FC 80 bpm.", "PA 120/80.", "fine."}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sentence %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSplitSentencesNeverReturnsBlank(t *testing.T) {
	for _, input := range []string{"", "   ", ". . .", "a. b. c.", "\n\t"} {
		for _, s := range SplitSentences(input) {
			if strings.TrimSpace(s) == "" {
				t.Fatalf("blank sentence from %q", input)
			}
		}
	}
}

func TestGroupEntitiesKeepsFirstSeenOrder(t *testing.T) {
	groups := GroupEntities([]Entity{
		{Text: "vigile", Label: "COSCIENZA"},
		{Text: "pallido", Label: "CUTE"},
		{Text: "vigile", Label: "COSCIENZA"},
		{Text: "orientato", Label: "COSCIENZA"},
		{Text: " ", Label: "CUTE"},
	})
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Label != "COSCIENZA" || strings.Join(groups[0].Texts, "|") != "vigile|orientato" {
		t.Fatalf("unexpected first group %+v", groups[0])
	}
	if groups[1].Label != "CUTE" || len(groups[1].Texts) != 1 {
		t.Fatalf("unexpected second group %+v", groups[1])
	}
}

func TestLabelMapApply(t *testing.T) {
	labels, err := NewLabelMap(DefaultLabels())
	if err != nil {
		t.Fatalf("default labels: %v", err)
	}

	fs, unmapped := labels.Apply([]EntityGroup{
		{Label: "NOME_COGNOME", Texts: []string{"Anna Maria Bianchi", "Luca Verdi"}},
		{Label: "PUPILLE_TIPO_DX", Texts: []string{"isocoriche"}},
		{Label: "pupille_reattivita", Texts: []string{"reagenti"}},
		{Label: "PA_MMHG", Texts: []string{"130 /", "80"}},
		{Label: "TEMPERATURA", Texts: []string{"36. 8 gradi"}},
		{Label: "COLORE_OCCHI", Texts: []string{"verdi"}},
	})

	if fs.FirstName != "Anna" || fs.LastName != "Maria Bianchi" {
		t.Fatalf("unexpected name split %q %q", fs.FirstName, fs.LastName)
	}
	if fs.PupilsState != "isocoriche, reagenti" {
		t.Fatalf("expected joined pupils, got %q", fs.PupilsState)
	}
	if fs.BloodPressure != "130/80 mmHg" {
		t.Fatalf("expected joined span pressure, got %q", fs.BloodPressure)
	}
	if fs.Temperature != "36.8°C" {
		t.Fatalf("expected 36.8°C, got %q", fs.Temperature)
	}
	if len(unmapped) != 1 || unmapped[0] != "COLORE_OCCHI" {
		t.Fatalf("expected COLORE_OCCHI unmapped, got %v", unmapped)
	}
}

func TestNewLabelMapRejectsBadMappings(t *testing.T) {
	cases := []LabelMapping{
		{Label: "X", Field: "shoe_size", Fold: FoldJoin},
		{Label: "X", Field: clinical.FieldHistory, Fold: "sum"},
		{Label: "X", Field: clinical.FieldHistory, Fold: FoldUnits},
	}
	for _, mapping := range cases {
		if _, err := NewLabelMap(LabelsConfig{Labels: []LabelMapping{mapping}}); err == nil {
			t.Fatalf("expected error for %+v", mapping)
		}
	}
}

func TestLoadLabelsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.yaml")
	content := "labels:\n  - label: PRESSIONE\n    field: blood_pressure\n    fold: units\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write labels: %v", err)
	}

	labels, err := LoadLabelMap(path)
	if err != nil {
		t.Fatalf("load labels: %v", err)
	}
	mapping, ok := labels.Lookup("pressione")
	if !ok || mapping.Field != clinical.FieldBloodPressure {
		t.Fatalf("expected PRESSIONE mapping, got %+v %v", mapping, ok)
	}
	if _, ok := labels.Lookup("NOME_COGNOME"); ok {
		t.Fatal("file labels should replace the defaults")
	}
}

func TestLoadRulesMissingFileFallsBack(t *testing.T) {
	cfg, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected read error")
	}
	if len(cfg.Rules) != len(DefaultRules().Rules) {
		t.Fatalf("expected default rules, got %d", len(cfg.Rules))
	}
}

func TestDefaultRulesCompile(t *testing.T) {
	classifier, err := NewRuleClassifier(DefaultRules())
	if err != nil {
		t.Fatalf("compile default rules: %v", err)
	}
	if err := classifier.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	labels, err := NewLabelMap(DefaultLabels())
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	for _, rule := range DefaultRules().Rules {
		if _, ok := labels.Lookup(rule.Label); !ok {
			t.Fatalf("rule %s emits unmapped label %s", rule.Name, rule.Label)
		}
	}
}

func TestRuleClassifierCapturesGroup(t *testing.T) {
	classifier, err := NewRuleClassifier(RulesConfig{Rules: []Rule{
		{Name: "triage", Label: "CODICE_USCITA", Pattern: `codice (\w+)`, Enabled: true},
		{Name: "off", Label: "CUTE", Pattern: `codice`, Enabled: false},
	}})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	entities, err := classifier.Classify(context.Background(), "Dimesso in codice verde.")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(entities) != 1 || entities[0].Text != "verde" || entities[0].Label != "CODICE_USCITA" {
		t.Fatalf("unexpected entities %+v", entities)
	}
}

func newRuleBackend(t *testing.T) *Backend {
	t.Helper()
	classifier, err := NewRuleClassifier(DefaultRules())
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	labels, err := NewLabelMap(DefaultLabels())
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	return NewBackend(classifier, labels, Options{Model: "rules-it"})
}

func TestBackendExtractScenario(t *testing.T) {
	backend := newRuleBackend(t)
	if err := backend.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	text := "Il paziente Mario Rossi, 45 anni, FC 120 bpm, PA 140/85, SpO2 95%"
	outcome := backend.Extract(context.Background(), text, "")
	if outcome.Kind != clinical.OutcomeSuccess {
		t.Fatalf("expected success, got %s (%s)", outcome.Kind, outcome.Reason)
	}

	data := outcome.Result.ExtractedData
	checks := map[string]string{
		clinical.FieldFirstName:     "Mario",
		clinical.FieldLastName:      "Rossi",
		clinical.FieldAge:           "45",
		clinical.FieldHeartRate:     "120 bpm",
		clinical.FieldBloodPressure: "140/85 mmHg",
		clinical.FieldOxygenation:   "95%",
	}
	for field, want := range checks {
		if got := data.Get(field); got != want {
			t.Fatalf("%s: expected %q, got %q", field, want, got)
		}
	}
	if outcome.Result.ExtractionMethod != clinical.ResultMethodNER {
		t.Fatalf("expected ner method, got %q", outcome.Result.ExtractionMethod)
	}
	if outcome.Result.EntitiesFound != 5 {
		t.Fatalf("expected 5 entities, got %d", outcome.Result.EntitiesFound)
	}
	if outcome.Result.SentencesProcessed != 1 {
		t.Fatalf("expected 1 sentence, got %d", outcome.Result.SentencesProcessed)
	}
	if len(outcome.Result.ValidationErrors) != 0 {
		t.Fatalf("unexpected validation errors %v", outcome.Result.ValidationErrors)
	}
}

func TestBackendCheckupModeFiltersFields(t *testing.T) {
	backend := newRuleBackend(t)
	if err := backend.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	outcome := backend.Extract(context.Background(), "Il paziente Mario Rossi, 45 anni, FC 120 bpm.", clinical.UsageModeCheckup)
	if outcome.Result.ExtractedData.Age != "" {
		t.Fatalf("age should be filtered in checkup mode, got %q", outcome.Result.ExtractedData.Age)
	}
	if outcome.Result.ExtractedData.HeartRate != "120 bpm" {
		t.Fatalf("heart rate should survive checkup mode, got %q", outcome.Result.ExtractedData.HeartRate)
	}
}

type failingClassifier struct {
	loads int
}

func (f *failingClassifier) Name() string { return "broken" }

func (f *failingClassifier) Load(context.Context) error {
	f.loads++
	return errors.New("weights not found")
}

func (f *failingClassifier) Classify(context.Context, string) ([]Entity, error) {
	return nil, errors.New("not loaded")
}

func TestBackendUnavailableFallsBack(t *testing.T) {
	classifier := &failingClassifier{}
	labels, _ := NewLabelMap(DefaultLabels())
	backend := NewBackend(classifier, labels, Options{Model: "broken-model", LoadAttempts: 2, RetryDelay: time.Millisecond})

	if err := backend.Init(context.Background()); err == nil {
		t.Fatal("expected init error")
	}
	if err := backend.Init(context.Background()); err == nil {
		t.Fatal("expected the load error to persist")
	}
	if classifier.loads != 2 {
		t.Fatalf("expected 2 load attempts in total, got %d", classifier.loads)
	}
	if backend.State() != StateUnavailable {
		t.Fatalf("expected unavailable, got %s", backend.State())
	}

	outcome := backend.Extract(context.Background(), "Paziente vigile.", "")
	if outcome.Kind != clinical.OutcomeFallback {
		t.Fatalf("expected fallback, got %s", outcome.Kind)
	}
	if outcome.Reason != NotLoadedWarning || outcome.Model != "broken-model" {
		t.Fatalf("unexpected fallback %+v", outcome)
	}

	status := backend.Status(context.Background())
	if status.Available || status.State != "unavailable" || status.Error == "" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestBackendBeforeInitFallsBack(t *testing.T) {
	backend := newRuleBackend(t)
	if outcome := backend.Extract(context.Background(), "Paziente vigile.", ""); outcome.Kind != clinical.OutcomeFallback {
		t.Fatalf("expected fallback before init, got %s", outcome.Kind)
	}
}

func TestInferenceClassifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req inferenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Parameters["aggregation_strategy"] != "simple" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"entity_group": "NOME_COGNOME", "word": "Mario Rossi", "score": 0.98, "start": 12, "end": 23},
			{"entity": "B-SpO2", "word": "91%", "score": 0.91, "start": 59, "end": 62}
		]`))
	}))
	defer server.Close()

	classifier := NewInferenceClassifier(server.URL, "secret", "pacovalentino/Text2NER", 5*time.Second)
	if err := classifier.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	entities, err := classifier.Classify(context.Background(), ProbeSentence)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}
	if entities[1].Label != "SpO2" {
		t.Fatalf("expected B- prefix stripped, got %q", entities[1].Label)
	}

	unauthorized := NewInferenceClassifier(server.URL, "wrong", "m", time.Second)
	if err := unauthorized.Load(context.Background()); err == nil {
		t.Fatal("expected unauthorized load to fail")
	}
}
