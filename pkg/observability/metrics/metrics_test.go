package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestObserveExtraction(t *testing.T) {
	Reset()
	ObserveExtraction("llm", false, 2)
	ObserveExtraction("ner", true, 0)
	ObserveExtraction("svm", true, 0)

	snap := Snapshot()
	if snap["extractions_llm"] != 1 || snap["extractions_ner"] != 1 || snap["extractions_rejected"] != 1 {
		t.Fatalf("unexpected per-method counts %v", snap)
	}
	if snap["extractions_degraded"] != 2 {
		t.Fatalf("expected 2 degraded, got %d", snap["extractions_degraded"])
	}
	if snap["validation_issues"] != 2 {
		t.Fatalf("expected 2 issues, got %d", snap["validation_issues"])
	}
}

func TestWritePrometheus(t *testing.T) {
	Reset()
	ObserveExtraction("ner", false, 0)
	ObserveComparison(62.5)
	ObserveEventDeadLettered()

	rec := httptest.NewRecorder()
	WritePrometheus(rec)
	body := rec.Body.String()

	for _, want := range []string{
		`clinextract_extractions_total{method="ner"} 1`,
		"clinextract_comparisons_total 1",
		"clinextract_comparison_last_similarity_percent 62.500",
		`clinextract_pipeline_events_total{outcome="dead_lettered"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in output:\n%s", want, body)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
}
