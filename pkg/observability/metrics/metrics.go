package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	extractionsLLM       atomic.Int64
	extractionsNER       atomic.Int64
	extractionsRejected  atomic.Int64
	extractionsDegraded  atomic.Int64
	validationIssues     atomic.Int64
	comparisonsRun       atomic.Int64
	eventsConsumed       atomic.Int64
	eventsPublished      atomic.Int64
	eventsDeadLettered   atomic.Int64
	lastSimilarityMillis atomic.Int64
)

// ObserveExtraction records one facade call. method is the requested
// method; rejected calls (unknown method) are counted separately.
func ObserveExtraction(method string, degraded bool, issues int) {
	switch method {
	case "llm":
		extractionsLLM.Add(1)
	case "ner":
		extractionsNER.Add(1)
	default:
		extractionsRejected.Add(1)
	}
	if degraded {
		extractionsDegraded.Add(1)
	}
	validationIssues.Add(int64(issues))
}

func ObserveComparison(similarity float64) {
	comparisonsRun.Add(1)
	lastSimilarityMillis.Store(int64(similarity * 1000))
}

func ObserveEventConsumed()     { eventsConsumed.Add(1) }
func ObserveEventPublished()    { eventsPublished.Add(1) }
func ObserveEventDeadLettered() { eventsDeadLettered.Add(1) }

// Snapshot returns the current counter values keyed by series name.
func Snapshot() map[string]int64 {
	return map[string]int64{
		"extractions_llm":      extractionsLLM.Load(),
		"extractions_ner":      extractionsNER.Load(),
		"extractions_rejected": extractionsRejected.Load(),
		"extractions_degraded": extractionsDegraded.Load(),
		"validation_issues":    validationIssues.Load(),
		"comparisons":          comparisonsRun.Load(),
		"events_consumed":      eventsConsumed.Load(),
		"events_published":     eventsPublished.Load(),
		"events_dead_lettered": eventsDeadLettered.Load(),
	}
}

// Reset zeroes every counter. Tests only.
func Reset() {
	for _, c := range []*atomic.Int64{
		&extractionsLLM, &extractionsNER, &extractionsRejected, &extractionsDegraded,
		&validationIssues, &comparisonsRun, &eventsConsumed, &eventsPublished,
		&eventsDeadLettered, &lastSimilarityMillis,
	} {
		c.Store(0)
	}
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP clinextract_extractions_total Extraction calls by requested method.\n")
	fmt.Fprintf(w, "# TYPE clinextract_extractions_total counter\n")
	fmt.Fprintf(w, "clinextract_extractions_total{method=\"llm\"} %d\n", extractionsLLM.Load())
	fmt.Fprintf(w, "clinextract_extractions_total{method=\"ner\"} %d\n", extractionsNER.Load())
	fmt.Fprintf(w, "clinextract_extractions_total{method=\"invalid\"} %d\n", extractionsRejected.Load())

	fmt.Fprintf(w, "# HELP clinextract_extractions_degraded_total Extractions that returned a fallback or error result.\n")
	fmt.Fprintf(w, "# TYPE clinextract_extractions_degraded_total counter\n")
	fmt.Fprintf(w, "clinextract_extractions_degraded_total %d\n", extractionsDegraded.Load())

	fmt.Fprintf(w, "# HELP clinextract_validation_issues_total Validation messages attached to extraction results.\n")
	fmt.Fprintf(w, "# TYPE clinextract_validation_issues_total counter\n")
	fmt.Fprintf(w, "clinextract_validation_issues_total %d\n", validationIssues.Load())

	fmt.Fprintf(w, "# HELP clinextract_comparisons_total Backend comparison runs.\n")
	fmt.Fprintf(w, "# TYPE clinextract_comparisons_total counter\n")
	fmt.Fprintf(w, "clinextract_comparisons_total %d\n", comparisonsRun.Load())

	fmt.Fprintf(w, "# HELP clinextract_comparison_last_similarity_percent Similarity score of the latest comparison.\n")
	fmt.Fprintf(w, "# TYPE clinextract_comparison_last_similarity_percent gauge\n")
	fmt.Fprintf(w, "clinextract_comparison_last_similarity_percent %.3f\n", float64(lastSimilarityMillis.Load())/1000)

	fmt.Fprintf(w, "# HELP clinextract_pipeline_events_total Transcript events handled by the worker.\n")
	fmt.Fprintf(w, "# TYPE clinextract_pipeline_events_total counter\n")
	fmt.Fprintf(w, "clinextract_pipeline_events_total{outcome=\"consumed\"} %d\n", eventsConsumed.Load())
	fmt.Fprintf(w, "clinextract_pipeline_events_total{outcome=\"published\"} %d\n", eventsPublished.Load())
	fmt.Fprintf(w, "clinextract_pipeline_events_total{outcome=\"dead_lettered\"} %d\n", eventsDeadLettered.Load())
}
