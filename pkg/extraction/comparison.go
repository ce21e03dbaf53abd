package extraction

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/synaptica-ai/clinextract/pkg/clinical"
	"github.com/synaptica-ai/clinextract/pkg/common/logger"
	"github.com/synaptica-ai/clinextract/pkg/observability/metrics"
)

type FieldDifference struct {
	Field    string `json:"field"`
	LLMValue string `json:"llm_value"`
	NERValue string `json:"ner_value"`
}

type FieldComparison struct {
	MatchingFields  []string          `json:"matching_fields"`
	DifferentFields []FieldDifference `json:"different_fields"`
	LLMOnlyFields   []string          `json:"llm_only_fields"`
	NEROnlyFields   []string          `json:"ner_only_fields"`
	SimilarityScore float64           `json:"similarity_score"`
}

// Comparison is the diagnostic output of running both backends on one text.
type Comparison struct {
	ComparisonTimestamp time.Time                 `json:"comparison_timestamp"`
	TextLength          int                       `json:"text_length"`
	UsageMode           clinical.UsageMode        `json:"usage_mode"`
	LLMResult           clinical.ExtractionResult `json:"llm_result"`
	NERResult           clinical.ExtractionResult `json:"ner_result"`
	LLMSuccess          bool                      `json:"llm_success"`
	NERSuccess          bool                      `json:"ner_success"`
	FieldComparison     FieldComparison           `json:"field_comparison"`
}

// Compare runs llm then ner on the same text. It is expensive and meant for
// offline evaluation only.
func (s *Service) Compare(ctx context.Context, text string, mode clinical.UsageMode) Comparison {
	logger.Log.WithField("text_length", len(text)).Warn("running LLM and NER comparison")

	llmResult := s.Extract(ctx, text, string(clinical.MethodLLM), mode)
	nerResult := s.Extract(ctx, text, string(clinical.MethodNER), mode)

	cmp := Comparison{
		ComparisonTimestamp: s.now().UTC(),
		TextLength:          utf8.RuneCountInString(text),
		UsageMode:           mode,
		LLMResult:           llmResult,
		NERResult:           nerResult,
		LLMSuccess:          !llmResult.Degraded(),
		NERSuccess:          !nerResult.Degraded(),
		FieldComparison:     CompareFields(llmResult.ExtractedData, nerResult.ExtractedData),
	}
	metrics.ObserveComparison(cmp.FieldComparison.SimilarityScore)
	return cmp
}

// CompareFields classifies every field non-empty in either set. Similarity is
// matching fields over fields present in either, as a percentage.
func CompareFields(llm, ner clinical.FieldSet) FieldComparison {
	out := FieldComparison{
		MatchingFields:  []string{},
		DifferentFields: []FieldDifference{},
		LLMOnlyFields:   []string{},
		NEROnlyFields:   []string{},
	}

	total := 0
	for _, field := range clinical.FieldNames() {
		lv := strings.TrimSpace(llm.Get(field))
		nv := strings.TrimSpace(ner.Get(field))
		switch {
		case lv == "" && nv == "":
			continue
		case lv != "" && nv != "":
			if lv == nv {
				out.MatchingFields = append(out.MatchingFields, field)
			} else {
				out.DifferentFields = append(out.DifferentFields, FieldDifference{Field: field, LLMValue: lv, NERValue: nv})
			}
		case lv != "":
			out.LLMOnlyFields = append(out.LLMOnlyFields, field)
		default:
			out.NEROnlyFields = append(out.NEROnlyFields, field)
		}
		total++
	}

	if total > 0 {
		score := float64(len(out.MatchingFields)) / float64(total) * 100
		out.SimilarityScore = math.Round(score*100) / 100
	}
	return out
}
