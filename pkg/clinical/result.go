package clinical

import (
	"context"
	"strings"
	"time"
)

// Method selects an extraction backend.
type Method string

const (
	MethodLLM Method = "llm"
	MethodNER Method = "ner"
)

// Values stamped into ExtractionResult.ExtractionMethod.
const (
	ResultMethodLLM         = "llm"
	ResultMethodNER         = "ner"
	ResultMethodError       = "error"
	ResultMethodLLMFallback = "llm-fallback"
	ResultMethodNERFallback = "ner-fallback"
)

// ParseMethod accepts "llm" or "ner" case-insensitively.
func ParseMethod(raw string) (Method, bool) {
	switch Method(strings.ToLower(strings.TrimSpace(raw))) {
	case MethodLLM:
		return MethodLLM, true
	case MethodNER:
		return MethodNER, true
	default:
		return "", false
	}
}

// FallbackMethod is the extraction_method value for a degraded run of m.
func (m Method) FallbackMethod() string {
	return string(m) + "-fallback"
}

// UsageMode is the workflow tag attached to an extraction request.
type UsageMode string

const UsageModeCheckup UsageMode = "Checkup"

// Restricted reports whether the mode limits which fields may be populated.
func (m UsageMode) Restricted() bool {
	return strings.EqualFold(strings.TrimSpace(string(m)), string(UsageModeCheckup))
}

type TriageCode string

const (
	TriageWhite  TriageCode = "white"
	TriageGreen  TriageCode = "green"
	TriageYellow TriageCode = "yellow"
	TriageRed    TriageCode = "red"
	TriageBlack  TriageCode = "black"
)

func (c TriageCode) Valid() bool {
	switch c {
	case TriageWhite, TriageGreen, TriageYellow, TriageRed, TriageBlack:
		return true
	}
	return false
}

// ExtractionResult is the uniform output of every extraction call.
type ExtractionResult struct {
	ExtractedData      FieldSet  `json:"extracted_data"`
	ValidationErrors   []string  `json:"validation_errors"`
	ExtractionMethod   string    `json:"extraction_method"`
	Model              string    `json:"model"`
	Timestamp          time.Time `json:"timestamp"`
	TextLength         int       `json:"text_length"`
	Warnings           []string  `json:"warnings"`
	LLMModel           string    `json:"llm_model,omitempty"`
	Fallback           bool      `json:"fallback,omitempty"`
	EntitiesFound      int       `json:"entities_found,omitempty"`
	SentencesProcessed int       `json:"sentences_processed,omitempty"`
	RawResponse        string    `json:"raw_response,omitempty"`
	UnparsedFields     []string  `json:"unparsed_fields,omitempty"`
}

// Degraded reports whether the result came from a fallback or error path.
func (r ExtractionResult) Degraded() bool {
	return r.Fallback || r.ExtractionMethod == ResultMethodError ||
		strings.HasSuffix(r.ExtractionMethod, "-fallback")
}

// OutcomeKind tags the variant held by an Outcome.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeFallback
	OutcomeParseError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFallback:
		return "fallback"
	case OutcomeParseError:
		return "parse_error"
	default:
		return "unknown"
	}
}

// Outcome is what a backend hands back to the facade. Result is meaningful
// only for OutcomeSuccess; the other variants carry Reason and the model
// identity for the fallback response.
type Outcome struct {
	Kind        OutcomeKind
	Result      ExtractionResult
	Reason      string
	Model       string
	RawResponse string
}

func Success(result ExtractionResult) Outcome {
	return Outcome{Kind: OutcomeSuccess, Result: result}
}

func Fallback(model, reason string) Outcome {
	return Outcome{Kind: OutcomeFallback, Model: model, Reason: reason}
}

func ParseError(model, reason, raw string) Outcome {
	return Outcome{Kind: OutcomeParseError, Model: model, Reason: reason, RawResponse: raw}
}

// BackendStatus describes a backend for the methods listing.
type BackendStatus struct {
	Method      Method                 `json:"method"`
	Name        string                 `json:"name"`
	Available   bool                   `json:"available"`
	Model       string                 `json:"model"`
	Description string                 `json:"description"`
	State       string                 `json:"state"`
	Error       string                 `json:"error,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// Backend is one extraction technique. Implementations never panic or return
// errors from Extract; degraded runs are expressed through Outcome.
type Backend interface {
	Method() Method
	Init(ctx context.Context) error
	Extract(ctx context.Context, text string, mode UsageMode) Outcome
	Status(ctx context.Context) BackendStatus
	Shutdown(ctx context.Context) error
}
