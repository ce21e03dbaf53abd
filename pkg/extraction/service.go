// Package extraction is the single entry point for clinical field
// extraction. It picks a backend per call and guarantees every call returns
// a complete ExtractionResult, whatever happened inside the backend.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/synaptica-ai/clinextract/pkg/clinical"
	"github.com/synaptica-ai/clinextract/pkg/common/logger"
	"github.com/synaptica-ai/clinextract/pkg/observability/metrics"
)

var ErrUnknownMethod = errors.New("unsupported extraction method")

type Service struct {
	mu            sync.RWMutex
	backends      map[clinical.Method]clinical.Backend
	defaultMethod clinical.Method
	now           func() time.Time
}

// NewService registers backends by their Method. An invalid default falls
// back to llm.
func NewService(defaultMethod string, backends ...clinical.Backend) *Service {
	method, ok := clinical.ParseMethod(defaultMethod)
	if !ok {
		method = clinical.MethodLLM
	}
	registry := make(map[clinical.Method]clinical.Backend, len(backends))
	for _, b := range backends {
		if b != nil {
			registry[b.Method()] = b
		}
	}
	return &Service{
		backends:      registry,
		defaultMethod: method,
		now:           time.Now,
	}
}

// Init starts every backend. Failures are logged and returned joined; the
// service stays usable and the failed backend answers with fallbacks.
func (s *Service) Init(ctx context.Context) error {
	var errs []error
	for _, method := range s.methods() {
		if err := s.backends[method].Init(ctx); err != nil {
			logger.Log.WithError(err).WithField("method", method).Warn("extraction backend failed to initialise")
			errs = append(errs, fmt.Errorf("%s: %w", method, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) Shutdown(ctx context.Context) error {
	var errs []error
	for _, method := range s.methods() {
		if err := s.backends[method].Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", method, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) methods() []clinical.Method {
	out := make([]clinical.Method, 0, len(s.backends))
	for m := range s.backends {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Service) DefaultMethod() clinical.Method {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultMethod
}

// SetDefaultMethod changes the method used when a call names none.
func (s *Service) SetDefaultMethod(raw string) error {
	method, ok := clinical.ParseMethod(raw)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, raw)
	}
	s.mu.Lock()
	s.defaultMethod = method
	s.mu.Unlock()
	logger.Log.WithField("method", method).Info("default extraction method changed")
	return nil
}

// AvailableMethods reports the status of every registered backend.
func (s *Service) AvailableMethods(ctx context.Context) map[clinical.Method]clinical.BackendStatus {
	out := make(map[clinical.Method]clinical.BackendStatus, len(s.backends))
	for _, method := range s.methods() {
		out[method] = s.backends[method].Status(ctx)
	}
	return out
}

// Extract runs one backend. An empty method means the default. The result
// always carries extraction_method, timestamp and text_length.
func (s *Service) Extract(ctx context.Context, text, method string, mode clinical.UsageMode) clinical.ExtractionResult {
	requested := strings.TrimSpace(method)
	if requested == "" {
		requested = string(s.DefaultMethod())
	}

	var result clinical.ExtractionResult
	m, ok := clinical.ParseMethod(requested)
	backend := s.backends[m]
	switch {
	case !ok:
		logger.Log.WithField("method", requested).Error("unsupported extraction method")
		result = errorResult(fmt.Sprintf("%s: %s", ErrUnknownMethod, requested))
	case backend == nil:
		result = errorResult(fmt.Sprintf("no backend registered for method %s", m))
	default:
		result = resultFromOutcome(m, backend.Extract(ctx, text, mode))
	}

	result.Timestamp = s.now().UTC()
	result.TextLength = utf8.RuneCountInString(text)
	if result.ValidationErrors == nil {
		result.ValidationErrors = []string{}
	}
	if result.Warnings == nil {
		result.Warnings = []string{}
	}

	metrics.ObserveExtraction(string(m), result.Degraded(), len(result.ValidationErrors))
	logger.Log.WithFields(map[string]interface{}{
		"method":            requested,
		"extraction_method": result.ExtractionMethod,
		"usage_mode":        string(mode),
		"text_length":       result.TextLength,
		"populated_fields":  len(result.ExtractedData.Populated()),
		"validation_errors": len(result.ValidationErrors),
	}).Info("clinical extraction completed")

	return result
}

// resultFromOutcome maps a backend outcome onto the wire result. Fallback and
// parse-error results carry every field key with an empty value, never an
// empty extracted_data object.
func resultFromOutcome(method clinical.Method, outcome clinical.Outcome) clinical.ExtractionResult {
	switch outcome.Kind {
	case clinical.OutcomeSuccess:
		result := outcome.Result
		result.ExtractionMethod = string(method)
		return result
	default:
		result := clinical.ExtractionResult{
			ValidationErrors: []string{},
			ExtractionMethod: method.FallbackMethod(),
			Model:            outcome.Model,
			Fallback:         true,
			Warnings:         []string{outcome.Reason},
			RawResponse:      outcome.RawResponse,
		}
		if method == clinical.MethodLLM {
			result.LLMModel = outcome.Model
		}
		logger.Log.WithFields(map[string]interface{}{
			"method":  method,
			"outcome": outcome.Kind.String(),
			"reason":  outcome.Reason,
		}).Warn("extraction degraded to fallback")
		return result
	}
}

func errorResult(message string) clinical.ExtractionResult {
	return clinical.ExtractionResult{
		ValidationErrors: []string{message},
		ExtractionMethod: clinical.ResultMethodError,
		Warnings:         []string{message},
	}
}
