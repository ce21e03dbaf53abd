// Package ner extracts clinical fields with a token classifier run sentence
// by sentence over the transcript.
package ner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/synaptica-ai/clinextract/pkg/clinical"
	"github.com/synaptica-ai/clinextract/pkg/common/httpclient"
	"github.com/synaptica-ai/clinextract/pkg/common/logger"
	"github.com/synaptica-ai/clinextract/pkg/normalizer"
	"github.com/synaptica-ai/clinextract/pkg/validation"
)

// NotLoadedWarning is the fallback reason while the model is not ready.
const NotLoadedWarning = "NER model not loaded"

type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "model_loading"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

type Options struct {
	// Model is the identifier reported in results, e.g. pacovalentino/Text2NER.
	Model        string
	LoadAttempts int
	RetryDelay   time.Duration
}

type Backend struct {
	classifier TokenClassifier
	labels     *LabelMap
	validator  *validation.Validator
	opts       Options

	state     atomic.Int32
	loadOnce  sync.Once
	mu        sync.RWMutex
	loadErr   error
	probeHits int
}

func NewBackend(classifier TokenClassifier, labels *LabelMap, opts Options) *Backend {
	if opts.Model == "" {
		opts.Model = classifier.Name()
	}
	if opts.LoadAttempts <= 0 {
		opts.LoadAttempts = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 200 * time.Millisecond
	}
	return &Backend{
		classifier: classifier,
		labels:     labels,
		validator:  validation.NewValidator(validation.Lenient),
		opts:       opts,
	}
}

func (b *Backend) Method() clinical.Method {
	return clinical.MethodNER
}

func (b *Backend) State() State {
	return State(b.state.Load())
}

// Init loads the classifier once. A failed load leaves the backend
// unavailable for the rest of the process; later calls return the same error.
func (b *Backend) Init(ctx context.Context) error {
	b.loadOnce.Do(func() {
		b.state.Store(int32(StateLoading))
		start := time.Now()

		err := httpclient.Retry(ctx, b.opts.LoadAttempts, b.opts.RetryDelay, b.classifier.Load)
		if err == nil && b.labels == nil {
			err = errors.New("no label map configured")
		}

		var hits int
		if err == nil {
			var probe []Entity
			probe, err = b.classifier.Classify(ctx, ProbeSentence)
			hits = len(probe)
		}

		b.mu.Lock()
		b.loadErr = err
		b.probeHits = hits
		b.mu.Unlock()

		if err != nil {
			b.state.Store(int32(StateUnavailable))
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"model":    b.opts.Model,
				"attempts": b.opts.LoadAttempts,
			}).Error("NER model failed to load")
			return
		}

		b.state.Store(int32(StateReady))
		logger.Log.WithFields(map[string]interface{}{
			"model":               b.opts.Model,
			"engine":              b.classifier.Name(),
			"test_entities_found": hits,
			"duration_ms":         time.Since(start).Milliseconds(),
		}).Info("NER model loaded")
	})

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loadErr
}

func (b *Backend) Extract(ctx context.Context, text string, mode clinical.UsageMode) clinical.Outcome {
	if b.State() != StateReady {
		return clinical.Fallback(b.opts.Model, NotLoadedWarning)
	}

	sentences := SplitSentences(text)
	var entities []Entity
	for _, sentence := range sentences {
		found, err := b.classifier.Classify(ctx, sentence)
		if err != nil {
			logger.Log.WithError(err).WithField("model", b.opts.Model).Warn("NER inference failed")
			return clinical.Fallback(b.opts.Model, fmt.Sprintf("NER inference failed: %v", err))
		}
		entities = append(entities, found...)
	}

	raw, unmapped := b.labels.Apply(GroupEntities(entities))
	if len(unmapped) > 0 {
		logger.Log.WithFields(map[string]interface{}{
			"model":  b.opts.Model,
			"labels": unmapped,
		}).Warn("NER labels without field mapping")
	}

	normalized, report := normalizer.Normalize(raw, mode)

	return clinical.Success(clinical.ExtractionResult{
		ExtractedData:      normalized,
		ValidationErrors:   b.validator.Validate(normalized, text),
		ExtractionMethod:   clinical.ResultMethodNER,
		Model:              b.opts.Model,
		Warnings:           []string{},
		EntitiesFound:      len(entities),
		SentencesProcessed: len(sentences),
		UnparsedFields:     report.Unparsed,
	})
}

func (b *Backend) Status(context.Context) clinical.BackendStatus {
	state := b.State()
	status := clinical.BackendStatus{
		Method:      clinical.MethodNER,
		Name:        "Named Entity Recognition",
		Available:   state == StateReady,
		Model:       b.opts.Model,
		Description: "Token classification over each sentence, mapped onto clinical fields",
		State:       state.String(),
		Details: map[string]interface{}{
			"engine": b.classifier.Name(),
		},
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.loadErr != nil {
		status.Error = b.loadErr.Error()
	}
	if state == StateReady {
		status.Details["test_entities_found"] = b.probeHits
	}
	return status
}

func (b *Backend) Shutdown(context.Context) error {
	if closer, ok := b.classifier.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
