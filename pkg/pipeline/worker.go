// Package pipeline runs extraction for transcripts announced on the event bus.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/synaptica-ai/clinextract/pkg/clinical"
	"github.com/synaptica-ai/clinextract/pkg/common/kafka"
	"github.com/synaptica-ai/clinextract/pkg/common/logger"
	"github.com/synaptica-ai/clinextract/pkg/common/models"
	"github.com/synaptica-ai/clinextract/pkg/dlp"
	"github.com/synaptica-ai/clinextract/pkg/observability/metrics"
	"github.com/synaptica-ai/clinextract/pkg/records"
	"github.com/synaptica-ai/clinextract/pkg/status"
	"github.com/synaptica-ai/clinextract/pkg/terminology"
)

const source = "extraction-service"

// DefaultClaimTimeout is how long an extracting claim is honoured before a
// redelivered event may take it over.
const DefaultClaimTimeout = 10 * time.Minute

type Extractor interface {
	Extract(ctx context.Context, text, method string, mode clinical.UsageMode) clinical.ExtractionResult
}

type RecordStore interface {
	Save(ctx context.Context, rec *records.ExtractionRecord) error
}

type EventSource interface {
	Consume(ctx context.Context, handler kafka.EventHandler) error
}

type Options struct {
	// ClaimTimeout bounds how long a worker may hold a transcript in
	// extracting. Zero uses DefaultClaimTimeout.
	ClaimTimeout time.Duration
	// Masker redacts malformed events before they are dead-lettered. Nil
	// uses dlp.Default.
	Masker *dlp.Detector
	// Catalog codes published vital signs. Nil uses the default catalog.
	Catalog *terminology.Catalog
}

// Worker turns transcribed events into extracted events. Store, tracker and
// dlq are optional.
type Worker struct {
	extractor Extractor
	store     RecordStore
	tracker   status.Tracker
	output    kafka.Publisher
	dlq       kafka.Publisher

	claimTimeout time.Duration
	masker       *dlp.Detector
	catalog      terminology.Catalog
	now          func() time.Time
}

func NewWorker(extractor Extractor, store RecordStore, tracker status.Tracker, output, dlq kafka.Publisher, opts Options) *Worker {
	if opts.ClaimTimeout <= 0 {
		opts.ClaimTimeout = DefaultClaimTimeout
	}
	if opts.Masker == nil {
		opts.Masker = dlp.Default()
	}
	catalog := terminology.DefaultCatalog()
	if opts.Catalog != nil {
		catalog = *opts.Catalog
	}
	return &Worker{
		extractor:    extractor,
		store:        store,
		tracker:      tracker,
		output:       output,
		dlq:          dlq,
		claimTimeout: opts.ClaimTimeout,
		masker:       opts.Masker,
		catalog:      catalog,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Run consumes events until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, events EventSource) error {
	logger.Log.Info("extraction worker started")
	err := events.Consume(ctx, w.Handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handle processes one event. A returned error leaves the event uncommitted.
func (w *Worker) Handle(ctx context.Context, event models.Event) error {
	if event.Type != models.EventTranscribed {
		return nil
	}
	metrics.ObserveEventConsumed()

	payload, err := decodePayload(event.Data)
	if err != nil {
		logger.Log.WithError(err).WithField("event_id", event.ID).Warn("discarding malformed transcribed event")
		// Malformed events cannot be replayed, so only a masked copy is kept.
		return w.deadLetter(ctx, map[string]interface{}{
			"event_id": event.ID,
			"error":    err.Error(),
			"data":     w.masker.Sanitize(event.Data),
		})
	}

	log := logger.Log.WithFields(map[string]interface{}{
		"event_id":      event.ID,
		"transcript_id": payload.TranscriptID,
	})

	proceed, err := w.begin(ctx, payload.TranscriptID)
	if err != nil {
		return err
	}
	if !proceed {
		return nil
	}

	mode := clinical.UsageMode(payload.UsageMode)
	result := w.extractor.Extract(ctx, payload.TranscriptText, payload.Method, mode)

	// The outcome is stored even when ctx was cancelled during extraction.
	settle := context.WithoutCancel(ctx)

	recordID := ""
	if w.store != nil {
		rec := records.FromResult(payload.TranscriptID, payload.Method, mode, result)
		if err := w.store.Save(settle, rec); err != nil {
			log.WithError(err).Error("failed to persist extraction")
		} else {
			recordID = rec.ID
		}
	}

	failed := result.ExtractionMethod == clinical.ResultMethodError || result.Degraded()
	reason := failureReason(result)
	if err := w.finish(settle, payload.TranscriptID, failed, reason); err != nil {
		log.WithError(err).Error("failed to record final status")
	}

	eventType := models.EventExtracted
	if failed {
		eventType = models.EventExtractionFailed
	}
	data := map[string]interface{}{
		"transcript_id": payload.TranscriptID,
		"record_id":     recordID,
		"encounter_id":  payload.EncounterID,
		"result":        result,
		"codings":       w.catalog.Annotate(result.ExtractedData),
	}

	if err := w.output.PublishEvent(ctx, eventType, source, data); err != nil {
		log.WithError(err).Error("failed to publish extraction result")
		return w.deadLetter(ctx, data)
	}
	metrics.ObserveEventPublished()

	log = log.WithFields(map[string]interface{}{
		"extraction_method": result.ExtractionMethod,
		"record_id":         recordID,
		"populated":         len(result.ExtractedData.Populated()),
	})
	if failed {
		log.WithField("reason", reason).Warn("transcript extraction failed")
		return nil
	}
	log.Info("transcript extracted")
	return nil
}

// begin checks that the transcript may be extracted and claims it.
func (w *Worker) begin(ctx context.Context, transcriptID string) (bool, error) {
	if w.tracker == nil {
		return true, nil
	}

	entry, err := w.tracker.Get(ctx, transcriptID)
	switch {
	case errors.Is(err, status.ErrNotFound):
		// The transcription service does not share our tracker; the event
		// itself is the evidence.
		entry, err = w.tracker.Record(ctx, transcriptID, clinical.StatusTranscribed, "")
		if err != nil {
			return false, fmt.Errorf("record transcribed status: %w", err)
		}
	case err != nil:
		return false, fmt.Errorf("read status: %w", err)
	}

	if entry.Status == clinical.StatusExtracting {
		return w.reclaim(ctx, entry)
	}

	if !entry.Status.ReadyForExtraction() {
		logger.Log.WithFields(map[string]interface{}{
			"transcript_id": transcriptID,
			"status":        entry.Status,
		}).Warn("transcript not ready for extraction, skipping")
		return false, nil
	}

	if _, err := w.tracker.Transition(ctx, transcriptID, clinical.StatusExtracting, ""); err != nil {
		if errors.Is(err, status.ErrInvalidTransition) {
			logger.Log.WithError(err).WithField("transcript_id", transcriptID).Warn("transcript claimed by another worker")
			return false, nil
		}
		return false, fmt.Errorf("mark extracting: %w", err)
	}
	return true, nil
}

// reclaim takes over a claim whose worker stopped renewing it, typically one
// that died between claiming and recording the outcome.
func (w *Worker) reclaim(ctx context.Context, entry status.Entry) (bool, error) {
	log := logger.Log.WithFields(map[string]interface{}{
		"transcript_id": entry.TranscriptID,
		"claimed_at":    entry.UpdatedAt,
	})
	staleBefore := w.now().Add(-w.claimTimeout)
	if !entry.UpdatedAt.Before(staleBefore) {
		log.Warn("transcript claimed by another worker")
		return false, nil
	}

	if _, err := w.tracker.Reclaim(ctx, entry.TranscriptID, staleBefore, "reclaimed after "+w.claimTimeout.String()); err != nil {
		if errors.Is(err, status.ErrInvalidTransition) {
			log.WithError(err).Warn("transcript claimed by another worker")
			return false, nil
		}
		return false, fmt.Errorf("reclaim extraction: %w", err)
	}
	log.Warn("reclaimed stale extraction claim")
	return true, nil
}

func (w *Worker) finish(ctx context.Context, transcriptID string, failed bool, reason string) error {
	if w.tracker == nil {
		return nil
	}
	to, message := clinical.StatusExtracted, ""
	if failed {
		to, message = clinical.StatusError, reason
	}
	_, err := w.tracker.Transition(ctx, transcriptID, to, message)
	return err
}

func (w *Worker) deadLetter(ctx context.Context, data map[string]interface{}) error {
	if w.dlq == nil {
		return errors.New("no dead-letter topic configured")
	}
	if err := w.dlq.PublishEvent(ctx, models.EventExtractionFailed, source, data); err != nil {
		return fmt.Errorf("dead-letter: %w", err)
	}
	metrics.ObserveEventDeadLettered()
	return nil
}

func failureReason(result clinical.ExtractionResult) string {
	if len(result.Warnings) > 0 {
		return strings.Join(result.Warnings, "; ")
	}
	if len(result.ValidationErrors) > 0 {
		return strings.Join(result.ValidationErrors, "; ")
	}
	return result.ExtractionMethod
}

func decodePayload(data map[string]interface{}) (models.TranscriptPayload, error) {
	var payload models.TranscriptPayload
	raw, err := json.Marshal(data)
	if err != nil {
		return payload, fmt.Errorf("encode event data: %w", err)
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, fmt.Errorf("decode transcript payload: %w", err)
	}
	if strings.TrimSpace(payload.TranscriptID) == "" {
		return payload, errors.New("transcript_id required")
	}
	if strings.TrimSpace(payload.TranscriptText) == "" {
		return payload, errors.New("transcript_text required")
	}
	return payload, nil
}
