// Package ingestion accepts transcripts over HTTP and announces them on the
// event bus for the extraction worker.
package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/clinextract/pkg/clinical"
	"github.com/synaptica-ai/clinextract/pkg/common/kafka"
	"github.com/synaptica-ai/clinextract/pkg/common/logger"
	"github.com/synaptica-ai/clinextract/pkg/common/models"
	"github.com/synaptica-ai/clinextract/pkg/status"
)

const source = "transcript-intake"

type Service struct {
	validator *Validator
	tracker   status.Tracker
	producer  kafka.Publisher
	dlq       kafka.Publisher
}

func NewService(validator *Validator, tracker status.Tracker, producer, dlq kafka.Publisher) *Service {
	return &Service{
		validator: validator,
		tracker:   tracker,
		producer:  producer,
		dlq:       dlq,
	}
}

func (s *Service) Submit(ctx context.Context, req models.SubmitRequest) (*models.SubmitResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	id := strings.TrimSpace(req.TranscriptID)
	if id == "" {
		id = uuid.New().String()
	}

	if _, err := s.tracker.Record(ctx, id, clinical.StatusTranscribed, ""); err != nil {
		return nil, fmt.Errorf("recording transcript status: %w", err)
	}

	payload := map[string]interface{}{
		"transcript_id":   id,
		"transcript_text": strings.TrimSpace(req.TranscriptText),
		"method":          req.Method,
		"usage_mode":      req.UsageMode,
		"encounter_id":    req.EncounterID,
		"source":          req.Source,
	}

	if err := s.producer.PublishEvent(ctx, models.EventTranscribed, source, payload); err != nil {
		logger.Log.WithError(err).WithField("transcript_id", id).Error("failed to publish transcribed event")
		if _, terr := s.tracker.Transition(ctx, id, clinical.StatusError, "publish failed: "+err.Error()); terr != nil {
			logger.Log.WithError(terr).Warn("failed to mark transcript as errored")
		}
		if s.dlq != nil {
			if dlqErr := s.dlq.PublishEvent(ctx, models.EventTranscribed, source, payload); dlqErr != nil {
				logger.Log.WithError(dlqErr).Error("failed to push event to DLQ")
			}
		}
		return nil, fmt.Errorf("publishing event: %w", err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"transcript_id": id,
		"source":        req.Source,
		"method":        req.Method,
	}).Info("transcript accepted")

	return &models.SubmitResponse{
		TranscriptID: id,
		Status:       string(clinical.StatusTranscribed),
		Timestamp:    time.Now().UTC(),
	}, nil
}
