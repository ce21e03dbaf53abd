package models

import (
	"time"
)

// Event types exchanged on the bus
const (
	EventTranscribed      = "transcribed"
	EventExtracted        = "extracted"
	EventExtractionFailed = "extraction-failed"
)

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // transcribed, extracted, extraction-failed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// TranscriptPayload is the data carried by a transcribed event.
type TranscriptPayload struct {
	TranscriptID   string `json:"transcript_id"`
	TranscriptText string `json:"transcript_text"`
	Method         string `json:"method,omitempty"`
	UsageMode      string `json:"usage_mode,omitempty"`
	EncounterID    string `json:"encounter_id,omitempty"`
}

// ExtractRequest is the HTTP body accepted by the extraction endpoints.
type ExtractRequest struct {
	TranscriptID   string `json:"transcript_id,omitempty"`
	TranscriptText string `json:"transcript_text"`
	Method         string `json:"method,omitempty"`
	UsageMode      string `json:"usage_mode,omitempty"`
}

// SubmitRequest is a transcript handed to the intake endpoint.
type SubmitRequest struct {
	TranscriptID   string `json:"transcript_id,omitempty"`
	TranscriptText string `json:"transcript_text"`
	Source         string `json:"source"`
	Method         string `json:"method,omitempty"`
	UsageMode      string `json:"usage_mode,omitempty"`
	EncounterID    string `json:"encounter_id,omitempty"`
}

type SubmitResponse struct {
	TranscriptID string    `json:"transcript_id"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
}
