package ingestion

import "github.com/synaptica-ai/clinextract/pkg/common/models"

type RequestWrapper struct {
	TranscriptID   string `json:"transcript_id,omitempty"`
	TranscriptText string `json:"transcript_text"`
	Source         string `json:"source"`
	Method         string `json:"method,omitempty"`
	UsageMode      string `json:"usage_mode,omitempty"`
	EncounterID    string `json:"encounter_id,omitempty"`
}

func (r RequestWrapper) ToModel() models.SubmitRequest {
	return models.SubmitRequest{
		TranscriptID:   r.TranscriptID,
		TranscriptText: r.TranscriptText,
		Source:         r.Source,
		Method:         r.Method,
		UsageMode:      r.UsageMode,
		EncounterID:    r.EncounterID,
	}
}
