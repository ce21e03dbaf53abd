package records

import (
	"encoding/json"
	"time"

	"github.com/synaptica-ai/clinextract/pkg/clinical"
	"gorm.io/datatypes"
)

// ExtractionRecord is one persisted extraction of a transcript.
type ExtractionRecord struct {
	ID               string            `json:"id" gorm:"primaryKey;column:id"`
	TranscriptID     string            `json:"transcript_id" gorm:"column:transcript_id;index"`
	RequestedMethod  string            `json:"requested_method" gorm:"column:requested_method"`
	ExtractionMethod string            `json:"extraction_method" gorm:"column:extraction_method"`
	Model            string            `json:"model" gorm:"column:model"`
	UsageMode        string            `json:"usage_mode,omitempty" gorm:"column:usage_mode"`
	ExtractedData    datatypes.JSONMap `json:"extracted_data" gorm:"column:extracted_data"`
	GroupedData      datatypes.JSONMap `json:"grouped_data" gorm:"column:grouped_data"`
	ValidationErrors datatypes.JSON    `json:"validation_errors" gorm:"column:validation_errors"`
	Warnings         datatypes.JSON    `json:"warnings" gorm:"column:warnings"`
	TextLength       int               `json:"text_length" gorm:"column:text_length"`
	Fallback         bool              `json:"fallback" gorm:"column:fallback"`
	ExtractedAt      time.Time         `json:"extracted_at" gorm:"column:extracted_at"`
	CreatedAt        time.Time         `json:"created_at" gorm:"column:created_at;index"`
}

func (ExtractionRecord) TableName() string {
	return "extraction_records"
}

// FromResult flattens an extraction result into a record. ID and CreatedAt
// are assigned by Repository.Save.
func FromResult(transcriptID, requested string, mode clinical.UsageMode, result clinical.ExtractionResult) *ExtractionRecord {
	return &ExtractionRecord{
		TranscriptID:     transcriptID,
		RequestedMethod:  requested,
		ExtractionMethod: result.ExtractionMethod,
		Model:            result.Model,
		UsageMode:        string(mode),
		ExtractedData:    datatypes.JSONMap(result.ExtractedData.ToMap()),
		GroupedData:      datatypes.JSONMap(result.ExtractedData.Grouped()),
		ValidationErrors: jsonList(result.ValidationErrors),
		Warnings:         jsonList(result.Warnings),
		TextLength:       result.TextLength,
		Fallback:         result.Degraded(),
		ExtractedAt:      result.Timestamp,
	}
}

// FieldSet rebuilds the extracted fields.
func (r *ExtractionRecord) FieldSet() clinical.FieldSet {
	fs, _ := clinical.FieldSetFromMap(r.ExtractedData)
	return fs
}

func (r *ExtractionRecord) ValidationErrorList() []string {
	return parseList(r.ValidationErrors)
}

func (r *ExtractionRecord) WarningList() []string {
	return parseList(r.Warnings)
}

func jsonList(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	raw, _ := json.Marshal(items)
	return datatypes.JSON(raw)
}

func parseList(raw datatypes.JSON) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}
