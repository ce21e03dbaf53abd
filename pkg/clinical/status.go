package clinical

import "strings"

// ProcessingStatus is the lifecycle of a transcript as it moves through
// transcription and extraction.
type ProcessingStatus string

const (
	StatusPending      ProcessingStatus = "pending"
	StatusTranscribing ProcessingStatus = "transcribing"
	StatusTranscribed  ProcessingStatus = "transcribed"
	StatusExtracting   ProcessingStatus = "extracting"
	StatusExtracted    ProcessingStatus = "extracted"
	StatusValidated    ProcessingStatus = "validated"
	StatusError        ProcessingStatus = "error"
)

var transitions = map[ProcessingStatus][]ProcessingStatus{
	StatusPending:      {StatusTranscribing},
	StatusTranscribing: {StatusTranscribed, StatusError},
	StatusTranscribed:  {StatusExtracting},
	StatusExtracting:   {StatusExtracted, StatusError},
	StatusExtracted:    {StatusExtracting, StatusValidated},
	StatusValidated:    {},
	StatusError:        {StatusPending},
}

func ParseStatus(raw string) (ProcessingStatus, bool) {
	s := ProcessingStatus(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := transitions[s]
	return s, ok
}

// CanTransition reports whether from -> to is a legal lifecycle step. Any
// in-flight state may also fail into error.
func CanTransition(from, to ProcessingStatus) bool {
	if to == StatusError && from != StatusError {
		_, known := transitions[from]
		return known
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ReadyForExtraction reports whether the extraction engine may be invoked.
func (s ProcessingStatus) ReadyForExtraction() bool {
	return s == StatusTranscribed || s == StatusExtracted
}
