package extraction

import (
	"errors"
	"strings"

	"github.com/synaptica-ai/clinextract/pkg/common/models"
)

var errEmptyTranscript = errors.New("transcript_text required")

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

func validateRequest(req models.ExtractRequest) error {
	if strings.TrimSpace(req.TranscriptText) == "" {
		return ValidationError{reason: errEmptyTranscript}
	}
	return nil
}

type defaultMethodRequest struct {
	Method string `json:"method"`
}

type methodsResponse struct {
	DefaultMethod string      `json:"default_method"`
	Methods       interface{} `json:"methods"`
}
