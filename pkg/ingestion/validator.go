package ingestion

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/synaptica-ai/clinextract/pkg/clinical"
	"github.com/synaptica-ai/clinextract/pkg/common/models"
)

var (
	errInvalidSource = errors.New("invalid source")
	errEmptyText     = errors.New("transcript_text required")
	errTooLong       = errors.New("transcript too long")
	errInvalidMethod = errors.New("invalid method")
)

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

type Validator struct {
	allowedSources map[string]struct{}
	maxChars       int
}

// NewValidator accepts any source when sources is empty and any length when
// maxChars <= 0.
func NewValidator(sources []string, maxChars int) *Validator {
	vs := make(map[string]struct{})
	for _, src := range sources {
		if trimmed := strings.TrimSpace(strings.ToLower(src)); trimmed != "" {
			vs[trimmed] = struct{}{}
		}
	}
	return &Validator{allowedSources: vs, maxChars: maxChars}
}

func (v *Validator) Validate(req models.SubmitRequest) error {
	if v == nil {
		return ValidationError{reason: errors.New("validator not initialised")}
	}

	source := strings.TrimSpace(strings.ToLower(req.Source))
	if source == "" {
		return ValidationError{reason: fmt.Errorf("source required: %w", errInvalidSource)}
	}
	if len(v.allowedSources) > 0 {
		if _, ok := v.allowedSources[source]; !ok {
			return ValidationError{reason: fmt.Errorf("source '%s' not allowed: %w", source, errInvalidSource)}
		}
	}

	text := strings.TrimSpace(req.TranscriptText)
	if text == "" {
		return ValidationError{reason: errEmptyText}
	}
	if n := utf8.RuneCountInString(text); v.maxChars > 0 && n > v.maxChars {
		return ValidationError{reason: fmt.Errorf("%d characters, limit %d: %w", n, v.maxChars, errTooLong)}
	}

	if strings.TrimSpace(req.Method) != "" {
		if _, ok := clinical.ParseMethod(req.Method); !ok {
			return ValidationError{reason: fmt.Errorf("method '%s': %w", req.Method, errInvalidMethod)}
		}
	}
	return nil
}
