// Package llm extracts clinical fields by prompting a hosted chat model and
// scanning its streamed answer for a JSON object.
package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/synaptica-ai/clinextract/pkg/clinical"
	"github.com/synaptica-ai/clinextract/pkg/common/logger"
	"github.com/synaptica-ai/clinextract/pkg/dlp"
	"github.com/synaptica-ai/clinextract/pkg/normalizer"
	"github.com/synaptica-ai/clinextract/pkg/validation"
)

const (
	warnNoAPIKey       = "LLM API key not configured"
	connectionPrompt   = "Test connection. Rispondi semplicemente 'OK'."
	statusCacheTTL     = time.Minute
	connectionDeadline = 15 * time.Second
	previewRunes       = 200
)

type Options struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	// Timeout bounds one extraction including the full stream. Zero leaves
	// the deadline to the caller's context.
	Timeout time.Duration
	// Masker redacts model output before it reaches the logs. Nil uses
	// dlp.Default.
	Masker *dlp.Detector
}

// ConnectionCheck is the outcome of a minimal streamed request.
type ConnectionCheck struct {
	Success          bool      `json:"success"`
	Response         string    `json:"response,omitempty"`
	Error            string    `json:"error,omitempty"`
	BaseURL          string    `json:"base_url"`
	Model            string    `json:"model"`
	APIKeyConfigured bool      `json:"api_key_configured"`
	CheckedAt        time.Time `json:"checked_at"`
}

type Backend struct {
	streamer  Streamer
	opts      Options
	validator *validation.Validator

	mu        sync.Mutex
	lastCheck *ConnectionCheck
}

// NewBackend builds the backend. A nil streamer gets a ChatClient for
// opts.BaseURL when an API key is configured.
func NewBackend(streamer Streamer, opts Options) *Backend {
	if opts.Provider == "" {
		opts.Provider = "nvidia"
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.1
	}
	if opts.TopP == 0 {
		opts.TopP = 0.9
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 2048
	}
	if opts.Masker == nil {
		opts.Masker = dlp.Default()
	}
	if streamer == nil && opts.APIKey != "" {
		streamer = NewChatClient(opts.BaseURL, opts.APIKey)
	}
	return &Backend{
		streamer:  streamer,
		opts:      opts,
		validator: validation.NewValidator(validation.Strict),
	}
}

func (b *Backend) Method() clinical.Method {
	return clinical.MethodLLM
}

func (b *Backend) available() bool {
	return b.streamer != nil && b.opts.APIKey != ""
}

func (b *Backend) fallbackModel() string {
	return b.opts.Provider + "-fallback"
}

// Init never fails: a missing key only switches the backend to fallback.
func (b *Backend) Init(context.Context) error {
	if !b.available() {
		logger.Log.WithFields(map[string]interface{}{
			"provider": b.opts.Provider,
			"model":    b.opts.Model,
		}).Warn("LLM API key not configured, extraction will fall back")
		return nil
	}
	logger.Log.WithFields(map[string]interface{}{
		"provider": b.opts.Provider,
		"model":    b.opts.Model,
		"base_url": b.opts.BaseURL,
	}).Info("LLM backend configured")
	return nil
}

func (b *Backend) Extract(ctx context.Context, text string, mode clinical.UsageMode) clinical.Outcome {
	if !b.available() {
		return clinical.Fallback(b.fallbackModel(), warnNoAPIKey)
	}

	prompt, err := BuildPrompt(text, mode)
	if err != nil {
		return clinical.Fallback(b.fallbackModel(), fmt.Sprintf("build prompt: %v", err))
	}

	if b.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	stream, err := b.streamer.Stream(ctx, ChatRequest{
		Model:       b.opts.Model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: b.opts.Temperature,
		TopP:        b.opts.TopP,
		MaxTokens:   b.opts.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return b.transportFallback(err)
	}
	collected, err := Collect(stream)
	if err != nil {
		return b.transportFallback(err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"model":           b.opts.Model,
		"chunks":          collected.Chunks,
		"response_chars":  len(collected.Content),
		"reasoning_chars": len(collected.Reasoning),
		"duration_ms":     time.Since(start).Milliseconds(),
	}).Debug("LLM stream completed")

	object, err := ExtractJSONObject(collected.Content)
	if err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"model":            b.opts.Model,
			"response_preview": b.opts.Masker.Preview(collected.Content, previewRunes),
		}).Error("LLM response has no usable JSON")
		return clinical.ParseError(b.fallbackModel(), "LLM response parsing failed: "+err.Error(), collected.Content)
	}
	raw, findings, err := Decode(object)
	if err != nil {
		logger.Log.WithError(err).WithField("model", b.opts.Model).Error("LLM JSON could not be decoded")
		return clinical.ParseError(b.fallbackModel(), "LLM response parsing failed: "+err.Error(), collected.Content)
	}

	normalized, report := normalizer.Normalize(raw, mode)
	issues := b.validator.Validate(normalized, text)
	issues = append(issues, findings...)

	return clinical.Success(clinical.ExtractionResult{
		ExtractedData:    normalized,
		ValidationErrors: issues,
		ExtractionMethod: clinical.ResultMethodLLM,
		Model:            b.opts.Model,
		LLMModel:         b.opts.Model,
		Warnings:         []string{},
		RawResponse:      collected.Content,
		UnparsedFields:   report.Unparsed,
	})
}

func (b *Backend) transportFallback(err error) clinical.Outcome {
	logger.Log.WithError(err).WithFields(map[string]interface{}{
		"provider": b.opts.Provider,
		"model":    b.opts.Model,
	}).Error("LLM extraction request failed")
	return clinical.Fallback(b.fallbackModel(), fmt.Sprintf("LLM extraction failed: %v", err))
}

// TestConnection sends a tiny prompt and reports whether the model answered.
func (b *Backend) TestConnection(ctx context.Context) ConnectionCheck {
	check := ConnectionCheck{
		BaseURL:          b.opts.BaseURL,
		Model:            b.opts.Model,
		APIKeyConfigured: b.opts.APIKey != "",
		CheckedAt:        time.Now().UTC(),
	}
	if !b.available() {
		check.Error = warnNoAPIKey
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, connectionDeadline)
	defer cancel()

	stream, err := b.streamer.Stream(ctx, ChatRequest{
		Model:       b.opts.Model,
		Messages:    []Message{{Role: "user", Content: connectionPrompt}},
		Temperature: b.opts.Temperature,
		MaxTokens:   10,
		Stream:      true,
	})
	if err != nil {
		check.Error = err.Error()
		return check
	}
	collected, err := Collect(stream)
	if err != nil {
		check.Error = err.Error()
		return check
	}
	check.Success = true
	check.Response = collected.Content
	return check
}

func (b *Backend) connection(ctx context.Context) ConnectionCheck {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastCheck != nil && time.Since(b.lastCheck.CheckedAt) < statusCacheTTL {
		return *b.lastCheck
	}
	check := b.TestConnection(ctx)
	b.lastCheck = &check
	return check
}

func (b *Backend) Status(ctx context.Context) clinical.BackendStatus {
	status := clinical.BackendStatus{
		Method:      clinical.MethodLLM,
		Name:        "Large Language Model",
		Model:       b.opts.Model,
		Description: "Prompted extraction through " + b.opts.Provider + " chat completions",
	}
	if !b.available() {
		status.State = "unconfigured"
		status.Error = warnNoAPIKey
		status.Model = b.fallbackModel()
		return status
	}

	check := b.connection(ctx)
	status.Available = check.Success
	status.Details = map[string]interface{}{
		"base_url":   check.BaseURL,
		"checked_at": check.CheckedAt,
	}
	if check.Success {
		status.State = "ready"
	} else {
		status.State = "unreachable"
		status.Error = check.Error
	}
	return status
}

func (b *Backend) Shutdown(context.Context) error {
	if c, ok := b.streamer.(*ChatClient); ok {
		c.client.CloseIdleConnections()
	}
	return nil
}
