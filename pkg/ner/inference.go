package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/synaptica-ai/clinextract/pkg/common/httpclient"
)

// ProbeSentence is classified once at load time to prove the model answers.
const ProbeSentence = "Il paziente Mario Rossi, maschio, 58 anni, presentava SpO2 91%."

// InferenceClassifier calls a hosted token-classification model speaking the
// Hugging Face inference protocol.
type InferenceClassifier struct {
	endpoint string
	token    string
	model    string
	client   *http.Client
}

func NewInferenceClassifier(endpoint, token, model string, timeout time.Duration) *InferenceClassifier {
	return &InferenceClassifier{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		model:    model,
		client:   httpclient.New(timeout),
	}
}

func (c *InferenceClassifier) Name() string {
	return c.model
}

func (c *InferenceClassifier) Load(ctx context.Context) error {
	if c.endpoint == "" {
		return httpclient.Permanent(fmt.Errorf("no inference endpoint configured for %s", c.model))
	}
	_, err := c.Classify(ctx, ProbeSentence)
	return err
}

type inferenceRequest struct {
	Inputs     string            `json:"inputs"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

type inferenceSpan struct {
	EntityGroup string  `json:"entity_group"`
	Entity      string  `json:"entity"`
	Word        string  `json:"word"`
	Score       float64 `json:"score"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
}

func (c *InferenceClassifier) Classify(ctx context.Context, sentence string) ([]Entity, error) {
	body, err := json.Marshal(inferenceRequest{
		Inputs:     sentence,
		Parameters: map[string]string{"aggregation_strategy": "simple"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read inference response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("inference endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return nil, httpclient.Permanent(err)
		}
		return nil, err
	}

	var spans []inferenceSpan
	if err := json.Unmarshal(payload, &spans); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}

	entities := make([]Entity, 0, len(spans))
	for _, span := range spans {
		label := span.EntityGroup
		if label == "" {
			label = strings.TrimPrefix(strings.TrimPrefix(span.Entity, "B-"), "I-")
		}
		entities = append(entities, Entity{
			Text:  span.Word,
			Label: label,
			Score: span.Score,
			Start: span.Start,
			End:   span.End,
		})
	}
	return entities, nil
}

func (c *InferenceClassifier) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
