package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/synaptica-ai/clinextract/pkg/common/httpclient"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the OpenAI-compatible chat completion body.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

// Chunk is one streamed delta. Reasoning carries side-channel tokens some
// models emit before the answer.
type Chunk struct {
	Content   string
	Reasoning string
}

// ChunkStream is consumed synchronously: call Next until it returns io.EOF.
type ChunkStream interface {
	Next() (Chunk, error)
	Close() error
}

type Streamer interface {
	Stream(ctx context.Context, req ChatRequest) (ChunkStream, error)
}

// ChatClient streams chat completions over server-sent events.
type ChatClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewChatClient(baseURL, apiKey string) *ChatClient {
	return &ChatClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  httpclient.New(0),
	}
}

func (c *ChatClient) Stream(ctx context.Context, req ChatRequest) (ChunkStream, error) {
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("chat completion returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseStream{body: resp.Body, scanner: scanner}, nil
}

type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content          *string `json:"content"`
			ReasoningContent *string `json:"reasoning_content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func (s *sseStream) Next() (Chunk, error) {
	for !s.done && s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			s.done = true
			break
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return Chunk{}, fmt.Errorf("decode stream event: %w", err)
		}
		if event.Error != nil {
			return Chunk{}, fmt.Errorf("stream error: %s", event.Error.Message)
		}
		if len(event.Choices) == 0 {
			continue
		}

		var chunk Chunk
		delta := event.Choices[0].Delta
		if delta.Content != nil {
			chunk.Content = *delta.Content
		}
		if delta.ReasoningContent != nil {
			chunk.Reasoning = *delta.ReasoningContent
		}
		return chunk, nil
	}
	if err := s.scanner.Err(); err != nil {
		return Chunk{}, fmt.Errorf("read stream: %w", err)
	}
	s.done = true
	return Chunk{}, io.EOF
}

func (s *sseStream) Close() error {
	s.done = true
	return s.body.Close()
}

// Collected holds a fully drained stream.
type Collected struct {
	Content   string
	Reasoning string
	Chunks    int
}

// Collect folds a stream into its content and reasoning buffers and closes it.
func Collect(stream ChunkStream) (Collected, error) {
	defer stream.Close()

	var content, reasoning strings.Builder
	var out Collected
	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			out.Content = content.String()
			out.Reasoning = reasoning.String()
			return out, err
		}
		out.Chunks++
		content.WriteString(chunk.Content)
		reasoning.WriteString(chunk.Reasoning)
	}
	out.Content = content.String()
	out.Reasoning = reasoning.String()
	return out, nil
}
