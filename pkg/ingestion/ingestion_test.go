package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/clinextract/pkg/clinical"
	"github.com/synaptica-ai/clinextract/pkg/common/models"
	"github.com/synaptica-ai/clinextract/pkg/status"
)

type capturePublisher struct {
	err    error
	events []map[string]interface{}
	types  []string
}

func (p *capturePublisher) PublishEvent(_ context.Context, eventType, _ string, data map[string]interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.types = append(p.types, eventType)
	p.events = append(p.events, data)
	return nil
}

func TestValidator(t *testing.T) {
	v := NewValidator([]string{"Triage-App"}, 20)

	cases := []struct {
		name string
		req  models.SubmitRequest
		ok   bool
	}{
		{"valid", models.SubmitRequest{Source: "triage-app", TranscriptText: "FC 80"}, true},
		{"valid method", models.SubmitRequest{Source: "triage-app", TranscriptText: "FC 80", Method: "NER"}, true},
		{"missing source", models.SubmitRequest{TranscriptText: "FC 80"}, false},
		{"unknown source", models.SubmitRequest{Source: "fax", TranscriptText: "FC 80"}, false},
		{"blank text", models.SubmitRequest{Source: "triage-app", TranscriptText: "  "}, false},
		{"too long", models.SubmitRequest{Source: "triage-app", TranscriptText: strings.Repeat("à", 21)}, false},
		{"bad method", models.SubmitRequest{Source: "triage-app", TranscriptText: "FC 80", Method: "svm"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.req)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsValidationError(err), "expected validation error, got %v", err)
		})
	}
}

func TestSubmitPublishesTranscribedEvent(t *testing.T) {
	tracker := status.NewMemoryTracker()
	producer := &capturePublisher{}
	svc := NewService(NewValidator(nil, 0), tracker, producer, nil)

	resp, err := svc.Submit(context.Background(), models.SubmitRequest{
		Source:         "triage-app",
		TranscriptText: "  Paziente vigile, FC 80.  ",
		UsageMode:      "Checkup",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.TranscriptID)
	assert.Equal(t, "transcribed", resp.Status)

	require.Len(t, producer.events, 1)
	assert.Equal(t, models.EventTranscribed, producer.types[0])
	assert.Equal(t, resp.TranscriptID, producer.events[0]["transcript_id"])
	assert.Equal(t, "Paziente vigile, FC 80.", producer.events[0]["transcript_text"])

	entry, err := tracker.Get(context.Background(), resp.TranscriptID)
	require.NoError(t, err)
	assert.Equal(t, clinical.StatusTranscribed, entry.Status)
}

func TestSubmitPublishFailure(t *testing.T) {
	tracker := status.NewMemoryTracker()
	dlq := &capturePublisher{}
	svc := NewService(NewValidator(nil, 0), tracker, &capturePublisher{err: errors.New("broker down")}, dlq)

	_, err := svc.Submit(context.Background(), models.SubmitRequest{
		TranscriptID:   "tr-1",
		Source:         "triage-app",
		TranscriptText: "FC 80",
	})
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
	assert.Len(t, dlq.events, 1)

	entry, err := tracker.Get(context.Background(), "tr-1")
	require.NoError(t, err)
	assert.Equal(t, clinical.StatusError, entry.Status)
	assert.Contains(t, entry.Message, "broker down")
}

func TestHTTPSubmit(t *testing.T) {
	svc := NewService(NewValidator(nil, 0), status.NewMemoryTracker(), &capturePublisher{}, nil)
	router := mux.NewRouter()
	NewHTTPHandler(svc, 1<<20).Register(router)

	rec := httptest.NewRecorder()
	body := `{"transcript_id": "tr-9", "transcript_text": "FC 80", "source": "triage-app"}`
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/transcripts", strings.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp models.SubmitResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "tr-9", resp.TranscriptID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/transcripts", strings.NewReader(`{"source": "x"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
