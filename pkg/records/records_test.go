package records

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/clinextract/pkg/clinical"
	"github.com/synaptica-ai/clinextract/pkg/common/database"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	repo := NewRepository(db)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func sampleResult() clinical.ExtractionResult {
	return clinical.ExtractionResult{
		ExtractedData:    clinical.FieldSet{FirstName: "Mario", LastName: "Rossi", HeartRate: "72 bpm"},
		ValidationErrors: []string{"age: outside range 0-130"},
		ExtractionMethod: clinical.ResultMethodLLM,
		Model:            "openai/gpt-oss-20b",
		Timestamp:        time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC),
		TextLength:       120,
		Warnings:         []string{},
	}
}

func TestSaveAndGet(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	rec := FromResult("tr-1", "llm", clinical.UsageModeCheckup, sampleResult())
	require.NoError(t, repo.Save(ctx, rec))
	require.NotEmpty(t, rec.ID)

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "tr-1", got.TranscriptID)
	assert.Equal(t, "llm", got.ExtractionMethod)
	assert.Equal(t, string(clinical.UsageModeCheckup), got.UsageMode)
	assert.Equal(t, 120, got.TextLength)
	assert.False(t, got.Fallback)

	fs := got.FieldSet()
	assert.Equal(t, "Mario", fs.FirstName)
	assert.Equal(t, "72 bpm", fs.HeartRate)
	assert.Equal(t, []string{"age: outside range 0-130"}, got.ValidationErrorList())
	assert.Empty(t, got.WarningList())

	vitals, ok := got.GroupedData[string(clinical.GroupVitals)].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "72 bpm", vitals[clinical.FieldHeartRate])
}

func TestGetMissing(t *testing.T) {
	repo := newRepo(t)
	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Latest(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestAndList(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	first := FromResult("tr-2", "ner", "", sampleResult())
	first.CreatedAt = base
	second := FromResult("tr-2", "llm", "", clinical.ExtractionResult{
		ExtractedData:    clinical.FieldSet{},
		ExtractionMethod: clinical.ResultMethodLLMFallback,
		Warnings:         []string{"LLM API key not configured"},
		Fallback:         true,
	})
	second.CreatedAt = base.Add(time.Minute)
	other := FromResult("tr-3", "llm", "", sampleResult())

	for _, rec := range []*ExtractionRecord{first, second, other} {
		require.NoError(t, repo.Save(ctx, rec))
	}

	latest, err := repo.Latest(ctx, "tr-2")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.True(t, latest.Fallback)
	assert.Equal(t, []string{"LLM API key not configured"}, latest.WarningList())
	assert.True(t, latest.FieldSet().IsEmpty())

	list, err := repo.ListByTranscript(ctx, "tr-2")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestCleanupExpired(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	old := FromResult("tr-4", "llm", "", sampleResult())
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	fresh := FromResult("tr-4", "llm", "", sampleResult())
	require.NoError(t, repo.Save(ctx, old))
	require.NoError(t, repo.Save(ctx, fresh))

	removed, err := repo.CleanupExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	list, err := repo.ListByTranscript(ctx, "tr-4")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, fresh.ID, list[0].ID)
}

func TestHTTPHandler(t *testing.T) {
	repo := newRepo(t)
	rec := FromResult("tr-5", "llm", "", sampleResult())
	require.NoError(t, repo.Save(context.Background(), rec))

	router := mux.NewRouter()
	NewHTTPHandler(repo).Register(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transcripts/tr-5/extractions/latest", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got ExtractionRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, rec.ID, got.ID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/transcripts/none/extractions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/extractions/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
