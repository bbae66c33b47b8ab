package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/intake-rag-server/internal/chunker"
	"github.com/bull/intake-rag-server/internal/embedding"
	"github.com/bull/intake-rag-server/internal/extract"
	"github.com/bull/intake-rag-server/internal/indexer"
	"github.com/bull/intake-rag-server/internal/intake"
	"github.com/bull/intake-rag-server/internal/llm"
	"github.com/bull/intake-rag-server/internal/qa"
	"github.com/bull/intake-rag-server/internal/records"
	"github.com/bull/intake-rag-server/internal/storage"
)

type stubChat struct {
	reply string
	err   error
}

func (s stubChat) Chat(ctx context.Context, req llm.Request) (string, error) {
	return s.reply, s.err
}

type env struct {
	records  *records.MemoryStore
	store    *storage.MemoryStore
	pipeline *indexer.Pipeline
	gen      *qa.Generator
	patient  string
	enc      string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	recs := records.NewMemoryStore()
	store, err := storage.NewMemoryStore(64)
	require.NoError(t, err)
	embedder := embedding.NewHashEmbedder(64)

	patient, err := recs.CreatePatient(ctx, "")
	require.NoError(t, err)
	enc, err := recs.CreateEncounter(ctx, patient.ID, time.Now())
	require.NoError(t, err)
	_, err = recs.AppendTurn(ctx, enc.ID, intake.SpeakerAssistant, "What brings you in?", time.Now())
	require.NoError(t, err)
	_, err = recs.AppendTurn(ctx, enc.ID, intake.SpeakerPatient, "Headache since Monday", time.Now().Add(time.Second))
	require.NoError(t, err)

	pipeline := indexer.NewPipeline(recs, extract.NewExtractor(stubChat{err: errors.New("offline")}, nil),
		chunker.NewChunker(), embedder, store, nil)
	gen := qa.NewGenerator(embedder, store, stubChat{reply: "Headache since Monday [chunk 1]."}, nil)

	return &env{records: recs, store: store, pipeline: pipeline, gen: gen, patient: patient.ID, enc: enc.ID}
}

func TestIndexAndAskHandlers(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, out, err := makeIndexHandler(e.pipeline)(ctx, nil, IndexEncounterInput{EncounterID: e.enc, Extract: true})
	require.NoError(t, err)
	assert.Equal(t, "heuristic", out.Method)
	assert.Equal(t, e.patient, out.PatientID)
	assert.Positive(t, out.Chunks)

	_, status, err := makeStatusHandler(e.records, e.store)(ctx, nil, PatientIndexStatusInput{PatientID: e.patient})
	require.NoError(t, err)
	assert.Equal(t, 1, status.Encounters)
	assert.Equal(t, out.Chunks, status.IndexedChunks)

	_, answer, err := makeAskHandler(e.gen, 5)(ctx, nil, AskPatientInput{PatientID: e.patient, Question: "What brings them in?"})
	require.NoError(t, err)
	assert.Equal(t, "Headache since Monday [chunk 1].", answer.Answer)
	assert.Len(t, answer.Chunks, out.Chunks)

	_, _, err = makeAskHandler(e.gen, 5)(ctx, nil, AskPatientInput{PatientID: e.patient})
	assert.Error(t, err)
}

func TestAskHandler_UnknownPatient(t *testing.T) {
	e := newEnv(t)
	_, answer, err := makeAskHandler(e.gen, 5)(context.Background(), nil, AskPatientInput{PatientID: "nobody", Question: "Allergies?"})
	require.NoError(t, err)
	assert.Equal(t, qa.NoInformationAnswer, answer.Answer)
	assert.Empty(t, answer.Chunks)
}

func TestRecordHandler(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	handler := makeRecordHandler(e.records)

	_, out, err := handler(ctx, nil, GetRecordInput{EncounterID: e.enc})
	require.NoError(t, err)
	assert.False(t, out.Found, "nothing extracted yet")

	_, err = e.pipeline.ExtractEncounter(ctx, e.enc)
	require.NoError(t, err)

	_, out, err = handler(ctx, nil, GetRecordInput{EncounterID: e.enc})
	require.NoError(t, err)
	require.True(t, out.Found)
	assert.Equal(t, "Headache since Monday", intake.Deref(out.Record.ChiefComplaint))

	_, out, err = handler(ctx, nil, GetRecordInput{EncounterID: "missing"})
	require.NoError(t, err)
	assert.False(t, out.Found)
}

func TestIndexHandler_NotFound(t *testing.T) {
	e := newEnv(t)
	_, _, err := makeIndexHandler(e.pipeline)(context.Background(), nil, IndexEncounterInput{EncounterID: "missing"})
	assert.ErrorIs(t, err, intake.ErrEncounterNotFound)
}

type unhealthyStore struct{ storage.VectorStore }

func (unhealthyStore) Health(ctx context.Context) error { return errors.New("down") }

func TestHealthHandler(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name           string
		checks         map[string]HealthChecker
		wantCode       int
		wantStatus     string
		wantComponents map[string]string
	}{
		{
			name:           "healthy",
			checks:         map[string]HealthChecker{"vector_store": e.store, "records": e.records},
			wantCode:       http.StatusOK,
			wantStatus:     "healthy",
			wantComponents: map[string]string{"vector_store": "connected", "records": "connected"},
		},
		{
			name:           "vector store down",
			checks:         map[string]HealthChecker{"vector_store": unhealthyStore{}, "records": e.records},
			wantCode:       http.StatusServiceUnavailable,
			wantStatus:     "unhealthy",
			wantComponents: map[string]string{"vector_store": "disconnected", "records": "connected"},
		},
		{
			name:           "nil checks are skipped",
			checks:         map[string]HealthChecker{"vector_store": e.store, "records": nil},
			wantCode:       http.StatusOK,
			wantStatus:     "healthy",
			wantComponents: map[string]string{"vector_store": "connected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.checks)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var body HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantComponents, body.Components)
		})
	}
}

func TestMux_Landing(t *testing.T) {
	e := newEnv(t)
	server := NewServer(&Config{Records: e.records, Store: e.store, Pipeline: e.pipeline, Generator: e.gen})
	mux := NewMux(server, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ask_patient")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
