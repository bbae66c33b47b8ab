package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/intake-rag-server/internal/config"
	"github.com/bull/intake-rag-server/internal/intake"
	"github.com/bull/intake-rag-server/internal/qa"
)

func TestNew_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.VectorStore.Type = "memory"
	cfg.Embedding.Dimension = 128
	cfg.Database.Path = filepath.Join(t.TempDir(), "intake.db")

	a, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Chat)
	assert.Nil(t, a.Qdrant)
	assert.Equal(t, 128, a.Embedder.Dimension())

	patient, err := a.Records.CreatePatient(ctx, "")
	require.NoError(t, err)
	enc, err := a.Records.CreateEncounter(ctx, patient.ID, time.Now())
	require.NoError(t, err)
	_, err = a.Records.AppendTurn(ctx, enc.ID, intake.SpeakerPatient, "Sore throat and fever", time.Now())
	require.NoError(t, err)

	extracted, indexed, err := a.Pipeline.ProcessEncounter(ctx, enc.ID)
	require.NoError(t, err)
	assert.Equal(t, "heuristic", string(extracted.Method))
	assert.Positive(t, indexed.Chunks)

	resp, err := a.Generator.Answer(ctx, patient.ID, "What is the complaint?", 0)
	require.NoError(t, err)
	assert.Equal(t, qa.UnavailableAnswer, resp.Answer, "no chat model configured")
	assert.NotEmpty(t, resp.Chunks)
}

func TestNew_OpenAIEmbeddingsNeedKey(t *testing.T) {
	cfg := config.Default()
	cfg.VectorStore.Type = "memory"
	cfg.Embedding.Provider = "openai"
	cfg.Database.Path = filepath.Join(t.TempDir(), "intake.db")

	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}
