//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/intake-rag-server/internal/intake"
)

// setupTestStore connects to a local Qdrant using a throwaway collection.
// Skips the test if Qdrant is not running.
func setupTestStore(t *testing.T) *QdrantStore {
	store, err := NewQdrantStore(QdrantConfig{
		Host:       "localhost",
		Port:       6334,
		Collection: "test_chunks_" + uuid.New().String()[:8],
		Dimension:  2,
	})
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx), "Failed to ensure collection")
	t.Cleanup(func() {
		_ = store.client.DeleteCollection(context.Background(), store.collection)
		store.Close()
	})
	return store
}

func TestQdrantStore_WriteQueryCount(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice := []intake.Chunk{
		{Text: "Chief complaint: cough", SourceType: intake.SourceSummary, PatientID: "alice", EncounterID: "e1"},
		{Text: "Allergies: penicillin", SourceType: intake.SourceStructured, PatientID: "alice", EncounterID: "e1"},
	}
	n, err := store.Write(ctx, "alice", alice, [][]float32{{1, 0}, {5, 0}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	bob := []intake.Chunk{
		{Text: "Chief complaint: rash", SourceType: intake.SourceSummary, PatientID: "bob"},
	}
	_, err = store.Write(ctx, "bob", bob, [][]float32{{0, 0}})
	require.NoError(t, err)

	results, err := store.Query(ctx, "alice", []float32{0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Chief complaint: cough", results[0].Text)
	assert.Equal(t, intake.SourceSummary, results[0].SourceType)
	assert.Equal(t, "e1", results[0].EncounterID)
	assert.InDelta(t, 1.0, results[0].Distance, 1e-4)
	for _, r := range results {
		assert.Equal(t, "alice", r.PatientID)
	}

	count, err := store.Count(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = store.Count(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Re-running EnsureCollection on an existing collection is a no-op.
	require.NoError(t, store.EnsureCollection(ctx))
}

func TestQdrantStore_TenantMismatch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Write(ctx, "alice", []intake.Chunk{
		{Text: "x", SourceType: intake.SourceSummary, PatientID: "bob"},
	}, [][]float32{{0, 0}})
	assert.ErrorIs(t, err, ErrTenantMismatch)
}
