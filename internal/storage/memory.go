package storage

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/bull/intake-rag-server/internal/intake"
)

// MemoryStore is an in-process VectorStore using brute-force Euclidean search.
// Chunks are partitioned by patient, so a query only ever sees one partition.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	patients  map[string][]IndexedChunk
}

var _ VectorStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store for vectors of the given width.
func NewMemoryStore(dimension int) (*MemoryStore, error) {
	if dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	return &MemoryStore{
		dimension: dimension,
		patients:  make(map[string][]IndexedChunk),
	}, nil
}

// Write appends chunks under a single lock so readers see all or none of them.
func (s *MemoryStore) Write(ctx context.Context, patientID string, chunks []intake.Chunk, vectors [][]float32) (int, error) {
	if err := validateWrite(patientID, chunks, vectors, s.dimension); err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	indexed := make([]IndexedChunk, len(chunks))
	for i, chunk := range chunks {
		indexed[i] = IndexedChunk{
			ID:     uuid.New().String(),
			Chunk:  chunk,
			Vector: slices.Clone(vectors[i]),
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients[patientID] = append(s.patients[patientID], indexed...)
	return len(indexed), nil
}

// Query ranks the patient's chunks by distance. Equal distances keep
// insertion order.
func (s *MemoryStore) Query(ctx context.Context, patientID string, vector []float32, k int) ([]RetrievedChunk, error) {
	if err := validateQuery(vector, s.dimension); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []RetrievedChunk{}, nil
	}

	s.mu.RLock()
	candidates := s.patients[patientID]
	results := make([]RetrievedChunk, len(candidates))
	for i, c := range candidates {
		results[i] = RetrievedChunk{ID: c.ID, Chunk: c.Chunk, Distance: euclidean(c.Vector, vector)}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(results, func(a, b RetrievedChunk) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Count returns the number of chunks stored for patientID.
func (s *MemoryStore) Count(ctx context.Context, patientID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patients[patientID]), nil
}

// Health always succeeds.
func (s *MemoryStore) Health(ctx context.Context) error {
	return nil
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
