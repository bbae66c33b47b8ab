// Package storage persists embedded chunks and answers nearest-neighbor
// queries scoped to a single patient.
package storage

import (
	"context"
	"fmt"

	"github.com/bull/intake-rag-server/internal/intake"
)

// VectorStore is an append-only store of embedded chunks.
//
// Query must restrict candidates to patientID before ranking. Results are
// ordered by ascending Euclidean distance and hold at most k entries.
type VectorStore interface {
	// Write appends chunks with their vectors and returns the number written.
	// Either every chunk is written or none is.
	Write(ctx context.Context, patientID string, chunks []intake.Chunk, vectors [][]float32) (int, error)
	Query(ctx context.Context, patientID string, vector []float32, k int) ([]RetrievedChunk, error)
	// Count returns the number of chunks stored for patientID.
	Count(ctx context.Context, patientID string) (int, error)
	Health(ctx context.Context) error
}

// validateWrite checks a write batch before anything is persisted.
func validateWrite(patientID string, chunks []intake.Chunk, vectors [][]float32, dimension int) error {
	if patientID == "" {
		return fmt.Errorf("%w: empty patient id", ErrInvalidChunk)
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", ErrInvalidChunk, len(chunks), len(vectors))
	}
	for i, chunk := range chunks {
		if chunk.PatientID != patientID {
			return fmt.Errorf("%w: chunk %d has patient %q, writing for %q",
				ErrTenantMismatch, i, chunk.PatientID, patientID)
		}
		if !chunk.SourceType.Valid() {
			return fmt.Errorf("%w: chunk %d has source type %q", ErrInvalidChunk, i, chunk.SourceType)
		}
		if len(vectors[i]) != dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(vectors[i]), dimension)
		}
	}
	return nil
}

func validateQuery(vector []float32, dimension int) error {
	if len(vector) != dimension {
		return fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), dimension)
	}
	return nil
}
