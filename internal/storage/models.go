package storage

import "github.com/bull/intake-rag-server/internal/intake"

// IndexedChunk is a chunk with its embedding and store-assigned ID.
type IndexedChunk struct {
	ID string // UUID assigned on write
	intake.Chunk
	Vector []float32
}

// RetrievedChunk is a query hit. Lower distance means more similar.
type RetrievedChunk struct {
	ID string
	intake.Chunk
	Distance float64
}

// DefaultCollectionName is the Qdrant collection holding all patients' chunks.
const DefaultCollectionName = "patient_chunks"
