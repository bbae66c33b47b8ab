package storage

import "errors"

var (
	ErrQdrantUnreachable  = errors.New("qdrant server unreachable")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrTenantMismatch     = errors.New("chunk belongs to a different patient")
	ErrInvalidChunk       = errors.New("invalid chunk")
)
