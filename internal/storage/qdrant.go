package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/intake-rag-server/internal/intake"
)

// QdrantConfig configures the Qdrant connection and collection.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimension  int
}

// QdrantStore is a VectorStore backed by a single Qdrant collection.
// Every point carries a patient_id payload and every query filters on it.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

var _ VectorStore = (*QdrantStore)(nil)

// NewQdrantStore connects to Qdrant and waits for it to become healthy.
// It fails fast with ErrQdrantUnreachable when the server never answers.
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", cfg.Dimension)
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	store := &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
	}

	if err := store.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return store, nil
}

func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(newBackoff(), ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the collection with Euclidean distance and
// keyword indexes on the filterable payload fields. Idempotent.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return s.checkDimension(ctx)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if err := s.createPayloadIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create payload indexes: %w", err)
	}
	return nil
}

// checkDimension rejects an existing collection built for another embedder.
func (s *QdrantStore) checkDimension(ctx context.Context) error {
	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to get collection: %w", err)
	}
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return nil
	}
	if int(params.GetSize()) != s.dimension {
		return fmt.Errorf("%w: collection %q has %d dimensions, expected %d",
			ErrDimensionMismatch, s.collection, params.GetSize(), s.dimension)
	}
	return nil
}

func (s *QdrantStore) createPayloadIndexes(ctx context.Context) error {
	fields := []string{
		"patient_id", // tenant filter on every query
		"encounter_id",
		"source_type",
	}

	for _, field := range fields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}
	return nil
}

// ClearCollection drops and recreates the collection, removing all patients' chunks.
func (s *QdrantStore) ClearCollection(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return s.EnsureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Write upserts all chunks in one request so a write lands as a whole.
func (s *QdrantStore) Write(ctx context.Context, patientID string, chunks []intake.Chunk, vectors [][]float32) (int, error) {
	if err := validateWrite(patientID, chunks, vectors, s.dimension); err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.New().String()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"patient_id":   chunk.PatientID,
				"encounter_id": chunk.EncounterID,
				"source_type":  string(chunk.SourceType),
				"text":         chunk.Text,
			}),
		}
	}

	err := backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	}, backoff.WithContext(newBackoff(), ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to upsert %d chunks: %w", len(points), err)
	}
	return len(points), nil
}

func patientFilter(patientID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("patient_id", patientID),
		},
	}
}

// Query searches only the patient's points, nearest first.
func (s *QdrantStore) Query(ctx context.Context, patientID string, vector []float32, k int) ([]RetrievedChunk, error) {
	if err := validateQuery(vector, s.dimension); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []RetrievedChunk{}, nil
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         patientFilter(patientID),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	retrieved := make([]RetrievedChunk, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		retrieved = append(retrieved, RetrievedChunk{
			ID: result.Id.GetUuid(),
			Chunk: intake.Chunk{
				Text:        payload["text"].GetStringValue(),
				SourceType:  intake.SourceType(payload["source_type"].GetStringValue()),
				PatientID:   payload["patient_id"].GetStringValue(),
				EncounterID: payload["encounter_id"].GetStringValue(),
			},
			// For Euclid collections the score is the distance itself.
			Distance: float64(result.Score),
		})
	}
	return retrieved, nil
}

// Count returns the exact number of points stored for patientID.
func (s *QdrantStore) Count(ctx context.Context, patientID string) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         patientFilter(patientID),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(n), nil
}
