// Package indexer turns finished intake encounters into structured records
// and per-patient retrieval chunks.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bull/intake-rag-server/internal/chunker"
	"github.com/bull/intake-rag-server/internal/embedding"
	"github.com/bull/intake-rag-server/internal/extract"
	"github.com/bull/intake-rag-server/internal/intake"
	"github.com/bull/intake-rag-server/internal/records"
	"github.com/bull/intake-rag-server/internal/storage"
)

// ExtractResult describes how an encounter's structured record was produced.
type ExtractResult struct {
	EncounterID string
	Record      intake.Record
	Method      extract.Method
	Failure     *extract.Failure // Why the model path was abandoned, if it was
}

// IndexResult contains statistics about indexing one encounter.
type IndexResult struct {
	PatientID   string
	EncounterID string
	Chunks      int
	Duration    time.Duration
}

// PatientResult contains statistics about indexing all of a patient's encounters.
type PatientResult struct {
	PatientID         string
	TotalEncounters   int
	IndexedEncounters int
	TotalChunks       int
	FailedEncounters  []FailedEncounter
	Duration          time.Duration
}

// FailedEncounter represents an encounter that failed to index.
type FailedEncounter struct {
	EncounterID string
	Reason      string
}

// Summarizer writes a free-text summary of an encounter.
type Summarizer interface {
	Summarize(ctx context.Context, rec intake.Record, transcript intake.Transcript) (string, error)
}

// Pipeline orchestrates extraction, chunking, embedding and storage.
type Pipeline struct {
	records    records.Store
	extractor  *extract.Extractor
	chunker    *chunker.Chunker
	embedder   embedding.Embedder
	store      storage.VectorStore
	summarizer Summarizer
	logger     *slog.Logger
}

// NewPipeline creates a new indexing pipeline with the given components.
func NewPipeline(
	recordStore records.Store,
	extractor *extract.Extractor,
	chunker *chunker.Chunker,
	embedder embedding.Embedder,
	store storage.VectorStore,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		records:   recordStore,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		logger:    logger,
	}
}

// WithSummarizer enables summary chunks for encounters that have a record.
func (p *Pipeline) WithSummarizer(s Summarizer) *Pipeline {
	p.summarizer = s
	return p
}

// ExtractEncounter builds the structured record for an encounter from its
// transcript and saves it. Unknown encounters fail before any extraction.
func (p *Pipeline) ExtractEncounter(ctx context.Context, encounterID string) (*ExtractResult, error) {
	if _, err := p.records.GetEncounter(ctx, encounterID); err != nil {
		return nil, err
	}
	transcript, err := p.records.Transcript(ctx, encounterID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	result := p.extractor.Extract(ctx, transcript)
	if err := p.records.PutRecord(ctx, encounterID, result.Record); err != nil {
		return nil, fmt.Errorf("store record: %w", err)
	}

	p.logger.Info("Extracted structured record",
		"encounter", encounterID,
		"method", result.Method,
		"symptoms", len(result.Record.Symptoms),
	)
	return &ExtractResult{
		EncounterID: encounterID,
		Record:      result.Record,
		Method:      result.Method,
		Failure:     result.Failure,
	}, nil
}

// IndexEncounter chunks, embeds and stores an encounter's record and
// transcript. An encounter without a saved record indexes its conversation only.
func (p *Pipeline) IndexEncounter(ctx context.Context, encounterID string) (*IndexResult, error) {
	start := time.Now()

	enc, err := p.records.GetEncounter(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	if _, err := p.records.GetPatient(ctx, enc.PatientID); err != nil {
		return nil, err
	}

	var rec *intake.Record
	stored, err := p.records.GetRecord(ctx, encounterID)
	switch {
	case err == nil:
		rec = &stored
	case errors.Is(err, intake.ErrRecordNotFound):
		p.logger.Debug("No structured record, indexing conversation only", "encounter", encounterID)
	default:
		return nil, fmt.Errorf("load record: %w", err)
	}

	transcript, err := p.records.Transcript(ctx, encounterID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	chunks := p.chunker.BuildChunks(enc.PatientID, encounterID, rec, transcript)
	if summary, ok := p.summaryChunk(ctx, enc.PatientID, encounterID, rec, transcript); ok {
		chunks = append([]intake.Chunk{summary}, chunks...)
	}

	n, err := p.indexChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	result := &IndexResult{
		PatientID:   enc.PatientID,
		EncounterID: encounterID,
		Chunks:      n,
		Duration:    time.Since(start),
	}
	p.logger.Info("Indexed encounter", "encounter", encounterID, "patient", enc.PatientID, "chunks", n)
	return result, nil
}

// summaryChunk builds the optional summary chunk. A failed summary is logged
// and skipped so the encounter still indexes.
func (p *Pipeline) summaryChunk(ctx context.Context, patientID, encounterID string, rec *intake.Record, transcript intake.Transcript) (intake.Chunk, bool) {
	if p.summarizer == nil || rec == nil {
		return intake.Chunk{}, false
	}
	text, err := p.summarizer.Summarize(ctx, *rec, transcript)
	if err != nil {
		p.logger.Warn("Failed to summarize encounter", "encounter", encounterID, "error", err)
		return intake.Chunk{}, false
	}
	return intake.Chunk{
		Text:        "Summary: " + text,
		SourceType:  intake.SourceSummary,
		PatientID:   patientID,
		EncounterID: encounterID,
	}, true
}

// indexChunks embeds chunks and writes them in one store call.
func (p *Pipeline) indexChunks(ctx context.Context, chunks []intake.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embeddings: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embeddings: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	n, err := p.store.Write(ctx, chunks[0].PatientID, chunks, vectors)
	if err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	return n, nil
}

// ProcessEncounter extracts and then indexes an encounter.
func (p *Pipeline) ProcessEncounter(ctx context.Context, encounterID string) (*ExtractResult, *IndexResult, error) {
	extracted, err := p.ExtractEncounter(ctx, encounterID)
	if err != nil {
		return nil, nil, fmt.Errorf("extract: %w", err)
	}
	indexed, err := p.IndexEncounter(ctx, encounterID)
	if err != nil {
		return extracted, nil, fmt.Errorf("index: %w", err)
	}
	return extracted, indexed, nil
}

// IndexPatient indexes every encounter of a patient. A failing encounter is
// recorded and skipped.
func (p *Pipeline) IndexPatient(ctx context.Context, patientID string) (*PatientResult, error) {
	start := time.Now()

	encounters, err := p.records.ListEncounters(ctx, patientID)
	if err != nil {
		return nil, err
	}

	result := &PatientResult{PatientID: patientID, TotalEncounters: len(encounters)}
	p.logger.Info("Indexing patient", "patient", patientID, "encounters", len(encounters))

	for _, enc := range encounters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		indexed, err := p.IndexEncounter(ctx, enc.ID)
		if err != nil {
			p.logger.Warn("Failed to index encounter", "encounter", enc.ID, "error", err)
			result.FailedEncounters = append(result.FailedEncounters, FailedEncounter{
				EncounterID: enc.ID,
				Reason:      err.Error(),
			})
			continue
		}
		result.IndexedEncounters++
		result.TotalChunks += indexed.Chunks
	}

	result.Duration = time.Since(start)
	p.logger.Info("Patient indexing complete",
		"patient", patientID,
		"indexed", result.IndexedEncounters,
		"failed", len(result.FailedEncounters),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)
	return result, nil
}
