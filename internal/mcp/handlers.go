package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/intake-rag-server/internal/indexer"
	"github.com/bull/intake-rag-server/internal/intake"
	"github.com/bull/intake-rag-server/internal/qa"
	"github.com/bull/intake-rag-server/internal/records"
	"github.com/bull/intake-rag-server/internal/storage"
)

// makeAskHandler creates the ask_patient tool handler.
func makeAskHandler(gen *qa.Generator, defaultTopK int) func(
	context.Context, *mcp.CallToolRequest, AskPatientInput,
) (*mcp.CallToolResult, AskPatientOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskPatientInput) (
		*mcp.CallToolResult, AskPatientOutput, error,
	) {
		if strings.TrimSpace(input.PatientID) == "" {
			return nil, AskPatientOutput{}, errors.New("patient_id is required")
		}
		if strings.TrimSpace(input.Question) == "" {
			return nil, AskPatientOutput{}, errors.New("question is required")
		}

		topK := input.TopK
		if topK <= 0 {
			topK = defaultTopK
		}

		resp, err := gen.Answer(ctx, input.PatientID, input.Question, topK)
		if err != nil {
			return nil, AskPatientOutput{}, fmt.Errorf("answer failed: %w", err)
		}
		return nil, AskPatientOutput{Answer: resp.Answer, Chunks: resp.Chunks}, nil
	}
}

// makeRecordHandler creates the get_structured_record tool handler.
// Unknown encounters and missing records report Found=false rather than an error.
func makeRecordHandler(store records.Store) func(
	context.Context, *mcp.CallToolRequest, GetRecordInput,
) (*mcp.CallToolResult, GetRecordOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetRecordInput) (
		*mcp.CallToolResult, GetRecordOutput, error,
	) {
		rec, err := store.GetRecord(ctx, input.EncounterID)
		if err != nil {
			if errors.Is(err, intake.ErrEncounterNotFound) || errors.Is(err, intake.ErrRecordNotFound) {
				return nil, GetRecordOutput{EncounterID: input.EncounterID, Found: false}, nil
			}
			return nil, GetRecordOutput{}, fmt.Errorf("failed to load record: %w", err)
		}
		return nil, GetRecordOutput{EncounterID: input.EncounterID, Found: true, Record: &rec}, nil
	}
}

// makeIndexHandler creates the index_encounter tool handler.
func makeIndexHandler(pipeline *indexer.Pipeline) func(
	context.Context, *mcp.CallToolRequest, IndexEncounterInput,
) (*mcp.CallToolResult, IndexEncounterOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IndexEncounterInput) (
		*mcp.CallToolResult, IndexEncounterOutput, error,
	) {
		out := IndexEncounterOutput{EncounterID: input.EncounterID}

		if input.Extract {
			extracted, indexed, err := pipeline.ProcessEncounter(ctx, input.EncounterID)
			if err != nil {
				return nil, IndexEncounterOutput{}, err
			}
			out.Method = string(extracted.Method)
			out.PatientID = indexed.PatientID
			out.Chunks = indexed.Chunks
			return nil, out, nil
		}

		indexed, err := pipeline.IndexEncounter(ctx, input.EncounterID)
		if err != nil {
			return nil, IndexEncounterOutput{}, err
		}
		out.PatientID = indexed.PatientID
		out.Chunks = indexed.Chunks
		return nil, out, nil
	}
}

// makeStatusHandler creates the patient_index_status tool handler.
func makeStatusHandler(recs records.Store, store storage.VectorStore) func(
	context.Context, *mcp.CallToolRequest, PatientIndexStatusInput,
) (*mcp.CallToolResult, PatientIndexStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input PatientIndexStatusInput) (
		*mcp.CallToolResult, PatientIndexStatusOutput, error,
	) {
		encounters, err := recs.ListEncounters(ctx, input.PatientID)
		if err != nil {
			return nil, PatientIndexStatusOutput{}, err
		}

		count, err := store.Count(ctx, input.PatientID)
		if err != nil {
			return nil, PatientIndexStatusOutput{}, fmt.Errorf("store_error: failed to count chunks: %w", err)
		}

		return nil, PatientIndexStatusOutput{
			PatientID:     input.PatientID,
			Encounters:    len(encounters),
			IndexedChunks: count,
		}, nil
	}
}
