// Package mcp exposes patient question answering and indexing as MCP tools.
package mcp

import (
	"github.com/bull/intake-rag-server/internal/intake"
	"github.com/bull/intake-rag-server/internal/qa"
)

// AskPatientInput defines the input parameters for the ask_patient tool.
type AskPatientInput struct {
	// PatientID scopes retrieval to one patient's records.
	PatientID string `json:"patient_id" jsonschema:"the patient whose records are searched"`
	// Question is the clinician's question in natural language.
	Question string `json:"question" jsonschema:"the question to answer from the patient's records"`
	// TopK is the maximum number of chunks used as grounding.
	TopK int `json:"top_k,omitempty" jsonschema:"maximum number of record chunks to retrieve (default 5)"`
}

// AskPatientOutput contains the grounded answer and its supporting chunks.
type AskPatientOutput struct {
	Answer string        `json:"answer"`
	Chunks []qa.ChunkRef `json:"chunks"`
}

// GetRecordInput defines the input parameters for the get_structured_record tool.
type GetRecordInput struct {
	EncounterID string `json:"encounter_id" jsonschema:"the encounter whose structured record is returned"`
}

// GetRecordOutput contains the structured record of an encounter.
type GetRecordOutput struct {
	EncounterID string `json:"encounter_id"`
	// Found is false when the encounter or its record does not exist.
	Found  bool           `json:"found"`
	Record *intake.Record `json:"record,omitempty"`
}

// IndexEncounterInput defines the input parameters for the index_encounter tool.
type IndexEncounterInput struct {
	EncounterID string `json:"encounter_id" jsonschema:"the encounter to index"`
	// Extract re-runs structured extraction before indexing.
	Extract bool `json:"extract,omitempty" jsonschema:"extract the structured record from the transcript before indexing"`
}

// IndexEncounterOutput reports what indexing wrote.
type IndexEncounterOutput struct {
	EncounterID string `json:"encounter_id"`
	PatientID   string `json:"patient_id"`
	Chunks      int    `json:"chunks"`
	// Method is "model" or "heuristic" when extraction ran.
	Method string `json:"method,omitempty"`
}

// PatientIndexStatusInput defines the input parameters for the patient_index_status tool.
type PatientIndexStatusInput struct {
	PatientID string `json:"patient_id" jsonschema:"the patient to report on"`
}

// PatientIndexStatusOutput contains index statistics for one patient.
type PatientIndexStatusOutput struct {
	PatientID     string `json:"patient_id"`
	Encounters    int    `json:"encounters"`
	IndexedChunks int    `json:"indexed_chunks"`
}
