package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/intake-rag-server/internal/intake"
	"github.com/bull/intake-rag-server/internal/records"
)

const sampleTranscript = `{
  "patient_display_name": "Jane Doe",
  "turns": [
    {"speaker": "assistant", "text": "What brings you in?", "timestamp": "2024-03-01T09:00:00Z"},
    {"speaker": "patient", "text": "I have had a cough for two weeks", "timestamp": "2024-03-01T09:00:05Z"},
    {"speaker": "assistant", "text": "Anything else?"},
    {"speaker": "patient", "text": "No, that's all"}
  ]
}`

func TestImportTranscript(t *testing.T) {
	ctx := context.Background()
	file, err := readTranscriptFile(strings.NewReader(sampleTranscript))
	require.NoError(t, err)

	store := records.NewMemoryStore()
	patientID, encounterID, err := importTranscript(ctx, store, "", file)
	require.NoError(t, err)

	patient, err := store.GetPatient(ctx, patientID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", patient.DisplayName)

	transcript, err := store.Transcript(ctx, encounterID)
	require.NoError(t, err)
	require.Len(t, transcript, 4)
	assert.Equal(t, intake.SpeakerAssistant, transcript[0].Speaker)
	assert.Equal(t, "No, that's all", transcript[3].Text, "untimed turns keep file order")

	enc, err := store.GetEncounter(ctx, encounterID)
	require.NoError(t, err)
	assert.NotNil(t, enc.CompletedAt)

	// A second import for the same patient adds an encounter.
	_, second, err := importTranscript(ctx, store, patientID, file)
	require.NoError(t, err)
	assert.NotEqual(t, encounterID, second)
	encounters, err := store.ListEncounters(ctx, patientID)
	require.NoError(t, err)
	assert.Len(t, encounters, 2)
}

func TestImportTranscript_UnknownPatient(t *testing.T) {
	file, err := readTranscriptFile(strings.NewReader(sampleTranscript))
	require.NoError(t, err)

	_, _, err = importTranscript(context.Background(), records.NewMemoryStore(), "missing", file)
	assert.ErrorIs(t, err, intake.ErrPatientNotFound)
}

func TestReadTranscriptFile_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "speaker: patient"},
		{"bad speaker", `{"turns": [{"speaker": "doctor", "text": "hi"}]}`},
		{"empty text", `{"turns": [{"speaker": "patient", "text": "  "}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readTranscriptFile(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}
