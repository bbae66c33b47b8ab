package extract

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/intake-rag-server/internal/intake"
	"github.com/bull/intake-rag-server/internal/llm"
)

// fakeChat returns a canned reply or error and records the requests it saw.
type fakeChat struct {
	reply    string
	err      error
	requests []llm.Request
}

func (f *fakeChat) Chat(ctx context.Context, req llm.Request) (string, error) {
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func coughTranscript() intake.Transcript {
	return intake.Transcript{
		{Seq: 1, Speaker: intake.SpeakerAssistant, Text: "What brings you in?"},
		{Seq: 2, Speaker: intake.SpeakerPatient, Text: "I have had a cough for two weeks"},
	}
}

func TestExtract_HeuristicTranscript(t *testing.T) {
	chat := &fakeChat{err: errors.New("connection refused")}
	result := NewExtractor(chat, nil).Extract(context.Background(), coughTranscript())

	assert.Equal(t, MethodHeuristic, result.Method)
	require.NotNil(t, result.Failure)
	assert.Equal(t, StageCall, result.Failure.Stage)

	rec := result.Record
	assert.Equal(t, "I have had a cough for two weeks", intake.Deref(rec.ChiefComplaint))
	assert.Equal(t, "I have had a cough for two weeks", intake.Deref(rec.PatientGoals))
	require.Len(t, rec.Symptoms, 1)
	assert.Equal(t, intake.Symptom{
		Name:               PlaceholderSymptom,
		AssociatedSymptoms: []string{},
		RedFlags:           []string{},
	}, rec.Symptoms[0])
	assert.Empty(t, rec.Medications)
	assert.Empty(t, rec.Allergies)
	assert.NotNil(t, rec.Medications)
}

func TestExtract_ModelSuccess(t *testing.T) {
	chat := &fakeChat{reply: "```json\n{\"chief_complaint\": \"cough\", \"symptoms\": [{\"name\": \"cough\", \"duration\": \"two weeks\"}], \"note\": \"extra\"}\n```"}
	result := NewExtractor(chat, nil).Extract(context.Background(), coughTranscript())

	assert.Equal(t, MethodModel, result.Method)
	assert.Nil(t, result.Failure)
	assert.Equal(t, "cough", intake.Deref(result.Record.ChiefComplaint))
	assert.Equal(t, "two weeks", intake.Deref(result.Record.Symptoms[0].Duration))

	require.Len(t, chat.requests, 1)
	req := chat.requests[0]
	assert.InDelta(t, DefaultTemperature, req.Temperature, 1e-9)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "Do NOT invent")
	assert.Contains(t, req.Messages[1].Content, `"aggravating_factors": string or null`)
	assert.Contains(t, req.Messages[1].Content, "patient: I have had a cough for two weeks")
}

func TestExtract_FallbackStages(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		stage Stage
	}{
		{"prose", "The patient has a cough.", StageFormat},
		{"truncated json", `{"chief_complaint": "cough"`, StageFormat},
		{"schema mismatch", `{"symptoms": "cough"}`, StageSchema},
		{"json array", `["cough"]`, StageSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewExtractor(&fakeChat{reply: tt.reply}, nil).Extract(context.Background(), coughTranscript())

			assert.Equal(t, MethodHeuristic, result.Method)
			require.NotNil(t, result.Failure)
			assert.Equal(t, tt.stage, result.Failure.Stage)
			assert.Equal(t, Heuristic(coughTranscript()), result.Record)
		})
	}
}

func TestExtract_NilModelUsesHeuristic(t *testing.T) {
	result := NewExtractor(nil, nil).Extract(context.Background(), coughTranscript())
	assert.Equal(t, MethodHeuristic, result.Method)
}

func TestExtract_EmptyTranscript(t *testing.T) {
	result := NewExtractor(&fakeChat{err: errors.New("down")}, nil).Extract(context.Background(), nil)

	assert.Nil(t, result.Record.ChiefComplaint)
	assert.Nil(t, result.Record.PatientGoals)
	assert.Empty(t, result.Record.Symptoms)
	assert.Equal(t, intake.EmptyRecord(), result.Record)
}

func TestHeuristic_Deterministic(t *testing.T) {
	transcript := intake.Transcript{
		{Speaker: intake.SpeakerAssistant, Text: "What brings you in?"},
		{Speaker: intake.SpeakerPatient, Text: "  Headaches most mornings  "},
		{Speaker: intake.SpeakerAssistant, Text: "Anything else?"},
		{Speaker: intake.SpeakerPatient, Text: ""},
		{Speaker: intake.SpeakerPatient, Text: "I want to know if it is serious"},
	}

	first, err := json.Marshal(Heuristic(transcript))
	require.NoError(t, err)
	second, err := json.Marshal(Heuristic(transcript))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	rec := Heuristic(transcript)
	assert.Equal(t, "Headaches most mornings", intake.Deref(rec.ChiefComplaint))
	assert.Equal(t, "I want to know if it is serious", intake.Deref(rec.PatientGoals))
}

func TestHeuristic_SkipsBlankPatientTurns(t *testing.T) {
	rec := Heuristic(intake.Transcript{
		{Speaker: intake.SpeakerPatient, Text: "   "},
		{Speaker: intake.SpeakerPatient, Text: "chest pain"},
		{Speaker: intake.SpeakerPatient, Text: "\t"},
	})

	assert.Equal(t, "chest pain", intake.Deref(rec.ChiefComplaint))
	assert.Equal(t, "chest pain", intake.Deref(rec.PatientGoals))
	require.Len(t, rec.Symptoms, 1)
	assert.Equal(t, PlaceholderSymptom, rec.Symptoms[0].Name)

	blank := Heuristic(intake.Transcript{{Speaker: intake.SpeakerPatient, Text: "  "}})
	assert.Nil(t, blank.ChiefComplaint)
	assert.Empty(t, blank.Symptoms)
}

func TestHeuristic_NoPatientTurns(t *testing.T) {
	rec := Heuristic(intake.Transcript{{Speaker: intake.SpeakerAssistant, Text: "Hello?"}})
	assert.Nil(t, rec.ChiefComplaint)
	assert.Empty(t, rec.Symptoms)
}
