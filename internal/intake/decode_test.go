package intake

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord_Full(t *testing.T) {
	input := `{
		"chief_complaint": "cough",
		"symptoms": [{
			"name": "cough",
			"onset": "two weeks ago",
			"duration": null,
			"severity": "moderate",
			"associated_symptoms": ["fever", "fever", "fatigue"],
			"red_flags": []
		}],
		"medications": [{"name": "ibuprofen", "dose": "200mg", "frequency": "twice daily"}],
		"allergies": [{"substance": "penicillin", "reaction": "rash"}],
		"past_medical_history": ["asthma"],
		"family_history": [],
		"social_history": ["non-smoker"],
		"red_flags": [],
		"patient_goals": "get rid of the cough",
		"other_notes": null
	}`

	rec, err := ParseRecord([]byte(input))
	require.NoError(t, err)

	assert.Equal(t, "cough", Deref(rec.ChiefComplaint))
	require.Len(t, rec.Symptoms, 1)
	assert.Equal(t, "two weeks ago", Deref(rec.Symptoms[0].Onset))
	assert.Nil(t, rec.Symptoms[0].Duration)
	assert.Equal(t, []string{"fever", "fatigue"}, rec.Symptoms[0].AssociatedSymptoms, "set fields drop duplicates")
	assert.Equal(t, []string{}, rec.Symptoms[0].RedFlags)
	require.Len(t, rec.Medications, 1)
	assert.Equal(t, "200mg", Deref(rec.Medications[0].Dose))
	assert.Nil(t, rec.Medications[0].Route)
	assert.Equal(t, "penicillin", rec.Allergies[0].Substance)
	assert.Equal(t, []string{"asthma"}, rec.PastMedicalHistory)
	assert.Equal(t, []string{}, rec.FamilyHistory)
	assert.Nil(t, rec.OtherNotes)
}

func TestParseRecord_IgnoresUnknownKeys(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"chief_complaint": "headache", "confidence": 0.9, "symptoms": [{"name": "headache", "laterality": "left"}]}`))
	require.NoError(t, err)

	assert.Equal(t, "headache", Deref(rec.ChiefComplaint))
	require.Len(t, rec.Symptoms, 1)
	assert.Equal(t, "headache", rec.Symptoms[0].Name)
}

func TestParseRecord_MissingListsBecomeEmpty(t *testing.T) {
	rec, err := ParseRecord([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, EmptyRecord(), rec)
}

func TestParseRecord_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{"scalar for list", `{"symptoms": "cough"}`, "symptoms"},
		{"number for string", `{"chief_complaint": 42}`, "chief_complaint"},
		{"symptom without name", `{"symptoms": [{"onset": "today"}]}`, "symptoms[0].name"},
		{"null symptom", `{"symptoms": [null]}`, "symptoms[0]"},
		{"allergy without substance", `{"allergies": [{"reaction": "hives"}]}`, "allergies[0].substance"},
		{"null history entry", `{"family_history": ["diabetes", null]}`, "family_history[1]"},
		{"array at top level", `[{"chief_complaint": "cough"}]`, ""},
		{"null at top level", `null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord([]byte(tt.input))
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			if tt.field != "" {
				assert.Contains(t, vErr.Field, tt.field)
			}
		})
	}
}

func TestParseRecord_MalformedJSON(t *testing.T) {
	_, err := ParseRecord([]byte(`{"chief_complaint": `))
	require.Error(t, err)

	var vErr *ValidationError
	assert.False(t, errors.As(err, &vErr), "syntax errors are not schema errors")
}

func TestRecord_MarshalUsesNullAndEmptyLists(t *testing.T) {
	data, err := json.Marshal(Record{})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Nil(t, raw["chief_complaint"])
	assert.Equal(t, []any{}, raw["symptoms"])
	assert.Equal(t, []any{}, raw["red_flags"])
	assert.Len(t, raw, 10)
}

func TestRecord_RoundTrip(t *testing.T) {
	original, err := ParseRecord([]byte(`{
		"chief_complaint": "back pain",
		"symptoms": [{"name": "back pain", "location": "lower back", "aggravating_factors": "sitting"}],
		"medications": [{"name": "paracetamol", "route": "oral", "indication": "pain"}],
		"allergies": [],
		"social_history": ["office worker"],
		"patient_goals": "sleep through the night"
	}`))
	require.NoError(t, err)

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var reloaded Record
	require.NoError(t, json.Unmarshal(data, &reloaded))
	assert.Equal(t, original, reloaded)
}
