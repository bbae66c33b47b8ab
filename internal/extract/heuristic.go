package extract

import (
	"strings"

	"github.com/bull/intake-rag-server/internal/intake"
)

// PlaceholderSymptom is the symptom name used when only a complaint is known.
const PlaceholderSymptom = "reported symptom"

// Heuristic builds a record from fixed rules:
//   - chief complaint is the first non-blank patient turn
//   - patient goals is the last non-blank patient turn
//   - a single placeholder symptom exists when there is a chief complaint
//   - every other list is empty
//
// It is pure and deterministic.
func Heuristic(transcript intake.Transcript) intake.Record {
	record := intake.EmptyRecord()

	var first, last string
	for _, turn := range transcript {
		if turn.Speaker != intake.SpeakerPatient {
			continue
		}
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		if first == "" {
			first = text
		}
		last = text
	}

	record.ChiefComplaint = intake.StringPtr(first)
	record.PatientGoals = intake.StringPtr(last)
	if record.ChiefComplaint != nil {
		record.Symptoms = []intake.Symptom{{
			Name:               PlaceholderSymptom,
			AssociatedSymptoms: []string{},
			RedFlags:           []string{},
		}}
	}
	return record
}
