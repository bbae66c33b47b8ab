// Package chunker decomposes structured records and transcripts into
// provenance-tagged text chunks for embedding.
package chunker

import (
	"fmt"
	"strings"

	"github.com/bull/intake-rag-server/internal/intake"
)

// Chunker builds retrieval chunks for one encounter.
// Chunk text is never truncated; size limits belong to the caller.
type Chunker struct{}

// NewChunker creates a new chunker.
func NewChunker() *Chunker {
	return &Chunker{}
}

// BuildChunks emits at most one structured chunk per populated field group of
// rec, in schema order, followed by a single utterance chunk holding the
// transcript's question-answer pairs. A nil rec contributes no chunks.
func (c *Chunker) BuildChunks(patientID, encounterID string, rec *intake.Record, transcript intake.Transcript) []intake.Chunk {
	var texts []string
	if rec != nil {
		texts = structuredTexts(rec)
	}

	chunks := make([]intake.Chunk, 0, len(texts)+1)
	for _, text := range texts {
		chunks = append(chunks, intake.Chunk{
			Text:        text,
			SourceType:  intake.SourceStructured,
			PatientID:   patientID,
			EncounterID: encounterID,
		})
	}

	if text, ok := conversationText(transcript); ok {
		chunks = append(chunks, intake.Chunk{
			Text:        text,
			SourceType:  intake.SourceUtterance,
			PatientID:   patientID,
			EncounterID: encounterID,
		})
	}

	return chunks
}

func structuredTexts(rec *intake.Record) []string {
	var out []string

	if v, ok := present(rec.ChiefComplaint); ok {
		out = append(out, "Chief complaint: "+v)
	}

	if len(rec.Symptoms) > 0 {
		parts := make([]string, 0, len(rec.Symptoms))
		for _, s := range rec.Symptoms {
			parts = append(parts, symptomText(s))
		}
		out = append(out, "Symptoms: "+strings.Join(parts, " | "))
	}

	if len(rec.Medications) > 0 {
		parts := make([]string, 0, len(rec.Medications))
		for _, m := range rec.Medications {
			fields := []string{m.Name}
			fields = appendPresent(fields, "", m.Dose)
			fields = appendPresent(fields, "", m.Frequency)
			fields = appendPresent(fields, "route: ", m.Route)
			fields = appendPresent(fields, "for: ", m.Indication)
			parts = append(parts, strings.Join(fields, ", "))
		}
		out = append(out, "Medications: "+strings.Join(parts, "; "))
	}

	if len(rec.Allergies) > 0 {
		parts := make([]string, 0, len(rec.Allergies))
		for _, a := range rec.Allergies {
			fields := []string{a.Substance}
			fields = appendPresent(fields, "reaction: ", a.Reaction)
			fields = appendPresent(fields, "severity: ", a.Severity)
			parts = append(parts, strings.Join(fields, ", "))
		}
		out = append(out, "Allergies: "+strings.Join(parts, "; "))
	}

	lists := []struct {
		label string
		items []string
	}{
		{"Past medical history", rec.PastMedicalHistory},
		{"Family history", rec.FamilyHistory},
		{"Social history", rec.SocialHistory},
		{"Red flags", rec.RedFlags},
	}
	for _, l := range lists {
		if len(l.items) > 0 {
			out = append(out, l.label+": "+strings.Join(l.items, "; "))
		}
	}

	if v, ok := present(rec.PatientGoals); ok {
		out = append(out, "Patient goals: "+v)
	}
	if v, ok := present(rec.OtherNotes); ok {
		out = append(out, "Other notes: "+v)
	}

	return out
}

func symptomText(s intake.Symptom) string {
	parts := []string{"name: " + s.Name}
	parts = appendPresent(parts, "onset: ", s.Onset)
	parts = appendPresent(parts, "duration: ", s.Duration)
	parts = appendPresent(parts, "location: ", s.Location)
	parts = appendPresent(parts, "character: ", s.Character)
	parts = appendPresent(parts, "severity: ", s.Severity)
	parts = appendPresent(parts, "aggravating: ", s.AggravatingFactors)
	parts = appendPresent(parts, "relieving: ", s.RelievingFactors)
	if len(s.AssociatedSymptoms) > 0 {
		parts = append(parts, "associated: "+strings.Join(s.AssociatedSymptoms, ", "))
	}
	if len(s.RedFlags) > 0 {
		parts = append(parts, "red_flags: "+strings.Join(s.RedFlags, ", "))
	}
	return strings.Join(parts, "; ")
}

// conversationText pairs every patient turn with the latest assistant turn
// before it. A patient turn with no preceding assistant turn becomes an
// answer-only fragment.
func conversationText(transcript intake.Transcript) (string, bool) {
	var pairs []string
	var question string
	for _, turn := range transcript {
		switch turn.Speaker {
		case intake.SpeakerAssistant:
			question = turn.Text
		case intake.SpeakerPatient:
			if question != "" {
				pairs = append(pairs, fmt.Sprintf("Q: %s A: %s", question, turn.Text))
			} else {
				pairs = append(pairs, "A: "+turn.Text)
			}
		}
	}
	if len(pairs) == 0 {
		return "", false
	}
	return "Conversation QA pairs: " + strings.Join(pairs, " | "), true
}

func present(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	v := strings.TrimSpace(*s)
	return v, v != ""
}

func appendPresent(parts []string, prefix string, s *string) []string {
	if v, ok := present(s); ok {
		return append(parts, prefix+v)
	}
	return parts
}
