package extract

import (
	"github.com/bull/intake-rag-server/internal/intake"
	"github.com/bull/intake-rag-server/internal/llm"
)

const systemPrompt = `You are a clinical intake assistant. Given a conversation between a patient and an intake assistant, you extract key clinical information and output strictly formatted JSON.

Do NOT invent details that are not clearly stated or implied. Leave fields null or use empty lists when information is missing.`

const schemaDescription = `Return a single JSON object with exactly this structure:

{
  "chief_complaint": string or null,
  "symptoms": [
    {
      "name": string,
      "onset": string or null,
      "duration": string or null,
      "location": string or null,
      "character": string or null,
      "severity": string or null,
      "aggravating_factors": string or null,
      "relieving_factors": string or null,
      "associated_symptoms": [string, ...],
      "red_flags": [string, ...]
    }
  ],
  "medications": [
    {
      "name": string,
      "dose": string or null,
      "frequency": string or null,
      "route": string or null,
      "indication": string or null
    }
  ],
  "allergies": [
    {
      "substance": string,
      "reaction": string or null,
      "severity": string or null
    }
  ],
  "past_medical_history": [string, ...],
  "family_history": [string, ...],
  "social_history": [string, ...],
  "red_flags": [string, ...],
  "patient_goals": string or null,
  "other_notes": string or null
}`

func buildMessages(transcript intake.Transcript) []llm.Message {
	user := "Here is the transcript of an intake conversation between a patient and an intake assistant. " +
		"Read it carefully and extract the structured information.\n\n" +
		schemaDescription + "\n\n" +
		"Transcript:\n" + transcript.Text() + "\n\n" +
		"Return ONLY the JSON object, with no additional commentary."

	return []llm.Message{
		llm.System(systemPrompt),
		llm.User(user),
	}
}
