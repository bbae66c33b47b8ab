package intake

// SourceType records where a chunk's text came from.
type SourceType string

const (
	SourceUtterance  SourceType = "utterance"
	SourceSummary    SourceType = "summary"
	SourceStructured SourceType = "structured"
)

// Valid reports whether t is a known source type.
func (t SourceType) Valid() bool {
	switch t {
	case SourceUtterance, SourceSummary, SourceStructured:
		return true
	}
	return false
}

// Chunk is a provenance-tagged unit of text prepared for embedding.
// Chunks are immutable; re-indexing produces new chunks.
type Chunk struct {
	Text        string
	SourceType  SourceType
	PatientID   string
	EncounterID string // Empty when the chunk is not tied to an encounter
}
