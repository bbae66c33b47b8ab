// Package qa answers questions about one patient using only that patient's
// indexed chunks as grounding.
package qa

import (
	"fmt"
	"strings"

	"github.com/bull/intake-rag-server/internal/storage"
)

// BuildContext renders retrieved chunks as citation-tagged lines, in input order.
// Chunk numbers are 1-based and match the [chunk N] citations in answers.
func BuildContext(chunks []storage.RetrievedChunk) string {
	lines := make([]string, len(chunks))
	for i, c := range chunks {
		encounter := c.EncounterID
		if encounter == "" {
			encounter = "none"
		}
		lines[i] = fmt.Sprintf("[chunk %d, encounter=%s, source=%s] %s", i+1, encounter, c.SourceType, c.Text)
	}
	return strings.Join(lines, "\n")
}
