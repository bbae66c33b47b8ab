package qa

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/intake-rag-server/internal/embedding"
	"github.com/bull/intake-rag-server/internal/llm"
	"github.com/bull/intake-rag-server/internal/storage"
)

const (
	// DefaultTopK is the number of chunks retrieved when the caller passes k <= 0.
	DefaultTopK = 5

	// DefaultTemperature keeps answers close to deterministic.
	DefaultTemperature = 0.1

	// NoInformationAnswer is returned without a model call when nothing is retrieved.
	NoInformationAnswer = "I couldn't find any information about that in this patient's records."

	// UnavailableAnswer is returned when chunks were found but the model call failed.
	UnavailableAnswer = "I don't know. The answer could not be generated from this patient's records right now."
)

const systemPrompt = `You are an AI assistant helping a doctor review a single patient's history. You are given context snippets from this patient's intake conversations and structured notes.

RULES:
- Answer ONLY using the provided context.
- If the answer is not clearly supported by the context, say you don't know.
- Keep answers short and direct (1-2 sentences).
- When possible, mention which chunks support your answer using [chunk N]. Do not quote messy or confusing raw text verbatim; just summarise it.`

// ChunkRef is a retrieved chunk as shown to the caller.
type ChunkRef struct {
	ID          string  `json:"id"`
	EncounterID *string `json:"encounter_id"`
	SourceType  string  `json:"source_type"`
	Text        string  `json:"text"`
	Score       float64 `json:"score"` // Distance, lower is closer
}

// Response is a grounded answer and the chunks it was grounded on.
type Response struct {
	Answer string     `json:"answer"`
	Chunks []ChunkRef `json:"chunks"`
}

// Generator retrieves patient chunks and asks the model to answer from them.
type Generator struct {
	embedder    embedding.Embedder
	store       storage.VectorStore
	model       llm.ChatModel
	temperature float64
	logger      *slog.Logger
}

// NewGenerator creates a Generator. model may be nil, in which case any
// question with retrieved chunks gets UnavailableAnswer.
func NewGenerator(embedder embedding.Embedder, store storage.VectorStore, model llm.ChatModel, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		embedder:    embedder,
		store:       store,
		model:       model,
		temperature: DefaultTemperature,
		logger:      logger,
	}
}

// Answer embeds question, retrieves up to k of the patient's chunks and
// returns the model's answer with those chunks. Embedding and store errors
// are returned; a failed model call degrades to UnavailableAnswer.
func (g *Generator) Answer(ctx context.Context, patientID, question string, k int) (*Response, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	vectors, err := g.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed question: got %d vectors", len(vectors))
	}

	chunks, err := g.store.Query(ctx, patientID, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("retrieve chunks: %w", err)
	}

	if len(chunks) == 0 {
		g.logger.Debug("No chunks retrieved", "patient", patientID)
		return &Response{Answer: NoInformationAnswer, Chunks: []ChunkRef{}}, nil
	}

	resp := &Response{Chunks: toRefs(chunks)}
	if g.model == nil {
		resp.Answer = UnavailableAnswer
		return resp, nil
	}

	answer, err := g.model.Chat(ctx, llm.Request{
		Messages:    buildMessages(question, BuildContext(chunks)),
		Temperature: g.temperature,
	})
	if err != nil {
		g.logger.Warn("Answer generation failed", "patient", patientID, "error", err)
		resp.Answer = UnavailableAnswer
		return resp, nil
	}

	resp.Answer = answer
	return resp, nil
}

func buildMessages(question, contextText string) []llm.Message {
	user := fmt.Sprintf("Doctor's question: %s\n\n"+
		"Here are context snippets from this patient's records:\n"+
		"%s\n\n"+
		"Based only on this context, answer the doctor's question. "+
		"If you cannot answer from these snippets, say so clearly.", question, contextText)

	return []llm.Message{
		llm.System(systemPrompt),
		llm.User(user),
	}
}

func toRefs(chunks []storage.RetrievedChunk) []ChunkRef {
	refs := make([]ChunkRef, len(chunks))
	for i, c := range chunks {
		ref := ChunkRef{
			ID:         c.ID,
			SourceType: string(c.SourceType),
			Text:       c.Text,
			Score:      c.Distance,
		}
		if c.EncounterID != "" {
			id := c.EncounterID
			ref.EncounterID = &id
		}
		refs[i] = ref
	}
	return refs
}
