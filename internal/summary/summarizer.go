// Package summary writes a short clinician-facing summary of an encounter,
// indexed as a "summary" chunk alongside the structured and conversation chunks.
package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/bull/intake-rag-server/internal/intake"
	"github.com/bull/intake-rag-server/internal/llm"
)

// DefaultMaxTokens bounds the transcript sent to the model (in tokens).
const DefaultMaxTokens = 16000

const instructions = `Summarize this patient intake encounter for the treating clinician in 1-2 sentences.
Use only facts present in the structured record or the conversation. Do NOT invent details.

Structured record (JSON):
%s

Conversation:
%s

Respond in JSON format:
{"summary": "Brief summary of the encounter"}`

// Summarizer produces encounter summaries with a chat model.
type Summarizer struct {
	model     llm.ChatModel
	maxTokens int
	logger    *slog.Logger
}

// NewSummarizer creates a summarizer. Optional maxTokens sets the
// transcript truncation limit (defaults to DefaultMaxTokens).
func NewSummarizer(model llm.ChatModel, logger *slog.Logger, maxTokens ...int) *Summarizer {
	limit := DefaultMaxTokens
	if len(maxTokens) > 0 && maxTokens[0] > 0 {
		limit = maxTokens[0]
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{model: model, maxTokens: limit, logger: logger}
}

type response struct {
	Summary string `json:"summary"`
}

// Summarize returns a one or two sentence summary of the encounter.
func (s *Summarizer) Summarize(ctx context.Context, rec intake.Record, transcript intake.Transcript) (string, error) {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	prompt := fmt.Sprintf(instructions, recordJSON, s.truncate(transcript.Text()))
	reply, err := s.model.Chat(ctx, llm.Request{
		Messages:    []llm.Message{llm.User(prompt)},
		Temperature: 0.1,
	})
	if err != nil {
		return "", err
	}

	var resp response
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &resp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	summary := strings.TrimSpace(resp.Summary)
	if summary == "" {
		return "", errors.New("empty summary")
	}
	return summary, nil
}

// truncate keeps the transcript within the token budget, using a rough
// estimate of 4 characters per token. Cuts fall on a rune boundary.
func (s *Summarizer) truncate(content string) string {
	maxChars := s.maxTokens * 4
	if len(content) <= maxChars {
		return content
	}

	s.logger.Warn("Truncating transcript for summary",
		"from", len(content), "to", maxChars, "tokens", s.maxTokens)

	cut := maxChars
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}
