// Package extract converts an intake transcript into a structured record.
//
// Extraction is total: a language-model attempt with a strict JSON contract
// runs first, and any failure of that attempt falls back to deterministic
// heuristics. Failures are values, reported in Result, never returned as errors.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yuin/goldmark"

	"github.com/bull/intake-rag-server/internal/intake"
	"github.com/bull/intake-rag-server/internal/llm"
)

// DefaultTemperature keeps extraction close to deterministic.
const DefaultTemperature = 0.1

// Stage identifies where the model-assisted attempt failed.
type Stage string

const (
	StageCall   Stage = "call"   // The chat call itself failed
	StageFormat Stage = "format" // The response was not JSON
	StageSchema Stage = "schema" // The JSON did not match the record schema
)

// Failure is the failed outcome of the model-assisted attempt.
type Failure struct {
	Stage Stage
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("model extraction failed at %s stage: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Method names the path that produced a record.
type Method string

const (
	MethodModel     Method = "model"
	MethodHeuristic Method = "heuristic"
)

// Result is the outcome of an extraction.
type Result struct {
	Record intake.Record
	Method Method
	// Failure is set when Method is MethodHeuristic.
	Failure *Failure
}

// Extractor produces structured records from transcripts.
type Extractor struct {
	model       llm.ChatModel
	temperature float64
	markdown    goldmark.Markdown
	logger      *slog.Logger
}

// NewExtractor creates an extractor. A nil model disables the model-assisted
// stage so every extraction uses the heuristic path.
func NewExtractor(model llm.ChatModel, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		model:       model,
		temperature: DefaultTemperature,
		markdown:    goldmark.New(),
		logger:      logger,
	}
}

// Extract returns a structured record for the transcript. It never fails.
func (e *Extractor) Extract(ctx context.Context, transcript intake.Transcript) Result {
	record, failure := e.attemptModel(ctx, transcript)
	result := resolve(transcript, record, failure)
	if result.Failure != nil {
		e.logger.Warn("Model extraction failed, using heuristic fallback",
			"stage", result.Failure.Stage,
			"error", result.Failure.Err,
		)
	}
	return result
}

// resolve combines the model attempt with the heuristic path.
func resolve(transcript intake.Transcript, record intake.Record, failure *Failure) Result {
	if failure == nil {
		return Result{Record: record, Method: MethodModel}
	}
	return Result{Record: Heuristic(transcript), Method: MethodHeuristic, Failure: failure}
}

func (e *Extractor) attemptModel(ctx context.Context, transcript intake.Transcript) (intake.Record, *Failure) {
	if e.model == nil {
		return intake.Record{}, &Failure{Stage: StageCall, Err: errors.New("no language model configured")}
	}

	raw, err := e.model.Chat(ctx, llm.Request{
		Messages:    buildMessages(transcript),
		Temperature: e.temperature,
	})
	if err != nil {
		return intake.Record{}, &Failure{Stage: StageCall, Err: err}
	}

	record, err := intake.ParseRecord([]byte(e.stripCodeFence(raw)))
	if err != nil {
		var vErr *intake.ValidationError
		if errors.As(err, &vErr) {
			return intake.Record{}, &Failure{Stage: StageSchema, Err: err}
		}
		return intake.Record{}, &Failure{Stage: StageFormat, Err: err}
	}
	return record, nil
}
