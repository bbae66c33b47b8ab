// Package app assembles the components named by a config.Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bull/intake-rag-server/internal/chunker"
	"github.com/bull/intake-rag-server/internal/config"
	"github.com/bull/intake-rag-server/internal/embedding"
	"github.com/bull/intake-rag-server/internal/extract"
	"github.com/bull/intake-rag-server/internal/indexer"
	"github.com/bull/intake-rag-server/internal/llm"
	"github.com/bull/intake-rag-server/internal/qa"
	"github.com/bull/intake-rag-server/internal/records"
	"github.com/bull/intake-rag-server/internal/storage"
	"github.com/bull/intake-rag-server/internal/summary"
)

// App holds the wired components for one process.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Records   records.Store
	Store     storage.VectorStore
	Qdrant    *storage.QdrantStore // nil unless the qdrant backend is selected
	Embedder  embedding.Embedder
	Chat      llm.ChatModel // nil without an OpenAI API key
	Pipeline  *indexer.Pipeline
	Generator *qa.Generator
}

// New connects to the configured stores and builds the pipeline and generator.
// Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	var client *embedding.Client
	if cfg.OpenAI.APIKey != "" {
		var err error
		client, err = embedding.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		a.Chat = llm.NewOpenAIChat(client.Client(), cfg.LLM.Model, cfg.LLM.Timeout)
	} else {
		logger.Warn("OPENAI_API_KEY not set, extraction uses the heuristic path and answers are unavailable")
	}

	switch cfg.Embedding.Provider {
	case "openai":
		if client == nil {
			return nil, errors.New("openai embedding provider requires OPENAI_API_KEY")
		}
		a.Embedder = embedding.NewOpenAIEmbedder(client, embedding.OpenAIConfig{
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
			BatchSize: cfg.Embedding.BatchSize,
			Timeout:   cfg.Embedding.Timeout,
		})
	default:
		a.Embedder = embedding.NewHashEmbedder(cfg.Embedding.Dimension)
	}

	recs, err := records.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open records store: %w", err)
	}
	a.Records = recs

	switch cfg.VectorStore.Type {
	case "memory":
		store, err := storage.NewMemoryStore(cfg.Embedding.Dimension)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Store = store
	default:
		q := cfg.VectorStore.Qdrant
		logger.Info("Connecting to Qdrant", "host", q.Host, "port", q.Port, "collection", q.Collection)
		store, err := storage.NewQdrantStore(storage.QdrantConfig{
			Host:       q.Host,
			Port:       q.Port,
			APIKey:     q.APIKey,
			UseTLS:     q.UseTLS,
			Collection: q.Collection,
			Dimension:  cfg.Embedding.Dimension,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Qdrant = store
		a.Store = store
		if err := store.EnsureCollection(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("ensure collection: %w", err)
		}
	}

	a.Pipeline = indexer.NewPipeline(a.Records, extract.NewExtractor(a.Chat, logger),
		chunker.NewChunker(), a.Embedder, a.Store, logger)
	if cfg.Index.Summaries {
		if a.Chat != nil {
			a.Pipeline.WithSummarizer(summary.NewSummarizer(a.Chat, logger))
		} else {
			logger.Warn("Summary chunks requested but no chat model is configured")
		}
	}
	a.Generator = qa.NewGenerator(a.Embedder, a.Store, a.Chat, logger)
	return a, nil
}

// Close releases the records database and the Qdrant connection.
func (a *App) Close() error {
	var errs []error
	if a.Records != nil {
		errs = append(errs, a.Records.Close())
	}
	if a.Qdrant != nil {
		errs = append(errs, a.Qdrant.Close())
	}
	return errors.Join(errs...)
}
