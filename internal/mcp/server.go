package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/intake-rag-server/internal/indexer"
	"github.com/bull/intake-rag-server/internal/qa"
	"github.com/bull/intake-rag-server/internal/records"
	"github.com/bull/intake-rag-server/internal/storage"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server  *mcp.Server
	store   storage.VectorStore
	records records.Store
}

// Config holds server dependencies.
type Config struct {
	Records   records.Store
	Store     storage.VectorStore
	Pipeline  *indexer.Pipeline
	Generator *qa.Generator
	TopK      int
	Logger    *slog.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = qa.DefaultTopK
	}

	impl := &mcp.Implementation{
		Name:    "patient-intake-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_patient",
		Description: "Answer a question about one patient using only that patient's indexed intake records. Returns the answer with the cited record chunks.",
	}, makeAskHandler(cfg.Generator, cfg.TopK))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_structured_record",
		Description: "Return the structured intake record (complaint, symptoms, medications, allergies, history) extracted for an encounter.",
	}, makeRecordHandler(cfg.Records))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_encounter",
		Description: "Index an encounter's structured record and conversation for question answering, optionally re-extracting the record first.",
	}, makeIndexHandler(cfg.Pipeline))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "patient_index_status",
		Description: "Report how many encounters and indexed chunks a patient has.",
	}, makeStatusHandler(cfg.Records, cfg.Store))

	return &Server{
		server:  server,
		store:   cfg.Store,
		records: cfg.Records,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
