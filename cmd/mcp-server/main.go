// Package main provides the MCP server entry point for patient intake question answering.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bull/intake-rag-server/internal/app"
	"github.com/bull/intake-rag-server/internal/config"
	mcpserver "github.com/bull/intake-rag-server/internal/mcp"
)

func main() {
	// The YAML config path, if any, comes from INTAKE_CONFIG.
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	// stdout carries the MCP stdio channel; logs go to stderr.
	logger := cfg.Log.Logger(os.Stderr)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	server := mcpserver.NewServer(&mcpserver.Config{
		Records:   a.Records,
		Store:     a.Store,
		Pipeline:  a.Pipeline,
		Generator: a.Generator,
		TopK:      cfg.QA.TopK,
		Logger:    logger,
	})

	mux := mcpserver.NewMux(server, nil)
	addr := "0.0.0.0:" + cfg.Server.Port
	httpServer := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	if cfg.Server.ServerMode {
		logger.Info("Starting HTTP server", "addr", addr, "mcp", "/mcp", "health", "/health")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
		return
	}

	// Stdio mode still serves /health in the background for local testing.
	go func() {
		logger.Info("Starting health server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("Health server error", "error", err)
		}
	}()

	logger.Info("Starting patient intake MCP server (stdio mode)")
	if err := server.Run(ctx); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
