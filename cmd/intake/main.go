// Package main provides the intake CLI for importing transcripts, building
// structured records and indexes, and asking questions about a patient.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bull/intake-rag-server/internal/app"
	"github.com/bull/intake-rag-server/internal/config"
)

var (
	configPath string
	outputJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Patient intake extraction and retrieval tool",
	Long: `CLI tool for turning intake transcripts into structured records and a
per-patient search index, and for asking grounded questions about a patient.

Environment variables:
  OPENAI_API_KEY      OpenAI API key (extraction falls back to heuristics without it)
  EMBEDDING_PROVIDER  openai or hash (default: hash)
  VECTOR_STORE        qdrant or memory (default: qdrant)
  QDRANT_HOST         Qdrant hostname (default: localhost)
  QDRANT_PORT         Qdrant gRPC port (default: 6334)
  DATABASE_PATH       SQLite records database (default: data/intake.db)
  INTAKE_CONFIG       YAML config file, same as --config`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print results as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withApp loads configuration, wires the components and runs fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := cfg.Log.Logger(cmd.ErrOrStderr())

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
