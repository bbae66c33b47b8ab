package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/intake-rag-server/internal/app"
)

var indexPatientID string

var extractCmd = &cobra.Command{
	Use:   "extract [encounter-id]",
	Short: "Build and save the structured record for an encounter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			result, err := a.Pipeline.ExtractEncounter(ctx, args[0])
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd, result.Record)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Extracted record for %s (method: %s)\n", result.EncounterID, result.Method)
			if result.Failure != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "  Model stage failed at %s: %v\n", result.Failure.Stage, result.Failure.Err)
			}
			return nil
		})
	},
}

var indexCmd = &cobra.Command{
	Use:   "index [encounter-id]",
	Short: "Index an encounter, or every encounter of --patient",
	Long: `Chunks, embeds and stores an encounter's structured record and conversation.
Indexing is append-only: indexing the same encounter twice stores its chunks twice.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

var processCmd = &cobra.Command{
	Use:   "process [encounter-id]",
	Short: "Extract then index an encounter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			extracted, indexed, err := a.Pipeline.ProcessEncounter(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed encounter %s\n", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "  Extraction: %s\n", extracted.Method)
			fmt.Fprintf(cmd.OutOrStdout(), "  Chunks:     %d\n", indexed.Chunks)
			fmt.Fprintf(cmd.OutOrStdout(), "  Duration:   %s\n", indexed.Duration.Round(time.Millisecond))
			return nil
		})
	},
}

func init() {
	indexCmd.Flags().StringVar(&indexPatientID, "patient", "", "index all encounters of this patient")
	rootCmd.AddCommand(extractCmd, indexCmd, processCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if (len(args) == 1) == (indexPatientID != "") {
		return errors.New("pass exactly one of an encounter ID or --patient")
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if indexPatientID == "" {
			result, err := a.Pipeline.IndexEncounter(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks for encounter %s\n", result.Chunks, result.EncounterID)
			return nil
		}

		result, err := a.Pipeline.IndexPatient(ctx, indexPatientID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Indexing complete!")
		fmt.Fprintf(cmd.OutOrStdout(), "  Encounters: %d/%d\n", result.IndexedEncounters, result.TotalEncounters)
		fmt.Fprintf(cmd.OutOrStdout(), "  Chunks:     %d\n", result.TotalChunks)
		fmt.Fprintf(cmd.OutOrStdout(), "  Duration:   %s\n", result.Duration.Round(time.Millisecond))
		if len(result.FailedEncounters) > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "Failed encounters:")
			for _, failed := range result.FailedEncounters {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s: %s\n", failed.EncounterID, failed.Reason)
			}
		}
		return nil
	})
}
