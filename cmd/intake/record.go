package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bull/intake-rag-server/internal/app"
)

var recordCmd = &cobra.Command{
	Use:   "record [encounter-id]",
	Short: "Print the structured record saved for an encounter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			rec, err := a.Records.GetRecord(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [patient-id]",
	Short: "Show encounter and indexed chunk counts for a patient",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			encounters, err := a.Records.ListEncounters(ctx, args[0])
			if err != nil {
				return err
			}
			count, err := a.Store.Count(ctx, args[0])
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd, map[string]any{
					"patient_id":     args[0],
					"encounters":     len(encounters),
					"indexed_chunks": count,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Patient %s\n", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "  Encounters:     %d\n", len(encounters))
			fmt.Fprintf(cmd.OutOrStdout(), "  Indexed chunks: %d\n", count)
			for _, enc := range encounters {
				complaint := "-"
				if enc.ChiefComplaint != nil {
					complaint = *enc.ChiefComplaint
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s  %s  %s\n", enc.ID, enc.StartedAt.Format("2006-01-02 15:04"), complaint)
			}
			return nil
		})
	},
}

var resetIndex bool

var resetCmd = &cobra.Command{
	Use:   "reset-index",
	Short: "Drop and recreate the Qdrant collection (all patients)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetIndex {
			fmt.Fprintln(cmd.OutOrStdout(), "Refusing to drop every patient's chunks without --yes")
			return nil
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if a.Qdrant == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "The memory vector store needs no reset")
				return nil
			}
			if err := a.Qdrant.ClearCollection(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Collection cleared")
			return nil
		})
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetIndex, "yes", false, "confirm dropping the collection")
	rootCmd.AddCommand(recordCmd, statusCmd, resetCmd)
}
