package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bull/intake-rag-server/internal/app"
	"github.com/bull/intake-rag-server/internal/qa"
)

var askTopK int

var askCmd = &cobra.Command{
	Use:   "ask [patient-id] [question...]",
	Short: "Answer a question from one patient's indexed records",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		patientID := args[0]
		question := strings.Join(args[1:], " ")

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			k := askTopK
			if k <= 0 {
				k = a.Config.QA.TopK
			}
			resp, err := a.Generator.Answer(ctx, patientID, question, k)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd, resp)
			}
			printAnswer(cmd, resp)
			return nil
		})
	},
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	rootCmd.AddCommand(askCmd)
}

func printAnswer(cmd *cobra.Command, resp *qa.Response) {
	fmt.Fprintln(cmd.OutOrStdout(), resp.Answer)
	if len(resp.Chunks) == 0 {
		return
	}
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), "Sources:")
	for i, c := range resp.Chunks {
		encounter := "none"
		if c.EncounterID != nil {
			encounter = *c.EncounterID
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  [chunk %d] (%s, encounter %s, distance %.3f) %s\n", i+1, c.SourceType, encounter, c.Score, c.Text)
	}
}
