package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/intake-rag-server/internal/app"
	"github.com/bull/intake-rag-server/internal/intake"
	"github.com/bull/intake-rag-server/internal/records"
)

var (
	importPatientID string
	importProcess   bool
)

// transcriptFile is the on-disk transcript format accepted by import.
type transcriptFile struct {
	PatientDisplayName string `json:"patient_display_name"`
	Turns              []struct {
		Speaker   intake.Speaker `json:"speaker"`
		Text      string         `json:"text"`
		Timestamp time.Time      `json:"timestamp"`
	} `json:"turns"`
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a JSON transcript as a new encounter",
	Long: `Reads a transcript file of the form

  {"patient_display_name": "...",
   "turns": [{"speaker": "assistant", "text": "...", "timestamp": "2024-03-01T09:00:00Z"}, ...]}

and records it as a new encounter. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importPatientID, "patient", "", "existing patient ID (a new patient is created when empty)")
	importCmd.Flags().BoolVar(&importProcess, "process", false, "extract and index the encounter after import")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open transcript: %w", err)
		}
		defer f.Close()
		r = f
	}

	file, err := readTranscriptFile(r)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		patientID, encounterID, err := importTranscript(ctx, a.Records, importPatientID, file)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d turns\n", len(file.Turns))
		fmt.Fprintf(cmd.OutOrStdout(), "  Patient:   %s\n", patientID)
		fmt.Fprintf(cmd.OutOrStdout(), "  Encounter: %s\n", encounterID)

		if !importProcess {
			return nil
		}
		extracted, indexed, err := a.Pipeline.ProcessEncounter(ctx, encounterID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  Extraction: %s\n", extracted.Method)
		fmt.Fprintf(cmd.OutOrStdout(), "  Chunks:     %d\n", indexed.Chunks)
		return nil
	})
}

func readTranscriptFile(r io.Reader) (*transcriptFile, error) {
	var file transcriptFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	for i, turn := range file.Turns {
		if !turn.Speaker.Valid() {
			return nil, fmt.Errorf("turn %d: invalid speaker %q", i, turn.Speaker)
		}
		if strings.TrimSpace(turn.Text) == "" {
			return nil, fmt.Errorf("turn %d: empty text", i)
		}
	}
	return &file, nil
}

// importTranscript stores the file as a completed encounter. Turns without a
// timestamp are spaced one second apart after the previous turn.
func importTranscript(ctx context.Context, store records.Store, patientID string, file *transcriptFile) (string, string, error) {
	if patientID == "" {
		patient, err := store.CreatePatient(ctx, file.PatientDisplayName)
		if err != nil {
			return "", "", err
		}
		patientID = patient.ID
	}

	started := time.Now().UTC()
	if len(file.Turns) > 0 && !file.Turns[0].Timestamp.IsZero() {
		started = file.Turns[0].Timestamp
	}
	enc, err := store.CreateEncounter(ctx, patientID, started)
	if err != nil {
		return "", "", err
	}

	last := started
	for _, turn := range file.Turns {
		ts := turn.Timestamp
		if ts.IsZero() {
			ts = last.Add(time.Second)
		}
		if _, err := store.AppendTurn(ctx, enc.ID, turn.Speaker, turn.Text, ts); err != nil {
			return "", "", err
		}
		last = ts
	}

	if err := store.CompleteEncounter(ctx, enc.ID, last); err != nil {
		return "", "", err
	}
	return patientID, enc.ID, nil
}
