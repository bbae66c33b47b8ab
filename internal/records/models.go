// Package records persists patients, encounters, their transcripts and the
// structured record extracted from each encounter.
package records

import (
	"context"
	"time"

	"github.com/bull/intake-rag-server/internal/intake"
)

// Patient is a person whose encounters are recorded.
type Patient struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Encounter is one intake conversation for a patient.
type Encounter struct {
	ID             string     `json:"id"`
	PatientID      string     `json:"patient_id"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ChiefComplaint *string    `json:"chief_complaint,omitempty"` // Copied from the structured record on PutRecord
}

// Store is the system of record for intake data.
//
// Lookups of unknown IDs return intake.ErrPatientNotFound,
// intake.ErrEncounterNotFound or intake.ErrRecordNotFound.
type Store interface {
	CreatePatient(ctx context.Context, displayName string) (*Patient, error)
	GetPatient(ctx context.Context, id string) (*Patient, error)

	CreateEncounter(ctx context.Context, patientID string, startedAt time.Time) (*Encounter, error)
	GetEncounter(ctx context.Context, id string) (*Encounter, error)
	ListEncounters(ctx context.Context, patientID string) ([]Encounter, error)
	CompleteEncounter(ctx context.Context, id string, completedAt time.Time) error

	// AppendTurn records an utterance and returns it with its sequence number.
	AppendTurn(ctx context.Context, encounterID string, speaker intake.Speaker, text string, ts time.Time) (intake.Turn, error)
	// Transcript returns the encounter's turns ordered by timestamp, then sequence.
	Transcript(ctx context.Context, encounterID string) (intake.Transcript, error)

	// PutRecord upserts the structured record and the encounter's chief complaint.
	PutRecord(ctx context.Context, encounterID string, record intake.Record) error
	GetRecord(ctx context.Context, encounterID string) (intake.Record, error)

	// Health reports whether the store can serve requests.
	Health(ctx context.Context) error
	Close() error
}
