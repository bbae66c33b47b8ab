package records

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/intake-rag-server/internal/intake"
)

func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "intake.db"))
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, store.Close()) })
			return store
		},
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, store Store)) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func TestStore_Health(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		assert.NoError(t, store.Health(context.Background()))
	})
}

func TestStore_PatientAndEncounter(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		patient, err := store.CreatePatient(ctx, "Jane Doe")
		require.NoError(t, err)
		assert.NotEmpty(t, patient.ID)

		got, err := store.GetPatient(ctx, patient.ID)
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", got.DisplayName)

		started := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		enc, err := store.CreateEncounter(ctx, patient.ID, started)
		require.NoError(t, err)

		gotEnc, err := store.GetEncounter(ctx, enc.ID)
		require.NoError(t, err)
		assert.Equal(t, patient.ID, gotEnc.PatientID)
		assert.True(t, started.Equal(gotEnc.StartedAt))
		assert.Nil(t, gotEnc.CompletedAt)
		assert.Nil(t, gotEnc.ChiefComplaint)

		completed := started.Add(20 * time.Minute)
		require.NoError(t, store.CompleteEncounter(ctx, enc.ID, completed))
		gotEnc, err = store.GetEncounter(ctx, enc.ID)
		require.NoError(t, err)
		require.NotNil(t, gotEnc.CompletedAt)
		assert.True(t, completed.Equal(*gotEnc.CompletedAt))

		second, err := store.CreateEncounter(ctx, patient.ID, started.Add(24*time.Hour))
		require.NoError(t, err)
		list, err := store.ListEncounters(ctx, patient.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, enc.ID, list[0].ID)
		assert.Equal(t, second.ID, list[1].ID)
	})
}

func TestStore_NotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()

		_, err := store.GetPatient(ctx, "missing")
		assert.ErrorIs(t, err, intake.ErrPatientNotFound)

		_, err = store.CreateEncounter(ctx, "missing", time.Now())
		assert.ErrorIs(t, err, intake.ErrPatientNotFound)

		_, err = store.GetEncounter(ctx, "missing")
		assert.ErrorIs(t, err, intake.ErrEncounterNotFound)

		_, err = store.Transcript(ctx, "missing")
		assert.ErrorIs(t, err, intake.ErrEncounterNotFound)

		_, err = store.AppendTurn(ctx, "missing", intake.SpeakerPatient, "hi", time.Now())
		assert.ErrorIs(t, err, intake.ErrEncounterNotFound)

		err = store.PutRecord(ctx, "missing", intake.EmptyRecord())
		assert.ErrorIs(t, err, intake.ErrEncounterNotFound)

		err = store.CompleteEncounter(ctx, "missing", time.Now())
		assert.ErrorIs(t, err, intake.ErrEncounterNotFound)

		patient, err := store.CreatePatient(ctx, "")
		require.NoError(t, err)
		enc, err := store.CreateEncounter(ctx, patient.ID, time.Now())
		require.NoError(t, err)
		_, err = store.GetRecord(ctx, enc.ID)
		assert.ErrorIs(t, err, intake.ErrRecordNotFound)
	})
}

func TestStore_TranscriptOrdering(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		patient, err := store.CreatePatient(ctx, "")
		require.NoError(t, err)
		enc, err := store.CreateEncounter(ctx, patient.ID, time.Time{})
		require.NoError(t, err)

		base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		_, err = store.AppendTurn(ctx, enc.ID, intake.SpeakerPatient, "later", base.Add(time.Minute))
		require.NoError(t, err)
		_, err = store.AppendTurn(ctx, enc.ID, intake.SpeakerAssistant, "first", base)
		require.NoError(t, err)
		_, err = store.AppendTurn(ctx, enc.ID, intake.SpeakerPatient, "second", base)
		require.NoError(t, err)

		transcript, err := store.Transcript(ctx, enc.ID)
		require.NoError(t, err)
		require.Len(t, transcript, 3)
		assert.Equal(t, "first", transcript[0].Text)
		assert.Equal(t, "second", transcript[1].Text, "equal timestamps fall back to insertion order")
		assert.Equal(t, "later", transcript[2].Text)
		assert.Equal(t, intake.SpeakerAssistant, transcript[0].Speaker)

		_, err = store.AppendTurn(ctx, enc.ID, intake.Speaker("doctor"), "nope", base)
		assert.Error(t, err)
	})
}

func TestStore_PutRecord(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		patient, err := store.CreatePatient(ctx, "")
		require.NoError(t, err)
		enc, err := store.CreateEncounter(ctx, patient.ID, time.Now())
		require.NoError(t, err)

		rec := intake.EmptyRecord()
		rec.ChiefComplaint = intake.StringPtr("I have had a cough for 3 days.")
		rec.Symptoms = []intake.Symptom{{
			Name:               "cough",
			Duration:           intake.StringPtr("3 days"),
			AssociatedSymptoms: []string{},
			RedFlags:           []string{},
		}}
		rec.Allergies = []intake.Allergy{{Substance: "penicillin", Reaction: intake.StringPtr("rash")}}
		rec.PastMedicalHistory = []string{"asthma"}

		require.NoError(t, store.PutRecord(ctx, enc.ID, rec))

		got, err := store.GetRecord(ctx, enc.ID)
		require.NoError(t, err)
		assert.Equal(t, rec, got)

		gotEnc, err := store.GetEncounter(ctx, enc.ID)
		require.NoError(t, err)
		require.NotNil(t, gotEnc.ChiefComplaint)
		assert.Equal(t, "I have had a cough for 3 days.", *gotEnc.ChiefComplaint)

		// Upsert replaces the record and clears the complaint.
		require.NoError(t, store.PutRecord(ctx, enc.ID, intake.EmptyRecord()))
		got, err = store.GetRecord(ctx, enc.ID)
		require.NoError(t, err)
		assert.Equal(t, intake.EmptyRecord(), got)

		gotEnc, err = store.GetEncounter(ctx, enc.ID)
		require.NoError(t, err)
		assert.Nil(t, gotEnc.ChiefComplaint)
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "intake.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	patient, err := store.CreatePatient(ctx, "Persisted")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Migrations must not re-run against an existing schema.
	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.GetPatient(ctx, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, "Persisted", got.DisplayName)
	assert.Equal(t, path, store.Path())
}
