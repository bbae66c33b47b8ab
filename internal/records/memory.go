package records

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bull/intake-rag-server/internal/intake"
)

// MemoryStore is an in-process Store. Nothing survives a restart.
type MemoryStore struct {
	mu         sync.RWMutex
	patients   map[string]Patient
	encounters map[string]Encounter
	order      []string // encounter IDs in creation order
	turns      map[string][]intake.Turn
	records    map[string]intake.Record
	seq        int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		patients:   make(map[string]Patient),
		encounters: make(map[string]Encounter),
		turns:      make(map[string][]intake.Turn),
		records:    make(map[string]intake.Record),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Health(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) CreatePatient(ctx context.Context, displayName string) (*Patient, error) {
	p := Patient{ID: uuid.New().String(), DisplayName: displayName, CreatedAt: time.Now().UTC()}
	s.mu.Lock()
	s.patients[p.ID] = p
	s.mu.Unlock()
	return &p, nil
}

func (s *MemoryStore) GetPatient(ctx context.Context, id string) (*Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", intake.ErrPatientNotFound, id)
	}
	return &p, nil
}

func (s *MemoryStore) CreateEncounter(ctx context.Context, patientID string, startedAt time.Time) (*Encounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[patientID]; !ok {
		return nil, fmt.Errorf("%w: %s", intake.ErrPatientNotFound, patientID)
	}
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	e := Encounter{ID: uuid.New().String(), PatientID: patientID, StartedAt: startedAt.UTC()}
	s.encounters[e.ID] = e
	s.order = append(s.order, e.ID)
	return &e, nil
}

func (s *MemoryStore) GetEncounter(ctx context.Context, id string) (*Encounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.encounters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", intake.ErrEncounterNotFound, id)
	}
	return &e, nil
}

func (s *MemoryStore) ListEncounters(ctx context.Context, patientID string) ([]Encounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.patients[patientID]; !ok {
		return nil, fmt.Errorf("%w: %s", intake.ErrPatientNotFound, patientID)
	}
	out := []Encounter{}
	for _, id := range s.order {
		if e := s.encounters[id]; e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) CompleteEncounter(ctx context.Context, id string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.encounters[id]
	if !ok {
		return fmt.Errorf("%w: %s", intake.ErrEncounterNotFound, id)
	}
	t := completedAt.UTC()
	e.CompletedAt = &t
	s.encounters[id] = e
	return nil
}

func (s *MemoryStore) AppendTurn(ctx context.Context, encounterID string, speaker intake.Speaker, text string, ts time.Time) (intake.Turn, error) {
	if !speaker.Valid() {
		return intake.Turn{}, fmt.Errorf("invalid speaker %q", speaker)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.encounters[encounterID]; !ok {
		return intake.Turn{}, fmt.Errorf("%w: %s", intake.ErrEncounterNotFound, encounterID)
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	s.seq++
	turn := intake.Turn{Seq: s.seq, Speaker: speaker, Text: text, Timestamp: ts.UTC()}
	s.turns[encounterID] = append(s.turns[encounterID], turn)
	return turn, nil
}

func (s *MemoryStore) Transcript(ctx context.Context, encounterID string) (intake.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.encounters[encounterID]; !ok {
		return nil, fmt.Errorf("%w: %s", intake.ErrEncounterNotFound, encounterID)
	}
	return intake.NewTranscript(s.turns[encounterID]), nil
}

func (s *MemoryStore) PutRecord(ctx context.Context, encounterID string, record intake.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.encounters[encounterID]
	if !ok {
		return fmt.Errorf("%w: %s", intake.ErrEncounterNotFound, encounterID)
	}
	e.ChiefComplaint = nil
	if record.ChiefComplaint != nil {
		complaint := *record.ChiefComplaint
		e.ChiefComplaint = &complaint
	}
	s.encounters[encounterID] = e
	s.records[encounterID] = cloneRecord(record)
	return nil
}

func (s *MemoryStore) GetRecord(ctx context.Context, encounterID string) (intake.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.encounters[encounterID]; !ok {
		return intake.Record{}, fmt.Errorf("%w: %s", intake.ErrEncounterNotFound, encounterID)
	}
	rec, ok := s.records[encounterID]
	if !ok {
		return intake.Record{}, fmt.Errorf("%w: %s", intake.ErrRecordNotFound, encounterID)
	}
	return cloneRecord(rec), nil
}

// cloneRecord deep-copies a record through its JSON form, the same
// round trip the SQLite store performs.
func cloneRecord(rec intake.Record) intake.Record {
	data, err := rec.MarshalJSON()
	if err != nil {
		return rec
	}
	out, err := intake.ParseRecord(data)
	if err != nil {
		return rec
	}
	return out
}
