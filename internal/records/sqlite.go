package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/bull/intake-rag-server/internal/intake"
	"github.com/bull/intake-rag-server/internal/records/migrations"
)

// SQLiteStore is a Store backed by a single SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path and applies
// pending migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Health pings the database.
func (s *SQLiteStore) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// ==================== Patients ====================

func (s *SQLiteStore) CreatePatient(ctx context.Context, displayName string) (*Patient, error) {
	p := &Patient{
		ID:          uuid.New().String(),
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO patients (id, display_name, created_at) VALUES (?, ?, ?)`,
		p.ID, nullString(displayName), p.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("inserting patient: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) GetPatient(ctx context.Context, id string) (*Patient, error) {
	var (
		name    sql.NullString
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT display_name, created_at FROM patients WHERE id = ?`, id).Scan(&name, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", intake.ErrPatientNotFound, id)
		}
		return nil, fmt.Errorf("querying patient: %w", err)
	}
	return &Patient{ID: id, DisplayName: name.String, CreatedAt: fromUnixNano(created)}, nil
}

// ==================== Encounters ====================

func (s *SQLiteStore) CreateEncounter(ctx context.Context, patientID string, startedAt time.Time) (*Encounter, error) {
	if _, err := s.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	e := &Encounter{
		ID:        uuid.New().String(),
		PatientID: patientID,
		StartedAt: startedAt.UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO encounters (id, patient_id, started_at) VALUES (?, ?, ?)`,
		e.ID, e.PatientID, e.StartedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("inserting encounter: %w", err)
	}
	return e, nil
}

const encounterColumns = `id, patient_id, started_at, completed_at, chief_complaint`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEncounter(row rowScanner) (*Encounter, error) {
	var (
		e         Encounter
		started   int64
		completed sql.NullInt64
		complaint sql.NullString
	)
	if err := row.Scan(&e.ID, &e.PatientID, &started, &completed, &complaint); err != nil {
		return nil, err
	}
	e.StartedAt = fromUnixNano(started)
	if completed.Valid {
		t := fromUnixNano(completed.Int64)
		e.CompletedAt = &t
	}
	if complaint.Valid {
		e.ChiefComplaint = &complaint.String
	}
	return &e, nil
}

func (s *SQLiteStore) GetEncounter(ctx context.Context, id string) (*Encounter, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+encounterColumns+` FROM encounters WHERE id = ?`, id)
	e, err := scanEncounter(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", intake.ErrEncounterNotFound, id)
		}
		return nil, fmt.Errorf("querying encounter: %w", err)
	}
	return e, nil
}

// ListEncounters returns the patient's encounters, oldest first.
func (s *SQLiteStore) ListEncounters(ctx context.Context, patientID string) ([]Encounter, error) {
	if _, err := s.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+encounterColumns+` FROM encounters WHERE patient_id = ? ORDER BY started_at, id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("querying encounters: %w", err)
	}
	defer rows.Close()

	encounters := []Encounter{}
	for rows.Next() {
		e, err := scanEncounter(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning encounter: %w", err)
		}
		encounters = append(encounters, *e)
	}
	return encounters, rows.Err()
}

func (s *SQLiteStore) CompleteEncounter(ctx context.Context, id string, completedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE encounters SET completed_at = ? WHERE id = ?`, completedAt.UTC().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("completing encounter: %w", err)
	}
	return requireAffected(res, intake.ErrEncounterNotFound, id)
}

// ==================== Utterances ====================

func (s *SQLiteStore) AppendTurn(ctx context.Context, encounterID string, speaker intake.Speaker, text string, ts time.Time) (intake.Turn, error) {
	if !speaker.Valid() {
		return intake.Turn{}, fmt.Errorf("invalid speaker %q", speaker)
	}
	if _, err := s.GetEncounter(ctx, encounterID); err != nil {
		return intake.Turn{}, err
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO utterances (encounter_id, speaker, text, ts) VALUES (?, ?, ?, ?)`,
		encounterID, string(speaker), text, ts.UnixNano())
	if err != nil {
		return intake.Turn{}, fmt.Errorf("inserting utterance: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return intake.Turn{}, fmt.Errorf("reading utterance id: %w", err)
	}
	return intake.Turn{Seq: seq, Speaker: speaker, Text: text, Timestamp: ts}, nil
}

func (s *SQLiteStore) Transcript(ctx context.Context, encounterID string) (intake.Transcript, error) {
	if _, err := s.GetEncounter(ctx, encounterID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, speaker, text, ts FROM utterances WHERE encounter_id = ? ORDER BY ts, id`, encounterID)
	if err != nil {
		return nil, fmt.Errorf("querying utterances: %w", err)
	}
	defer rows.Close()

	var turns []intake.Turn
	for rows.Next() {
		var (
			turn    intake.Turn
			speaker string
			ts      int64
		)
		if err := rows.Scan(&turn.Seq, &speaker, &turn.Text, &ts); err != nil {
			return nil, fmt.Errorf("scanning utterance: %w", err)
		}
		turn.Speaker = intake.Speaker(speaker)
		turn.Timestamp = fromUnixNano(ts)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating utterances: %w", err)
	}
	return intake.NewTranscript(turns), nil
}

// ==================== Structured records ====================

func (s *SQLiteStore) PutRecord(ctx context.Context, encounterID string, record intake.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshalling record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE encounters SET chief_complaint = ? WHERE id = ?`,
		nullStringPtr(record.ChiefComplaint), encounterID)
	if err != nil {
		return fmt.Errorf("updating chief complaint: %w", err)
	}
	if err := requireAffected(res, intake.ErrEncounterNotFound, encounterID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO structured_intake (encounter_id, data, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(encounter_id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, encounterID, string(data), time.Now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("upserting structured record: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetRecord(ctx context.Context, encounterID string) (intake.Record, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM structured_intake WHERE encounter_id = ?`, encounterID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, err := s.GetEncounter(ctx, encounterID); err != nil {
				return intake.Record{}, err
			}
			return intake.Record{}, fmt.Errorf("%w: %s", intake.ErrRecordNotFound, encounterID)
		}
		return intake.Record{}, fmt.Errorf("querying structured record: %w", err)
	}
	return intake.ParseRecord([]byte(data))
}

// ==================== Helpers ====================

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func requireAffected(res sql.Result, notFound error, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}
