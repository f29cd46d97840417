package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// StudyDB wraps the canonical SQLite store and exposes the two operations
// the pipeline needs: an idempotent upsert keyed on study_instance_uid and
// an existence check for the reconciliation poller.
type StudyDB struct {
	db *sql.DB
}

// NewStudyDB opens (or creates) the studies database at path and ensures
// the schema exists.
func NewStudyDB(path string) (*StudyDB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &StudyDB{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *StudyDB) Close() error {
	return s.db.Close()
}

func (s *StudyDB) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS studies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		correlation_id TEXT NOT NULL,
		study_instance_uid TEXT NOT NULL UNIQUE,
		patient_id TEXT,
		modality TEXT,
		study_date TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	return nil
}

// UpsertStudy inserts or updates the row for md.StudyInstanceUID as a
// single atomic statement. Re-ingesting a known UID updates the mutable
// fields in place and never creates a second row.
func (s *StudyDB) UpsertStudy(ctx context.Context, correlationID string, md StudyMetadata) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO studies (correlation_id, study_instance_uid, patient_id, modality, study_date)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(study_instance_uid) DO UPDATE SET
			patient_id=excluded.patient_id,
			modality=excluded.modality,
			study_date=excluded.study_date`,
		correlationID, md.StudyInstanceUID, md.PatientID, md.Modality, md.StudyDate,
	)
	if err != nil {
		return fmt.Errorf("upserting study %s: %w", md.StudyInstanceUID, err)
	}
	return nil
}

// ExistsByStudyInstanceUID reports whether a row with this UID exists.
func (s *StudyDB) ExistsByStudyInstanceUID(ctx context.Context, studyInstanceUID string) (bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM studies WHERE study_instance_uid = ? LIMIT 1`, studyInstanceUID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking study %s: %w", studyInstanceUID, err)
	}
	return true, nil
}
