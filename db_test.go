package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *StudyDB {
	t.Helper()
	db, err := NewStudyDB(filepath.Join(t.TempDir(), "studies.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func countStudies(t *testing.T, s *StudyDB) int {
	t.Helper()
	var n int
	err := s.db.QueryRow(`SELECT count(*) FROM studies`).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestUpsertStudy_Insert(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	err := db.UpsertStudy(ctx, "cid-1", StudyMetadata{
		StudyInstanceUID: "1.2.3.4",
		PatientID:        "P001",
		Modality:         "CT",
		StudyDate:        "20250101",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, countStudies(t, db))

	var patientID, modality, studyDate string
	err = db.db.QueryRow(
		`SELECT patient_id, modality, study_date FROM studies WHERE study_instance_uid = ?`,
		"1.2.3.4",
	).Scan(&patientID, &modality, &studyDate)
	require.NoError(t, err)
	assert.Equal(t, "P001", patientID)
	assert.Equal(t, "CT", modality)
	assert.Equal(t, "20250101", studyDate)
}

func TestUpsertStudy_DuplicateUIDUpdatesInPlace(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	md := StudyMetadata{StudyInstanceUID: "1.2.3.4", PatientID: "P001", Modality: "CT", StudyDate: "20250101"}
	require.NoError(t, db.UpsertStudy(ctx, "cid-1", md))

	md.Modality = "MR"
	require.NoError(t, db.UpsertStudy(ctx, "cid-2", md))

	// Still one row; mutable fields updated in place.
	assert.Equal(t, 1, countStudies(t, db))

	var modality string
	err := db.db.QueryRow(
		`SELECT modality FROM studies WHERE study_instance_uid = ?`, "1.2.3.4",
	).Scan(&modality)
	require.NoError(t, err)
	assert.Equal(t, "MR", modality)
}

func TestExistsByStudyInstanceUID(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	exists, err := db.ExistsByStudyInstanceUID(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, db.UpsertStudy(ctx, "cid-1", StudyMetadata{StudyInstanceUID: "1.2.3.4"}))

	exists, err = db.ExistsByStudyInstanceUID(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, exists)
}
