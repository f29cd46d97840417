package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeUID(t *testing.T) {
	assert.Equal(t, "1.2.3.4", sanitizeUID("1.2.3.4"))
	assert.Equal(t, "1.2_3.4", sanitizeUID("1.2/3.4"))
	assert.Equal(t, "_.._evil", sanitizeUID("\\..\\evil"))
	assert.Equal(t, ".._.._etc_passwd", sanitizeUID("../../etc/passwd"))
}

func TestArchiveKey(t *testing.T) {
	key := archiveKey("1.2.3.4")
	assert.Equal(t, "studies/1.2.3.4.dcm", key)

	// UIDs containing separators still resolve to one path segment
	// under studies/.
	key = archiveKey("1.2/3\\4")
	rest := strings.TrimPrefix(key, "studies/")
	assert.NotContains(t, rest, "/")
	assert.NotContains(t, rest, "\\")
}

func TestFilesystemArchive_SaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	a := NewFilesystemArchive(root)
	payload := []byte("raw dicom bytes")

	locator, err := a.Save(context.Background(), "1.2.3.4", payload)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(locator, "file://"), "locator %q", locator)
	assert.True(t, strings.HasSuffix(locator, "studies/1.2.3.4.dcm"), "locator %q", locator)

	got, err := os.ReadFile(filepath.Join(root, "studies", "1.2.3.4.dcm"))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFilesystemArchive_OverwriteIsDeterministic(t *testing.T) {
	root := t.TempDir()
	a := NewFilesystemArchive(root)

	loc1, err := a.Save(context.Background(), "1.2.3.4", []byte("first"))
	require.NoError(t, err)
	loc2, err := a.Save(context.Background(), "1.2.3.4", []byte("second"))
	require.NoError(t, err)

	// Content-addressed by UID: same key both times, last write wins.
	assert.Equal(t, loc1, loc2)

	got, err := os.ReadFile(filepath.Join(root, "studies", "1.2.3.4.dcm"))
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	entries, err := os.ReadDir(filepath.Join(root, "studies"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFilesystemArchive_SanitizedUIDStaysUnderRoot(t *testing.T) {
	root := t.TempDir()
	a := NewFilesystemArchive(root)

	_, err := a.Save(context.Background(), "../../escape", []byte("x"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(root, "studies"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".._.._escape.dcm", entries[0].Name())
}
