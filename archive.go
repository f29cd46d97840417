package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ArchiveStore persists raw DICOM payloads under a stable key derived from
// the Study Instance UID and returns a locator (file://, gs://, or s3://
// URI) for downstream consumers. Writing the same UID twice overwrites
// deterministically, so retries are safe.
type ArchiveStore interface {
	Save(ctx context.Context, studyInstanceUID string, data []byte) (string, error)
}

// sanitizeUID substitutes path separators so the archive key is always a
// single filesystem/object segment.
func sanitizeUID(uid string) string {
	uid = strings.ReplaceAll(uid, "/", "_")
	return strings.ReplaceAll(uid, "\\", "_")
}

// archiveKey is the backend-agnostic object key for a study.
func archiveKey(studyInstanceUID string) string {
	return "studies/" + sanitizeUID(studyInstanceUID) + ".dcm"
}

// FilesystemArchive stores payloads under a root directory on local disk.
type FilesystemArchive struct {
	root string
}

// NewFilesystemArchive creates a filesystem backend rooted at root. The
// directory tree is created lazily on first save.
func NewFilesystemArchive(root string) *FilesystemArchive {
	return &FilesystemArchive{root: root}
}

// Save writes data to <root>/studies/<sanitized-uid>.dcm, creating
// intermediate directories as needed and overwriting any previous payload
// for the same UID. Returns a file:// URI.
func (a *FilesystemArchive) Save(_ context.Context, studyInstanceUID string, data []byte) (string, error) {
	path := filepath.Join(a.root, "studies", sanitizeUID(studyInstanceUID)+".dcm")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		storageUploadTotal.WithLabelValues(BackendLocal, "failure").Inc()
		return "", fmt.Errorf("creating archive directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		storageUploadTotal.WithLabelValues(BackendLocal, "failure").Inc()
		return "", fmt.Errorf("writing archive file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	storageUploadTotal.WithLabelValues(BackendLocal, "success").Inc()
	return "file://" + filepath.ToSlash(abs), nil
}

// newArchiveStore builds the archive backend selected by cfg. The choice is
// made once per process; the orchestrator never sees which variant is
// active. cfg must already have passed Validate.
func newArchiveStore(ctx context.Context, cfg Config, logger *slog.Logger) (ArchiveStore, error) {
	switch cfg.StorageBackend {
	case BackendLocal:
		return NewFilesystemArchive(cfg.StoragePath), nil
	case BackendGCS:
		return NewGCSArchive(ctx, cfg.GCSBucket, cfg.GCSUploadTimeout, logger)
	case BackendS3:
		return NewS3Archive(ctx, cfg.S3Bucket, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
