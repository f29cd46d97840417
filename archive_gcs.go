package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
)

// errArchiveWrite is the opaque failure surfaced by the cloud backends.
// Provider errors often carry credential or endpoint detail that must not
// cross the component boundary; the original cause is logged here and
// nowhere else.
var errArchiveWrite = errors.New("archive upload failed")

// GCSArchive stores payloads in a Google Cloud Storage bucket. Auth uses
// Application Default Credentials.
type GCSArchive struct {
	client  *storage.Client
	bucket  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGCSArchive creates the GCS backend for the given bucket. Each upload
// is bounded by timeout.
func NewGCSArchive(ctx context.Context, bucket string, timeout time.Duration, logger *slog.Logger) (*GCSArchive, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCSArchive{
		client:  client,
		bucket:  bucket,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Close releases the underlying GCS client.
func (a *GCSArchive) Close() error {
	return a.client.Close()
}

// Save uploads data to gs://<bucket>/studies/<sanitized-uid>.dcm with the
// UID attached as object metadata, overwriting any previous object at that
// key. Returns the gs:// URI.
func (a *GCSArchive) Save(ctx context.Context, studyInstanceUID string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	key := archiveKey(studyInstanceUID)
	w := a.client.Bucket(a.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/dicom"
	w.Metadata = map[string]string{"study_instance_uid": studyInstanceUID}

	if _, err := w.Write(data); err != nil {
		w.Close()
		a.logger.Warn("gcs upload failed",
			"study_instance_uid", studyInstanceUID,
			"error", err.Error(),
		)
		storageUploadTotal.WithLabelValues(BackendGCS, "failure").Inc()
		return "", errArchiveWrite
	}
	if err := w.Close(); err != nil {
		a.logger.Warn("gcs upload failed",
			"study_instance_uid", studyInstanceUID,
			"error", err.Error(),
		)
		storageUploadTotal.WithLabelValues(BackendGCS, "failure").Inc()
		return "", errArchiveWrite
	}

	uri := fmt.Sprintf("gs://%s/%s", a.bucket, key)
	storageUploadTotal.WithLabelValues(BackendGCS, "success").Inc()
	a.logger.Info("gcs upload success",
		"study_instance_uid", studyInstanceUID,
		"gcs_uri", uri,
		"size_bytes", len(data),
	)
	return uri, nil
}
