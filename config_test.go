package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		StorageBackend:        BackendLocal,
		StoragePath:           "./storage",
		GCSUploadTimeout:      60 * time.Second,
		KafkaBootstrapServers: []string{"localhost:9092"},
	}
}

func TestValidate_LocalBackend(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_GCSRequiresBucket(t *testing.T) {
	cfg := validConfig()
	cfg.StorageBackend = BackendGCS
	cfg.GCSBucket = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GCS_BUCKET")

	cfg.GCSBucket = "dicom-archive"
	require.NoError(t, cfg.Validate())
}

func TestValidate_S3RequiresBucket(t *testing.T) {
	cfg := validConfig()
	cfg.StorageBackend = BackendS3
	cfg.S3Bucket = "   "

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET")

	cfg.S3Bucket = "dicom-archive"
	require.NoError(t, cfg.Validate())
}

func TestValidate_UnknownBackend(t *testing.T) {
	cfg := validConfig()
	cfg.StorageBackend = "tape"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tape")
}

func TestValidate_UploadTimeoutBounds(t *testing.T) {
	cfg := validConfig()

	cfg.GCSUploadTimeout = 2 * time.Second
	assert.Error(t, cfg.Validate())

	cfg.GCSUploadTimeout = 10 * time.Minute
	assert.Error(t, cfg.Validate())

	cfg.GCSUploadTimeout = 5 * time.Second
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"LISTEN_ADDR", "ORTHANC_URL", "ORTHANC_USERNAME", "ORTHANC_PASSWORD",
		"ORTHANC_CREDENTIALS_SECRET", "KAFKA_BOOTSTRAP_SERVERS", "KAFKA_TOPIC",
		"KAFKA_DLQ_TOPIC", "DATABASE_PATH", "STORAGE_BACKEND", "STORAGE_PATH",
		"GCS_BUCKET", "GCS_UPLOAD_TIMEOUT_SECONDS", "S3_BUCKET", "LOG_LEVEL",
		"POLL_INTERVAL_SECONDS",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "http://orthanc:8042", cfg.OrthancURL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBootstrapServers)
	assert.Equal(t, "dicom.metadata.v1", cfg.KafkaTopic)
	assert.Equal(t, "dicom.metadata.dlq", cfg.KafkaDLQTopic)
	assert.Equal(t, BackendLocal, cfg.StorageBackend)
	assert.Equal(t, 60*time.Second, cfg.GCSUploadTimeout)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("ORTHANC_CREDENTIALS_SECRET", "")
	t.Setenv("STORAGE_BACKEND", "gcs")
	t.Setenv("GCS_BUCKET", "dicom-archive")
	t.Setenv("GCS_UPLOAD_TIMEOUT_SECONDS", "120")
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "b1:9092,b2:9092")
	t.Setenv("ORTHANC_USERNAME", "orthanc")
	t.Setenv("ORTHANC_PASSWORD", "secret")

	cfg := LoadConfig()

	assert.Equal(t, BackendGCS, cfg.StorageBackend)
	assert.Equal(t, "dicom-archive", cfg.GCSBucket)
	assert.Equal(t, 120*time.Second, cfg.GCSUploadTimeout)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.KafkaBootstrapServers)
	assert.Equal(t, "orthanc", cfg.OrthancUsername)
	require.NoError(t, cfg.Validate())
}
