package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// Storage backend names accepted for STORAGE_BACKEND.
const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
	BackendS3    = "s3"
)

// Config holds service configuration, loaded from environment variables.
// The variable names match the original middleware deployment so env
// files can be reused as-is.
type Config struct {
	ListenAddr string

	// Orthanc (the source PACS)
	OrthancURL      string
	OrthancUsername string
	OrthancPassword string

	// Kafka
	KafkaBootstrapServers []string
	KafkaTopic            string
	KafkaDLQTopic         string

	// Canonical store
	DatabasePath string

	// Archive backend: local (default), gcs, or s3
	StorageBackend string
	StoragePath    string

	// GCS (used only when StorageBackend == "gcs")
	GCSBucket        string
	GCSUploadTimeout time.Duration

	// S3 (used only when StorageBackend == "s3")
	S3Bucket string

	LogLevel     string
	PollInterval time.Duration
}

// orthancCreds is a minimal view of the JSON credential secret, e.g.
// {"username": "orthanc", "password": "..."}.
type orthancCreds struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loadOrthancCreds loads the Orthanc basic-auth credential pair from Google
// Secret Manager when ORTHANC_CREDENTIALS_SECRET names a secret (full
// resource name, projects/<p>/secrets/<s>). Any failure degrades to
// unauthenticated access; Orthanc instances in dev usually run open.
func loadOrthancCreds(ctx context.Context, secretName string) (string, string) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		log.Printf("loadOrthancCreds: failed to init Secret Manager client: %v", err)
		return "", ""
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Printf("loadOrthancCreds: error closing Secret Manager client: %v", err)
		}
	}()

	name := secretName
	if !strings.Contains(name, "/versions/") {
		name = fmt.Sprintf("%s/versions/latest", secretName)
	}
	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		log.Printf("loadOrthancCreds: AccessSecretVersion failed for %s: %v", name, err)
		return "", ""
	}
	if resp.Payload == nil || len(resp.Payload.Data) == 0 {
		log.Printf("loadOrthancCreds: secret %s has empty payload", name)
		return "", ""
	}

	var creds orthancCreds
	if err := json.Unmarshal(resp.Payload.Data, &creds); err != nil {
		log.Printf("loadOrthancCreds: failed to unmarshal credential JSON: %v", err)
		return "", ""
	}
	if creds.Username == "" || creds.Password == "" {
		log.Printf("loadOrthancCreds: missing username or password in secret %s", name)
		return "", ""
	}

	return creds.Username, creds.Password
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// LoadConfig reads configuration from environment variables. Explicit
// ORTHANC_USERNAME/ORTHANC_PASSWORD win over the Secret Manager secret.
func LoadConfig() Config {
	cfg := Config{
		ListenAddr:      envDefault("LISTEN_ADDR", ":8080"),
		OrthancURL:      envDefault("ORTHANC_URL", "http://orthanc:8042"),
		OrthancUsername: os.Getenv("ORTHANC_USERNAME"),
		OrthancPassword: os.Getenv("ORTHANC_PASSWORD"),
		KafkaTopic:      envDefault("KAFKA_TOPIC", "dicom.metadata.v1"),
		KafkaDLQTopic:   envDefault("KAFKA_DLQ_TOPIC", "dicom.metadata.dlq"),
		DatabasePath:    envDefault("DATABASE_PATH", "dicom.db"),
		StorageBackend:  envDefault("STORAGE_BACKEND", BackendLocal),
		StoragePath:     envDefault("STORAGE_PATH", "./storage"),
		GCSBucket:       os.Getenv("GCS_BUCKET"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		LogLevel:        envDefault("LOG_LEVEL", "INFO"),
	}

	cfg.KafkaBootstrapServers = strings.Split(envDefault("KAFKA_BOOTSTRAP_SERVERS", "localhost:9092"), ",")

	timeoutSec := 60
	if v := os.Getenv("GCS_UPLOAD_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			timeoutSec = n
		} else {
			log.Printf("LoadConfig: invalid GCS_UPLOAD_TIMEOUT_SECONDS %q, using default", v)
		}
	}
	cfg.GCSUploadTimeout = time.Duration(timeoutSec) * time.Second

	pollSec := 15
	if v := os.Getenv("POLL_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pollSec = n
		} else {
			log.Printf("LoadConfig: invalid POLL_INTERVAL_SECONDS %q, using default", v)
		}
	}
	cfg.PollInterval = time.Duration(pollSec) * time.Second

	if cfg.OrthancUsername == "" && cfg.OrthancPassword == "" {
		if secretName := os.Getenv("ORTHANC_CREDENTIALS_SECRET"); secretName != "" {
			cfg.OrthancUsername, cfg.OrthancPassword = loadOrthancCreds(context.Background(), secretName)
		}
	}

	return cfg
}

// Validate rejects configurations that would only fail later, mid-pipeline.
// Called once at startup before any pipeline run is attempted.
func (c Config) Validate() error {
	switch c.StorageBackend {
	case BackendLocal:
		if strings.TrimSpace(c.StoragePath) == "" {
			return fmt.Errorf("STORAGE_PATH is required when STORAGE_BACKEND=local")
		}
	case BackendGCS:
		if strings.TrimSpace(c.GCSBucket) == "" {
			return fmt.Errorf("GCS_BUCKET is required when STORAGE_BACKEND=gcs")
		}
	case BackendS3:
		if strings.TrimSpace(c.S3Bucket) == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (want local, gcs, or s3)", c.StorageBackend)
	}

	if c.GCSUploadTimeout < 5*time.Second || c.GCSUploadTimeout > 300*time.Second {
		return fmt.Errorf("GCS_UPLOAD_TIMEOUT_SECONDS must be between 5 and 300, got %s", c.GCSUploadTimeout)
	}

	if len(c.KafkaBootstrapServers) == 0 {
		return fmt.Errorf("KAFKA_BOOTSTRAP_SERVERS must name at least one broker")
	}

	return nil
}
