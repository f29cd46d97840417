package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Archive stores payloads in an S3 bucket. Credentials come from the
// default AWS credential chain (env, shared config, IMDS).
type S3Archive struct {
	client *s3.Client
	bucket string
	logger *slog.Logger
}

// NewS3Archive creates the S3 backend for the given bucket.
func NewS3Archive(ctx context.Context, bucket string, logger *slog.Logger) (*S3Archive, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &S3Archive{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		logger: logger,
	}, nil
}

// Save uploads data to s3://<bucket>/studies/<sanitized-uid>.dcm with the
// UID attached as object metadata. Same contract as the GCS backend:
// overwrite-on-conflict, provider errors stripped to an opaque failure.
func (a *S3Archive) Save(ctx context.Context, studyInstanceUID string, data []byte) (string, error) {
	key := archiveKey(studyInstanceUID)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/dicom"),
		Metadata:    map[string]string{"study-instance-uid": studyInstanceUID},
	})
	if err != nil {
		a.logger.Warn("s3 upload failed",
			"study_instance_uid", studyInstanceUID,
			"error", err.Error(),
		)
		storageUploadTotal.WithLabelValues(BackendS3, "failure").Inc()
		return "", errArchiveWrite
	}

	uri := fmt.Sprintf("s3://%s/%s", a.bucket, key)
	storageUploadTotal.WithLabelValues(BackendS3, "success").Inc()
	a.logger.Info("s3 upload success",
		"study_instance_uid", studyInstanceUID,
		"s3_uri", uri,
		"size_bytes", len(data),
	)
	return uri, nil
}
