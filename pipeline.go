package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Dead-letter reasons, one per pipeline stage.
const (
	ReasonSourceFetch = "Source unreachable"
	ReasonMetadata    = "Metadata parsing failure"
	ReasonDB          = "DB write failure"
	ReasonStorage     = "Storage write failure"
	ReasonPublish     = "Kafka publish failure"
)

// StageError wraps a stage failure with its dead-letter classification.
type StageError struct {
	Reason string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StudySource fetches a representative instance payload for a study.
type StudySource interface {
	FirstInstanceBytes(ctx context.Context, studyID string) ([]byte, error)
}

// MetadataStore is the canonical-store surface the pipeline depends on.
type MetadataStore interface {
	UpsertStudy(ctx context.Context, correlationID string, md StudyMetadata) error
	ExistsByStudyInstanceUID(ctx context.Context, studyInstanceUID string) (bool, error)
}

// EventPublisher announces completed ingestions and quarantines failures.
type EventPublisher interface {
	Publish(ctx context.Context, event MetadataEvent) error
	PublishDeadLetter(ctx context.Context, record DeadLetter) error
}

// Pipeline drives one study through fetch -> extract -> persist -> archive
// -> publish in that fixed order, short-circuiting and dead-lettering on
// the first failure. There is no retry loop and no rollback of completed
// stages: persistence is idempotent and archiving is overwrite-safe, so
// re-running the whole pipeline later for the same UID is the recovery
// path.
type Pipeline struct {
	Source    StudySource
	Store     MetadataStore
	Archive   ArchiveStore
	Publisher EventPublisher
	Logger    *slog.Logger
}

// deadLetter classifies a stage failure, publishes it to the DLQ exactly
// once, and returns the StageError the caller propagates. A failure to
// dead-letter is logged but never masks the stage error.
func (p *Pipeline) deadLetter(ctx context.Context, correlationID, orthancStudyID, reason string, err error) error {
	pipelineFailureTotal.WithLabelValues(reason).Inc()

	dlqErr := p.Publisher.PublishDeadLetter(ctx, DeadLetter{
		OriginalPayload: map[string]string{"orthanc_study_id": orthancStudyID},
		ErrorReason:     reason,
		CorrelationID:   correlationID,
	})
	if dlqErr != nil {
		p.Logger.Error("dlq send failed",
			"reason", reason,
			"correlation_id", correlationID,
			"error", dlqErr.Error(),
		)
	}

	p.Logger.Warn("pipeline stage failed",
		"reason", reason,
		"orthanc_study_id", orthancStudyID,
		"correlation_id", correlationID,
		"error", err.Error(),
	)

	return &StageError{Reason: reason, Err: err}
}

// Run executes the full pipeline for one study. Idempotent with respect to
// downstream state: duplicate runs for the same Study Instance UID update
// the same row and overwrite the same archive object.
func (p *Pipeline) Run(ctx context.Context, correlationID, orthancStudyID string) error {
	// 1. Fetch a representative instance from the source.
	dicomBytes, err := p.Source.FirstInstanceBytes(ctx, orthancStudyID)
	if err != nil {
		return p.deadLetter(ctx, correlationID, orthancStudyID, ReasonSourceFetch, err)
	}

	// 2. Extract the four canonical fields.
	md, err := ExtractMetadata(dicomBytes)
	if err != nil {
		return p.deadLetter(ctx, correlationID, orthancStudyID, ReasonMetadata, err)
	}

	// 3. Persist (idempotent upsert).
	if err := p.Store.UpsertStudy(ctx, correlationID, md); err != nil {
		return p.deadLetter(ctx, correlationID, orthancStudyID, ReasonDB, err)
	}

	// 4. Archive the raw payload.
	locator, err := p.Archive.Save(ctx, md.StudyInstanceUID, dicomBytes)
	if err != nil {
		return p.deadLetter(ctx, correlationID, orthancStudyID, ReasonStorage, err)
	}

	// 5. Announce completion.
	event := MetadataEvent{
		CorrelationID:    correlationID,
		StudyInstanceUID: md.StudyInstanceUID,
		PatientID:        md.PatientID,
		Modality:         md.Modality,
		StudyDate:        md.StudyDate,
		StoragePath:      locator,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	}
	if err := p.Publisher.Publish(ctx, event); err != nil {
		return p.deadLetter(ctx, correlationID, orthancStudyID, ReasonPublish, err)
	}

	pipelineSuccessTotal.Inc()
	p.Logger.Info("pipeline success",
		"study_instance_uid", md.StudyInstanceUID,
		"correlation_id", correlationID,
		"storage_path", locator,
	)
	return nil
}
