package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// SourceBrowser is the listing/resolution surface the poller needs on top
// of the fetch the pipeline already uses.
type SourceBrowser interface {
	ListStudies(ctx context.Context) ([]string, error)
	StudyInstanceUID(ctx context.Context, studyID string) (string, error)
}

// PipelineRunner is satisfied by *Pipeline; the indirection keeps the
// poller testable without a broker or source.
type PipelineRunner interface {
	Run(ctx context.Context, correlationID, orthancStudyID string) error
}

// Poller reconciles studies known to Orthanc but missing from the
// canonical store, catching notifications the webhook path missed.
type Poller struct {
	Source   SourceBrowser
	Store    MetadataStore
	Pipeline PipelineRunner
	Interval time.Duration
	Logger   *slog.Logger
}

// Run polls on a fixed interval until ctx is cancelled. Listing failures
// abort only the current cycle; per-study failures are logged and the next
// study is still attempted.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.Logger.Info("poller stopped")
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	studyIDs, err := p.Source.ListStudies(ctx)
	if err != nil {
		p.Logger.Warn("poller list studies failed", "error", err.Error())
		return
	}

	for _, studyID := range studyIDs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.processIfNew(ctx, studyID)
	}
}

// processIfNew resolves the study's global UID and runs the pipeline when
// the canonical store has no row for it. Resolution failures are
// loggable-and-skip: no pipeline run was attempted, so nothing is
// dead-lettered.
func (p *Poller) processIfNew(ctx context.Context, orthancStudyID string) {
	studyInstanceUID, err := p.Source.StudyInstanceUID(ctx, orthancStudyID)
	if err != nil {
		p.Logger.Warn("poller uid resolution failed",
			"orthanc_study_id", orthancStudyID,
			"error", err.Error(),
		)
		return
	}
	if studyInstanceUID == "" {
		return
	}

	exists, err := p.Store.ExistsByStudyInstanceUID(ctx, studyInstanceUID)
	if err != nil {
		p.Logger.Warn("poller existence check failed",
			"study_instance_uid", studyInstanceUID,
			"error", err.Error(),
		)
		return
	}
	if exists {
		return
	}

	correlationID := uuid.NewString()
	if err := p.Pipeline.Run(ctx, correlationID, orthancStudyID); err != nil {
		p.Logger.Warn("poller pipeline failed",
			"orthanc_study_id", orthancStudyID,
			"correlation_id", correlationID,
			"error", err.Error(),
		)
	}
}

var _ PipelineRunner = (*Pipeline)(nil)
