package repository

import (
	"context"
	"time"

	"GridCast/internal/domain/models"
)

// FrameSource supplies the immutable train/test frames for one run. The core
// never fetches or transforms raw data itself.
type FrameSource interface {
	LoadFrames(ctx context.Context) (train, test models.FeatureFrame, err error)
	Close() error
}

// ArtifactStore persists promotion decisions and per-run provenance.
// SaveRun is atomic with respect to a concurrent LoadBestRecord: a reader
// never observes a partially written record.
type ArtifactStore interface {
	// LoadBestRecord returns the currently promoted record, or
	// models.ErrNoBestRecord when no run has promoted yet.
	LoadBestRecord(ctx context.Context) (*models.BestModelRecord, error)
	// SaveRun persists the full run provenance, and the promoted record when
	// run.Promoted is set. All-or-nothing for the run it represents.
	SaveRun(ctx context.Context, run models.RunRecord) (string, error)
	// GetRun returns one persisted run by id.
	GetRun(ctx context.Context, runID string) (*models.RunRecord, error)
	// ListRuns returns runs started within [from, to], newest first.
	ListRuns(ctx context.Context, from, to time.Time, limit int) ([]models.RunRecord, error)
	Close() error
}

// DecisionSink receives per-run candidate metrics and the promotion decision.
// A failing or absent sink never affects selection correctness.
type DecisionSink interface {
	Publish(ctx context.Context, run models.RunRecord) error
	Close() error
}

// Metrics records operational counters for training and selection.
type Metrics interface {
	RecordCandidate(family string, failed bool)
	RecordPromotion(promoted bool)
	RecordBaselineDegraded()
	RecordBestMetric(metric string, value float64)
	RecordFitDuration(family string, seconds float64)
}
