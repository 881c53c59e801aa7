package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoViableCandidate means every candidate of a run failed to fit or
// predict. Fatal to the run.
var ErrNoViableCandidate = errors.New("no viable candidate: all evaluations failed")

// ErrNoBestRecord means the artifact store holds no promoted model yet.
var ErrNoBestRecord = errors.New("no best model record")

// ConfigError reports invalid training configuration. It is raised before
// any fitting begins and aborts the run.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Msg)
}

// CandidateFitError wraps a per-candidate fit or predict failure. It is
// recorded in provenance and excluded from selection; the run continues.
type CandidateFitError struct {
	Candidate string
	Err       error
}

func (e *CandidateFitError) Error() string {
	return fmt.Sprintf("candidate %s: %v", e.Candidate, e.Err)
}

func (e *CandidateFitError) Unwrap() error { return e.Err }

// AlignmentError reports a forecast timestamp with no matching observation
// in the test frame. Treated as a candidate-level failure, never skipped.
type AlignmentError struct {
	SeriesKey string
	Timestamp time.Time
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("forecast for %s at %s has no test observation", e.SeriesKey, e.Timestamp.Format(time.RFC3339))
}
