package models

import "time"

// BestModelRecord is the persisted promotion decision. It is created on the
// first successful training run, read at the start of every subsequent run,
// and overwritten only when a new candidate wins. The recorded feature and
// lag sets keep it loadable even after the configured feature set diverges.
type BestModelRecord struct {
	Spec       CandidateSpec      `json:"spec"`
	Metrics    map[string]float64 `json:"metrics"`
	Features   []string           `json:"features"`
	Lags       []int              `json:"lags"`
	PromotedAt time.Time          `json:"promoted_at"`
	RunID      string             `json:"run_id"`
	Seed       int64              `json:"seed"`
	Model      []byte             `json:"model,omitempty"`
}

// CandidateOutcome is the provenance entry for one attempted candidate.
type CandidateOutcome struct {
	Spec    CandidateSpec      `json:"spec"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
	Failed  bool               `json:"failed"`
	Error   string             `json:"error,omitempty"`
}

// Baseline sources recorded on a run.
const (
	BaselineNone     = "none"     // first run, no previous record
	BaselineFresh    = "fresh"    // previous winner re-evaluated on current frames
	BaselineRecorded = "recorded" // stale recorded metric, degraded comparison
)

// RunRecord is the full audit record of one training run: every candidate
// attempted (failed ones included), the comparison baseline that was used,
// and the promoted record when promotion occurred.
type RunRecord struct {
	RunID            string             `json:"run_id"`
	StartedAt        time.Time          `json:"started_at"`
	FinishedAt       time.Time          `json:"finished_at"`
	Candidates       []CandidateOutcome `json:"candidates"`
	BestID           string             `json:"best_id"`
	BestMetrics      map[string]float64 `json:"best_metrics,omitempty"`
	BaselineSource   string             `json:"baseline_source"`
	BaselineMetric   float64            `json:"baseline_metric"`
	BaselineDegraded bool               `json:"baseline_degraded"`
	Promoted         *BestModelRecord   `json:"promoted,omitempty"`
}
