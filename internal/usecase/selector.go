package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"

	"GridCast/internal/domain/models"
	domrepo "GridCast/internal/domain/repository"
	applogger "GridCast/pkg/logger"
)

// Decision is the outcome of one selection: the run's best candidate, the
// baseline it was compared against, and whether it was promoted.
type Decision struct {
	Best           models.EvaluationResult
	Promoted       bool
	BaselineSource string
	BaselineMetric float64
	Previous       *models.BestModelRecord
}

// Degraded reports whether the stale-recorded-metric fallback was used.
func (d *Decision) Degraded() bool {
	return d.BaselineSource == models.BaselineRecorded
}

// Selector decides whether the current run's best candidate replaces the
// previously promoted model. The read-modify-write contract is explicit:
// load the persisted record, decide, and let the trainer conditionally write.
type Selector struct {
	store   domrepo.ArtifactStore
	eval    *BacktestEvaluator
	metrics domrepo.Metrics
	l       *applogger.Logger
	primary string
	second  string
}

func NewSelector(store domrepo.ArtifactStore, eval *BacktestEvaluator, metrics domrepo.Metrics, l *applogger.Logger, primary, secondary string) *Selector {
	return &Selector{store: store, eval: eval, metrics: metrics, l: l, primary: primary, second: secondary}
}

// Select picks the winner among this run's results and compares it against
// the baseline. Failed candidates are ignored; if none survived, the run
// fails with models.ErrNoViableCandidate.
func (s *Selector) Select(ctx context.Context, train, test models.FeatureFrame, results []models.EvaluationResult) (*Decision, error) {
	best, ok := bestResult(results, s.primary, s.second)
	if !ok {
		return nil, models.ErrNoViableCandidate
	}
	dec := &Decision{Best: best, BaselineSource: models.BaselineNone}

	prev, err := s.store.LoadBestRecord(ctx)
	if errors.Is(err, models.ErrNoBestRecord) {
		// First run ever: promote unconditionally.
		dec.Promoted = true
		dec.BaselineMetric = math.Inf(1)
		s.record(dec)
		return dec, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load best record: %w", err)
	}
	dec.Previous = prev

	dec.BaselineSource, dec.BaselineMetric = s.baseline(ctx, train, test, prev)
	if dec.Degraded() {
		if s.metrics != nil {
			s.metrics.RecordBaselineDegraded()
		}
		if s.l != nil {
			s.l.Warn("baseline degraded: comparing stale recorded metric against fresh evaluation",
				applogger.String("previous", prev.Spec.ID()),
				applogger.String("metric", s.primary),
				applogger.Float64("recorded", dec.BaselineMetric),
			)
		}
	}

	// Promote only on strict improvement of the primary metric. A candidate
	// missing the primary metric reads as +Inf and can never win.
	dec.Promoted = metricOrInf(best, s.primary) < dec.BaselineMetric
	s.record(dec)
	return dec, nil
}

// baseline determines what the run's best must beat. When the previous
// winner's feature and lag sets are reconstructable from the current dataset
// it is re-evaluated fresh; otherwise — or when the fresh re-fit itself
// fails — the stale recorded metric is used, preserving availability at the
// cost of comparison fidelity.
func (s *Selector) baseline(ctx context.Context, train, test models.FeatureFrame, prev *models.BestModelRecord) (string, float64) {
	if s.eval.Supports(train, prev) {
		fresh := s.eval.Evaluate(ctx, train, test, prev.Spec)
		if !fresh.Failed {
			return models.BaselineFresh, metricOrInf(fresh, s.primary)
		}
		if s.l != nil {
			s.l.Warn("previous winner re-evaluation failed, falling back to recorded metric",
				applogger.String("previous", prev.Spec.ID()),
				applogger.String("error", fresh.Error),
			)
		}
	}
	if v, ok := prev.Metrics[s.primary]; ok {
		return models.BaselineRecorded, v
	}
	// Recorded metrics predate the current primary metric; nothing to compare
	// against, so any viable candidate wins.
	return models.BaselineRecorded, math.Inf(1)
}

func (s *Selector) record(dec *Decision) {
	if s.metrics != nil {
		s.metrics.RecordPromotion(dec.Promoted)
		if v, ok := dec.Best.Metrics[s.primary]; ok {
			s.metrics.RecordBestMetric(s.primary, v)
		}
	}
}

// bestResult returns the viable result with the lowest primary metric,
// breaking ties by secondary metric and then by declaration order.
func bestResult(results []models.EvaluationResult, primary, secondary string) (models.EvaluationResult, bool) {
	bestIdx := -1
	for i, r := range results {
		if r.Failed {
			continue
		}
		if bestIdx < 0 || lessResult(r, results[bestIdx], primary, secondary) {
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return models.EvaluationResult{}, false
	}
	return results[bestIdx], true
}

func lessResult(a, b models.EvaluationResult, primary, secondary string) bool {
	ap, bp := metricOrInf(a, primary), metricOrInf(b, primary)
	if ap != bp {
		return ap < bp
	}
	return metricOrInf(a, secondary) < metricOrInf(b, secondary)
}

func metricOrInf(r models.EvaluationResult, name string) float64 {
	if v, ok := r.Metrics[name]; ok {
		return v
	}
	return math.Inf(1)
}
