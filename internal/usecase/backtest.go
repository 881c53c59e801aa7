package usecase

import (
	"context"
	"errors"
	"math"
	"time"

	"GridCast/internal/domain/models"
	domrepo "GridCast/internal/domain/repository"
	"GridCast/internal/services/families"
	applogger "GridCast/pkg/logger"
)

// Metric names reported by the evaluator.
const (
	MetricRMSE = "rmse"
	MetricMAE  = "mae"
	MetricMAPE = "mape"
)

var errEmptyForecast = errors.New("model produced no forecasts")

// BacktestEvaluator fits one candidate on the training window and scores it
// on the held-out window. Evaluations share nothing but read-only access to
// the frames, so they are safe to run concurrently.
type BacktestEvaluator struct {
	reg     *families.Registry
	metrics domrepo.Metrics
	l       *applogger.Logger
	horizon int
	seed    int64
}

func NewBacktestEvaluator(reg *families.Registry, metrics domrepo.Metrics, l *applogger.Logger, horizon int, seed int64) *BacktestEvaluator {
	return &BacktestEvaluator{reg: reg, metrics: metrics, l: l, horizon: horizon, seed: seed}
}

// Evaluate produces one EvaluationResult. Any fit, forecast, alignment, or
// serialization failure marks the candidate failed; it never aborts the run.
func (e *BacktestEvaluator) Evaluate(ctx context.Context, train, test models.FeatureFrame, spec models.CandidateSpec) models.EvaluationResult {
	res := models.EvaluationResult{Spec: spec, Seed: e.seed}

	fam, err := e.reg.Get(spec.Family)
	if err != nil {
		return e.fail(res, err)
	}

	start := time.Now()
	model, err := fam.Fit(ctx, train, spec, e.seed)
	if e.metrics != nil {
		e.metrics.RecordFitDuration(spec.Family, time.Since(start).Seconds())
	}
	if err != nil {
		return e.fail(res, err)
	}

	preds, err := model.Forecast(test, e.horizon)
	if err != nil {
		return e.fail(res, err)
	}

	scores, err := scoreForecasts(test, preds)
	if err != nil {
		return e.fail(res, err)
	}

	handle, err := model.Marshal()
	if err != nil {
		return e.fail(res, err)
	}

	res.Metrics = scores
	res.Predictions = preds
	res.Handle = handle
	if e.metrics != nil {
		e.metrics.RecordCandidate(spec.Family, false)
	}
	return res
}

// Supports reports whether a previously recorded winner can be rebuilt from
// the current dataset: its family still registered, its feature columns
// present, and its lags covered by the shortest series history.
func (e *BacktestEvaluator) Supports(train models.FeatureFrame, rec *models.BestModelRecord) bool {
	if rec == nil {
		return false
	}
	if !e.reg.Has(rec.Spec.Family) {
		return false
	}
	if !train.HasColumns(rec.Features) {
		return false
	}
	return rec.Spec.MaxLag() < train.MinSeriesLen()
}

func (e *BacktestEvaluator) fail(res models.EvaluationResult, err error) models.EvaluationResult {
	ferr := &models.CandidateFitError{Candidate: res.Spec.ID(), Err: err}
	res.Failed = true
	res.Error = ferr.Error()
	if e.l != nil {
		e.l.Warn("candidate evaluation failed",
			applogger.String("candidate", res.Spec.ID()),
			applogger.Error(err),
		)
	}
	if e.metrics != nil {
		e.metrics.RecordCandidate(res.Spec.Family, true)
	}
	return res
}

type seriesScore struct {
	se, ae, ape float64
	n, nAPE     int
}

// scoreForecasts aligns predictions with test targets on (series key,
// timestamp), computes RMSE/MAE/MAPE per series, and averages across series.
// A forecast timestamp absent from the test frame is an AlignmentError.
func scoreForecasts(test models.FeatureFrame, preds []models.Prediction) (map[string]float64, error) {
	type obsKey struct {
		key string
		ts  time.Time
	}
	actual := make(map[obsKey]float64, len(test.Records))
	for _, r := range test.Records {
		actual[obsKey{r.SeriesKey, r.Timestamp}] = r.Target
	}

	perKey := make(map[string]*seriesScore, 8)
	order := make([]string, 0, 8)
	for _, p := range preds {
		a, ok := actual[obsKey{p.SeriesKey, p.Timestamp}]
		if !ok {
			return nil, &models.AlignmentError{SeriesKey: p.SeriesKey, Timestamp: p.Timestamp}
		}
		s, ok := perKey[p.SeriesKey]
		if !ok {
			s = &seriesScore{}
			perKey[p.SeriesKey] = s
			order = append(order, p.SeriesKey)
		}
		diff := p.Value - a
		s.se += diff * diff
		s.ae += math.Abs(diff)
		s.n++
		if a != 0 {
			s.ape += math.Abs(diff / a)
			s.nAPE++
		}
	}
	if len(order) == 0 {
		return nil, errEmptyForecast
	}

	var rmse, mae, mape float64
	for _, key := range order {
		s := perKey[key]
		rmse += math.Sqrt(s.se / float64(s.n))
		mae += s.ae / float64(s.n)
		if s.nAPE > 0 {
			mape += s.ape / float64(s.nAPE)
		}
	}
	n := float64(len(order))
	return map[string]float64{
		MetricRMSE: rmse / n,
		MetricMAE:  mae / n,
		MetricMAPE: mape / n,
	}, nil
}
