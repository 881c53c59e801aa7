package usecase

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"GridCast/internal/domain/models"
)

func TestEvaluateScoresExactly(t *testing.T) {
	reg := stubRegistry(&stubFamily{name: "lgbm"})
	eval := NewBacktestEvaluator(reg, nil, nil, 24, 42)
	train, test := testFrames([]string{"zone-a", "zone-b"}, 72, 24)

	spec := models.CandidateSpec{Family: "lgbm", Params: map[string]float64{"bias": 2.5}}
	res := eval.Evaluate(context.Background(), train, test, spec)
	if res.Failed {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if math.Abs(res.Metrics[MetricRMSE]-2.5) > 1e-9 {
		t.Fatalf("rmse = %v, want 2.5", res.Metrics[MetricRMSE])
	}
	if math.Abs(res.Metrics[MetricMAE]-2.5) > 1e-9 {
		t.Fatalf("mae = %v, want 2.5", res.Metrics[MetricMAE])
	}
	if len(res.Handle) == 0 {
		t.Fatalf("expected serialized model handle")
	}
	if res.Seed != 42 {
		t.Fatalf("seed = %d, want 42", res.Seed)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	reg := stubRegistry(&stubFamily{name: "lgbm"})
	eval := NewBacktestEvaluator(reg, nil, nil, 24, 7)
	train, test := testFrames([]string{"zone-a"}, 72, 24)
	spec := models.CandidateSpec{Family: "lgbm", Params: map[string]float64{"bias": 1.25}}

	a := eval.Evaluate(context.Background(), train, test, spec)
	b := eval.Evaluate(context.Background(), train, test, spec)
	if !reflect.DeepEqual(a.Metrics, b.Metrics) {
		t.Fatalf("metrics differ across identical runs: %v vs %v", a.Metrics, b.Metrics)
	}
	if !reflect.DeepEqual(a.Predictions, b.Predictions) {
		t.Fatalf("predictions differ across identical runs")
	}
}

func TestEvaluateFitFailureIsIsolated(t *testing.T) {
	reg := stubRegistry(&stubFamily{name: "broken", fitErr: errors.New("singular matrix")})
	eval := NewBacktestEvaluator(reg, nil, nil, 24, 42)
	train, test := testFrames([]string{"zone-a"}, 72, 24)

	res := eval.Evaluate(context.Background(), train, test, models.CandidateSpec{Family: "broken", Params: map[string]float64{"x": 1}})
	if !res.Failed {
		t.Fatalf("expected failed result")
	}
	if res.Error == "" || res.Metrics != nil {
		t.Fatalf("failed result should carry error text and no metrics: %+v", res)
	}
}

func TestScoreForecastsAlignmentError(t *testing.T) {
	_, test := testFrames([]string{"zone-a"}, 24, 24)
	preds := []models.Prediction{{
		SeriesKey: "zone-a",
		Timestamp: test.Records[0].Timestamp.Add(500 * time.Hour),
		Value:     1,
	}}
	_, err := scoreForecasts(test, preds)
	var aerr *models.AlignmentError
	if !errors.As(err, &aerr) {
		t.Fatalf("got %v, want AlignmentError", err)
	}
}

func TestScoreForecastsAveragesAcrossSeries(t *testing.T) {
	// zone-a is off by 1, zone-b by 3: cross-series mean is 2 for both
	// rmse and mae.
	_, test := testFrames([]string{"zone-a", "zone-b"}, 24, 4)
	var preds []models.Prediction
	for _, r := range test.Records {
		off := 1.0
		if r.SeriesKey == "zone-b" {
			off = 3.0
		}
		preds = append(preds, models.Prediction{SeriesKey: r.SeriesKey, Timestamp: r.Timestamp, Value: r.Target + off})
	}

	m, err := scoreForecasts(test, preds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(m[MetricRMSE]-2) > 1e-9 || math.Abs(m[MetricMAE]-2) > 1e-9 {
		t.Fatalf("rmse/mae = %v/%v, want 2/2", m[MetricRMSE], m[MetricMAE])
	}
}

func TestSupports(t *testing.T) {
	reg := stubRegistry(&stubFamily{name: "lgbm"})
	eval := NewBacktestEvaluator(reg, nil, nil, 24, 42)
	train, _ := testFrames([]string{"zone-a"}, 48, 0)

	rec := &models.BestModelRecord{
		Spec:     models.CandidateSpec{Family: "lgbm", Lags: []int{24}},
		Features: []string{"temp_c"},
	}
	if !eval.Supports(train, rec) {
		t.Fatalf("expected record to be supported")
	}

	gone := &models.BestModelRecord{Spec: models.CandidateSpec{Family: "retired"}}
	if eval.Supports(train, gone) {
		t.Fatalf("unregistered family must not be supported")
	}

	wideLag := &models.BestModelRecord{
		Spec:     models.CandidateSpec{Family: "lgbm", Lags: []int{168}},
		Features: []string{"temp_c"},
	}
	if eval.Supports(train, wideLag) {
		t.Fatalf("lag beyond history must not be supported")
	}

	missingCol := &models.BestModelRecord{
		Spec:     models.CandidateSpec{Family: "lgbm"},
		Features: []string{"wind_kph"},
	}
	if eval.Supports(train, missingCol) {
		t.Fatalf("missing feature column must not be supported")
	}
}
