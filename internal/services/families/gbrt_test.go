package families

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"GridCast/internal/domain/models"
)

func gbrtFrames() (models.FeatureFrame, models.FeatureFrame) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"hour_of_day"}
	train := models.FeatureFrame{Columns: cols, Freq: time.Hour}
	test := models.FeatureFrame{Columns: cols, Freq: time.Hour}

	// 14 days of a clean daily cycle, then 24 held-out hours.
	total := 14*24 + 24
	for i := 0; i < total; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		h := float64(ts.Hour())
		rec := models.Record{
			SeriesKey: "zone-a",
			Timestamp: ts,
			Target:    100 + 30*math.Sin(2*math.Pi*h/24),
			Features:  map[string]float64{"hour_of_day": h},
		}
		if i < 14*24 {
			train.Records = append(train.Records, rec)
		} else {
			test.Records = append(test.Records, rec)
		}
	}
	return train, test
}

func gbrtSpec() models.CandidateSpec {
	return models.CandidateSpec{
		Family:   "gbrt",
		Params:   map[string]float64{"num_rounds": 80, "num_leaves": 15, "learning_rate": 0.2},
		Lags:     []int{1, 24},
		Features: []string{"hour_of_day"},
	}
}

func TestGBRTLearnsDailyCycle(t *testing.T) {
	train, test := gbrtFrames()
	model, err := NewGBRT().Fit(context.Background(), train, gbrtSpec(), 42)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	preds, err := model.Forecast(test, 24)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if len(preds) != 24 {
		t.Fatalf("got %d predictions, want 24", len(preds))
	}

	byTS := make(map[time.Time]float64, len(test.Records))
	for _, r := range test.Records {
		byTS[r.Timestamp] = r.Target
	}
	var se float64
	for _, p := range preds {
		a, ok := byTS[p.Timestamp]
		if !ok {
			t.Fatalf("forecast timestamp %v not in test frame", p.Timestamp)
		}
		se += (p.Value - a) * (p.Value - a)
	}
	rmse := math.Sqrt(se / float64(len(preds)))
	// The cycle repeats exactly; boosted trees over lag-24 should get close.
	if rmse > 5 {
		t.Fatalf("rmse = %v, expected a repeating cycle to be learned (< 5)", rmse)
	}
}

func TestGBRTDeterministic(t *testing.T) {
	train, test := gbrtFrames()

	run := func() []byte {
		model, err := NewGBRT().Fit(context.Background(), train, gbrtSpec(), 42)
		if err != nil {
			t.Fatalf("fit: %v", err)
		}
		if _, err := model.Forecast(test, 24); err != nil {
			t.Fatalf("forecast: %v", err)
		}
		b, err := model.Marshal()
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return b
	}

	a := run()
	b := run()
	if !bytes.Equal(a, b) {
		t.Fatalf("identical fits produced different serialized models")
	}
}

func TestGBRTInvalidHyperparameters(t *testing.T) {
	train, _ := gbrtFrames()
	spec := gbrtSpec()
	spec.Params = map[string]float64{"num_rounds": 0}
	if _, err := NewGBRT().Fit(context.Background(), train, spec, 42); err == nil {
		t.Fatalf("expected error for zero rounds")
	}
}

func TestGBRTCancellation(t *testing.T) {
	train, _ := gbrtFrames()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewGBRT().Fit(ctx, train, gbrtSpec(), 42); err == nil {
		t.Fatalf("expected context error")
	}
}
