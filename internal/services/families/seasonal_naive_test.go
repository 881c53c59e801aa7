package families

import (
	"context"
	"math"
	"testing"
	"time"

	"GridCast/internal/domain/models"
)

func TestSeasonalNaiveFollowsProfile(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	train := models.FeatureFrame{Freq: time.Hour}
	// Constant repeating pattern: slot s always carries value s.
	for i := 0; i < 7*24; i++ {
		train.Records = append(train.Records, models.Record{
			SeriesKey: "zone-a",
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Target:    float64(i % 24),
			Features:  map[string]float64{},
		})
	}

	spec := models.CandidateSpec{
		Family: "seasonal_naive",
		Params: map[string]float64{"alpha": 0.3, "season": 24, "season_weight": 1},
	}
	model, err := NewSeasonalNaive().Fit(context.Background(), train, spec, 42)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	preds, err := model.Forecast(models.FeatureFrame{}, 24)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if len(preds) != 24 {
		t.Fatalf("got %d predictions, want 24", len(preds))
	}
	// With full season weight the forecast is the per-slot mean, which for a
	// constant pattern equals the pattern itself.
	for i, p := range preds {
		want := float64((7*24 + i) % 24)
		if math.Abs(p.Value-want) > 1e-9 {
			t.Fatalf("step %d = %v, want %v", i+1, p.Value, want)
		}
		wantTS := start.Add(time.Duration(7*24+i) * time.Hour)
		if !p.Timestamp.Equal(wantTS) {
			t.Fatalf("step %d timestamp = %v, want %v", i+1, p.Timestamp, wantTS)
		}
	}
}

func TestSeasonalNaiveRejectsShortSeries(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	train := models.FeatureFrame{Freq: time.Hour}
	for i := 0; i < 10; i++ {
		train.Records = append(train.Records, models.Record{
			SeriesKey: "zone-a",
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Target:    1,
			Features:  map[string]float64{},
		})
	}

	spec := models.CandidateSpec{Params: map[string]float64{"season": 24}}
	if _, err := NewSeasonalNaive().Fit(context.Background(), train, spec, 42); err == nil {
		t.Fatalf("expected error for series shorter than one season")
	}
}

func TestSeasonalNaiveRejectsBadAlpha(t *testing.T) {
	spec := models.CandidateSpec{Params: map[string]float64{"alpha": 1.5}}
	if _, err := NewSeasonalNaive().Fit(context.Background(), models.FeatureFrame{}, spec, 42); err == nil {
		t.Fatalf("expected error for alpha > 1")
	}
}

func TestRegistryDefaultFamilies(t *testing.T) {
	reg := Default()
	for _, name := range []string{"arima", "sarima", "gbrt", "seasonal_naive"} {
		if !reg.Has(name) {
			t.Fatalf("family %s not registered", name)
		}
	}
	if _, err := reg.Get("prophet"); err == nil {
		t.Fatalf("expected error for unknown family")
	}
}
