package models

import (
	"strings"
	"testing"
	"time"
)

func hourlyFrame(key string, start time.Time, targets []float64) FeatureFrame {
	f := FeatureFrame{Columns: []string{"temp_c"}, Freq: time.Hour}
	for i, v := range targets {
		f.Records = append(f.Records, Record{
			SeriesKey: key,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Target:    v,
			Features:  map[string]float64{"temp_c": 10 + float64(i)},
		})
	}
	return f
}

func TestFrameValidateOK(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := hourlyFrame("zone-a", start, []float64{1, 2, 3, 4})
	if err := f.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFrameValidateGap(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := hourlyFrame("zone-a", start, []float64{1, 2, 3})
	f.Records[2].Timestamp = f.Records[2].Timestamp.Add(time.Hour) // 2h gap
	err := f.Validate()
	if err == nil || !strings.Contains(err.Error(), "gap") {
		t.Fatalf("expected gap error, got %v", err)
	}
}

func TestFrameValidateDuplicate(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := hourlyFrame("zone-a", start, []float64{1, 2})
	f.Records[1].Timestamp = f.Records[0].Timestamp
	if err := f.Validate(); err == nil {
		t.Fatalf("expected error for duplicate timestamp")
	}
}

func TestFrameValidateMissingFeature(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := hourlyFrame("zone-a", start, []float64{1, 2})
	delete(f.Records[1].Features, "temp_c")
	err := f.Validate()
	if err == nil || !strings.Contains(err.Error(), "temp_c") {
		t.Fatalf("expected missing feature error, got %v", err)
	}
}

func TestFrameKeysFirstAppearanceOrder(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := hourlyFrame("zone-b", start, []float64{1, 2})
	a := hourlyFrame("zone-a", start, []float64{3, 4})
	f.Records = append(f.Records, a.Records...)

	keys := f.Keys()
	if len(keys) != 2 || keys[0] != "zone-b" || keys[1] != "zone-a" {
		t.Fatalf("unexpected key order: %v", keys)
	}
}

func TestFrameMinSeriesLen(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := hourlyFrame("zone-a", start, []float64{1, 2, 3, 4, 5})
	b := hourlyFrame("zone-b", start, []float64{1, 2})
	f.Records = append(f.Records, b.Records...)

	if got := f.MinSeriesLen(); got != 2 {
		t.Fatalf("MinSeriesLen = %d, want 2", got)
	}
}

func TestCandidateSpecID(t *testing.T) {
	s := CandidateSpec{
		Family: "gbrt",
		Params: map[string]float64{"num_leaves": 31, "learning_rate": 0.1},
	}
	want := "gbrt/learning_rate=0.1/num_leaves=31"
	if got := s.ID(); got != want {
		t.Fatalf("ID = %q, want %q", got, want)
	}
}

func TestCandidateSpecCloneIsDeep(t *testing.T) {
	s := CandidateSpec{
		Family:   "arima",
		Params:   map[string]float64{"p": 1},
		Lags:     []int{1, 24},
		Features: []string{"temp_c"},
	}
	c := s.Clone()
	c.Params["p"] = 2
	c.Lags[0] = 99
	if s.Params["p"] != 1 || s.Lags[0] != 1 {
		t.Fatalf("clone shared state with original: %+v", s)
	}
}
