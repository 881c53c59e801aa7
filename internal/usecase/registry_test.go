package usecase

import (
	"errors"
	"testing"

	"GridCast/internal/domain/models"
)

func TestBuildCandidatesFlatOrder(t *testing.T) {
	reg := stubRegistry(&stubFamily{name: "lgbm"}, &stubFamily{name: "arima"})
	cfg := TrainingConfig{
		Horizon: 24,
		Lags:    []int{1, 24},
		Candidates: []FamilyCandidates{
			{Family: "lgbm", Params: []map[string]float64{{"bias": 1}, {"bias": 2}}},
			{Family: "arima", Params: []map[string]float64{{"p": 1}}},
		},
	}

	specs, err := BuildCandidates(reg, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("got %d specs, want 3", len(specs))
	}
	wantFamilies := []string{"lgbm", "lgbm", "arima"}
	for i, s := range specs {
		if s.Family != wantFamilies[i] {
			t.Fatalf("spec %d family = %s, want %s", i, s.Family, wantFamilies[i])
		}
	}
	if specs[0].Params["bias"] != 1 || specs[1].Params["bias"] != 2 {
		t.Fatalf("hyperparameter order not preserved: %+v", specs)
	}
}

func TestBuildCandidatesOutputIsIsolated(t *testing.T) {
	reg := stubRegistry(&stubFamily{name: "lgbm"})
	params := map[string]float64{"bias": 1}
	cfg := TrainingConfig{
		Horizon:    1,
		Candidates: []FamilyCandidates{{Family: "lgbm", Params: []map[string]float64{params}}},
	}
	specs, err := BuildCandidates(reg, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	specs[0].Params["bias"] = 99
	if params["bias"] != 1 {
		t.Fatalf("registry output aliases the input map")
	}
}

func TestBuildCandidatesConfigErrors(t *testing.T) {
	reg := stubRegistry(&stubFamily{name: "lgbm"})
	valid := []FamilyCandidates{{Family: "lgbm", Params: []map[string]float64{{"bias": 0}}}}

	cases := []struct {
		name string
		cfg  TrainingConfig
	}{
		{"zero horizon", TrainingConfig{Horizon: 0, Candidates: valid}},
		{"negative horizon", TrainingConfig{Horizon: -3, Candidates: valid}},
		{"no candidates", TrainingConfig{Horizon: 24}},
		{"bad lag", TrainingConfig{Horizon: 24, Lags: []int{0}, Candidates: valid}},
		{"unknown family", TrainingConfig{Horizon: 24, Candidates: []FamilyCandidates{{Family: "nope", Params: []map[string]float64{{"x": 1}}}}}},
		{"no param sets", TrainingConfig{Horizon: 24, Candidates: []FamilyCandidates{{Family: "lgbm"}}}},
		{"empty param set", TrainingConfig{Horizon: 24, Candidates: []FamilyCandidates{{Family: "lgbm", Params: []map[string]float64{{}}}}}},
		{"unknown primary metric", TrainingConfig{Horizon: 24, PrimaryMetric: "smape", Candidates: valid}},
		{"unknown secondary metric", TrainingConfig{Horizon: 24, SecondaryMetric: "r2", Candidates: valid}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildCandidates(reg, tc.cfg)
			var cerr *models.ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("got %v, want ConfigError", err)
			}
		})
	}
}
