package usecase

import (
	"fmt"

	"GridCast/internal/domain/models"
	"GridCast/internal/services/families"
)

// FamilyCandidates lists the explicit hyperparameter sets for one family.
// Each entry becomes its own candidate; no cross-family grid is taken.
type FamilyCandidates struct {
	Family string
	Params []map[string]float64
}

// TrainingConfig is the validated training input consumed by the core.
type TrainingConfig struct {
	Horizon         int
	Lags            []int
	Features        []string
	Candidates      []FamilyCandidates
	PrimaryMetric   string
	SecondaryMetric string
	Workers         int
	Seed            int64
}

// Primary returns the configured primary selection metric, defaulting to RMSE.
func (c TrainingConfig) Primary() string {
	if c.PrimaryMetric == "" {
		return MetricRMSE
	}
	return c.PrimaryMetric
}

// Secondary returns the tie-break metric, defaulting to MAE.
func (c TrainingConfig) Secondary() string {
	if c.SecondaryMetric == "" {
		return MetricMAE
	}
	return c.SecondaryMetric
}

// BuildCandidates resolves the configuration into the ordered list of
// candidate specs: a flat concatenation of each family's hyperparameter sets
// in declaration order, all sharing the global lag and feature configuration.
// No side effects.
func BuildCandidates(reg *families.Registry, cfg TrainingConfig) ([]models.CandidateSpec, error) {
	if cfg.Horizon <= 0 {
		return nil, &models.ConfigError{Field: "horizon", Msg: fmt.Sprintf("must be positive, got %d", cfg.Horizon)}
	}
	if len(cfg.Candidates) == 0 {
		return nil, &models.ConfigError{Field: "candidates", Msg: "at least one family is required"}
	}
	for _, lag := range cfg.Lags {
		if lag <= 0 {
			return nil, &models.ConfigError{Field: "lags", Msg: fmt.Sprintf("lag offsets must be positive, got %d", lag)}
		}
	}
	for _, m := range []struct{ field, name string }{
		{"primary_metric", cfg.Primary()},
		{"secondary_metric", cfg.Secondary()},
	} {
		switch m.name {
		case MetricRMSE, MetricMAE, MetricMAPE:
		default:
			return nil, &models.ConfigError{Field: m.field, Msg: fmt.Sprintf("unknown selection metric %q", m.name)}
		}
	}

	var specs []models.CandidateSpec
	for _, fc := range cfg.Candidates {
		if !reg.Has(fc.Family) {
			return nil, &models.ConfigError{Field: "candidates", Msg: fmt.Sprintf("unknown model family %q", fc.Family)}
		}
		if len(fc.Params) == 0 {
			return nil, &models.ConfigError{Field: "candidates", Msg: fmt.Sprintf("family %q lists no hyperparameter sets", fc.Family)}
		}
		for i, p := range fc.Params {
			if len(p) == 0 {
				return nil, &models.ConfigError{Field: "candidates", Msg: fmt.Sprintf("family %q hyperparameter set %d is empty", fc.Family, i)}
			}
			spec := models.CandidateSpec{
				Family:   fc.Family,
				Params:   p,
				Lags:     cfg.Lags,
				Features: cfg.Features,
			}
			specs = append(specs, spec.Clone())
		}
	}
	return specs, nil
}
