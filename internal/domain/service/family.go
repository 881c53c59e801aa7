package service

import (
	"context"

	"GridCast/internal/domain/models"
)

// FittedModel is an opaque trained artifact. It is owned exclusively by
// whichever component currently holds it: the evaluator during backtesting,
// the artifact store after promotion.
type FittedModel interface {
	// Forecast produces horizon-step-ahead point forecasts for every series
	// key it was trained on, feeding forward any required exogenous feature
	// values from the test frame. Deterministic for identical inputs.
	Forecast(test models.FeatureFrame, horizon int) ([]models.Prediction, error)
	// Marshal serializes the trained state for persistence.
	Marshal() ([]byte, error)
}

// ModelFamily fits candidates of one model type. Implementations must be
// deterministic for a fixed seed and safe for concurrent Fit calls on
// independent inputs.
type ModelFamily interface {
	Name() string
	Fit(ctx context.Context, train models.FeatureFrame, spec models.CandidateSpec, seed int64) (FittedModel, error)
}
