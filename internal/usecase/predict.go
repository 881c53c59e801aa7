package usecase

import (
	"context"
	"fmt"

	"GridCast/internal/domain/models"
	domrepo "GridCast/internal/domain/repository"
	"GridCast/internal/services/families"
	applogger "GridCast/pkg/logger"
)

// Predictor produces batch forecasts with the currently promoted model,
// refitting it on the full history frame. The future frame supplies exogenous
// feature values for the forecast window; its targets are ignored.
type Predictor struct {
	reg     *families.Registry
	store   domrepo.ArtifactStore
	l       *applogger.Logger
	horizon int
}

func NewPredictor(reg *families.Registry, store domrepo.ArtifactStore, l *applogger.Logger, horizon int) *Predictor {
	return &Predictor{reg: reg, store: store, l: l, horizon: horizon}
}

func (p *Predictor) Predict(ctx context.Context, history, future models.FeatureFrame) ([]models.Prediction, error) {
	rec, err := p.store.LoadBestRecord(ctx)
	if err != nil {
		return nil, fmt.Errorf("load best record: %w", err)
	}

	if err := history.Validate(); err != nil {
		return nil, fmt.Errorf("history frame: %w", err)
	}
	if !history.HasColumns(rec.Features) {
		return nil, fmt.Errorf("promoted model %s needs feature columns %v, dataset has %v",
			rec.Spec.ID(), rec.Features, history.Columns)
	}
	if rec.Spec.MaxLag() >= history.MinSeriesLen() {
		return nil, fmt.Errorf("promoted model %s needs %d steps of history, shortest series has %d",
			rec.Spec.ID(), rec.Spec.MaxLag(), history.MinSeriesLen())
	}

	fam, err := p.reg.Get(rec.Spec.Family)
	if err != nil {
		return nil, err
	}
	model, err := fam.Fit(ctx, history, rec.Spec, rec.Seed)
	if err != nil {
		return nil, fmt.Errorf("refit promoted model %s: %w", rec.Spec.ID(), err)
	}

	preds, err := model.Forecast(future, p.horizon)
	if err != nil {
		return nil, fmt.Errorf("forecast with %s: %w", rec.Spec.ID(), err)
	}
	if p.l != nil {
		p.l.Info("batch prediction complete",
			applogger.String("model", rec.Spec.ID()),
			applogger.String("promoted_run", rec.RunID),
			applogger.Int("forecasts", len(preds)),
		)
	}
	return preds, nil
}
