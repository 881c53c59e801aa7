package families

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sartorproj/goarima/arima"
	"github.com/sartorproj/goarima/timeseries"

	"GridCast/internal/domain/models"
	domsvc "GridCast/internal/domain/service"
)

// ARIMA fits one univariate ARIMA(p,d,q) model per series key on the target
// column. Lag and exogenous feature predictors are not consumed; the family
// is a pure autoregressive baseline. Hyperparameters: p, d, q.
type ARIMA struct{}

func NewARIMA() *ARIMA { return &ARIMA{} }

func (*ARIMA) Name() string { return "arima" }

func (*ARIMA) Fit(ctx context.Context, train models.FeatureFrame, spec models.CandidateSpec, seed int64) (domsvc.FittedModel, error) {
	p := spec.IntParam("p", 1)
	d := spec.IntParam("d", 0)
	q := spec.IntParam("q", 0)
	if p < 0 || d < 0 || q < 0 {
		return nil, fmt.Errorf("arima: negative order p=%d d=%d q=%d", p, d, q)
	}

	m := &arimaModel{
		perKey: make(map[string]*arima.Model, 8),
		lastTS: make(map[string]time.Time, 8),
		freq:   train.Freq,
	}
	for _, key := range train.Keys() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs := train.ByKey(key)
		vals := make([]float64, len(recs))
		for i, r := range recs {
			vals[i] = r.Target
		}
		fitted := arima.New(p, d, q)
		if err := fitted.Fit(timeseries.New(vals)); err != nil {
			return nil, fmt.Errorf("arima fit %s: %w", key, err)
		}
		m.perKey[key] = fitted
		m.lastTS[key] = recs[len(recs)-1].Timestamp
		m.keys = append(m.keys, key)
	}
	return m, nil
}

type arimaModel struct {
	perKey map[string]*arima.Model
	lastTS map[string]time.Time
	keys   []string
	freq   time.Duration
}

func (m *arimaModel) Forecast(test models.FeatureFrame, horizon int) ([]models.Prediction, error) {
	freq := m.freq
	if freq <= 0 {
		freq = time.Hour
	}
	var out []models.Prediction
	for _, key := range m.keys {
		fc, err := m.perKey[key].Predict(horizon)
		if err != nil {
			return nil, fmt.Errorf("arima predict %s: %w", key, err)
		}
		last := m.lastTS[key]
		for i, v := range fc {
			out = append(out, models.Prediction{
				SeriesKey: key,
				Timestamp: last.Add(time.Duration(i+1) * freq),
				Value:     v,
			})
		}
	}
	return out, nil
}

type arimaState struct {
	Order     arima.Order `json:"order"`
	ARCoeffs  []float64   `json:"ar_coeffs"`
	MACoeffs  []float64   `json:"ma_coeffs"`
	Intercept float64     `json:"intercept"`
	Variance  float64     `json:"variance"`
	AIC       float64     `json:"aic"`
}

func (m *arimaModel) Marshal() ([]byte, error) {
	state := make(map[string]arimaState, len(m.keys))
	for _, key := range m.keys {
		f := m.perKey[key]
		state[key] = arimaState{
			Order:     f.Order,
			ARCoeffs:  f.ARCoeffs,
			MACoeffs:  f.MACoeffs,
			Intercept: f.Intercept,
			Variance:  f.Variance,
			AIC:       f.AIC,
		}
	}
	return json.Marshal(state)
}
