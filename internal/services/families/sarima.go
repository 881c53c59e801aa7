package families

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sartorproj/goarima/sarima"
	"github.com/sartorproj/goarima/timeseries"

	"GridCast/internal/domain/models"
	domsvc "GridCast/internal/domain/service"
)

// SARIMA fits one seasonal ARIMA model per series key. The seasonal period
// defaults to 24, the daily cycle of hourly consumption data.
// Hyperparameters: p, d, q, sp, sd, sq, m.
type SARIMA struct{}

func NewSARIMA() *SARIMA { return &SARIMA{} }

func (*SARIMA) Name() string { return "sarima" }

func (*SARIMA) Fit(ctx context.Context, train models.FeatureFrame, spec models.CandidateSpec, seed int64) (domsvc.FittedModel, error) {
	p := spec.IntParam("p", 1)
	d := spec.IntParam("d", 0)
	q := spec.IntParam("q", 0)
	sp := spec.IntParam("sp", 1)
	sd := spec.IntParam("sd", 0)
	sq := spec.IntParam("sq", 0)
	period := spec.IntParam("m", 24)
	if period < 2 {
		return nil, fmt.Errorf("sarima: seasonal period must be >= 2, got %d", period)
	}

	m := &sarimaModel{
		perKey: make(map[string]*sarima.Model, 8),
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
		fitted := sarima.New(p, d, q, sp, sd, sq, period)
		if err := fitted.Fit(timeseries.New(vals)); err != nil {
			return nil, fmt.Errorf("sarima fit %s: %w", key, err)
		}
		m.perKey[key] = fitted
		m.lastTS[key] = recs[len(recs)-1].Timestamp
		m.keys = append(m.keys, key)
	}
	return m, nil
}

type sarimaModel struct {
	perKey map[string]*sarima.Model
	lastTS map[string]time.Time
	keys   []string
	freq   time.Duration
}

func (m *sarimaModel) Forecast(test models.FeatureFrame, horizon int) ([]models.Prediction, error) {
	freq := m.freq
	if freq <= 0 {
		freq = time.Hour
	}
	var out []models.Prediction
	for _, key := range m.keys {
		fc, err := m.perKey[key].Predict(horizon)
		if err != nil {
			return nil, fmt.Errorf("sarima predict %s: %w", key, err)
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

type sarimaState struct {
	Order     sarima.Order `json:"order"`
	ARCoeffs  []float64    `json:"ar_coeffs"`
	MACoeffs  []float64    `json:"ma_coeffs"`
	SARCoeffs []float64    `json:"sar_coeffs"`
	SMACoeffs []float64    `json:"sma_coeffs"`
	Intercept float64      `json:"intercept"`
	Variance  float64      `json:"variance"`
	AIC       float64      `json:"aic"`
}

func (m *sarimaModel) Marshal() ([]byte, error) {
	state := make(map[string]sarimaState, len(m.keys))
	for _, key := range m.keys {
		f := m.perKey[key]
		state[key] = sarimaState{
			Order:     f.Order,
			ARCoeffs:  f.ARCoeffs,
			MACoeffs:  f.MACoeffs,
			SARCoeffs: f.SARCoeffs,
			SMACoeffs: f.SMACoeffs,
			Intercept: f.Intercept,
			Variance:  f.Variance,
			AIC:       f.AIC,
		}
	}
	return json.Marshal(state)
}
