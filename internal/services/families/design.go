package families

import (
	"fmt"
	"time"

	"GridCast/internal/domain/models"
)

// designMatrix builds the supervised design matrix from a frame: one row per
// observation whose lag predictors are all computable, columns ordered as
// spec.Lags then spec.Features. Rows with insufficient history are dropped,
// not imputed. The model is global: rows from all series keys are stacked in
// frame key order.
func designMatrix(frame models.FeatureFrame, spec models.CandidateSpec) (x [][]float64, y []float64, err error) {
	maxLag := spec.MaxLag()
	for _, key := range frame.Keys() {
		recs := frame.ByKey(key)
		for i := maxLag; i < len(recs); i++ {
			row, err := designRow(recs, i, spec)
			if err != nil {
				return nil, nil, err
			}
			x = append(x, row)
			y = append(y, recs[i].Target)
		}
	}
	if len(x) == 0 {
		return nil, nil, fmt.Errorf("design matrix empty: no rows with %d steps of history", maxLag)
	}
	return x, y, nil
}

func designRow(recs []models.Record, i int, spec models.CandidateSpec) ([]float64, error) {
	row := make([]float64, 0, len(spec.Lags)+len(spec.Features))
	for _, lag := range spec.Lags {
		row = append(row, recs[i-lag].Target)
	}
	for _, col := range spec.Features {
		v, ok := recs[i].Features[col]
		if !ok {
			return nil, fmt.Errorf("feature %q missing for %s at %s", col, recs[i].SeriesKey, recs[i].Timestamp.Format(time.RFC3339))
		}
		row = append(row, v)
	}
	return row, nil
}

// forecastRecursive rolls a single-step predictor forward horizon steps per
// series key. Lag predictors beyond the training history are fed from the
// model's own forecasts; exogenous feature values come from the test frame,
// which must contain every forecast timestamp.
func forecastRecursive(train, test models.FeatureFrame, spec models.CandidateSpec, horizon int, predict func(row []float64) float64) ([]models.Prediction, error) {
	freq := train.Freq
	if freq <= 0 {
		freq = time.Hour
	}

	var out []models.Prediction
	for _, key := range train.Keys() {
		hist := train.ByKey(key)
		if len(hist) == 0 {
			continue
		}
		lastTS := hist[len(hist)-1].Timestamp

		testByTS := make(map[time.Time]models.Record, horizon)
		for _, r := range test.ByKey(key) {
			testByTS[r.Timestamp] = r
		}

		targets := make([]float64, len(hist))
		for i, r := range hist {
			targets[i] = r.Target
		}

		fc := make([]float64, 0, horizon)
		for step := 1; step <= horizon; step++ {
			ts := lastTS.Add(time.Duration(step) * freq)

			row := make([]float64, 0, len(spec.Lags)+len(spec.Features))
			for _, lag := range spec.Lags {
				idx := len(targets) + step - 1 - lag
				if idx < 0 {
					return nil, fmt.Errorf("series %s: lag %d exceeds available history at step %d", key, lag, step)
				}
				if idx < len(targets) {
					row = append(row, targets[idx])
				} else {
					row = append(row, fc[idx-len(targets)])
				}
			}
			if len(spec.Features) > 0 {
				rec, ok := testByTS[ts]
				if !ok {
					return nil, &models.AlignmentError{SeriesKey: key, Timestamp: ts}
				}
				for _, col := range spec.Features {
					v, ok := rec.Features[col]
					if !ok {
						return nil, fmt.Errorf("feature %q missing for %s at %s", col, key, ts.Format(time.RFC3339))
					}
					row = append(row, v)
				}
			}

			v := predict(row)
			fc = append(fc, v)
			out = append(out, models.Prediction{SeriesKey: key, Timestamp: ts, Value: v})
		}
	}
	return out, nil
}
