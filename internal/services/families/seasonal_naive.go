package families

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"GridCast/internal/domain/models"
	domsvc "GridCast/internal/domain/service"
)

// SeasonalNaive blends an exponential moving level with per-slot seasonal
// means (hour-of-day for hourly data). Stateless beyond the fitted level and
// seasonal profile; useful as a floor every learned candidate has to beat.
// Hyperparameters: alpha (EMA weight), season (slots), season_weight.
type SeasonalNaive struct{}

func NewSeasonalNaive() *SeasonalNaive { return &SeasonalNaive{} }

func (*SeasonalNaive) Name() string { return "seasonal_naive" }

func (*SeasonalNaive) Fit(ctx context.Context, train models.FeatureFrame, spec models.CandidateSpec, seed int64) (domsvc.FittedModel, error) {
	alpha := spec.Param("alpha", 0.3)
	season := spec.IntParam("season", 24)
	weight := spec.Param("season_weight", 0.7)
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("seasonal_naive: alpha must be in (0, 1], got %g", alpha)
	}
	if season < 1 {
		return nil, fmt.Errorf("seasonal_naive: season must be positive, got %d", season)
	}

	m := &seasonalNaiveModel{
		Season:       season,
		SeasonWeight: weight,
		Level:        make(map[string]float64, 8),
		Profile:      make(map[string][]float64, 8),
		lastTS:       make(map[string]time.Time, 8),
		freq:         train.Freq,
	}
	for _, key := range train.Keys() {
		recs := train.ByKey(key)
		if len(recs) < season {
			return nil, fmt.Errorf("seasonal_naive: series %s shorter than one season (%d < %d)", key, len(recs), season)
		}

		level := recs[0].Target
		sums := make([]float64, season)
		counts := make([]int, season)
		for i, r := range recs {
			level = alpha*r.Target + (1-alpha)*level
			slot := i % season
			sums[slot] += r.Target
			counts[slot]++
		}
		profile := make([]float64, season)
		for s := range profile {
			if counts[s] > 0 {
				profile[s] = sums[s] / float64(counts[s])
			} else {
				profile[s] = level
			}
		}

		m.Level[key] = level
		m.Profile[key] = profile
		m.lastTS[key] = recs[len(recs)-1].Timestamp
		m.keys = append(m.keys, key)
		// slot of the last observation, to continue the cycle into the forecast
		m.phase = append(m.phase, (len(recs)-1)%season)
	}
	return m, nil
}

type seasonalNaiveModel struct {
	Season       int                  `json:"season"`
	SeasonWeight float64              `json:"season_weight"`
	Level        map[string]float64   `json:"level"`
	Profile      map[string][]float64 `json:"profile"`

	keys   []string
	phase  []int
	lastTS map[string]time.Time
	freq   time.Duration
}

func (m *seasonalNaiveModel) Forecast(test models.FeatureFrame, horizon int) ([]models.Prediction, error) {
	freq := m.freq
	if freq <= 0 {
		freq = time.Hour
	}
	var out []models.Prediction
	for ki, key := range m.keys {
		level := m.Level[key]
		profile := m.Profile[key]
		last := m.lastTS[key]
		for step := 1; step <= horizon; step++ {
			slot := (m.phase[ki] + step) % m.Season
			v := m.SeasonWeight*profile[slot] + (1-m.SeasonWeight)*level
			out = append(out, models.Prediction{
				SeriesKey: key,
				Timestamp: last.Add(time.Duration(step) * freq),
				Value:     v,
			})
		}
	}
	return out, nil
}

func (m *seasonalNaiveModel) Marshal() ([]byte, error) {
	return json.Marshal(m)
}
