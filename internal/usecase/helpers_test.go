package usecase

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"GridCast/internal/domain/models"
	domsvc "GridCast/internal/domain/service"
	"GridCast/internal/services/families"
)

// stubFamily forecasts target+bias for every held-out point, so a candidate
// with bias b scores rmse == mae == |b| exactly. fitErr makes every Fit fail.
type stubFamily struct {
	name   string
	fitErr error
}

func (f *stubFamily) Name() string { return f.name }

func (f *stubFamily) Fit(_ context.Context, train models.FeatureFrame, spec models.CandidateSpec, seed int64) (domsvc.FittedModel, error) {
	if f.fitErr != nil {
		return nil, f.fitErr
	}
	return &stubModel{bias: spec.Param("bias", 0)}, nil
}

type stubModel struct {
	bias float64
}

func (m *stubModel) Forecast(test models.FeatureFrame, horizon int) ([]models.Prediction, error) {
	counts := make(map[string]int)
	var out []models.Prediction
	for _, r := range test.Records {
		if counts[r.SeriesKey] >= horizon {
			continue
		}
		counts[r.SeriesKey]++
		out = append(out, models.Prediction{
			SeriesKey: r.SeriesKey,
			Timestamp: r.Timestamp,
			Value:     r.Target + m.bias,
		})
	}
	return out, nil
}

func (m *stubModel) Marshal() ([]byte, error) {
	return json.Marshal(map[string]float64{"bias": m.bias})
}

func stubRegistry(fams ...domsvc.ModelFamily) *families.Registry {
	r := families.NewRegistry()
	for _, f := range fams {
		r.Register(f)
	}
	return r
}

// memStore is an in-memory ArtifactStore for pipeline tests.
type memStore struct {
	best     *models.BestModelRecord
	runs     map[string]models.RunRecord
	saveErr  error
	saveCnt  int
	loadFail error
}

func newMemStore() *memStore {
	return &memStore{runs: make(map[string]models.RunRecord)}
}

func (s *memStore) LoadBestRecord(context.Context) (*models.BestModelRecord, error) {
	if s.loadFail != nil {
		return nil, s.loadFail
	}
	if s.best == nil {
		return nil, models.ErrNoBestRecord
	}
	cp := *s.best
	return &cp, nil
}

func (s *memStore) SaveRun(_ context.Context, run models.RunRecord) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.saveCnt++
	s.runs[run.RunID] = run
	if run.Promoted != nil {
		cp := *run.Promoted
		s.best = &cp
	}
	return run.RunID, nil
}

func (s *memStore) GetRun(_ context.Context, id string) (*models.RunRecord, error) {
	r, ok := s.runs[id]
	if !ok {
		return nil, models.ErrNoBestRecord
	}
	return &r, nil
}

func (s *memStore) ListRuns(_ context.Context, from, to time.Time, limit int) ([]models.RunRecord, error) {
	var out []models.RunRecord
	for _, r := range s.runs {
		if r.StartedAt.Before(from) || r.StartedAt.After(to) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) Close() error { return nil }

// testFrames builds aligned hourly train/test frames for the given keys:
// trainLen points of history per key, testLen held-out points after it.
func testFrames(keys []string, trainLen, testLen int) (models.FeatureFrame, models.FeatureFrame) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"temp_c", "hour_of_day"}
	train := models.FeatureFrame{Columns: cols, Freq: time.Hour}
	test := models.FeatureFrame{Columns: cols, Freq: time.Hour}

	for ki, key := range keys {
		base := 100.0 * float64(ki+1)
		for i := 0; i < trainLen+testLen; i++ {
			ts := start.Add(time.Duration(i) * time.Hour)
			rec := models.Record{
				SeriesKey: key,
				Timestamp: ts,
				Target:    base + 10*float64(ts.Hour()%24)/24,
				Features: map[string]float64{
					"temp_c":      15 + 5*float64(ts.Hour()%24)/24,
					"hour_of_day": float64(ts.Hour()),
				},
			}
			if i < trainLen {
				train.Records = append(train.Records, rec)
			} else {
				test.Records = append(test.Records, rec)
			}
		}
	}
	return train, test
}
