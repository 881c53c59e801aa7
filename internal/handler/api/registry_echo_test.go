package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"GridCast/internal/domain/models"
	"GridCast/pkg/cache"
	xlogger "GridCast/pkg/logger"
)

type stubStore struct {
	best      *models.BestModelRecord
	runs      map[string]models.RunRecord
	loadCalls int
	listFrom  time.Time
	listTo    time.Time
}

func (s *stubStore) LoadBestRecord(context.Context) (*models.BestModelRecord, error) {
	s.loadCalls++
	if s.best == nil {
		return nil, models.ErrNoBestRecord
	}
	return s.best, nil
}

func (s *stubStore) SaveRun(context.Context, models.RunRecord) (string, error) {
	return "", nil
}

func (s *stubStore) GetRun(_ context.Context, id string) (*models.RunRecord, error) {
	r, ok := s.runs[id]
	if !ok {
		return nil, models.ErrNoBestRecord
	}
	return &r, nil
}

func (s *stubStore) ListRuns(_ context.Context, from, to time.Time, _ int) ([]models.RunRecord, error) {
	s.listFrom, s.listTo = from, to
	var out []models.RunRecord
	for _, r := range s.runs {
		out = append(out, r)
	}
	return out, nil
}

func (s *stubStore) Close() error { return nil }

func newTestHandler(store *stubStore, c cache.Service) (*RegistryEchoHandler, *echo.Echo) {
	l, _ := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stdout"})
	h := NewRegistryEchoHandler(l, store, c, time.Minute)
	e := echo.New()
	h.RegisterRoutes(e)
	return h, e
}

func do(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestBestNotFound(t *testing.T) {
	_, e := newTestHandler(&stubStore{}, nil)
	rec := do(e, http.MethodGet, "/api/best")

	var body struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", body.Status)
	}
}

func TestBestStripsModelPayload(t *testing.T) {
	store := &stubStore{best: &models.BestModelRecord{
		Spec:    models.CandidateSpec{Family: "gbrt", Params: map[string]float64{"num_leaves": 31}},
		Metrics: map[string]float64{"rmse": 9.8},
		RunID:   "run-1",
		Model:   []byte(`{"trees":[]}`),
	}}
	_, e := newTestHandler(store, nil)
	rec := do(e, http.MethodGet, "/api/best")

	var body struct {
		Status int                    `json:"status"`
		Data   models.BestModelRecord `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", body.Status)
	}
	if body.Data.RunID != "run-1" || body.Data.Metrics["rmse"] != 9.8 {
		t.Fatalf("unexpected record: %+v", body.Data)
	}
	if len(body.Data.Model) != 0 {
		t.Fatalf("model payload must be stripped from the API response")
	}
}

func TestBestUsesCache(t *testing.T) {
	store := &stubStore{best: &models.BestModelRecord{RunID: "run-1"}}
	mc := cache.NewMemoryCache()
	defer mc.Close()
	_, e := newTestHandler(store, mc)

	do(e, http.MethodGet, "/api/best")
	do(e, http.MethodGet, "/api/best")
	if store.loadCalls != 1 {
		t.Fatalf("store hit %d times, want 1 (second read from cache)", store.loadCalls)
	}
}

func TestGetRun(t *testing.T) {
	store := &stubStore{runs: map[string]models.RunRecord{
		"run-7": {RunID: "run-7", BestID: "gbrt/num_leaves=31"},
	}}
	_, e := newTestHandler(store, nil)

	rec := do(e, http.MethodGet, "/api/runs/run-7")
	var body struct {
		Status int              `json:"status"`
		Data   models.RunRecord `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != http.StatusOK || body.Data.RunID != "run-7" {
		t.Fatalf("unexpected response: %+v", body)
	}

	rec = do(e, http.MethodGet, "/api/runs/missing")
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", body.Status)
	}
}

func TestRunsAlignsRangeToHourly(t *testing.T) {
	store := &stubStore{}
	_, e := newTestHandler(store, nil)
	rec := do(e, http.MethodGet, "/api/runs?from=2025-07-01T06:17:42Z&to=2025-07-01T09:59:01Z")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if want := time.Date(2025, 7, 1, 6, 0, 0, 0, time.UTC); !store.listFrom.Equal(want) {
		t.Fatalf("from = %v, want %v", store.listFrom, want)
	}
	// the end bound rounds up so runs in the partial hour stay in range
	if want := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC); !store.listTo.Equal(want) {
		t.Fatalf("to = %v, want %v", store.listTo, want)
	}
}

func TestRunsRejectsBadRange(t *testing.T) {
	_, e := newTestHandler(&stubStore{}, nil)
	rec := do(e, http.MethodGet, "/api/runs?from=2025-07-02T00:00:00Z&to=2025-07-01T00:00:00Z")

	var body struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", body.Status)
	}
}
