package models

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// CandidateSpec fully describes one trainable configuration: a model family,
// one hyperparameter set, the lag offsets (in steps of the frame frequency)
// used as engineered predictors, and the exogenous feature columns consumed.
// Immutable once constructed.
type CandidateSpec struct {
	Family   string             `json:"family"`
	Params   map[string]float64 `json:"params"`
	Lags     []int              `json:"lags"`
	Features []string           `json:"features"`
}

// ID renders a stable human-readable identifier: family name followed by the
// hyperparameters in sorted key order.
func (s CandidateSpec) ID() string {
	keys := make([]string, 0, len(s.Params))
	for k := range s.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(s.Family)
	for _, k := range keys {
		b.WriteByte('/')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(s.Params[k], 'g', -1, 64))
	}
	return b.String()
}

// Param returns a hyperparameter value or the given default when unset.
func (s CandidateSpec) Param(name string, def float64) float64 {
	if v, ok := s.Params[name]; ok {
		return v
	}
	return def
}

// IntParam returns a hyperparameter as int or the given default when unset.
func (s CandidateSpec) IntParam(name string, def int) int {
	if v, ok := s.Params[name]; ok {
		return int(v)
	}
	return def
}

// MaxLag returns the largest lag offset, or 0 when no lags are configured.
func (s CandidateSpec) MaxLag() int {
	max := 0
	for _, l := range s.Lags {
		if l > max {
			max = l
		}
	}
	return max
}

// Clone returns a deep copy so registry output stays immutable.
func (s CandidateSpec) Clone() CandidateSpec {
	c := CandidateSpec{Family: s.Family}
	if s.Params != nil {
		c.Params = make(map[string]float64, len(s.Params))
		for k, v := range s.Params {
			c.Params[k] = v
		}
	}
	c.Lags = append([]int(nil), s.Lags...)
	c.Features = append([]string(nil), s.Features...)
	return c
}

// Prediction is one point forecast for a series at a timestamp.
type Prediction struct {
	SeriesKey string    `json:"series_key"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// EvaluationResult is the outcome of backtesting one candidate. Failed
// candidates carry the error text and no metrics; successful ones carry
// held-out error metrics, per-point predictions, and a serialized opaque
// handle to the fitted model.
type EvaluationResult struct {
	Spec        CandidateSpec      `json:"spec"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	Predictions []Prediction       `json:"-"`
	Handle      []byte             `json:"-"`
	Seed        int64              `json:"seed"`
	Failed      bool               `json:"failed"`
	Error       string             `json:"error,omitempty"`
}
