package models

import (
	"fmt"
	"time"
)

// Record is one observation of a single consumption series.
type Record struct {
	SeriesKey string
	Timestamp time.Time
	Target    float64
	Features  map[string]float64
}

// FeatureFrame holds ordered observations for one or more series sharing a
// feature schema. Within a series key timestamps are strictly increasing and
// evenly spaced at Freq; there are no duplicate (key, timestamp) pairs.
// Frames are treated as immutable once built.
type FeatureFrame struct {
	Columns []string
	Freq    time.Duration
	Records []Record
}

// Validate checks the frame invariants: positive frequency, per-key strictly
// increasing and evenly spaced timestamps, and every record carrying every
// configured feature column.
func (f FeatureFrame) Validate() error {
	if f.Freq <= 0 {
		return fmt.Errorf("frame: frequency must be positive, got %v", f.Freq)
	}
	last := make(map[string]time.Time, 8)
	for i, r := range f.Records {
		if r.SeriesKey == "" {
			return fmt.Errorf("frame: record %d has empty series key", i)
		}
		if prev, ok := last[r.SeriesKey]; ok {
			gap := r.Timestamp.Sub(prev)
			if gap <= 0 {
				return fmt.Errorf("frame: series %s not strictly increasing at %s", r.SeriesKey, r.Timestamp.Format(time.RFC3339))
			}
			if gap != f.Freq {
				return fmt.Errorf("frame: series %s has gap %v at %s, want %v", r.SeriesKey, gap, r.Timestamp.Format(time.RFC3339), f.Freq)
			}
		}
		last[r.SeriesKey] = r.Timestamp
		for _, col := range f.Columns {
			if _, ok := r.Features[col]; !ok {
				return fmt.Errorf("frame: series %s missing feature %q at %s", r.SeriesKey, col, r.Timestamp.Format(time.RFC3339))
			}
		}
	}
	return nil
}

// Keys returns series keys in first-appearance order.
func (f FeatureFrame) Keys() []string {
	seen := make(map[string]struct{}, 8)
	keys := make([]string, 0, 8)
	for _, r := range f.Records {
		if _, ok := seen[r.SeriesKey]; ok {
			continue
		}
		seen[r.SeriesKey] = struct{}{}
		keys = append(keys, r.SeriesKey)
	}
	return keys
}

// ByKey returns the ordered records of one series.
func (f FeatureFrame) ByKey(key string) []Record {
	out := make([]Record, 0, 64)
	for _, r := range f.Records {
		if r.SeriesKey == key {
			out = append(out, r)
		}
	}
	return out
}

// HasColumns reports whether every named column is part of the frame schema.
func (f FeatureFrame) HasColumns(cols []string) bool {
	have := make(map[string]struct{}, len(f.Columns))
	for _, c := range f.Columns {
		have[c] = struct{}{}
	}
	for _, c := range cols {
		if _, ok := have[c]; !ok {
			return false
		}
	}
	return true
}

// MinSeriesLen returns the length of the shortest series in the frame,
// or 0 for an empty frame.
func (f FeatureFrame) MinSeriesLen() int {
	counts := make(map[string]int, 8)
	for _, r := range f.Records {
		counts[r.SeriesKey]++
	}
	min := 0
	for _, n := range counts {
		if min == 0 || n < min {
			min = n
		}
	}
	return min
}
