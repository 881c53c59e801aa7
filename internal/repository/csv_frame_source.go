package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"GridCast/internal/domain/models"
)

// CSVFrameSource reads prepared train/test frames from CSV files with the
// header `series_key,timestamp,target,<feature columns...>`. Timestamps are
// RFC 3339.
type CSVFrameSource struct {
	trainPath string
	testPath  string
	columns   []string
	freq      time.Duration
}

func NewCSVFrameSource(trainPath, testPath string, columns []string, freq time.Duration) *CSVFrameSource {
	return &CSVFrameSource{trainPath: trainPath, testPath: testPath, columns: columns, freq: freq}
}

func (s *CSVFrameSource) LoadFrames(ctx context.Context) (models.FeatureFrame, models.FeatureFrame, error) {
	train, err := s.readFrame(s.trainPath)
	if err != nil {
		return models.FeatureFrame{}, models.FeatureFrame{}, fmt.Errorf("train frame: %w", err)
	}
	test, err := s.readFrame(s.testPath)
	if err != nil {
		return models.FeatureFrame{}, models.FeatureFrame{}, fmt.Errorf("test frame: %w", err)
	}
	return train, test, nil
}

func (s *CSVFrameSource) Close() error { return nil }

func (s *CSVFrameSource) readFrame(path string) (models.FeatureFrame, error) {
	frame := models.FeatureFrame{Columns: s.columns, Freq: s.freq}

	f, err := os.Open(path)
	if err != nil {
		return frame, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return frame, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 3 || header[0] != "series_key" || header[1] != "timestamp" || header[2] != "target" {
		return frame, fmt.Errorf("%s: header must start with series_key,timestamp,target", path)
	}

	colIdx := make(map[string]int, len(header)-3)
	for i := 3; i < len(header); i++ {
		colIdx[header[i]] = i
	}
	for _, c := range s.columns {
		if _, ok := colIdx[c]; !ok {
			return frame, fmt.Errorf("%s: configured feature %q not in header", path, c)
		}
	}

	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return frame, fmt.Errorf("%s line %d: %w", path, line, err)
		}

		ts, err := time.Parse(time.RFC3339, row[1])
		if err != nil {
			return frame, fmt.Errorf("%s line %d: timestamp: %w", path, line, err)
		}
		target, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return frame, fmt.Errorf("%s line %d: target: %w", path, line, err)
		}

		features := make(map[string]float64, len(s.columns))
		for _, c := range s.columns {
			v, err := strconv.ParseFloat(row[colIdx[c]], 64)
			if err != nil {
				return frame, fmt.Errorf("%s line %d: feature %q: %w", path, line, c, err)
			}
			features[c] = v
		}

		frame.Records = append(frame.Records, models.Record{
			SeriesKey: row[0],
			Timestamp: ts,
			Target:    target,
			Features:  features,
		})
	}
	return frame, nil
}
