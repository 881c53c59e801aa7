package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"GridCast/internal/domain/models"
	applogger "GridCast/pkg/logger"
)

const bestRecordFile = "best.json"

// FSArtifactStore persists run provenance and the best-model record as JSON
// files. Writes go through a temp file plus rename, so a concurrent reader
// never observes a partially written record.
type FSArtifactStore struct {
	dir string
	mu  sync.Mutex
	l   *applogger.Logger
}

func NewFSArtifactStore(dir string) (*FSArtifactStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "runs"), 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &FSArtifactStore{dir: dir}, nil
}

// SetLogger injects a structured logger.
func (s *FSArtifactStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *FSArtifactStore) LoadBestRecord(ctx context.Context) (*models.BestModelRecord, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, bestRecordFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, models.ErrNoBestRecord
	}
	if err != nil {
		return nil, fmt.Errorf("read best record: %w", err)
	}
	var rec models.BestModelRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode best record: %w", err)
	}
	return &rec, nil
}

func (s *FSArtifactStore) SaveRun(ctx context.Context, run models.RunRecord) (string, error) {
	if run.RunID == "" {
		return "", fmt.Errorf("save run: empty run id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeAtomic(filepath.Join("runs", run.RunID+".json"), run); err != nil {
		return "", fmt.Errorf("write run %s: %w", run.RunID, err)
	}
	if run.Promoted != nil {
		if err := s.writeAtomic(bestRecordFile, run.Promoted); err != nil {
			return "", fmt.Errorf("write best record: %w", err)
		}
	}
	if s.l != nil {
		s.l.Info("run persisted",
			applogger.String("run_id", run.RunID),
			applogger.Int("candidates", len(run.Candidates)),
			applogger.Bool("promoted", run.Promoted != nil),
		)
	}
	return run.RunID, nil
}

func (s *FSArtifactStore) GetRun(ctx context.Context, runID string) (*models.RunRecord, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, "runs", runID+".json"))
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", runID, err)
	}
	var run models.RunRecord
	if err := json.Unmarshal(b, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &run, nil
}

func (s *FSArtifactStore) ListRuns(ctx context.Context, from, to time.Time, limit int) ([]models.RunRecord, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, "runs"))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	var runs []models.RunRecord
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		run, err := s.GetRun(ctx, strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			// skip files written by other tools or torn by operators
			continue
		}
		if run.StartedAt.Before(from) || run.StartedAt.After(to) {
			continue
		}
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *FSArtifactStore) Close() error { return nil }

func (s *FSArtifactStore) writeAtomic(rel string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, rel)); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
