package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"GridCast/internal/domain/models"
	applogger "GridCast/pkg/logger"
)

// SQLiteArtifactStore persists runs and the best-model record in SQLite.
// SaveRun runs inside a single transaction, which gives the atomicity
// guarantee relative to concurrent LoadBestRecord readers.
type SQLiteArtifactStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewSQLiteArtifactStore(path string) (*SQLiteArtifactStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	s := &SQLiteArtifactStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// SetLogger injects a structured logger.
func (s *SQLiteArtifactStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *SQLiteArtifactStore) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id     TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			promoted   INTEGER NOT NULL,
			payload    TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS candidates (
			run_id  TEXT NOT NULL,
			ord     INTEGER NOT NULL,
			family  TEXT NOT NULL,
			spec_id TEXT NOT NULL,
			failed  INTEGER NOT NULL,
			error   TEXT,
			metrics TEXT,
			PRIMARY KEY (run_id, ord)
		)`,
		`CREATE TABLE IF NOT EXISTS best_record (
			slot        INTEGER PRIMARY KEY CHECK (slot = 1),
			promoted_at TEXT NOT NULL,
			payload     TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteArtifactStore) LoadBestRecord(ctx context.Context) (*models.BestModelRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM best_record WHERE slot = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNoBestRecord
	}
	if err != nil {
		return nil, fmt.Errorf("load best record: %w", err)
	}
	var rec models.BestModelRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decode best record: %w", err)
	}
	return &rec, nil
}

func (s *SQLiteArtifactStore) SaveRun(ctx context.Context, run models.RunRecord) (string, error) {
	if run.RunID == "" {
		return "", fmt.Errorf("save run: empty run id")
	}
	payload, err := json.Marshal(run)
	if err != nil {
		return "", fmt.Errorf("marshal run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	promoted := 0
	if run.Promoted != nil {
		promoted = 1
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, promoted, payload) VALUES (?, ?, ?, ?)`,
		run.RunID, run.StartedAt.UTC().Format(time.RFC3339Nano), promoted, string(payload),
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for ord, c := range run.Candidates {
		mb, err := json.Marshal(c.Metrics)
		if err != nil {
			return "", fmt.Errorf("marshal candidate metrics: %w", err)
		}
		failed := 0
		if c.Failed {
			failed = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO candidates (run_id, ord, family, spec_id, failed, error, metrics) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, ord, c.Spec.Family, c.Spec.ID(), failed, c.Error, string(mb),
		); err != nil {
			return "", fmt.Errorf("insert candidate %d: %w", ord, err)
		}
	}

	if run.Promoted != nil {
		rb, err := json.Marshal(run.Promoted)
		if err != nil {
			return "", fmt.Errorf("marshal best record: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO best_record (slot, promoted_at, payload) VALUES (1, ?, ?)
			 ON CONFLICT (slot) DO UPDATE SET promoted_at = excluded.promoted_at, payload = excluded.payload`,
			run.Promoted.PromotedAt.UTC().Format(time.RFC3339Nano), string(rb),
		); err != nil {
			return "", fmt.Errorf("upsert best record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
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

func (s *SQLiteArtifactStore) GetRun(ctx context.Context, runID string) (*models.RunRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE run_id = ?`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, os.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	var run models.RunRecord
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &run, nil
}

func (s *SQLiteArtifactStore) ListRuns(ctx context.Context, from, to time.Time, limit int) ([]models.RunRecord, error) {
	q := `SELECT payload FROM runs WHERE started_at >= ? AND started_at <= ? ORDER BY started_at DESC`
	args := []interface{}{from.UTC().Format(time.RFC3339Nano), to.UTC().Format(time.RFC3339Nano)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RunRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		var run models.RunRecord
		if err := json.Unmarshal([]byte(payload), &run); err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return runs, nil
}

func (s *SQLiteArtifactStore) Close() error {
	return s.db.Close()
}
