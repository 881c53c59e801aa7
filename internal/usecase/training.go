package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"GridCast/internal/domain/models"
	domrepo "GridCast/internal/domain/repository"
	"GridCast/internal/services/families"
	applogger "GridCast/pkg/logger"
)

// Trainer runs one complete training cycle: resolve candidates, backtest
// them, select against the persisted best record, and persist the run.
type Trainer struct {
	cfg     TrainingConfig
	reg     *families.Registry
	eval    *BacktestEvaluator
	sel     *Selector
	store   domrepo.ArtifactStore
	sink    domrepo.DecisionSink
	metrics domrepo.Metrics
	l       *applogger.Logger

	now      func() time.Time
	newRunID func() string
}

// NewTrainer wires the training pipeline. sink may be nil.
func NewTrainer(
	cfg TrainingConfig,
	reg *families.Registry,
	store domrepo.ArtifactStore,
	sink domrepo.DecisionSink,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *Trainer {
	eval := NewBacktestEvaluator(reg, metrics, l, cfg.Horizon, cfg.Seed)
	return &Trainer{
		cfg:      cfg,
		reg:      reg,
		eval:     eval,
		sel:      NewSelector(store, eval, metrics, l, cfg.Primary(), cfg.Secondary()),
		store:    store,
		sink:     sink,
		metrics:  metrics,
		l:        l,
		now:      time.Now,
		newRunID: defaultRunID,
	}
}

func defaultRunID() string {
	return "run-" + time.Now().UTC().Format("20060102T150405.000000000")
}

// Run executes one training run over prepared train/test frames and returns
// the persisted run record and the selection decision. On cancellation the
// run aborts without persisting anything.
func (t *Trainer) Run(ctx context.Context, train, test models.FeatureFrame) (*models.RunRecord, *Decision, error) {
	startedAt := t.now()

	if err := train.Validate(); err != nil {
		return nil, nil, fmt.Errorf("train frame: %w", err)
	}
	if err := test.Validate(); err != nil {
		return nil, nil, fmt.Errorf("test frame: %w", err)
	}
	if !train.HasColumns(test.Columns) || !test.HasColumns(train.Columns) {
		return nil, nil, &models.ConfigError{Field: "frames", Msg: "train and test frames must share one feature schema"}
	}

	specs, err := BuildCandidates(t.reg, t.cfg)
	if err != nil {
		return nil, nil, err
	}
	if t.l != nil {
		t.l.Info("training run started",
			applogger.Int("candidates", len(specs)),
			applogger.Int("train_records", len(train.Records)),
			applogger.Int("test_records", len(test.Records)),
			applogger.Int("workers", t.workers()),
		)
	}

	results := t.evaluateAll(ctx, train, test, specs)
	if err := ctx.Err(); err != nil {
		// Abandoned mid-run: partially computed provenance is not persisted.
		return nil, nil, err
	}

	dec, err := t.sel.Select(ctx, train, test, results)
	if err != nil {
		return nil, nil, err
	}

	run := models.RunRecord{
		RunID:            t.newRunID(),
		StartedAt:        startedAt,
		FinishedAt:       t.now(),
		Candidates:       outcomes(results),
		BestID:           dec.Best.Spec.ID(),
		BestMetrics:      dec.Best.Metrics,
		BaselineSource:   dec.BaselineSource,
		BaselineMetric:   dec.BaselineMetric,
		BaselineDegraded: dec.Degraded(),
	}
	if dec.Promoted {
		run.Promoted = &models.BestModelRecord{
			Spec:       dec.Best.Spec,
			Metrics:    dec.Best.Metrics,
			Features:   dec.Best.Spec.Features,
			Lags:       dec.Best.Spec.Lags,
			PromotedAt: run.FinishedAt,
			RunID:      run.RunID,
			Seed:       dec.Best.Seed,
			Model:      dec.Best.Handle,
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if _, err := t.store.SaveRun(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("save run: %w", err)
	}

	t.publish(ctx, run)
	if t.l != nil {
		t.l.Info("training run finished",
			applogger.String("run_id", run.RunID),
			applogger.String("best", run.BestID),
			applogger.Bool("promoted", dec.Promoted),
			applogger.String("baseline", dec.BaselineSource),
			applogger.Any("metrics", dec.Best.Metrics),
		)
	}
	return &run, dec, nil
}

func (t *Trainer) workers() int {
	if t.cfg.Workers < 1 {
		return 1
	}
	return t.cfg.Workers
}

// evaluateAll backtests every candidate with a bounded worker pool. Results
// land at their candidate's declaration index, so completion order never
// affects selection.
func (t *Trainer) evaluateAll(ctx context.Context, train, test models.FeatureFrame, specs []models.CandidateSpec) []models.EvaluationResult {
	results := make([]models.EvaluationResult, len(specs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < t.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = t.eval.Evaluate(ctx, train, test, specs[i])
			}
		}()
	}

feed:
	for i := range specs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

// outcomes strips predictions and model handles down to the provenance kept
// per attempted candidate, failed ones included.
func outcomes(results []models.EvaluationResult) []models.CandidateOutcome {
	out := make([]models.CandidateOutcome, len(results))
	for i, r := range results {
		out[i] = models.CandidateOutcome{
			Spec:    r.Spec,
			Metrics: r.Metrics,
			Failed:  r.Failed,
			Error:   r.Error,
		}
	}
	return out
}

func (t *Trainer) publish(ctx context.Context, run models.RunRecord) {
	if t.sink == nil {
		return
	}
	if err := t.sink.Publish(ctx, run); err != nil && t.l != nil {
		// Telemetry is optional: a failing sink never affects the decision.
		t.l.Warn("decision sink publish failed",
			applogger.String("run_id", run.RunID),
			applogger.Error(err),
		)
	}
}
