package server

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"GridCast/internal/domain/models"
	domrepo "GridCast/internal/domain/repository"
	"GridCast/internal/usecase"
	"GridCast/pkg/config"
	xhttp "GridCast/pkg/http"
	"GridCast/pkg/http/middleware"
	applogger "GridCast/pkg/logger"
)

// Run modes.
const (
	ModeTrain   = "train"
	ModeServe   = "serve"
	ModePredict = "predict"
)

// App encapsulates the application lifecycle for all run modes.
type App struct {
	cfg       *config.Config
	l         *applogger.Logger
	trainer   *usecase.Trainer
	predictor *usecase.Predictor
	source    domrepo.FrameSource
	store     domrepo.ArtifactStore
	sink      domrepo.DecisionSink

	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	trainer *usecase.Trainer,
	predictor *usecase.Predictor,
	source domrepo.FrameSource,
	store domrepo.ArtifactStore,
	sink domrepo.DecisionSink,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		l:           l,
		trainer:     trainer,
		predictor:   predictor,
		source:      source,
		store:       store,
		sink:        sink,
		httpHandler: handler,
	}
}

// Run dispatches to the selected mode and blocks until it completes or a
// shutdown signal arrives.
func (a *App) Run(mode string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.close()

	switch mode {
	case ModeTrain:
		return a.runTraining(ctx)
	case ModeServe:
		return a.serve(ctx)
	case ModePredict:
		return a.runPredict(ctx)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func (a *App) runTraining(ctx context.Context) error {
	start := time.Now()
	train, test, err := a.source.LoadFrames(ctx)
	if err != nil {
		return fmt.Errorf("load frames: %w", err)
	}

	run, dec, err := a.trainer.Run(ctx, train, test)
	if err != nil {
		return fmt.Errorf("training run: %w", err)
	}

	a.l.Info("training finished",
		applogger.String("run_id", run.RunID),
		applogger.String("best", run.BestID),
		applogger.Bool("promoted", dec.Promoted),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (a *App) serve(ctx context.Context) error {
	middleware.SetLogger(a.l)
	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("http start: %w", err)
	}
	a.l.Info("registry api started", applogger.Int("port", a.cfg.Server.Port))

	<-ctx.Done()
	a.l.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.httpServer.Stop(shutdownCtx)
}

func (a *App) runPredict(ctx context.Context) error {
	history, future, err := a.source.LoadFrames(ctx)
	if err != nil {
		return fmt.Errorf("load frames: %w", err)
	}

	preds, err := a.predictor.Predict(ctx, history, future)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}

	path := a.cfg.Data.CSV.ForecastPath
	if err := writeForecastCSV(path, preds); err != nil {
		return fmt.Errorf("write forecasts: %w", err)
	}
	a.l.Info("forecasts written",
		applogger.String("path", path),
		applogger.Int("rows", len(preds)),
	)
	return nil
}

func (a *App) close() {
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.l.Warn("frame source close error", applogger.Error(err))
		}
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			a.l.Warn("decision sink close error", applogger.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.l.Warn("artifact store close error", applogger.Error(err))
		}
	}
}

func writeForecastCSV(path string, preds []models.Prediction) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"series_key", "timestamp", "forecast"}); err != nil {
		return err
	}
	for _, p := range preds {
		row := []string{
			p.SeriesKey,
			p.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(p.Value, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
