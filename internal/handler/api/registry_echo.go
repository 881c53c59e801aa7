package api

import (
	"errors"
	"strconv"
	"time"

	"GridCast/internal/domain/models"
	domrepo "GridCast/internal/domain/repository"
	"GridCast/pkg/cache"
	xhttp "GridCast/pkg/http"
	xlogger "GridCast/pkg/logger"
	"GridCast/pkg/util"

	"github.com/labstack/echo/v4"
)

const bestRecordCacheKey = "best_record"

// RegistryEchoHandler exposes the model registry over HTTP: the current
// best record, individual run provenance, and the run history.
type RegistryEchoHandler struct {
	logger   *xlogger.Logger
	store    domrepo.ArtifactStore
	cache    cache.Service
	cacheTTL time.Duration
}

func NewRegistryEchoHandler(logger *xlogger.Logger, store domrepo.ArtifactStore, c cache.Service, cacheTTL time.Duration) *RegistryEchoHandler {
	return &RegistryEchoHandler{logger: logger, store: store, cache: c, cacheTTL: cacheTTL}
}

func (h *RegistryEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/best", h.Best)
	g.GET("/runs", h.Runs)
	g.GET("/runs/:id", h.Run)
}

func (h *RegistryEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Best returns the currently promoted model record. The heavyweight model
// payload is stripped; clients that need it load the artifact directly.
func (h *RegistryEchoHandler) Best(c echo.Context) error {
	ctx := c.Request().Context()

	if h.cache != nil {
		var cached models.BestModelRecord
		if err := h.cache.Get(ctx, bestRecordCacheKey, &cached); err == nil {
			return xhttp.SuccessResponse(c, stripModel(cached))
		}
	}

	rec, err := h.store.LoadBestRecord(ctx)
	if err != nil {
		if errors.Is(err, models.ErrNoBestRecord) {
			return xhttp.NotFoundResponse(c, "no model has been promoted yet")
		}
		h.logger.Error("load best record error", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, bestRecordCacheKey, rec, h.cacheTTL); err != nil {
			h.logger.Warn("best record cache set failed", xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, stripModel(*rec))
}

func (h *RegistryEchoHandler) Run(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return xhttp.BadRequestResponse(c, "run id is required")
	}

	run, err := h.store.GetRun(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNoBestRecord) {
			return xhttp.NotFoundResponse(c, "run not found")
		}
		h.logger.Error("get run error", xlogger.String("run_id", id), xlogger.Error(err))
		return xhttp.NotFoundResponse(c, "run not found")
	}
	return xhttp.SuccessResponse(c, run)
}

func (h *RegistryEchoHandler) Runs(c echo.Context) error {
	now := time.Now().UTC()
	from := util.ParseTimeDefault(c.QueryParam("from"), now.AddDate(0, -1, 0))
	to := util.ParseTimeDefault(c.QueryParam("to"), now)
	if !from.Before(to) {
		return xhttp.BadRequestResponse(c, "from must be before to")
	}
	from, to = util.AlignFromTo(from, to, time.Hour)

	limit := 50
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return xhttp.BadRequestResponse(c, "limit must be a positive integer")
		}
		limit = n
	}

	runs, err := h.store.ListRuns(c.Request().Context(), from, to, limit)
	if err != nil {
		h.logger.Error("list runs error", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.ListResponse(c, runs, int64(len(runs)))
}

func stripModel(rec models.BestModelRecord) models.BestModelRecord {
	rec.Model = nil
	return rec
}
