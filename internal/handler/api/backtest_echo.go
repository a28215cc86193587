package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	models "QuantBack/internal/domain/models"
	icache "QuantBack/internal/service/cache"
	"QuantBack/internal/services/strategies"
	"QuantBack/internal/usecase"
	xhttp "QuantBack/pkg/http"
	xlogger "QuantBack/pkg/logger"

	"github.com/labstack/echo/v4"
)

// BacktestEchoHandler exposes the backtest and timeseries endpoints.
type BacktestEchoHandler struct {
	logger     *xlogger.Logger
	backtest   *usecase.BacktestUseCase
	timeseries *usecase.TimeseriesUseCase
	cache      icache.BytesCache
	cacheTTL   time.Duration
}

func NewBacktestEchoHandler(
	logger *xlogger.Logger,
	backtest *usecase.BacktestUseCase,
	timeseries *usecase.TimeseriesUseCase,
	cache icache.BytesCache,
	cacheTTL time.Duration,
) *BacktestEchoHandler {
	return &BacktestEchoHandler{
		logger:     logger,
		backtest:   backtest,
		timeseries: timeseries,
		cache:      cache,
		cacheTTL:   cacheTTL,
	}
}

func (h *BacktestEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/backtest", h.Backtest)
	g.GET("/timeseries", h.Timeseries)
}

func (h *BacktestEchoHandler) Backtest(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.backtest.Run(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("backtest usecase error",
			xlogger.String("strategy", req.StrategyName),
			xlogger.Error(err),
		)
		switch {
		case errors.Is(err, strategies.ErrUnknownStrategy):
			return xhttp.BadRequestResponse(c, err.Error())
		case errors.Is(err, models.ErrNoData):
			return xhttp.NotFoundResponse(c, err.Error())
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *BacktestEchoHandler) Timeseries(c echo.Context) error {
	req := &models.TimeseriesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	key := timeseriesCacheKey(req)
	if h.cache != nil {
		if cached, ok, err := h.cache.GetBytes(key); err == nil && ok {
			return c.JSONBlob(http.StatusOK, cached)
		}
	}

	res, err := h.timeseries.Get(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("timeseries usecase error",
			xlogger.String("symbol", req.Symbol),
			xlogger.Error(err),
		)
		if errors.Is(err, models.ErrNoData) {
			return xhttp.NotFoundResponse(c, err.Error())
		}
		return xhttp.AppErrorResponse(c, err)
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	if h.cache != nil {
		_ = h.cache.SetBytes(key, raw, h.cacheTTL)
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func timeseriesCacheKey(req *models.TimeseriesRequest) string {
	return strings.Join([]string{"ts", req.Symbol, req.Interval, req.StartDate, req.EndDate, req.Indicators}, "|")
}
