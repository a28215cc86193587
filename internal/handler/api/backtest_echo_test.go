package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"QuantBack/internal/domain/models"
	"QuantBack/internal/services/backtest"
	"QuantBack/internal/services/mlmodels"
	"QuantBack/internal/services/strategies"
	"QuantBack/internal/usecase"
	xhttp "QuantBack/pkg/http"
	"QuantBack/pkg/logger"
)

type emptyMarketStore struct{}

func (emptyMarketStore) Prices(context.Context, []string, time.Time, time.Time) ([]models.PriceRow, error) {
	return nil, nil
}

type emptyFeatureStore struct{}

func (emptyFeatureStore) Features(context.Context, []string, time.Time, time.Time) ([]models.FeatureRow, error) {
	return nil, nil
}

type noopScorer struct{}

func (noopScorer) Score([][]float64) (mlmodels.Predictions, error) {
	return mlmodels.Predictions{}, nil
}

type noopMetrics struct{}

func (noopMetrics) RecordPhase(string, string, float64) {}
func (noopMetrics) RecordTrades(string, string, int)    {}
func (noopMetrics) RecordError(string)                  {}
func (noopMetrics) RecordIndicator(string, float64)     {}

// newEmptyStoreHandler builds the handler over stores with no rows, so
// every request bottoms out in a domain error.
func newEmptyStoreHandler(t *testing.T) *BacktestEchoHandler {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	svc := backtest.NewService(emptyMarketStore{}, emptyFeatureStore{}, noopScorer{}, noopMetrics{}, log, []string{"AAA"})
	bt := usecase.NewBacktestUseCase(svc, time.Minute)
	ts := usecase.NewTimeseriesUseCase(emptyMarketStore{}, noopMetrics{}, log)
	return NewBacktestEchoHandler(log, bt, ts, nil, time.Minute)
}

func envelopeStatus(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	var envelope xhttp.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return envelope.Status
}

func TestBacktestUnknownStrategyMapsToBadRequest(t *testing.T) {
	h := newEmptyStoreHandler(t)
	e := echo.New()
	body := `{"strategy_name":"Nope","start_date":"2024-01-02"}`
	req := httptest.NewRequest(http.MethodPost, "/api/backtest", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Backtest(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if got := envelopeStatus(t, rec); got != http.StatusBadRequest {
		t.Fatalf("envelope status = %d, want %d", got, http.StatusBadRequest)
	}
}

func TestBacktestNoPriceDataMapsToNotFound(t *testing.T) {
	h := newEmptyStoreHandler(t)
	e := echo.New()
	body := `{"strategy_name":"` + strategies.NameSqueezeBreakout + `","start_date":"2024-01-02"}`
	req := httptest.NewRequest(http.MethodPost, "/api/backtest", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Backtest(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if got := envelopeStatus(t, rec); got != http.StatusNotFound {
		t.Fatalf("envelope status = %d, want %d", got, http.StatusNotFound)
	}
}

func TestTimeseriesMissingSymbolMapsToNotFound(t *testing.T) {
	h := newEmptyStoreHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/timeseries?symbol=NONE", nil)
	rec := httptest.NewRecorder()
	if err := h.Timeseries(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if got := envelopeStatus(t, rec); got != http.StatusNotFound {
		t.Fatalf("envelope status = %d, want %d", got, http.StatusNotFound)
	}
}
