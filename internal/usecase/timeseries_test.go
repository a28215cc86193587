package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"QuantBack/internal/domain/models"
	"QuantBack/internal/indicators"
	"QuantBack/pkg/logger"
)

type fakeMarket struct {
	rows []models.PriceRow
}

func (f fakeMarket) Prices(context.Context, []string, time.Time, time.Time) ([]models.PriceRow, error) {
	return f.rows, nil
}

type captureMetrics struct {
	errors     map[string]int
	indicators map[string]int
}

func newCaptureMetrics() *captureMetrics {
	return &captureMetrics{errors: map[string]int{}, indicators: map[string]int{}}
}

func (*captureMetrics) RecordPhase(string, string, float64)      {}
func (*captureMetrics) RecordTrades(string, string, int)         {}
func (m *captureMetrics) RecordError(kind string)                { m.errors[kind]++ }
func (m *captureMetrics) RecordIndicator(name string, _ float64) { m.indicators[name]++ }

func noisyRows(n int) []models.PriceRow {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	rows := make([]models.PriceRow, n)
	for i := range rows {
		c := 100 + 5*math.Sin(float64(i)/4) + 0.1*float64(i)
		rows[i] = models.PriceRow{
			Date:   base.AddDate(0, 0, i),
			Symbol: "AAA",
			Open:   c * 0.995,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return rows
}

func newTimeseriesUC(t *testing.T, rows []models.PriceRow, metrics *captureMetrics) *TimeseriesUseCase {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewTimeseriesUseCase(fakeMarket{rows: rows}, metrics, log)
}

func sameSeries(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.IsNaN(a[i]) != math.IsNaN(b[i]) {
			return false
		}
		if !math.IsNaN(a[i]) && a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTimeseriesIndicatorParams(t *testing.T) {
	rows := noisyRows(120)
	close := make([]float64, len(rows))
	high := make([]float64, len(rows))
	low := make([]float64, len(rows))
	volume := make([]float64, len(rows))
	for i, r := range rows {
		close[i], high[i], low[i], volume[i] = r.Close, r.High, r.Low, r.Volume
	}

	uc := newTimeseriesUC(t, rows, newCaptureMetrics())
	resp, err := uc.Get(context.Background(), &models.TimeseriesRequest{
		Symbol:     "AAA",
		Interval:   "1d",
		Indicators: "rsi:7,sma,vwap:50,bvc:10:0.2",
	})
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got := resp.Indicators["rsi"].(models.Series); !sameSeries(got, indicators.RSI(close, 7)) {
		t.Fatalf("rsi window 7 not applied")
	}
	// the fast companion series stays pinned to 5 bars
	if got := resp.Indicators["rsi_5"].(models.Series); !sameSeries(got, indicators.RSI(close, 5)) {
		t.Fatalf("rsi_5 changed with the requested window")
	}
	if got := resp.Indicators["sma"].(models.Series); !sameSeries(got, indicators.SMA(close, 20)) {
		t.Fatalf("sma default window not applied")
	}
	wantLowest, err := indicators.AnchoredVWAP(close, high, low, volume, 50, indicators.AnchorLowest)
	if err != nil {
		t.Fatalf("avwap: %v", err)
	}
	if got := resp.Indicators["vwap_lowest"].(models.Series); !sameSeries(got, wantLowest) {
		t.Fatalf("vwap window 50 not applied")
	}
	if got := resp.Indicators["bvc"].(models.Series); !sameSeries(got, indicators.HawkesBVC(close, volume, 10, 0.2)) {
		t.Fatalf("bvc window and kappa not applied")
	}
}

func TestTimeseriesBadIndicatorSkipped(t *testing.T) {
	metrics := newCaptureMetrics()
	uc := newTimeseriesUC(t, noisyRows(60), metrics)
	resp, err := uc.Get(context.Background(), &models.TimeseriesRequest{
		Symbol:     "AAA",
		Interval:   "1d",
		Indicators: "sma:abc,nope,ema:10",
	})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := resp.Indicators["sma"]; ok {
		t.Fatalf("malformed parameter must not compute the indicator")
	}
	if metrics.errors["indicator_sma"] != 1 || metrics.errors["indicator_nope"] != 1 {
		t.Fatalf("skipped indicators not recorded: %v", metrics.errors)
	}
	if _, ok := resp.Indicators["ema"]; !ok {
		t.Fatalf("valid indicator dropped alongside the bad ones")
	}
}

func TestTimeseriesNoData(t *testing.T) {
	uc := newTimeseriesUC(t, nil, newCaptureMetrics())
	_, err := uc.Get(context.Background(), &models.TimeseriesRequest{Symbol: "NONE", Interval: "1d"})
	if !errors.Is(err, models.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}
