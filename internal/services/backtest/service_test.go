package backtest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"QuantBack/internal/domain/models"
	"QuantBack/internal/panel"
	"QuantBack/internal/services/mlmodels"
	"QuantBack/internal/services/strategies"
	"QuantBack/pkg/logger"
)

type fakeMarketStore struct {
	rows   []models.PriceRow
	called bool
}

func (f *fakeMarketStore) Prices(_ context.Context, _ []string, _, _ time.Time) ([]models.PriceRow, error) {
	f.called = true
	return f.rows, nil
}

type fakeFeatureStore struct{}

func (fakeFeatureStore) Features(_ context.Context, symbols []string, from, to time.Time) ([]models.FeatureRow, error) {
	var rows []models.FeatureRow
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		for _, sym := range symbols {
			rows = append(rows, models.FeatureRow{Date: d, Symbol: sym, Values: completeFeatureValues()})
		}
	}
	return rows, nil
}

type fakeScorer struct{}

func (fakeScorer) Score(X [][]float64) (mlmodels.Predictions, error) {
	preds := mlmodels.Predictions{
		XGB:      make([]float64, len(X)),
		LGBM:     make([]float64, len(X)),
		CatBoost: make([]float64, len(X)),
	}
	for i := range X {
		preds.XGB[i] = 0.25
		preds.LGBM[i] = 0.5
		preds.CatBoost[i] = 0.75
	}
	return preds, nil
}

type fakeMetrics struct {
	errors map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{errors: map[string]int{}} }

func (*fakeMetrics) RecordPhase(string, string, float64) {}
func (*fakeMetrics) RecordTrades(string, string, int)    {}
func (m *fakeMetrics) RecordError(kind string)           { m.errors[kind]++ }
func (*fakeMetrics) RecordIndicator(string, float64)     {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

// breakoutRows builds two symbols that oscillate past every warm-up window,
// grind to a fresh low, ramp hard and collapse, so both strategies trade.
func breakoutRows(n int) []models.PriceRow {
	base := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	var rows []models.PriceRow
	for _, sym := range []string{"AAA", "BBB"} {
		price := 100.0
		for i := 0; i < n; i++ {
			var c float64
			switch {
			case i < 190:
				c = price + 2*math.Sin(float64(i)/5)
			case i < 211:
				c = rows[len(rows)-1].Close - 0.6
			case i < 250:
				c = rows[len(rows)-1].Close * 1.03
			default:
				c = rows[len(rows)-1].Close * 0.94
			}
			rows = append(rows, models.PriceRow{
				Date:   base.AddDate(0, 0, i),
				Symbol: sym,
				Open:   c * 0.995,
				High:   c * 1.01,
				Low:    c * 0.99,
				Close:  c,
				Volume: 1_000_000,
			})
		}
	}
	return rows
}

func TestRunEndToEnd(t *testing.T) {
	market := &fakeMarketStore{rows: breakoutRows(300)}
	svc := NewService(market, fakeFeatureStore{}, fakeScorer{}, newFakeMetrics(), testLogger(t), []string{"AAA", "BBB"})

	start := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	result, err := svc.Run(context.Background(), strategies.NameSqueezeBreakout, start, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	total := len(result.OpenTrades) + len(result.ClosedTrades)
	if total == 0 {
		t.Fatalf("breakout scenario produced no trades")
	}
	for _, tr := range result.ClosedTrades {
		if tr.Kind != models.KindClosed {
			t.Fatalf("closed list carries kind %s", tr.Kind)
		}
		if tr.ExitIdx == nil || tr.TradingDays != *tr.ExitIdx-tr.EntryIdx {
			t.Fatalf("trading_days inconsistent: %+v", tr)
		}
		if tr.CloseDate == "" {
			t.Fatalf("closed trade missing close_date")
		}
		if tr.PredXGB != 0.25 || tr.PredLGBM != 0.5 || tr.PredCatBoost != 0.75 {
			t.Fatalf("predictions not attached: %+v", tr)
		}
		if tr.MSRRank != 7 {
			t.Fatalf("msr_rank_10 not carried: %v", tr.MSRRank)
		}
		if tr.Metadata.Int("bb_window", 0) == 0 {
			t.Fatalf("metadata missing parameter set")
		}
	}
	for _, tr := range result.OpenTrades {
		if tr.Kind != models.KindOpen || tr.ExitIdx != nil || tr.CloseDate != "" {
			t.Fatalf("open trade carries closed fields: %+v", tr)
		}
	}
	et := result.ExecutionTime
	if et.TotalSeconds < 0 || et.StrategySeconds < 0 {
		t.Fatalf("negative execution time: %+v", et)
	}

	// dedup holds across the whole response
	seen := map[[2]interface{}]bool{}
	for _, tr := range append(result.OpenTrades, result.ClosedTrades...) {
		k := [2]interface{}{tr.Symbol, tr.EntryIdx}
		if seen[k] {
			t.Fatalf("duplicate trade key %v", k)
		}
		seen[k] = true
	}

	// the response must be exactly the deduplicated union of the per-set runs
	wantOpen, wantClosed := sweepUnion(t, market.rows, strategies.NameSqueezeBreakout)
	if len(result.OpenTrades) != wantOpen || len(result.ClosedTrades) != wantClosed {
		t.Fatalf("trade counts %d open / %d closed, want %d / %d from the sweep union",
			len(result.OpenTrades), len(result.ClosedTrades), wantOpen, wantClosed)
	}
}

// sweepUnion replays every parameter set on its own and combines the trades,
// giving the counts the orchestrator must reproduce.
func sweepUnion(t *testing.T, rows []models.PriceRow, strategyName string) (open, closed int) {
	t.Helper()
	p, err := panel.Build(rows)
	if err != nil {
		t.Fatalf("build panel: %v", err)
	}
	def, err := strategies.Lookup(strategyName)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	var closedTrades, openTrades []models.Trade
	for _, set := range def.Sets {
		entries, exits, err := def.Build(set).Signals(p)
		if err != nil {
			t.Fatalf("signals: %v", err)
		}
		trades, err := Simulate(p, entries, exits, set)
		if err != nil {
			t.Fatalf("simulate: %v", err)
		}
		for _, tr := range trades {
			if tr.Open() {
				openTrades = append(openTrades, tr)
			} else {
				closedTrades = append(closedTrades, tr)
			}
		}
	}
	combined, err := Combine(p, closedTrades, openTrades)
	if err != nil {
		t.Fatalf("combine: %v", err)
	}
	for _, tr := range combined {
		if tr.Open() {
			open++
		} else {
			closed++
		}
	}
	return open, closed
}

func TestRunUnknownStrategySkipsDataLoad(t *testing.T) {
	market := &fakeMarketStore{}
	metrics := newFakeMetrics()
	svc := NewService(market, fakeFeatureStore{}, fakeScorer{}, metrics, testLogger(t), nil)

	_, err := svc.Run(context.Background(), "Nope", time.Now(), nil)
	if !errors.Is(err, strategies.ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
	if market.called {
		t.Fatalf("price store must not be touched for unknown strategies")
	}
	if metrics.errors["unknown_strategy"] != 1 {
		t.Fatalf("unknown_strategy error not recorded")
	}
}

func TestRunNoPriceData(t *testing.T) {
	svc := NewService(&fakeMarketStore{}, fakeFeatureStore{}, fakeScorer{}, newFakeMetrics(), testLogger(t), []string{"AAA"})
	if _, err := svc.Run(context.Background(), strategies.NameSqueezeBreakout, time.Now(), nil); !errors.Is(err, models.ErrNoData) {
		t.Fatalf("expected ErrNoData for empty price history, got %v", err)
	}
}
