package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// TradeKind tags a trade as still open or closed at the end of the
// evaluated window for its parameter set.
type TradeKind string

const (
	KindOpen   TradeKind = "open_trades"
	KindClosed TradeKind = "closed_trades"
)

// Param is one named hyperparameter of a strategy configuration.
type Param struct {
	Name  string
	Value any
}

// ParameterSet is an ordered mapping of strategy hyperparameters. Order is
// preserved through JSON serialization so that trade metadata round-trips
// verbatim.
type ParameterSet []Param

// Get returns the value for name, or nil when absent.
func (ps ParameterSet) Get(name string) any {
	for _, p := range ps {
		if p.Name == name {
			return p.Value
		}
	}
	return nil
}

// Int returns the named parameter as int, or def when absent or mistyped.
func (ps ParameterSet) Int(name string, def int) int {
	switch v := ps.Get(name).(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

// Float returns the named parameter as float64, or def when absent or mistyped.
func (ps ParameterSet) Float(name string, def float64) float64 {
	switch v := ps.Get(name).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// String returns the named parameter as string, or def when absent.
func (ps ParameterSet) String(name string, def string) string {
	if v, ok := ps.Get(name).(string); ok {
		return v
	}
	return def
}

// MarshalJSON renders the set as a JSON object preserving parameter order.
func (ps ParameterSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range ps {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal param %s: %w", p.Name, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Trade is one simulated position. Col and EntryIdx index into the price
// panel; together they form the dedup key across parameter sweeps.
type Trade struct {
	Col        int
	EntryIdx   int
	ExitIdx    int // -1 while open
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	Return     float64
	Kind       TradeKind
	Metadata   ParameterSet

	// Resolved by the combiner from panel labels.
	Symbol string
	Date   time.Time

	// Attached by the feature augmenter.
	Features map[string]float64
	Label    bool
	MSRRank  float64

	// Attached by the model ensemble.
	PredXGB      float64
	PredLGBM     float64
	PredCatBoost float64
}

// Key identifies a trade across repeated parameter sweeps.
type Key struct {
	Col      int
	EntryIdx int
}

// Key returns the trade's dedup key.
func (t *Trade) Key() Key {
	return Key{Col: t.Col, EntryIdx: t.EntryIdx}
}

// Open reports whether the trade was still open at the end of the window.
func (t *Trade) Open() bool {
	return t.Kind == KindOpen
}

// BacktestTrade is the serialized trade shape returned to callers.
type BacktestTrade struct {
	Symbol       string       `json:"symbol"`
	Date         string       `json:"date"`
	CloseDate    string       `json:"close_date,omitempty"`
	EntryPrice   float64      `json:"entry_price"`
	PnL          float64      `json:"pnl"`
	Return       float64      `json:"return"`
	TradingDays  int          `json:"trading_days,omitempty"`
	PredXGB      float64      `json:"y_pred_xgb"`
	PredLGBM     float64      `json:"y_pred_lgbm"`
	PredCatBoost float64      `json:"y_pred_catboost"`
	MSRRank      float64      `json:"msr_rank_10"`
	Metadata     ParameterSet `json:"metadata"`
	Kind         TradeKind    `json:"type"`
	EntryIdx     int          `json:"entry_idx"`
	ExitIdx      *int         `json:"exit_idx,omitempty"`
}

// ExecutionTime carries per-phase wall clock seconds for one backtest run.
type ExecutionTime struct {
	TotalSeconds           float64 `json:"total_seconds"`
	DataLoadingSeconds     float64 `json:"data_loading_seconds"`
	StrategySeconds        float64 `json:"strategy_seconds"`
	FeatureBuildingSeconds float64 `json:"feature_building_seconds"`
	PredictionSeconds      float64 `json:"prediction_seconds"`
}

// BacktestResult is the orchestrator's response.
type BacktestResult struct {
	OpenTrades    []BacktestTrade `json:"open_trades"`
	ClosedTrades  []BacktestTrade `json:"closed_trades"`
	ExecutionTime ExecutionTime   `json:"execution_time"`
}
