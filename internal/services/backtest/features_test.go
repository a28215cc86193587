package backtest

import (
	"math"
	"testing"
	"time"

	"QuantBack/internal/domain/models"
)

// completeFeatureValues returns a feature store row covering every direct
// model feature plus the raw fields the derived distances need.
func completeFeatureValues() map[string]float64 {
	values := map[string]float64{
		"close": 110, "kf": 100,
		"vwap_lowest": 100, "vwap_highest": 100,
		"volume": 2000, "volume_ma_10": 1000, "volume_ma_20": 1000,
		"ema_10": 100, "ema_20": 100, "ema_50": 100, "ema_200": 100,
	}
	direct := []string{
		"rsi_window_5", "rsi_window_14", "obv", "mfi_21", "log_return",
		"efi_zscore_10", "efi_zscore_20", "mrs_10", "mrs_20", "rs_10", "rs_20",
		"msr_rank_10", "msr_rank_20", "zscore_10_log_return", "zscore_20_log_return",
		"yz_vol_10", "yz_vol_20", "dc_tmv", "zscore_kf_10", "zscore_kf_20",
	}
	for _, name := range direct {
		values[name] = 1
	}
	values["msr_rank_10"] = 7
	return values
}

func TestBuildFeaturesJoinsAndDerives(t *testing.T) {
	day := time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC)
	trades := []models.Trade{
		{Symbol: "AAA", Date: day, Return: 0.1},
		{Symbol: "BBB", Date: day, Return: -0.1}, // no feature row
	}
	rows := []models.FeatureRow{{Date: day, Symbol: "AAA", Values: completeFeatureValues()}}

	out := BuildFeatures(trades, rows)
	if len(out) != 1 {
		t.Fatalf("inner join kept %d trades, want 1", len(out))
	}
	tr := out[0]
	if !tr.Label {
		t.Fatalf("positive return should label true")
	}
	if tr.MSRRank != 7 {
		t.Fatalf("msr_rank_10 = %v, want 7", tr.MSRRank)
	}
	want := math.Log1p((110.0 - 100.0) / 100.0)
	if math.Abs(tr.Features["kf_distance"]-want) > 1e-12 {
		t.Fatalf("kf_distance = %v, want %v", tr.Features["kf_distance"], want)
	}
	if math.Abs(tr.Features["volume_threshold_ma_10"]-math.Log1p(1)) > 1e-12 {
		t.Fatalf("volume_threshold_ma_10 = %v", tr.Features["volume_threshold_ma_10"])
	}
	if len(tr.Features) != len(FeatureNames) {
		t.Fatalf("feature vector has %d entries, want %d", len(tr.Features), len(FeatureNames))
	}
}

func TestBuildFeaturesDropsIncompleteRows(t *testing.T) {
	day := time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC)
	incomplete := completeFeatureValues()
	delete(incomplete, "dc_tmv")
	nanValues := completeFeatureValues()
	nanValues["rsi_window_14"] = math.NaN()

	trades := []models.Trade{
		{Symbol: "AAA", Date: day, Return: 0.1},
		{Symbol: "BBB", Date: day, Return: 0.1},
	}
	rows := []models.FeatureRow{
		{Date: day, Symbol: "AAA", Values: incomplete},
		{Date: day, Symbol: "BBB", Values: nanValues},
	}
	if out := BuildFeatures(trades, rows); len(out) != 0 {
		t.Fatalf("incomplete feature rows must be dropped, kept %d", len(out))
	}
}

func TestVectorizeKeepsColumnOrder(t *testing.T) {
	day := time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC)
	trades := BuildFeatures(
		[]models.Trade{{Symbol: "AAA", Date: day, Return: 0.1}},
		[]models.FeatureRow{{Date: day, Symbol: "AAA", Values: completeFeatureValues()}},
	)
	X := Vectorize(trades)
	if len(X) != 1 || len(X[0]) != len(FeatureNames) {
		t.Fatalf("matrix shape %dx%d", len(X), len(X[0]))
	}
	for j, name := range FeatureNames {
		if X[0][j] != trades[0].Features[name] {
			t.Fatalf("column %d (%s) out of order", j, name)
		}
	}
}
