package backtest

import (
	"math"
	"time"

	"QuantBack/internal/domain/models"
	"QuantBack/pkg/util"
)

// FeatureNames is the model feature vector, in training column order.
var FeatureNames = []string{
	"rsi_window_5", "rsi_window_14", "obv", "mfi_21", "log_return",
	"volume_threshold_ma_10", "volume_threshold_ma_20",
	"ema_10_distance", "ema_20_distance", "ema_50_distance", "ema_200_distance",
	"vwap_distance_highest", "vwap_distance_lowest",
	"efi_zscore_10", "efi_zscore_20",
	"mrs_10", "mrs_20", "rs_10", "rs_20",
	"msr_rank_10", "msr_rank_20",
	"zscore_10_log_return", "zscore_20_log_return",
	"yz_vol_10", "yz_vol_20", "dc_tmv",
	"kf_distance", "zscore_kf_10", "zscore_kf_20",
}

// derivedFeatures maps log-distance features to their (value, reference)
// feature store fields.
var derivedFeatures = map[string][2]string{
	"kf_distance":            {"close", "kf"},
	"vwap_distance_lowest":   {"close", "vwap_lowest"},
	"vwap_distance_highest":  {"close", "vwap_highest"},
	"volume_threshold_ma_10": {"volume", "volume_ma_10"},
	"volume_threshold_ma_20": {"volume", "volume_ma_20"},
	"ema_10_distance":        {"close", "ema_10"},
	"ema_20_distance":        {"close", "ema_20"},
	"ema_50_distance":        {"close", "ema_50"},
	"ema_200_distance":       {"close", "ema_200"},
}

// BuildFeatures inner-joins trades with the feature store on (entry date,
// symbol), derives the log-distance features and labels each surviving
// trade with Y = return > 0. Trades without a complete feature vector are
// dropped rather than scored on partial inputs.
func BuildFeatures(trades []models.Trade, rows []models.FeatureRow) []models.Trade {
	index := make(map[string]map[string]float64, len(rows))
	for _, r := range rows {
		index[featureKey(r.Date, r.Symbol)] = r.Values
	}

	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		values, ok := index[featureKey(t.Date, t.Symbol)]
		if !ok {
			continue
		}
		features := make(map[string]float64, len(FeatureNames))
		complete := true
		for _, name := range FeatureNames {
			v, found := featureValue(values, name)
			if !found || math.IsNaN(v) || math.IsInf(v, 0) {
				complete = false
				break
			}
			features[name] = v
		}
		if !complete {
			continue
		}
		t.Features = features
		t.Label = t.Return > 0
		t.MSRRank = features["msr_rank_10"]
		out = append(out, t)
	}
	return out
}

// Vectorize lays the trades' features out as a dense matrix in FeatureNames
// column order.
func Vectorize(trades []models.Trade) [][]float64 {
	X := make([][]float64, len(trades))
	for i, t := range trades {
		row := make([]float64, len(FeatureNames))
		for j, name := range FeatureNames {
			row[j] = t.Features[name]
		}
		X[i] = row
	}
	return X
}

func featureValue(values map[string]float64, name string) (float64, bool) {
	if fields, derived := derivedFeatures[name]; derived {
		x, okX := values[fields[0]]
		ref, okRef := values[fields[1]]
		if !okX || !okRef || ref == 0 {
			return 0, false
		}
		return math.Log1p((x - ref) / ref), true
	}
	v, ok := values[name]
	return v, ok
}

func featureKey(date time.Time, symbol string) string {
	return util.FormatDate(date) + "|" + symbol
}
