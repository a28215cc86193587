package models

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// PriceRow is one daily OHLCV observation for one symbol.
type PriceRow struct {
	Date   time.Time
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// FeatureRow is one point-in-time feature-store observation keyed by
// (date, symbol). Values holds the store's native derived fields plus any
// additional features computed before the join.
type FeatureRow struct {
	Date   time.Time
	Symbol string
	Values map[string]float64
}

// Series is a float series that serializes NaN as JSON null.
type Series []float64

func (s Series) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, len(s)*8+2)
	buf = append(buf, '[')
	for i, v := range s {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf = append(buf, "null"...)
		} else {
			buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
		}
	}
	buf = append(buf, ']')
	return buf, nil
}

var _ json.Marshaler = Series(nil)
