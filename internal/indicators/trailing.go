package indicators

import (
	"math"

	"QuantBack/internal/panel"
)

// TrailingStop computes a chandelier-style ATR trailing stop. While price and
// its previous bar both sit above the stop, the stop ratchets up and never
// loosens; symmetrically below. A side flip re-seeds the stop at
// close -/+ atr*multiplier. The first bar is undefined.
func TrailingStop(close, atr []float64, multiplier float64) []float64 {
	n := len(close)
	trail := nanSlice(n)
	for i := 1; i < n; i++ {
		if math.IsNaN(close[i]) {
			continue
		}
		src := close[i]
		srcPrev := close[i-1]
		prev := trail[i-1]
		offset := atr[i] * multiplier

		switch {
		case src > prev && srcPrev > prev:
			trail[i] = math.Max(prev, src-offset)
		case src < prev && srcPrev < prev:
			trail[i] = math.Min(prev, src+offset)
		case src > prev:
			trail[i] = src - offset
		default:
			// also the NaN-previous seed path: comparisons with NaN
			// fall through here and yield src+offset (NaN while the
			// ATR warm-up lasts)
			trail[i] = src + offset
		}
	}
	return trail
}

// TrailingStopPanel applies TrailingStop columnwise. The ATR matrix must
// share the close matrix's shape.
func TrailingStopPanel(close, atr *panel.Matrix, multiplier float64) (*panel.Matrix, error) {
	if err := close.AssertShape(atr); err != nil {
		return nil, err
	}
	out := panel.NewMatrix(close.Rows(), close.Cols())
	ApplyColumns(close.Cols(), func(col int) {
		out.SetCol(col, TrailingStop(close.Col(col), atr.Col(col), multiplier))
	})
	return out, nil
}
