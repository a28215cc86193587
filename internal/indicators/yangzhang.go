package indicators

import (
	"math"

	"QuantBack/internal/panel"
)

// YangZhangVolatility computes the annualized Yang-Zhang volatility
// estimator: overnight variance plus k-weighted open-to-close variance plus
// (1-k)-weighted Rogers-Satchell range variance, each a rolling mean of
// squared log returns. Undefined positions collapse to 0.
func YangZhangVolatility(open, high, low, close []float64, window, periods int) []float64 {
	n := len(close)
	k := 0.34 / (1.34 + float64(window+1)/float64(window-1))

	sqOC := nanSlice(n) // overnight: open vs previous close
	sqCO := nanSlice(n) // intraday: close vs open
	rsTerm := nanSlice(n)
	for i := 0; i < n; i++ {
		var oc float64 = math.NaN()
		if i > 0 {
			oc = math.Log(open[i] / close[i-1])
		}
		co := math.Log(close[i] / open[i])
		hl := math.Log(high[i] / low[i])
		sqOC[i] = oc * oc
		sqCO[i] = co * co
		rsTerm[i] = 0.5*hl*hl - (2*math.Ln2-1)*(co*co+oc*oc)
	}

	varOC := RollingMean(sqOC, window)
	varCO := RollingMean(sqCO, window)
	varRS := RollingMean(rsTerm, window)

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		rs := varRS[i]
		if rs < 0 {
			rs = 0
		}
		total := varOC[i] + k*varCO[i] + (1-k)*rs
		if total < 0 {
			total = 0
		}
		v := math.Sqrt(total) * math.Sqrt(float64(periods))
		if math.IsNaN(v) {
			v = 0
		}
		out[i] = v
	}
	return out
}

// YangZhangVolatilityPanel applies YangZhangVolatility columnwise.
func YangZhangVolatilityPanel(p *panel.Panel, window, periods int) *panel.Matrix {
	out := panel.NewMatrix(p.NumRows(), p.NumCols())
	ApplyColumns(p.NumCols(), func(col int) {
		out.SetCol(col, YangZhangVolatility(p.Open.Col(col), p.High.Col(col), p.Low.Col(col), p.Close.Col(col), window, periods))
	})
	return out
}
