package indicators

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"QuantBack/internal/panel"
)

const bvcScale = 100000

// HawkesBVC classifies volume into a signed buy/sell pressure series with
// exponential decay. Each bar's log return is normalized by the trailing
// window's return volatility and mapped through a fat-tailed Student-t CDF
// (nu=0.25) to a label in [-1, 1]; volume weighted labels accumulate with
// decay factor e^(-kappa). The first window bars are undefined.
func HawkesBVC(close, volume []float64, window int, kappa float64) []float64 {
	n := len(close)
	out := nanSlice(n)
	if n == 0 || window >= n {
		return out
	}

	alpha := math.Exp(-kappa)
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: 0.25}

	r := make([]float64, n)
	base := close[0]
	prevCum := 0.0
	for i := 0; i < n; i++ {
		cum := math.Log(close[i] / base)
		if i == 0 {
			r[i] = 0
		} else {
			r[i] = cum - prevCum
		}
		if math.IsNaN(r[i]) {
			r[i] = 0
		}
		prevCum = cum
	}

	acc := 0.0
	for i := window; i < n; i++ {
		w := r[i-window : i]
		sigma := math.Sqrt(stat.PopVariance(w, nil))
		if math.IsNaN(sigma) {
			sigma = 0
		}
		label := 0.0
		if sigma > 0 {
			label = 2*tdist.CDF(r[i]/sigma) - 1
		}
		acc = acc*alpha + volume[i]*label
		out[i] = acc / bvcScale
	}
	return out
}

// HawkesBVCPanel applies HawkesBVC columnwise across the panel.
func HawkesBVCPanel(p *panel.Panel, window int, kappa float64) *panel.Matrix {
	out := panel.NewMatrix(p.NumRows(), p.NumCols())
	ApplyColumns(p.NumCols(), func(col int) {
		out.SetCol(col, HawkesBVC(p.Close.Col(col), p.Volume.Col(col), window, kappa))
	})
	return out
}
