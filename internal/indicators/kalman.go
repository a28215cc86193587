package indicators

import (
	"math"

	"QuantBack/internal/panel"
)

// kalman filter parameters for the scalar local-level model
const (
	kalmanProcessVar = 0.01
	kalmanObsVar     = 1.0
)

// KalmanSmooth runs a scalar local-level Kalman filter over the series and
// returns the filtered state estimates. State starts at 0 with unit
// covariance; NaN observations skip the update step.
func KalmanSmooth(xs []float64) []float64 {
	out := make([]float64, len(xs))
	x, p := 0.0, 1.0
	for i, z := range xs {
		if i > 0 {
			p += kalmanProcessVar
		}
		if math.IsNaN(z) {
			out[i] = x
			continue
		}
		k := p / (p + kalmanObsVar)
		x += k * (z - x)
		p *= 1 - k
		out[i] = x
	}
	return out
}

// KalmanZScore standardizes the Kalman-filtered series against its own
// rolling mean and sample deviation. Undefined positions collapse to 0.
func KalmanZScore(close []float64, window int) []float64 {
	smoothed := KalmanSmooth(close)
	mean := RollingMean(smoothed, window)
	std := RollingStd(smoothed, window, 1)

	out := make([]float64, len(close))
	for i := range out {
		z := (smoothed[i] - mean[i]) / std[i]
		if math.IsNaN(z) || math.IsInf(z, 0) {
			z = 0
		}
		out[i] = z
	}
	return out
}

// KalmanZScorePanel applies KalmanZScore columnwise across the panel.
func KalmanZScorePanel(p *panel.Panel, window int) *panel.Matrix {
	out := panel.NewMatrix(p.NumRows(), p.NumCols())
	ApplyColumns(p.NumCols(), func(col int) {
		out.SetCol(col, KalmanZScore(p.Close.Col(col), window))
	})
	return out
}
