package indicators

import (
	"math"

	"QuantBack/internal/panel"
)

// RSI computes the Wilder relative strength index.
func RSI(close []float64, window int) []float64 {
	n := len(close)
	out := nanSlice(n)
	if window <= 0 || n <= window {
		return out
	}
	var avgGain, avgLoss float64
	for i := 1; i <= window; i++ {
		d := close[i] - close[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(window)
	avgLoss /= float64(window)
	out[window] = rsiValue(avgGain, avgLoss)
	for i := window + 1; i < n; i++ {
		d := close[i] - close[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(window-1) + gain) / float64(window)
		avgLoss = (avgLoss*float64(window-1) + loss) / float64(window)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	return 100 - 100/(1+avgGain/avgLoss)
}

// MACDResult bundles the MACD line, its signal line and the histogram.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes moving average convergence/divergence.
func MACD(close []float64, fast, slow, signal int) MACDResult {
	n := len(close)
	fastEMA := EMA(close, fast)
	slowEMA := EMA(close, slow)
	line := make([]float64, n)
	for i := 0; i < n; i++ {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	sig := EMA(line, signal)
	hist := make([]float64, n)
	for i := 0; i < n; i++ {
		hist[i] = line[i] - sig[i]
	}
	return MACDResult{MACD: line, Signal: sig, Histogram: hist}
}

// Bands is an upper/middle/lower channel triple.
type Bands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// BollingerBands computes SMA bands at mult population standard deviations.
func BollingerBands(close []float64, window int, mult float64) Bands {
	mid := SMA(close, window)
	std := RollingStd(close, window, 0)
	upper := make([]float64, len(close))
	lower := make([]float64, len(close))
	for i := range close {
		upper[i] = mid[i] + mult*std[i]
		lower[i] = mid[i] - mult*std[i]
	}
	return Bands{Upper: upper, Middle: mid, Lower: lower}
}

// KeltnerChannel computes EMA-centered bands at mult average true ranges.
// atrWindow controls the ATR smoothing independently of the center window.
func KeltnerChannel(high, low, close []float64, window, atrWindow int, mult float64) Bands {
	mid := EMA(close, window)
	atr := ATR(high, low, close, atrWindow)
	upper := make([]float64, len(close))
	lower := make([]float64, len(close))
	for i := range close {
		upper[i] = mid[i] + mult*atr[i]
		lower[i] = mid[i] - mult*atr[i]
	}
	return Bands{Upper: upper, Middle: mid, Lower: lower}
}

// DonchianMidline averages the rolling extreme prices with the close mean,
// the TTM squeeze reference line.
func DonchianMidline(high, low, close []float64, window int) []float64 {
	hh := RollingMax(high, window)
	ll := RollingMin(low, window)
	cm := RollingMean(close, window)
	out := make([]float64, len(close))
	for i := range close {
		out[i] = (hh[i] + ll[i] + cm[i]) / 3
	}
	return out
}

// StochResult holds the slow stochastic oscillator lines.
type StochResult struct {
	SlowK []float64
	SlowD []float64
}

// Stochastic computes the slow stochastic oscillator.
func Stochastic(high, low, close []float64, fastK, slowK, slowD int) StochResult {
	n := len(close)
	hh := RollingMax(high, fastK)
	ll := RollingMin(low, fastK)
	fast := nanSlice(n)
	for i := 0; i < n; i++ {
		rng := hh[i] - ll[i]
		if math.IsNaN(rng) || rng == 0 {
			continue
		}
		fast[i] = 100 * (close[i] - ll[i]) / rng
	}
	sk := SMA(fast, slowK)
	return StochResult{SlowK: sk, SlowD: SMA(sk, slowD)}
}

// OBV computes on-balance volume.
func OBV(close, volume []float64) []float64 {
	out := make([]float64, len(close))
	acc := 0.0
	for i := range close {
		if i > 0 {
			switch {
			case close[i] > close[i-1]:
				acc += volume[i]
			case close[i] < close[i-1]:
				acc -= volume[i]
			}
		}
		out[i] = acc
	}
	return out
}

// BandsPanel applies a per-column channel constructor across the panel.
func BandsPanel(p *panel.Panel, compute func(high, low, close []float64) Bands) (upper, middle, lower *panel.Matrix) {
	nr, nc := p.NumRows(), p.NumCols()
	upper, middle, lower = panel.NewMatrix(nr, nc), panel.NewMatrix(nr, nc), panel.NewMatrix(nr, nc)
	ApplyColumns(nc, func(col int) {
		b := compute(p.High.Col(col), p.Low.Col(col), p.Close.Col(col))
		upper.SetCol(col, b.Upper)
		middle.SetCol(col, b.Middle)
		lower.SetCol(col, b.Lower)
	})
	return upper, middle, lower
}

// ATRPanel applies ATR columnwise across the panel.
func ATRPanel(p *panel.Panel, window int) *panel.Matrix {
	out := panel.NewMatrix(p.NumRows(), p.NumCols())
	ApplyColumns(p.NumCols(), func(col int) {
		out.SetCol(col, ATR(p.High.Col(col), p.Low.Col(col), p.Close.Col(col), window))
	})
	return out
}
