package indicators

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"

	"QuantBack/internal/panel"
)

func errShape(r1, c1, r2, c2 int) error {
	return fmt.Errorf("indicators: shape mismatch %dx%d vs %dx%d", r1, c1, r2, c2)
}

// ApplyColumns runs fn once per column with data-parallel fan-out across the
// available cores. Within a column computation stays strictly sequential.
func ApplyColumns(cols int, fn func(col int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > cols {
		workers = cols
	}
	if workers <= 1 {
		for j := 0; j < cols; j++ {
			fn(j)
		}
		return
	}

	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				fn(j)
			}
		}()
	}
	for j := 0; j < cols; j++ {
		jobs <- j
	}
	close(jobs)
	wg.Wait()
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func windowHasNaN(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// RollingMean computes the exact-window trailing mean; positions with fewer
// than window observations, or a NaN inside the window, are NaN.
func RollingMean(xs []float64, window int) []float64 {
	out := nanSlice(len(xs))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(xs); i++ {
		w := xs[i-window+1 : i+1]
		if windowHasNaN(w) {
			continue
		}
		out[i] = stat.Mean(w, nil)
	}
	return out
}

// RollingStd computes the trailing standard deviation with the given delta
// degrees of freedom (0 = population, 1 = sample).
func RollingStd(xs []float64, window, ddof int) []float64 {
	out := nanSlice(len(xs))
	if window <= ddof {
		return out
	}
	for i := window - 1; i < len(xs); i++ {
		w := xs[i-window+1 : i+1]
		if windowHasNaN(w) {
			continue
		}
		mean := stat.Mean(w, nil)
		var ss float64
		for _, v := range w {
			d := v - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(window-ddof))
	}
	return out
}

// RollingMax computes the trailing maximum over window.
func RollingMax(xs []float64, window int) []float64 {
	out := nanSlice(len(xs))
	for i := window - 1; i < len(xs); i++ {
		w := xs[i-window+1 : i+1]
		if windowHasNaN(w) {
			continue
		}
		m := w[0]
		for _, v := range w[1:] {
			if v > m {
				m = v
			}
		}
		out[i] = m
	}
	return out
}

// RollingMin computes the trailing minimum over window.
func RollingMin(xs []float64, window int) []float64 {
	out := nanSlice(len(xs))
	for i := window - 1; i < len(xs); i++ {
		w := xs[i-window+1 : i+1]
		if windowHasNaN(w) {
			continue
		}
		m := w[0]
		for _, v := range w[1:] {
			if v < m {
				m = v
			}
		}
		out[i] = m
	}
	return out
}

// ExpandingMean computes the running mean of all observations up to each
// position, ignoring NaN.
func ExpandingMean(xs []float64) []float64 {
	out := nanSlice(len(xs))
	sum, n := 0.0, 0
	for i, v := range xs {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
		if n > 0 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// SMA is the simple moving average (alias of RollingMean).
func SMA(xs []float64, window int) []float64 {
	return RollingMean(xs, window)
}

// EMA computes an exponential moving average with alpha = 2/(window+1),
// seeded with the first non-NaN value.
func EMA(xs []float64, window int) []float64 {
	out := nanSlice(len(xs))
	if window <= 0 {
		return out
	}
	alpha := 2.0 / float64(window+1)
	prev := math.NaN()
	for i, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(prev) {
			prev = v
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

// TrueRange computes the per-bar true range.
func TrueRange(high, low, close []float64) []float64 {
	out := nanSlice(len(close))
	for i := range close {
		if math.IsNaN(high[i]) || math.IsNaN(low[i]) {
			continue
		}
		tr := high[i] - low[i]
		if i > 0 && !math.IsNaN(close[i-1]) {
			if d := math.Abs(high[i] - close[i-1]); d > tr {
				tr = d
			}
			if d := math.Abs(low[i] - close[i-1]); d > tr {
				tr = d
			}
		}
		out[i] = tr
	}
	return out
}

// ATR computes the Wilder-smoothed average true range: seeded with the
// simple mean of the first window true ranges, then
// atr[i] = (atr[i-1]*(window-1) + tr[i]) / window.
func ATR(high, low, close []float64, window int) []float64 {
	out := nanSlice(len(close))
	if window <= 0 || len(close) < window {
		return out
	}
	tr := TrueRange(high, low, close)
	seed := 0.0
	for i := 0; i < window; i++ {
		if math.IsNaN(tr[i]) {
			return out
		}
		seed += tr[i]
	}
	out[window-1] = seed / float64(window)
	for i := window; i < len(close); i++ {
		if math.IsNaN(tr[i]) {
			continue
		}
		out[i] = (out[i-1]*float64(window-1) + tr[i]) / float64(window)
	}
	return out
}

// LinRegEndpoint fits an ordinary least-squares line over each trailing
// window and evaluates it at the window's last position (TA-Lib LINEARREG).
func LinRegEndpoint(xs []float64, window int) []float64 {
	out := nanSlice(len(xs))
	if window <= 1 {
		return out
	}
	// x = 0..window-1 is fixed, so its moments are constants
	n := float64(window)
	sumX := n * (n - 1) / 2
	sumXX := (n - 1) * n * (2*n - 1) / 6
	for i := window - 1; i < len(xs); i++ {
		w := xs[i-window+1 : i+1]
		if windowHasNaN(w) {
			continue
		}
		var sumY, sumXY float64
		for k, v := range w {
			sumY += v
			sumXY += float64(k) * v
		}
		denom := n*sumXX - sumX*sumX
		slope := (n*sumXY - sumX*sumY) / denom
		intercept := (sumY - slope*sumX) / n
		out[i] = intercept + slope*(n-1)
	}
	return out
}

// CrossedAbove reports where a crosses above b: a[i] > b[i] after
// a[i-1] <= b[i-1]. NaN on either side means no cross.
func CrossedAbove(a, b []float64) []bool {
	out := make([]bool, len(a))
	for i := 1; i < len(a); i++ {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) || math.IsNaN(a[i-1]) || math.IsNaN(b[i-1]) {
			continue
		}
		out[i] = a[i] > b[i] && a[i-1] <= b[i-1]
	}
	return out
}

// CrossedBelow reports where a crosses below b.
func CrossedBelow(a, b []float64) []bool {
	out := make([]bool, len(a))
	for i := 1; i < len(a); i++ {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) || math.IsNaN(a[i-1]) || math.IsNaN(b[i-1]) {
			continue
		}
		out[i] = a[i] < b[i] && a[i-1] >= b[i-1]
	}
	return out
}

// CrossedAboveLevel reports where xs crosses above a constant level.
func CrossedAboveLevel(xs []float64, level float64) []bool {
	out := make([]bool, len(xs))
	for i := 1; i < len(xs); i++ {
		if math.IsNaN(xs[i]) || math.IsNaN(xs[i-1]) {
			continue
		}
		out[i] = xs[i] > level && xs[i-1] <= level
	}
	return out
}

// ExremSeries removes redundant repeated signals while a position is
// notionally held: an entry is kept only when flat, an exit flips the flag.
func ExremSeries(entries, exits []bool) []bool {
	out := make([]bool, len(entries))
	inPosition := false
	for i := range entries {
		if entries[i] && !inPosition {
			inPosition = true
			out[i] = true
		} else if exits[i] && inPosition {
			inPosition = false
		}
	}
	return out
}

// Exrem applies ExremSeries columnwise.
func Exrem(entries, exits *panel.BoolMatrix) (*panel.BoolMatrix, error) {
	if err := entries.AssertShape(exits); err != nil {
		return nil, err
	}
	out := panel.NewBoolMatrix(entries.Rows(), entries.Cols())
	ApplyColumns(entries.Cols(), func(col int) {
		copy(out.Col(col), ExremSeries(entries.Col(col), exits.Col(col)))
	})
	return out, nil
}

// LowestAtEntrySeries carries the low recorded at the most recent entry
// signal forward until the next entry overwrites it. NaN lows stay NaN and
// the first bar is undefined.
func LowestAtEntrySeries(low []float64, entries []bool) []float64 {
	out := nanSlice(len(low))
	for i := 1; i < len(low); i++ {
		if math.IsNaN(low[i]) {
			continue
		}
		if entries[i] {
			out[i] = low[i]
		} else {
			out[i] = out[i-1]
		}
	}
	return out
}

// LowestAtEntry applies LowestAtEntrySeries columnwise.
func LowestAtEntry(low *panel.Matrix, entries *panel.BoolMatrix) (*panel.Matrix, error) {
	if low.Rows() != entries.Rows() || low.Cols() != entries.Cols() {
		return nil, errShape(low.Rows(), low.Cols(), entries.Rows(), entries.Cols())
	}
	out := panel.NewMatrix(low.Rows(), low.Cols())
	ApplyColumns(low.Cols(), func(col int) {
		out.SetCol(col, LowestAtEntrySeries(low.Col(col), entries.Col(col)))
	})
	return out, nil
}
