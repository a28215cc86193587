package indicators

import (
	"fmt"
	"math"

	"QuantBack/internal/panel"
)

// Anchor selects which price extreme inside the trailing window re-anchors
// the VWAP accumulation.
type Anchor string

const (
	AnchorLowest  Anchor = "lowest"
	AnchorHighest Anchor = "highest"
)

// AnchoredVWAP computes a rolling anchored VWAP over one symbol. At each bar
// the extreme close inside the trailing window marks an anchor; accumulation
// restarts there and the anchored span overwrites everything to its right.
// Writing begins once the current bar itself is an anchor; afterwards every
// anchor shift triggers a fresh span. Gaps left by the warm-up are filled
// from the nearest computed value.
func AnchoredVWAP(close, high, low, volume []float64, window int, anchor Anchor) ([]float64, error) {
	if anchor != AnchorLowest && anchor != AnchorHighest {
		return nil, fmt.Errorf("indicators: unknown anchor %q", anchor)
	}
	n := len(close)
	out := nanSlice(n)
	if window <= 0 || n < window {
		return out, nil
	}

	typical := make([]float64, n)
	for i := 0; i < n; i++ {
		typical[i] = (close[i] + high[i] + low[i]) / 3
	}

	written := false
	lastAnchor := -1
	for i := window - 1; i < n; i++ {
		a := extremeIndex(close[i-window+1:i+1], anchor)
		if a < 0 {
			continue
		}
		a += i - window + 1
		if a != i && !written {
			continue
		}
		if a != lastAnchor {
			// anchors only move forward, so each span supersedes the
			// previous one from its start to the end of the series
			cumPV, cumV := 0.0, 0.0
			for j := a; j < n; j++ {
				cumPV += volume[j] * typical[j]
				cumV += volume[j]
				out[j] = cumPV / cumV
			}
			lastAnchor = a
		}
		written = true
	}

	fillFromComputed(out)
	return out, nil
}

// AnchoredVWAPPanel applies AnchoredVWAP columnwise across the panel.
func AnchoredVWAPPanel(p *panel.Panel, window int, anchor Anchor) (*panel.Matrix, error) {
	if anchor != AnchorLowest && anchor != AnchorHighest {
		return nil, fmt.Errorf("indicators: unknown anchor %q", anchor)
	}
	out := panel.NewMatrix(p.NumRows(), p.NumCols())
	ApplyColumns(p.NumCols(), func(col int) {
		vals, _ := AnchoredVWAP(p.Close.Col(col), p.High.Col(col), p.Low.Col(col), p.Volume.Col(col), window, anchor)
		out.SetCol(col, vals)
	})
	return out, nil
}

// extremeIndex returns the position of the window extreme, skipping NaN.
// Ties resolve to the earliest position. Returns -1 when all values are NaN.
func extremeIndex(w []float64, anchor Anchor) int {
	best := -1
	for i, v := range w {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		if anchor == AnchorHighest && v > w[best] {
			best = i
		} else if anchor == AnchorLowest && v < w[best] {
			best = i
		}
	}
	return best
}

// fillFromComputed closes gaps in place: every run of NaN preceding a
// computed value inherits that value, and a trailing NaN run inherits the
// last computed value.
func fillFromComputed(xs []float64) {
	last := 0
	for i, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		for k := last; k < i; k++ {
			xs[k] = v
		}
		last = i + 1
	}
	if last == 0 {
		return
	}
	for k := last; k < len(xs); k++ {
		xs[k] = xs[last-1]
	}
}
