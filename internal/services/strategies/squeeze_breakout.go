package strategies

import (
	"math"

	"QuantBack/internal/domain/models"
	"QuantBack/internal/indicators"
	"QuantBack/internal/panel"
)

// NameSqueezeBreakout is the registered name of the squeeze breakout strategy.
const NameSqueezeBreakout = "Squeeze Breakout"

const (
	defaultATRMultiplier    = 1.8
	defaultSqueezeThreshold = 0.1
	avwapAnchorWindow       = 200
	exitATRWindow           = 10
	epsVolatility           = 1e-9
)

// SqueezeBreakout enters when price breaks above the Bollinger band while a
// volatility squeeze (Bollinger inside Keltner, within a dynamic tolerance)
// is on, or on plain band breakouts outside a squeeze, gated by price
// holding above the lowest-anchored VWAP. Exits trail an ATR ratchet stop
// and the entry bar's low.
type SqueezeBreakout struct {
	bbWindow         int
	bbMultiplier     float64
	kcWindow         int
	kcMultiplier     float64
	atrMultiplier    float64
	squeezeThreshold float64
}

// NewSqueezeBreakout builds the strategy from a parameter set, falling back
// to the documented defaults for absent keys.
func NewSqueezeBreakout(set models.ParameterSet) *SqueezeBreakout {
	return &SqueezeBreakout{
		bbWindow:         set.Int("bb_window", 10),
		bbMultiplier:     set.Float("bb_multiplier", 1.0),
		kcWindow:         set.Int("kc_window", 34),
		kcMultiplier:     set.Float("kc_multiplier", 1.3),
		atrMultiplier:    set.Float("atr_multiplier", defaultATRMultiplier),
		squeezeThreshold: set.Float("squeeze_threshold", defaultSqueezeThreshold),
	}
}

func (s *SqueezeBreakout) Name() string { return NameSqueezeBreakout }

// Signals computes entry and exit matrices columnwise.
func (s *SqueezeBreakout) Signals(p *panel.Panel) (*panel.BoolMatrix, *panel.BoolMatrix, error) {
	nr, nc := p.NumRows(), p.NumCols()
	entries := panel.NewBoolMatrix(nr, nc)
	exits := panel.NewBoolMatrix(nr, nc)

	indicators.ApplyColumns(nc, func(col int) {
		high := p.High.Col(col)
		low := p.Low.Col(col)
		close := p.Close.Col(col)
		volume := p.Volume.Col(col)

		bb := indicators.BollingerBands(close, s.bbWindow, s.bbMultiplier)
		kc := indicators.KeltnerChannel(high, low, close, s.kcWindow, s.kcWindow, s.kcMultiplier)
		atr := indicators.ATR(high, low, close, exitATRWindow)
		vwapLowest, _ := indicators.AnchoredVWAP(close, high, low, volume, avwapAnchorWindow, indicators.AnchorLowest)

		threshold := dynamicSqueezeThreshold(atr, s.squeezeThreshold)
		crossedBand := indicators.CrossedAbove(close, bb.Upper)

		ent := entries.Col(col)
		for i := 0; i < nr; i++ {
			squeeze := bb.Upper[i] <= kc.Upper[i]*(1+threshold[i]) &&
				bb.Lower[i] >= kc.Lower[i]*(1-threshold[i])
			breakout := (crossedBand[i] && squeeze) || (close[i] > bb.Upper[i] && !squeeze)
			ent[i] = breakout && close[i] > vwapLowest[i]
		}

		trail := indicators.TrailingStop(close, atr, s.atrMultiplier)
		stopCross := indicators.CrossedBelow(close, trail)
		entryLow := indicators.LowestAtEntrySeries(low, ent)
		entryLowCross := indicators.CrossedBelow(close, entryLow)

		ext := exits.Col(col)
		for i := 0; i < nr; i++ {
			ext[i] = stopCross[i] || entryLowCross[i]
		}
	})

	return entries, exits, nil
}

// dynamicSqueezeThreshold scales the base tolerance by current ATR relative
// to its expanding mean, so quiet regimes demand a tighter squeeze.
func dynamicSqueezeThreshold(atr []float64, base float64) []float64 {
	expanding := indicators.ExpandingMean(atr)
	// zeros inherit the previous level, leading gaps collapse to epsilon
	prev := math.NaN()
	for i, v := range expanding {
		if v == 0 || math.IsNaN(v) {
			expanding[i] = prev
		} else {
			prev = v
		}
	}
	out := make([]float64, len(atr))
	for i := range atr {
		a := atr[i]
		if math.IsNaN(a) {
			a = epsVolatility
		}
		e := expanding[i]
		if math.IsNaN(e) {
			e = epsVolatility
		}
		t := base * a / e
		if t < 0 || math.IsNaN(t) {
			t = 0
		}
		out[i] = t
	}
	return out
}
