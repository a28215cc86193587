package strategies

import (
	"QuantBack/internal/domain/models"
	"QuantBack/internal/indicators"
	"QuantBack/internal/panel"
)

// NameBreakoutTTMv2 is the registered name of the TTM squeeze breakout
// strategy.
const NameBreakoutTTMv2 = "Breakout TTM Version 2"

// BreakoutTTM trades TTM squeeze resolutions: while neither squeeze-on nor
// squeeze-off is active, positive (v1) or freshly turning (v2) Donchian
// momentum triggers an entry. Exits fire on crossing or sitting below an
// ATR ratchet stop.
type BreakoutTTM struct {
	entryVersion   string
	bbWindow       int
	bbMultiplier   float64
	kcWindow       int
	kcMultiplier   float64
	atrWindow      int
	momentumWindow int
	donchianWindow int
}

// NewBreakoutTTM builds the strategy from a parameter set, falling back to
// the documented defaults for absent keys.
func NewBreakoutTTM(set models.ParameterSet) *BreakoutTTM {
	return &BreakoutTTM{
		entryVersion:   set.String("entry_version", "v1"),
		bbWindow:       set.Int("bb_window", 16),
		bbMultiplier:   set.Float("bb_multiplier", 1.0),
		kcWindow:       set.Int("kc_window", 40),
		kcMultiplier:   set.Float("kc_multiplier", 1.2),
		atrWindow:      set.Int("atr_window", 14),
		momentumWindow: set.Int("momentum_window", 12),
		donchianWindow: set.Int("donichan_window", 12),
	}
}

func (s *BreakoutTTM) Name() string { return NameBreakoutTTMv2 }

// Signals computes entry and exit matrices columnwise.
func (s *BreakoutTTM) Signals(p *panel.Panel) (*panel.BoolMatrix, *panel.BoolMatrix, error) {
	nr, nc := p.NumRows(), p.NumCols()
	entries := panel.NewBoolMatrix(nr, nc)
	exits := panel.NewBoolMatrix(nr, nc)

	indicators.ApplyColumns(nc, func(col int) {
		high := p.High.Col(col)
		low := p.Low.Col(col)
		close := p.Close.Col(col)

		bb := indicators.BollingerBands(close, s.bbWindow, s.bbMultiplier)
		kc := indicators.KeltnerChannel(high, low, close, s.kcWindow, s.atrWindow, s.kcMultiplier)

		midline := indicators.DonchianMidline(high, low, close, s.donchianWindow)
		histogram := make([]float64, nr)
		for i := range histogram {
			histogram[i] = close[i] - midline[i]
		}
		momentum := indicators.LinRegEndpoint(histogram, s.momentumWindow)
		momentumUp := indicators.CrossedAboveLevel(momentum, 0)

		ent := entries.Col(col)
		for i := 0; i < nr; i++ {
			sqzOn := bb.Upper[i] < kc.Upper[i] && bb.Lower[i] > kc.Lower[i]
			sqzOff := bb.Upper[i] > kc.Upper[i] && bb.Lower[i] < kc.Lower[i]
			if sqzOn || sqzOff {
				continue
			}
			if s.entryVersion == "v2" {
				turned := momentumUp[i] ||
					(i >= 1 && momentum[i] > momentum[i-1] && momentumUp[i-1]) ||
					(i >= 2 && momentum[i] > momentum[i-2] && momentumUp[i-2])
				ent[i] = turned
			} else {
				ent[i] = momentum[i] > 0
			}
		}

		atr := indicators.ATR(high, low, close, exitATRWindow)
		trail := indicators.TrailingStop(close, atr, defaultATRMultiplier)
		stopCross := indicators.CrossedBelow(close, trail)

		ext := exits.Col(col)
		for i := 0; i < nr; i++ {
			ext[i] = stopCross[i] || close[i] < trail[i]
		}
	})

	return entries, exits, nil
}
