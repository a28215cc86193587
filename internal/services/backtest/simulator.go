package backtest

import (
	"fmt"
	"math"

	"QuantBack/internal/domain/models"
	"QuantBack/internal/indicators"
	"QuantBack/internal/panel"
)

// Simulate walks entry and exit signals per column holding at most one
// position per symbol. Positions open and close at the signal bar's close.
// A position still held on the last bar becomes an open trade valued at the
// final close. Repeated entries while holding are ignored.
func Simulate(p *panel.Panel, entries, exits *panel.BoolMatrix, meta models.ParameterSet) ([]models.Trade, error) {
	if err := entries.AssertShape(exits); err != nil {
		return nil, err
	}
	if entries.Rows() != p.NumRows() || entries.Cols() != p.NumCols() {
		return nil, fmt.Errorf("backtest: signal shape %dx%d does not match panel %dx%d",
			entries.Rows(), entries.Cols(), p.NumRows(), p.NumCols())
	}

	nc := p.NumCols()
	perCol := make([][]models.Trade, nc)
	indicators.ApplyColumns(nc, func(col int) {
		close := p.Close.Col(col)
		ent := entries.Col(col)
		ext := exits.Col(col)

		var trades []models.Trade
		openIdx := -1
		var entryPrice float64
		for i := range close {
			if math.IsNaN(close[i]) {
				continue
			}
			if openIdx >= 0 && ext[i] {
				trades = append(trades, models.Trade{
					Col:        col,
					EntryIdx:   openIdx,
					ExitIdx:    i,
					EntryPrice: entryPrice,
					ExitPrice:  close[i],
					PnL:        close[i] - entryPrice,
					Return:     (close[i] - entryPrice) / entryPrice,
					Kind:       models.KindClosed,
					Metadata:   meta,
				})
				openIdx = -1
				continue
			}
			if openIdx < 0 && ent[i] {
				openIdx = i
				entryPrice = close[i]
			}
		}
		if openIdx >= 0 {
			last := lastValid(close)
			trades = append(trades, models.Trade{
				Col:        col,
				EntryIdx:   openIdx,
				ExitIdx:    -1,
				EntryPrice: entryPrice,
				ExitPrice:  last,
				PnL:        last - entryPrice,
				Return:     (last - entryPrice) / entryPrice,
				Kind:       models.KindOpen,
				Metadata:   meta,
			})
		}
		perCol[col] = trades
	})

	var out []models.Trade
	for _, trades := range perCol {
		out = append(out, trades...)
	}
	return out, nil
}

func lastValid(xs []float64) float64 {
	for i := len(xs) - 1; i >= 0; i-- {
		if !math.IsNaN(xs[i]) {
			return xs[i]
		}
	}
	return math.NaN()
}
