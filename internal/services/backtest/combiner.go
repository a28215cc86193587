package backtest

import (
	"fmt"

	"QuantBack/internal/domain/models"
	"QuantBack/internal/panel"
)

// Combine merges trades from repeated parameter sweeps into one deduplicated
// list. A (col, entry_idx) key held open by any sweep evicts every closed
// trade with the same key; among the rest the first occurrence wins, so
// earlier parameter sets take precedence. Symbol and entry date labels are
// resolved from the panel.
func Combine(p *panel.Panel, closed, open []models.Trade) ([]models.Trade, error) {
	openKeys := make(map[models.Key]struct{}, len(open))
	for i := range open {
		openKeys[open[i].Key()] = struct{}{}
	}

	merged := make([]models.Trade, 0, len(closed)+len(open))
	for _, t := range closed {
		if _, held := openKeys[t.Key()]; held {
			continue
		}
		merged = append(merged, t)
	}
	merged = append(merged, open...)

	seen := make(map[models.Key]struct{}, len(merged))
	out := merged[:0]
	for _, t := range merged {
		k := t.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		symbol, err := p.SymbolOf(t.Col)
		if err != nil {
			return nil, fmt.Errorf("combine trades: %w", err)
		}
		date, err := p.DateOf(t.EntryIdx)
		if err != nil {
			return nil, fmt.Errorf("combine trades: %w", err)
		}
		t.Symbol = symbol
		t.Date = date
		out = append(out, t)
	}
	return out, nil
}
