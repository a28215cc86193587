package backtest

import (
	"math"
	"testing"
	"time"

	"QuantBack/internal/domain/models"
	"QuantBack/internal/panel"
)

func buildPanel(t *testing.T, closesBySymbol map[string][]float64) *panel.Panel {
	t.Helper()
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	var rows []models.PriceRow
	for sym, closes := range closesBySymbol {
		for i, c := range closes {
			rows = append(rows, models.PriceRow{
				Date:   base.AddDate(0, 0, i),
				Symbol: sym,
				Open:   c,
				High:   c + 1,
				Low:    c - 1,
				Close:  c,
				Volume: 1000,
			})
		}
	}
	p, err := panel.Build(rows)
	if err != nil {
		t.Fatalf("build panel: %v", err)
	}
	return p
}

func TestSimulateClosesAtSignalBars(t *testing.T) {
	p := buildPanel(t, map[string][]float64{"AAA": {10, 11, 12, 13, 14}})
	entries := panel.NewBoolMatrix(5, 1)
	exits := panel.NewBoolMatrix(5, 1)
	entries.Set(1, 0, true)
	exits.Set(3, 0, true)

	trades, err := Simulate(p, entries, exits, nil)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	tr := trades[0]
	if tr.EntryIdx != 1 || tr.ExitIdx != 3 {
		t.Fatalf("trade bars %d..%d, want 1..3", tr.EntryIdx, tr.ExitIdx)
	}
	if tr.EntryPrice != 11 || tr.ExitPrice != 13 {
		t.Fatalf("trade prices %v..%v", tr.EntryPrice, tr.ExitPrice)
	}
	if tr.PnL != 2 || math.Abs(tr.Return-2.0/11) > 1e-12 {
		t.Fatalf("pnl=%v return=%v", tr.PnL, tr.Return)
	}
	if tr.Kind != models.KindClosed {
		t.Fatalf("kind = %s", tr.Kind)
	}
}

func TestSimulateLeavesTailOpen(t *testing.T) {
	p := buildPanel(t, map[string][]float64{"AAA": {10, 11, 12, 13, 14}})
	entries := panel.NewBoolMatrix(5, 1)
	exits := panel.NewBoolMatrix(5, 1)
	entries.Set(2, 0, true)

	trades, err := Simulate(p, entries, exits, nil)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	tr := trades[0]
	if tr.Kind != models.KindOpen || tr.ExitIdx != -1 {
		t.Fatalf("tail position should stay open: kind=%s exit=%d", tr.Kind, tr.ExitIdx)
	}
	// open positions value against the final close
	if tr.PnL != 14-12 {
		t.Fatalf("open pnl = %v, want 2", tr.PnL)
	}
}

func TestSimulateIgnoresRepeatedEntries(t *testing.T) {
	p := buildPanel(t, map[string][]float64{"AAA": {10, 11, 12, 13, 14, 15}})
	entries := panel.NewBoolMatrix(6, 1)
	exits := panel.NewBoolMatrix(6, 1)
	for _, i := range []int{0, 1, 2, 4} {
		entries.Set(i, 0, true)
	}
	exits.Set(3, 0, true)

	trades, err := Simulate(p, entries, exits, nil)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	if trades[0].EntryIdx != 0 || trades[0].ExitIdx != 3 {
		t.Fatalf("first trade bars %d..%d", trades[0].EntryIdx, trades[0].ExitIdx)
	}
	if trades[1].EntryIdx != 4 || !trades[1].Open() {
		t.Fatalf("second trade should re-enter at bar 4 and stay open")
	}
}

func TestSimulateShapeMismatch(t *testing.T) {
	p := buildPanel(t, map[string][]float64{"AAA": {10, 11, 12}})
	if _, err := Simulate(p, panel.NewBoolMatrix(2, 1), panel.NewBoolMatrix(2, 1), nil); err == nil {
		t.Fatalf("expected shape mismatch error")
	}
}

func TestCombinePrefersOpenAndFirstSweep(t *testing.T) {
	p := buildPanel(t, map[string][]float64{"AAA": {10, 11, 12}, "BBB": {20, 21, 22}})

	meta1 := models.ParameterSet{{Name: "sweep", Value: 1}}
	meta2 := models.ParameterSet{{Name: "sweep", Value: 2}}
	closed := []models.Trade{
		{Col: 0, EntryIdx: 1, ExitIdx: 2, Kind: models.KindClosed, Metadata: meta1},
		{Col: 0, EntryIdx: 1, ExitIdx: 2, Kind: models.KindClosed, Metadata: meta2},
		{Col: 1, EntryIdx: 0, ExitIdx: 2, Kind: models.KindClosed, Metadata: meta1},
	}
	open := []models.Trade{
		{Col: 1, EntryIdx: 0, ExitIdx: -1, Kind: models.KindOpen, Metadata: meta2},
	}

	out, err := Combine(p, closed, open)
	if err != nil {
		t.Fatalf("combine: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d trades, want 2", len(out))
	}
	// closed duplicate resolved to the first sweep
	if out[0].Col != 0 || out[0].Metadata.Int("sweep", 0) != 1 {
		t.Fatalf("first sweep should win the closed duplicate: %+v", out[0])
	}
	// the open version evicts the closed trade sharing its key
	if !out[1].Open() || out[1].Col != 1 {
		t.Fatalf("open trade should survive dedup: %+v", out[1])
	}
	if out[0].Symbol != "AAA" || out[1].Symbol != "BBB" {
		t.Fatalf("symbols not resolved: %s %s", out[0].Symbol, out[1].Symbol)
	}
	if out[0].Date.IsZero() {
		t.Fatalf("entry date not resolved")
	}
}
