package strategies

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"QuantBack/internal/domain/models"
	"QuantBack/internal/panel"
)

func syntheticPanel(t *testing.T, closes []float64) *panel.Panel {
	t.Helper()
	rows := make([]models.PriceRow, 0, len(closes))
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		rows = append(rows, models.PriceRow{
			Date:   base.AddDate(0, 0, i),
			Symbol: "TEST",
			Open:   c * 0.995,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000,
		})
	}
	p, err := panel.Build(rows)
	if err != nil {
		t.Fatalf("build panel: %v", err)
	}
	return p
}

// rampCloses oscillates around a flat base long enough to escape every
// indicator warm-up, grinds down to a fresh low so the anchored VWAP gate
// re-anchors, then trends up hard and collapses.
func rampCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		switch {
		case i < 190:
			closes[i] = 100 + 2*math.Sin(float64(i)/5)
		case i < 211:
			closes[i] = closes[i-1] - 0.6
		case i < 250:
			closes[i] = closes[i-1] * 1.03
		default:
			closes[i] = closes[i-1] * 0.94
		}
	}
	return closes
}

func TestLookupUnknownStrategy(t *testing.T) {
	_, err := Lookup("Mean Reversion Deluxe")
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestRegistryParameterSweeps(t *testing.T) {
	sq, err := Lookup(NameSqueezeBreakout)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(sq.Sets) != 3 {
		t.Fatalf("squeeze sweep has %d sets, want 3", len(sq.Sets))
	}
	ttm, err := Lookup(NameBreakoutTTMv2)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(ttm.Sets) != 2 {
		t.Fatalf("ttm sweep has %d sets, want 2", len(ttm.Sets))
	}

	raw, err := json.Marshal(ttm.Sets[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"entry_version":"v2","bb_window":14,"bb_multiplier":1.4,"kc_window":40,"kc_multiplier":1.2,"atr_window":12,"momentum_window":12,"donichan_window":12}`
	if string(raw) != want {
		t.Fatalf("metadata order changed:\n got %s\nwant %s", raw, want)
	}
}

func TestSignalsShapeMatchesPanel(t *testing.T) {
	p := syntheticPanel(t, rampCloses(280))
	for _, name := range Names() {
		def, err := Lookup(name)
		if err != nil {
			t.Fatalf("lookup %s: %v", name, err)
		}
		s := def.Build(def.Sets[0])
		entries, exits, err := s.Signals(p)
		if err != nil {
			t.Fatalf("%s signals: %v", name, err)
		}
		if entries.Rows() != p.NumRows() || entries.Cols() != p.NumCols() {
			t.Fatalf("%s entries shape %dx%d", name, entries.Rows(), entries.Cols())
		}
		if err := entries.AssertShape(exits); err != nil {
			t.Fatalf("%s shape: %v", name, err)
		}
	}
}

func TestFlatSeriesProducesNoEntries(t *testing.T) {
	closes := make([]float64, 280)
	for i := range closes {
		closes[i] = 100
	}
	p := syntheticPanel(t, closes)
	for _, name := range Names() {
		def, _ := Lookup(name)
		for _, set := range def.Sets {
			entries, _, err := def.Build(set).Signals(p)
			if err != nil {
				t.Fatalf("%s signals: %v", name, err)
			}
			if n := entries.Count(); n != 0 {
				t.Fatalf("%s produced %d entries on a flat series", name, n)
			}
		}
	}
}

func TestBreakoutProducesSignals(t *testing.T) {
	p := syntheticPanel(t, rampCloses(280))
	for _, name := range Names() {
		def, _ := Lookup(name)
		totalEntries, totalExits := 0, 0
		for _, set := range def.Sets {
			entries, exits, err := def.Build(set).Signals(p)
			if err != nil {
				t.Fatalf("%s signals: %v", name, err)
			}
			totalEntries += entries.Count()
			totalExits += exits.Count()
		}
		if totalEntries == 0 {
			t.Fatalf("%s found no entries in a breakout scenario", name)
		}
		if totalExits == 0 {
			t.Fatalf("%s found no exits after the collapse", name)
		}
	}
}

func TestShortSeriesStaysQuiet(t *testing.T) {
	// far below every indicator window, nothing should fire
	closes := []float64{100, 101, 102, 103, 104, 105}
	p := syntheticPanel(t, closes)
	for _, name := range Names() {
		def, _ := Lookup(name)
		entries, _, err := def.Build(def.Sets[0]).Signals(p)
		if err != nil {
			t.Fatalf("%s signals: %v", name, err)
		}
		if entries.Count() != 0 {
			t.Fatalf("%s fired on a series shorter than its windows", name)
		}
	}
}
