package panel

import (
	"fmt"
	"math"
	"sort"
	"time"

	"QuantBack/internal/domain/models"
)

// Panel is an immutable time×symbol view over OHLCV data. Rows are trading
// sessions in strictly increasing date order, columns are symbols. All five
// field matrices share the same shape and labeling.
type Panel struct {
	Dates   []time.Time
	Symbols []string

	Open   *Matrix
	High   *Matrix
	Low    *Matrix
	Close  *Matrix
	Volume *Matrix

	colIndex map[string]int
}

// Build reshapes (symbol, date)-sorted rows into a panel. Per-symbol gaps in
// the session grid are forward-filled, then leading gaps back-filled, so
// every field matrix is dense wherever the symbol has any coverage.
func Build(rows []models.PriceRow) (*Panel, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("panel: no rows")
	}

	dateSet := make(map[time.Time]struct{})
	symbolSet := make(map[string]struct{})
	for _, r := range rows {
		dateSet[r.Date.UTC().Truncate(24*time.Hour)] = struct{}{}
		symbolSet[r.Symbol] = struct{}{}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	symbols := make([]string, 0, len(symbolSet))
	for s := range symbolSet {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	rowIndex := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		rowIndex[d] = i
	}
	colIndex := make(map[string]int, len(symbols))
	for j, s := range symbols {
		colIndex[s] = j
	}

	nr, nc := len(dates), len(symbols)
	p := &Panel{
		Dates:    dates,
		Symbols:  symbols,
		Open:     NewMatrix(nr, nc),
		High:     NewMatrix(nr, nc),
		Low:      NewMatrix(nr, nc),
		Close:    NewMatrix(nr, nc),
		Volume:   NewMatrix(nr, nc),
		colIndex: colIndex,
	}

	for _, r := range rows {
		i := rowIndex[r.Date.UTC().Truncate(24*time.Hour)]
		j := colIndex[r.Symbol]
		p.Open.Set(i, j, r.Open)
		p.High.Set(i, j, r.High)
		p.Low.Set(i, j, r.Low)
		p.Close.Set(i, j, r.Close)
		p.Volume.Set(i, j, r.Volume)
	}

	for _, m := range p.fields() {
		for j := 0; j < nc; j++ {
			fillColumn(m.Col(j))
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Panel) fields() []*Matrix {
	return []*Matrix{p.Open, p.High, p.Low, p.Close, p.Volume}
}

// Validate asserts all field matrices share the panel's shape and labels.
func (p *Panel) Validate() error {
	nr, nc := len(p.Dates), len(p.Symbols)
	for _, m := range p.fields() {
		if m == nil || m.Rows() != nr || m.Cols() != nc {
			return fmt.Errorf("panel: field shape mismatch, want %dx%d", nr, nc)
		}
	}
	for i := 1; i < nr; i++ {
		if !p.Dates[i].After(p.Dates[i-1]) {
			return fmt.Errorf("panel: dates not strictly increasing at row %d", i)
		}
	}
	return nil
}

// NumRows returns the number of trading sessions.
func (p *Panel) NumRows() int { return len(p.Dates) }

// NumCols returns the number of symbols.
func (p *Panel) NumCols() int { return len(p.Symbols) }

// ColIndex resolves a symbol to its column, reporting ok=false when absent.
func (p *Panel) ColIndex(symbol string) (int, bool) {
	j, ok := p.colIndex[symbol]
	return j, ok
}

// SymbolOf resolves a column index to its symbol name.
func (p *Panel) SymbolOf(col int) (string, error) {
	if col < 0 || col >= len(p.Symbols) {
		return "", fmt.Errorf("panel: column %d out of range [0,%d)", col, len(p.Symbols))
	}
	return p.Symbols[col], nil
}

// DateOf resolves a row index to its session date.
func (p *Panel) DateOf(row int) (time.Time, error) {
	if row < 0 || row >= len(p.Dates) {
		return time.Time{}, fmt.Errorf("panel: row %d out of range [0,%d)", row, len(p.Dates))
	}
	return p.Dates[row], nil
}

// fillColumn forward-fills interior gaps then back-fills the leading gap,
// so a symbol with partial coverage still yields a dense column.
func fillColumn(col []float64) {
	last := math.NaN()
	for i, v := range col {
		if math.IsNaN(v) {
			col[i] = last
		} else {
			last = v
		}
	}
	// leading NaNs inherit the first observed value
	first := math.NaN()
	for _, v := range col {
		if !math.IsNaN(v) {
			first = v
			break
		}
	}
	for i, v := range col {
		if math.IsNaN(v) {
			col[i] = first
		} else {
			break
		}
	}
}
