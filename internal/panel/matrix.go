package panel

import (
	"fmt"
	"math"
)

// Matrix is a dense rows×cols float64 matrix stored column-major, so each
// symbol column is a contiguous slice. Cells default to NaN.
type Matrix struct {
	rows, cols int
	data       []float64
}

// NewMatrix allocates a rows×cols matrix filled with NaN.
func NewMatrix(rows, cols int) *Matrix {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = math.NaN()
	}
	return &Matrix{rows: rows, cols: cols, data: data}
}

func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

// At returns the value at (row, col).
func (m *Matrix) At(row, col int) float64 {
	return m.data[col*m.rows+row]
}

// Set writes the value at (row, col).
func (m *Matrix) Set(row, col int, v float64) {
	m.data[col*m.rows+row] = v
}

// Col returns the column as a mutable slice view.
func (m *Matrix) Col(col int) []float64 {
	return m.data[col*m.rows : (col+1)*m.rows]
}

// SetCol copies values into the column. Panics on length mismatch.
func (m *Matrix) SetCol(col int, values []float64) {
	if len(values) != m.rows {
		panic(fmt.Sprintf("panel: SetCol length %d != rows %d", len(values), m.rows))
	}
	copy(m.Col(col), values)
}

// SameShape reports whether the two matrices have identical dimensions.
func (m *Matrix) SameShape(o *Matrix) bool {
	return o != nil && m.rows == o.rows && m.cols == o.cols
}

// AssertShape fails loudly when shapes diverge; all matrix-wide operations
// must call it before computing.
func (m *Matrix) AssertShape(o *Matrix) error {
	if !m.SameShape(o) {
		return fmt.Errorf("panel: shape mismatch %dx%d vs %dx%d", m.rows, m.cols, o.rows, o.cols)
	}
	return nil
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	out := &Matrix{rows: m.rows, cols: m.cols, data: make([]float64, len(m.data))}
	copy(out.data, m.data)
	return out
}

// BoolMatrix is a dense rows×cols boolean matrix stored column-major.
type BoolMatrix struct {
	rows, cols int
	data       []bool
}

// NewBoolMatrix allocates a rows×cols matrix of false.
func NewBoolMatrix(rows, cols int) *BoolMatrix {
	return &BoolMatrix{rows: rows, cols: cols, data: make([]bool, rows*cols)}
}

func (m *BoolMatrix) Rows() int { return m.rows }
func (m *BoolMatrix) Cols() int { return m.cols }

// At returns the value at (row, col).
func (m *BoolMatrix) At(row, col int) bool {
	return m.data[col*m.rows+row]
}

// Set writes the value at (row, col).
func (m *BoolMatrix) Set(row, col int, v bool) {
	m.data[col*m.rows+row] = v
}

// Col returns the column as a mutable slice view.
func (m *BoolMatrix) Col(col int) []bool {
	return m.data[col*m.rows : (col+1)*m.rows]
}

// SameShape reports whether the two matrices have identical dimensions.
func (m *BoolMatrix) SameShape(o *BoolMatrix) bool {
	return o != nil && m.rows == o.rows && m.cols == o.cols
}

// AssertShape fails loudly when shapes diverge.
func (m *BoolMatrix) AssertShape(o *BoolMatrix) error {
	if !m.SameShape(o) {
		return fmt.Errorf("panel: shape mismatch %dx%d vs %dx%d", m.rows, m.cols, o.rows, o.cols)
	}
	return nil
}

// Or sets m to the elementwise OR with o.
func (m *BoolMatrix) Or(o *BoolMatrix) error {
	if err := m.AssertShape(o); err != nil {
		return err
	}
	for i := range m.data {
		m.data[i] = m.data[i] || o.data[i]
	}
	return nil
}

// And sets m to the elementwise AND with o.
func (m *BoolMatrix) And(o *BoolMatrix) error {
	if err := m.AssertShape(o); err != nil {
		return err
	}
	for i := range m.data {
		m.data[i] = m.data[i] && o.data[i]
	}
	return nil
}

// Count returns the number of true cells.
func (m *BoolMatrix) Count() int {
	n := 0
	for _, v := range m.data {
		if v {
			n++
		}
	}
	return n
}
