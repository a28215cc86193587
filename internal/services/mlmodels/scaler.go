package mlmodels

import "math"

// Scaler standardizes a feature matrix before scoring.
type Scaler interface {
	Transform(X [][]float64) [][]float64
}

// BatchScaler standardizes each column against the scored batch's own mean
// and population deviation, matching how the training pipeline scaled its
// prediction batches. Constant columns pass through centered.
type BatchScaler struct{}

// Transform returns a standardized copy of X.
func (BatchScaler) Transform(X [][]float64) [][]float64 {
	if len(X) == 0 {
		return nil
	}
	cols := len(X[0])
	mean := make([]float64, cols)
	scale := make([]float64, cols)
	for j := 0; j < cols; j++ {
		var sum float64
		for i := range X {
			sum += X[i][j]
		}
		mean[j] = sum / float64(len(X))
		var ss float64
		for i := range X {
			d := X[i][j] - mean[j]
			ss += d * d
		}
		scale[j] = math.Sqrt(ss / float64(len(X)))
		if scale[j] == 0 {
			scale[j] = 1
		}
	}
	return standardize(X, mean, scale)
}

// FixedScaler standardizes with pre-fit statistics exported from training.
type FixedScaler struct {
	Mean  []float64
	Scale []float64
}

// Transform returns a standardized copy of X.
func (s FixedScaler) Transform(X [][]float64) [][]float64 {
	return standardize(X, s.Mean, s.Scale)
}

func standardize(X [][]float64, mean, scale []float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		row := make([]float64, len(X[i]))
		for j := range row {
			row[j] = (X[i][j] - mean[j]) / scale[j]
		}
		out[i] = row
	}
	return out
}
