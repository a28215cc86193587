package mlmodels

import (
	"math"
	"testing"

	"QuantBack/pkg/logger"
)

func TestBatchScalerStandardizes(t *testing.T) {
	X := [][]float64{
		{1, 10},
		{2, 10},
		{3, 10},
	}
	got := BatchScaler{}.Transform(X)
	// first column standardizes, constant second column centers to zero
	if math.Abs(got[0][0]+math.Sqrt(1.5)) > 1e-9 {
		t.Fatalf("standardized value = %v", got[0][0])
	}
	if got[1][0] != 0 {
		t.Fatalf("mean row should map to 0, got %v", got[1][0])
	}
	for i := range got {
		if got[i][1] != 0 {
			t.Fatalf("constant column should center to 0, got %v", got[i][1])
		}
	}
	// input must stay untouched
	if X[0][0] != 1 {
		t.Fatalf("transform mutated its input")
	}
}

func TestFixedScalerUsesGivenStats(t *testing.T) {
	s := FixedScaler{Mean: []float64{10}, Scale: []float64{2}}
	got := s.Transform([][]float64{{14}})
	if got[0][0] != 2 {
		t.Fatalf("fixed scaling = %v, want 2", got[0][0])
	}
}

func TestEnsembleLoadFailureIsSticky(t *testing.T) {
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	e := NewEnsemble(Config{
		XGBPath:      "testdata/does-not-exist.json",
		LGBMPath:     "testdata/does-not-exist.txt",
		CatBoostPath: "testdata/does-not-exist.cbm",
	}, nil, log)

	if _, err := e.Score([][]float64{{1, 2}}); err == nil {
		t.Fatalf("expected load error for missing model files")
	}
	if _, err := e.Score([][]float64{{1, 2}}); err == nil {
		t.Fatalf("load error must be sticky on retry")
	}
}
