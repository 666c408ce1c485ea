package numeric

import (
	"math"
	"testing"
)

func TestWeightedLLSExactFit(t *testing.T) {
	// y = 2 + 3*t, exact fit, zero residual.
	x := [][]float64{{1, 0}, {1, 1}, {1, 2}, {1, 3}}
	y := []float64{2, 5, 8, 11}

	res, err := WeightedLLS(x, y, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(res.Beta[0]-2) > 1e-9 || math.Abs(res.Beta[1]-3) > 1e-9 {
		t.Errorf("got beta=%v, want [2 3]", res.Beta)
	}
	if res.ResidualStd > 1e-9 {
		t.Errorf("expected ~zero residual std, got %v", res.ResidualStd)
	}
}

func TestWeightedLLSSingular(t *testing.T) {
	// Two identical columns -> singular normal equations.
	x := [][]float64{{1, 1}, {1, 1}, {1, 1}}
	y := []float64{1, 2, 3}

	_, err := WeightedLLS(x, y, nil)
	if err != ErrSingular {
		t.Fatalf("expected ErrSingular, got %v", err)
	}
}

func TestWeightedLLSDeterministic(t *testing.T) {
	x := [][]float64{{1, 0, 1}, {1, 1, 0}, {1, 2, 1}, {1, 3, 2}, {1, 4, 0}}
	y := []float64{1.1, 2.9, 5.2, 6.8, 9.1}

	a, err := WeightedLLS(x, y, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := WeightedLLS(x, y, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range a.Beta {
		if a.Beta[i] != b.Beta[i] {
			t.Errorf("non-deterministic beta at %d: %v vs %v", i, a.Beta[i], b.Beta[i])
		}
	}
}

func TestWeightedLLSWeights(t *testing.T) {
	x := [][]float64{{1, 0}, {1, 1}, {1, 2}}
	y := []float64{0, 10, 2}
	weights := []float64{1, 1, 100} // force fit close to the third point

	res, err := WeightedLLS(x, y, weights)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fitted := res.Beta[0] + res.Beta[1]*2
	if math.Abs(fitted-2) > 0.5 {
		t.Errorf("expected fit near heavily-weighted point (2), got %v", fitted)
	}
}
