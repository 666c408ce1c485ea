// Package numeric implements the small numeric kernels the analysis
// core builds on: a weighted linear least-squares solver and a
// Nelder-Mead simplex minimizer used by the center finder.
package numeric

import (
	"errors"
	"math"

	"github.com/gonum/floats"
)

// ErrSingular is returned when the normal-equation matrix cannot be
// factored: the largest available pivot in some column is below 1e-12
// in magnitude.
var ErrSingular = errors.New("numeric: singular normal-equation matrix")

// LLSResult holds a weighted least-squares solve's output.
type LLSResult struct {
	Beta        []float64 // fitted coefficients
	StdError    []float64 // per-coefficient standard error
	ResidualStd float64   // residual standard deviation, sigma
}

// WeightedLLS solves y = X*beta in the weighted least-squares sense.
// X is laid out as X[row][col]; y and weights have len(y) == len(X).
// A nil weights slice is treated as all-ones. The solve is deterministic
// given identical inputs, built on Gaussian elimination with partial
// pivoting over the normal equations X^T W X beta = X^T W y.
func WeightedLLS(x [][]float64, y []float64, weights []float64) (LLSResult, error) {
	n := len(y)
	if n == 0 || len(x) != n {
		return LLSResult{}, errors.New("numeric: mismatched row counts")
	}
	p := len(x[0])
	for _, row := range x {
		if len(row) != p {
			return LLSResult{}, errors.New("numeric: ragged design matrix")
		}
	}
	if weights == nil {
		weights = make([]float64, n)
		for i := range weights {
			weights[i] = 1
		}
	}

	// Assemble normal equations A = X^T W X, b = X^T W y.
	a := make([][]float64, p)
	for i := range a {
		a[i] = make([]float64, p)
	}
	b := make([]float64, p)

	wx := make([]float64, n) // scratch: weights[k]*x[k][j]
	for j := 0; j < p; j++ {
		for k := 0; k < n; k++ {
			wx[k] = weights[k] * x[k][j]
		}
		for i := 0; i < p; i++ {
			col := make([]float64, n)
			for k := 0; k < n; k++ {
				col[k] = x[k][i]
			}
			a[j][i] = floats.Dot(wx, col)
		}
		b[j] = floats.Dot(wx, y)
	}

	beta, err := solveSymmetric(a, b)
	if err != nil {
		return LLSResult{}, err
	}

	// Residual standard deviation and per-coefficient standard errors,
	// using the (X^T W X)^-1 diagonal scaled by the residual variance.
	inv, err := invertSymmetric(a)
	if err != nil {
		return LLSResult{}, err
	}

	sse := 0.0
	for k := 0; k < n; k++ {
		fitted := floats.Dot(x[k], beta)
		resid := y[k] - fitted
		sse += weights[k] * resid * resid
	}
	dof := n - p
	variance := 0.0
	if dof > 0 {
		variance = sse / float64(dof)
	}
	sigma := math.Sqrt(variance)

	stdErr := make([]float64, p)
	for i := 0; i < p; i++ {
		stdErr[i] = math.Sqrt(variance * inv[i][i])
	}

	return LLSResult{Beta: beta, StdError: stdErr, ResidualStd: sigma}, nil
}

// solveSymmetric solves A*x = b via Gaussian elimination with partial
// pivoting, returning ErrSingular when no pivot of magnitude at least
// 1e-12 is left in a column.
func solveSymmetric(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	// Work on copies so callers can reuse a, b.
	m := make([][]float64, n)
	rhs := make([]float64, n)
	copy(rhs, b)
	for i := range a {
		m[i] = append([]float64(nil), a[i]...)
	}

	for col := 0; col < n; col++ {
		pivotRow := col
		pivotVal := math.Abs(m[col][col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(m[r][col]); v > pivotVal {
				pivotRow, pivotVal = r, v
			}
		}
		if pivotVal < 1e-12 {
			return nil, ErrSingular
		}
		if pivotRow != col {
			m[col], m[pivotRow] = m[pivotRow], m[col]
			rhs[col], rhs[pivotRow] = rhs[pivotRow], rhs[col]
		}

		for r := col + 1; r < n; r++ {
			factor := m[r][col] / m[col][col]
			if factor == 0 {
				continue
			}
			for c := col; c < n; c++ {
				m[r][c] -= factor * m[col][c]
			}
			rhs[r] -= factor * rhs[col]
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := rhs[i]
		for j := i + 1; j < n; j++ {
			sum -= m[i][j] * x[j]
		}
		if m[i][i] == 0 {
			return nil, ErrSingular
		}
		x[i] = sum / m[i][i]
	}
	return x, nil
}

// invertSymmetric inverts a small symmetric matrix by solving for each
// column of the identity; adequate for the coefficient counts (<= 2*maxWave+1)
// GBVTD ever produces.
func invertSymmetric(a [][]float64) ([][]float64, error) {
	n := len(a)
	inv := make([][]float64, n)
	for i := range inv {
		inv[i] = make([]float64, n)
	}
	for col := 0; col < n; col++ {
		e := make([]float64, n)
		e[col] = 1
		x, err := solveSymmetric(a, e)
		if err != nil {
			return nil, err
		}
		for row := 0; row < n; row++ {
			inv[row][col] = x[row]
		}
	}
	return inv, nil
}
