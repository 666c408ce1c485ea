package numeric

import "testing"

func TestMinimizeSimplexParabola(t *testing.T) {
	obj := func(x, y float64) float64 {
		dx, dy := x-3, y-(-2)
		return dx*dx + dy*dy
	}

	res := MinimizeSimplex(obj, 0, 0, 1.0, DefaultSimplexConfig())

	if abs(res.X-3) > 0.2 || abs(res.Y+2) > 0.2 {
		t.Errorf("got (%v,%v), want near (3,-2)", res.X, res.Y)
	}
}

func TestMinimizeSimplexTerminatesOnDiameter(t *testing.T) {
	obj := func(x, y float64) float64 { return x*x + y*y }
	cfg := DefaultSimplexConfig()
	cfg.MaxIterations = 1000

	res := MinimizeSimplex(obj, 5, 5, 2.0, cfg)
	if res.Iterations >= cfg.MaxIterations {
		t.Errorf("expected early termination on diameter, used all %d iterations", cfg.MaxIterations)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
