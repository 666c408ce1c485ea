package numeric

import (
	"math"
	"sort"
)

// Objective is a function to minimize over a 2-D point (x, y).
type Objective func(x, y float64) float64

// SimplexConfig controls the Nelder-Mead search.
type SimplexConfig struct {
	Alpha, Gamma, Rho, Sigma float64 // reflection, expansion, contraction, shrink
	DiameterEps              float64 // terminate when simplex diameter falls below this
	MaxIterations            int
}

// DefaultSimplexConfig mirrors the classic Nelder-Mead coefficients with
// a 0.1 km diameter tolerance as the default.
func DefaultSimplexConfig() SimplexConfig {
	return SimplexConfig{Alpha: 1.0, Gamma: 2.0, Rho: 0.5, Sigma: 0.5, DiameterEps: 0.1, MaxIterations: 200}
}

// SimplexResult is the minimizer's outcome.
type SimplexResult struct {
	X, Y     float64
	Value    float64
	Spread   float64 // vertex-spread standard deviation at termination
	Iterations int
}

// vertex2D is a simplex corner paired with its objective value.
type vertex2D struct {
	x, y, f float64
}

// MinimizeSimplex runs a bounded Nelder-Mead search over obj starting
// from a seed point, breaking ties among equally-good vertices by preferring
// smaller displacement from the seed, then smaller x then smaller y.
func MinimizeSimplex(obj Objective, seedX, seedY, step float64, cfg SimplexConfig) SimplexResult {
	verts := []vertex2D{
		{seedX, seedY, obj(seedX, seedY)},
		{seedX + step, seedY, obj(seedX+step, seedY)},
		{seedX, seedY + step, obj(seedX, seedY+step)},
	}

	iter := 0
	for ; iter < cfg.MaxIterations; iter++ {
		sort.Slice(verts, func(i, j int) bool { return verts[i].f < verts[j].f })

		if simplexDiameter(verts) < cfg.DiameterEps {
			break
		}

		best, second, worst := verts[0], verts[1], verts[2]
		centroidX := (best.x + second.x) / 2
		centroidY := (best.y + second.y) / 2

		reflected := vertex2D{
			x: centroidX + cfg.Alpha*(centroidX-worst.x),
			y: centroidY + cfg.Alpha*(centroidY-worst.y),
		}
		reflected.f = obj(reflected.x, reflected.y)

		switch {
		case reflected.f < best.f:
			expanded := vertex2D{
				x: centroidX + cfg.Gamma*(reflected.x-centroidX),
				y: centroidY + cfg.Gamma*(reflected.y-centroidY),
			}
			expanded.f = obj(expanded.x, expanded.y)
			if expanded.f < reflected.f {
				verts[2] = expanded
			} else {
				verts[2] = reflected
			}
		case reflected.f < second.f:
			verts[2] = reflected
		default:
			contracted := vertex2D{
				x: centroidX + cfg.Rho*(worst.x-centroidX),
				y: centroidY + cfg.Rho*(worst.y-centroidY),
			}
			contracted.f = obj(contracted.x, contracted.y)
			if contracted.f < worst.f {
				verts[2] = contracted
			} else {
				for i := 1; i < len(verts); i++ {
					verts[i].x = best.x + cfg.Sigma*(verts[i].x-best.x)
					verts[i].y = best.y + cfg.Sigma*(verts[i].y-best.y)
					verts[i].f = obj(verts[i].x, verts[i].y)
				}
			}
		}
	}

	sort.Slice(verts, func(i, j int) bool {
		if verts[i].f != verts[j].f {
			return verts[i].f < verts[j].f
		}
		di := dispFromSeed(verts[i], seedX, seedY)
		dj := dispFromSeed(verts[j], seedX, seedY)
		if di != dj {
			return di < dj
		}
		if verts[i].x != verts[j].x {
			return verts[i].x < verts[j].x
		}
		return verts[i].y < verts[j].y
	})

	return SimplexResult{
		X: verts[0].x, Y: verts[0].y, Value: verts[0].f,
		Spread:     simplexSpread(verts),
		Iterations: iter,
	}
}

func dispFromSeed(v vertex2D, seedX, seedY float64) float64 {
	dx, dy := v.x-seedX, v.y-seedY
	return dx*dx + dy*dy
}

func simplexDiameter(verts []vertex2D) float64 {
	max := 0.0
	for i := range verts {
		for j := i + 1; j < len(verts); j++ {
			dx := verts[i].x - verts[j].x
			dy := verts[i].y - verts[j].y
			d := dx*dx + dy*dy
			if d > max {
				max = d
			}
		}
	}
	return math.Sqrt(max)
}

// simplexSpread is the standard deviation of the vertex positions'
// distance from their centroid, used as the centerStd reported by
// SimplexCenterFinder.
func simplexSpread(verts []vertex2D) float64 {
	n := float64(len(verts))
	cx, cy := 0.0, 0.0
	for _, v := range verts {
		cx += v.x
		cy += v.y
	}
	cx /= n
	cy /= n

	sum := 0.0
	for _, v := range verts {
		dx, dy := v.x-cx, v.y-cy
		sum += dx*dx + dy*dy
	}
	return math.Sqrt(sum / n)
}
