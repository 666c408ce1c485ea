// Package vtd implements the GBVTD ring solver: fitting a Fourier
// series to a radius-height ring of radial velocity and translating it
// into tangential/radial/mean-storm-motion wind coefficients, per
// wind coefficients. The Fourier-to-wind translation follows
// GBVTD::setWindCoefficients from the classic GBVTD formulation.
package vtd

import (
	"math"
	"sort"

	"github.com/vortrac/analysis/internal/geo"
	"github.com/vortrac/analysis/internal/model"
	"github.com/vortrac/analysis/internal/numeric"
)

// Closure selects the wind-coefficient translation method.
type Closure string

const (
	ClosureOriginal     Closure = "original"
	ClosureOriginalHVVP Closure = "original+hvvp"
)

// Sample is one ring measurement: an azimuth in meteorological
// convention (degrees, clockwise from north) and a radial-velocity
// value, possibly the sentinel.
type Sample struct {
	AzimuthDeg float64
	Velocity   float64
}

// Config carries the per-ring fit parameters that come from the
// analysis configuration.
type Config struct {
	Closure        Closure
	MaxWavenumber  int // W in [0,4]
	MaxDataGapDeg  []float64 // indexed by wavenumber, length MaxWavenumber+1
	HVVPMeanMS     float64   // cross-beam wind from HVVP, used only for ClosureOriginalHVVP
}

// RingResult is a ring's outcome: either a fitted wind-coefficient set,
// or a failure recorded as sentinel coefficients (a ring failure never
// halts the rest of the volume's analysis).
type RingResult struct {
	Coefficients []model.Coefficient // length 2*MaxWavenumber+3, slot order below
	StdDevMS     float64             // -999 (sentinel) on failure
	Wavenumber   int                 // W actually used, -1 on failure
	Failed       bool
}

// AnalyzeRing fits the ring at (radiusKM, level) centered at (xCenter,
// yCenter) -- the reference point's cartesian offset from the radar --
// and returns the wind coefficients for the requested closure.
func AnalyzeRing(xCenter, yCenter, radiusKM float64, level int, samples []Sample, cfg Config) RingResult {
	slotCount := 2*cfg.MaxWavenumber + 3
	fail := func() RingResult {
		coeffs := make([]model.Coefficient, slotCount)
		for i := range coeffs {
			coeffs[i] = model.NewDefaultCoefficient(level, radiusKM, slotParam(i))
		}
		return RingResult{Coefficients: coeffs, StdDevMS: model.Sentinel, Wavenumber: -1, Failed: true}
	}

	thetaT := geo.Wrap(math.Atan2(yCenter, xCenter))
	centerDistance := math.Hypot(xCenter, yCenter)
	if centerDistance < radiusKM {
		// Center inside the ring: geometry undefined for this closure.
		return fail()
	}

	type psiSample = struct {
		psi      float64
		velocity float64
	}
	psis := make([]psiSample, 0, len(samples))
	for _, s := range samples {
		if s.Velocity == model.Sentinel {
			continue
		}
		mathAngle := geo.MeteorologicalToMathAngle(s.AzimuthDeg)
		a := geo.Wrap(mathAngle - thetaT)
		yy := yCenter + radiusKM*math.Sin(a+thetaT)
		xx := xCenter + radiusKM*math.Cos(a+thetaT)
		psiCorrection := math.Atan2(yy, xx) - thetaT
		psi := geo.Wrap(a - psiCorrection)
		psis = append(psis, psiSample{psi: psi, velocity: s.Velocity})
	}

	w := chooseWavenumber(psis, cfg.MaxWavenumber, cfg.MaxDataGapDeg)
	if w < 0 {
		return fail()
	}

	numCoeffs := 2*w + 1
	x := make([][]float64, len(psis))
	y := make([]float64, len(psis))
	for i, s := range psis {
		row := make([]float64, numCoeffs)
		row[0] = 1
		for j := 1; j <= w; j++ {
			row[2*j-1] = math.Sin(float64(j) * s.psi)
			row[2*j] = math.Cos(float64(j) * s.psi)
		}
		x[i] = row
		y[i] = s.velocity
	}

	fit, err := numeric.WeightedLLS(x, y, nil)
	if err != nil {
		return fail()
	}

	return RingResult{
		Coefficients: translate(fit.Beta, w, radiusKM, level, centerDistance, cfg),
		StdDevMS:     fit.ResidualStd,
		Wavenumber:   w,
		Failed:       false,
	}
}

// chooseWavenumber returns the largest W in [0, maxWave] whose maximum
// angular gap among psis is within maxDataGapDeg[W], or -1 if even W=0
// fails.
func chooseWavenumber(psis []struct {
	psi      float64
	velocity float64
}, maxWave int, maxGapDeg []float64) int {
	if len(psis) == 0 {
		return -1
	}
	sorted := make([]float64, len(psis))
	for i, s := range psis {
		v := math.Mod(s.psi, 2*math.Pi)
		if v < 0 {
			v += 2 * math.Pi
		}
		sorted[i] = v
	}
	sort.Float64s(sorted)

	maxGapRad := 0.0
	for i := 1; i < len(sorted); i++ {
		if g := sorted[i] - sorted[i-1]; g > maxGapRad {
			maxGapRad = g
		}
	}
	wrapGap := sorted[0] + 2*math.Pi - sorted[len(sorted)-1]
	if wrapGap > maxGapRad {
		maxGapRad = wrapGap
	}
	maxGapDegActual := maxGapRad * geo.Rad2Deg

	for w := maxWave; w >= 0; w-- {
		if w >= len(maxGapDeg) {
			continue
		}
		minSamples := 2*w + 1
		if len(psis) < minSamples {
			continue
		}
		if maxGapDegActual <= maxGapDeg[w] {
			return w
		}
	}
	return -1
}

// translate converts Fourier coefficients (a0, b1, a1, b2, a2, ...) into
// wind coefficients under the "original" / "original+hvvp" closures,
// following GBVTD::setWindCoefficients.
func translate(beta []float64, w int, radiusKM float64, level int, centerDistance float64, cfg Config) []model.Coefficient {
	// A[i] = cos-family coefficient at wavenumber i (A[0] is the mean);
	// B[i] = sin-family coefficient at wavenumber i, B[0] unused.
	size := w + 1
	if size < 5 {
		size = 5
	}
	a := make([]float64, size)
	b := make([]float64, size)
	a[0] = beta[0]
	for i := 1; i <= w; i++ {
		b[i] = beta[2*i-1]
		a[i] = beta[2*i]
	}

	sinAlphaMax := radiusKM / centerDistance
	cosAlphaMax := math.Sqrt(1 - sinAlphaMax*sinAlphaMax)

	slotCount := 2*cfg.MaxWavenumber + 3
	coeffs := make([]model.Coefficient, slotCount)
	for i := range coeffs {
		coeffs[i] = model.NewDefaultCoefficient(level, radiusKM, slotParam(i))
	}

	vtc0 := -b[1] - b[3]
	if cfg.Closure == ClosureOriginalHVVP && b[1] != 0 {
		vtc0 -= cfg.HVVPMeanMS * sinAlphaMax
	}
	coeffs[0].Value = vtc0

	coeffs[1].Value = a[1] + a[3] // VRC0
	vmc0 := a[0] + a[2] + a[4]
	coeffs[2].Value = vmc0 // VMC0

	if sinAlphaMax < 0.8 && numCoeffsFromW(w) >= 5 {
		vts1 := (a[2] - a[0] + a[4]) + vmc0*cosAlphaMax
		if vts1 < vtc0 {
			coeffs[3].Value = vts1
		} else {
			coeffs[3].Value = 0
		}
		vtc1 := -2 * (b[2] + b[4])
		if vtc1 < vtc0 {
			coeffs[4].Value = vtc1
		} else {
			coeffs[4].Value = 0
		}
	} else {
		coeffs[3].Value = 0
		coeffs[4].Value = 0
	}

	for k := 2; k <= w-1; k++ {
		slot := 3 + 2*(k-1)
		if slot+1 >= len(coeffs) {
			break
		}
		coeffs[slot].Value = -2 * b[k+1]
		coeffs[slot+1].Value = 2 * a[k+1]
	}

	return coeffs
}

func numCoeffsFromW(w int) int { return 2*w + 1 }

// slotParam names the dense coefficient slot at index i, matching the
// order VTC0, VRC0, VMC0, VTS1, VTC1, VTC2, VTS2, VTC3, VTS3, ...
func slotParam(i int) model.Param {
	switch i {
	case 0:
		return model.ParamVTC0
	case 1:
		return model.ParamVRC0
	case 2:
		return model.ParamVMC0
	case 3:
		return model.ParamVTS1
	case 4:
		return model.ParamVTC1
	default:
		k := 2 + (i-5)/2
		if (i-5)%2 == 0 {
			return model.WavenumberCosParam(k)
		}
		return model.WavenumberSinParam(k)
	}
}
