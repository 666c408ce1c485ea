package vtd

import (
	"math"
	"testing"

	"github.com/vortrac/analysis/internal/geo"
)

// axisymmetricSamples builds a ring of n evenly spaced measurements of a
// purely tangential flow of speed vt around a center at (xc, yc), as
// seen by a radar at the origin.
func axisymmetricSamples(xc, yc, radiusKM, vt float64, n int) []Sample {
	samples := make([]Sample, n)
	for i := 0; i < n; i++ {
		mathAngle := 2 * math.Pi * float64(i) / float64(n)
		cellX := xc + radiusKM*math.Cos(mathAngle)
		cellY := yc + radiusKM*math.Sin(mathAngle)

		tx, ty := -math.Sin(mathAngle), math.Cos(mathAngle)
		radarR := math.Hypot(cellX, cellY)
		ux, uy := -cellX/radarR, -cellY/radarR
		radial := -(vt*tx*ux + vt*ty*uy)

		az := geo.MathToMeteorologicalAngle(math.Atan2(cellY, cellX))
		samples[i] = Sample{AzimuthDeg: az, Velocity: radial}
	}
	return samples
}

func TestAnalyzeRingAxisymmetricRecoversTangentialWind(t *testing.T) {
	xc, yc := 80.0, 0.0
	radiusKM := 20.0
	vt := 35.0

	cfg := Config{
		Closure:       ClosureOriginal,
		MaxWavenumber: 2,
		MaxDataGapDeg: []float64{360, 180, 90},
	}

	samples := axisymmetricSamples(xc, yc, radiusKM, vt, 36)
	res := AnalyzeRing(xc, yc, radiusKM, 0, samples, cfg)

	if res.Failed {
		t.Fatalf("expected ring to fit, got failure")
	}

	vtc0 := res.Coefficients[0].Value
	if math.Abs(math.Abs(vtc0)-vt) > 0.05 {
		t.Errorf("VTC0 = %v, want magnitude near %v", vtc0, vt)
	}
	if res.StdDevMS > 1e-6 {
		t.Errorf("exact synthetic fit should have near-zero residual, got %v", res.StdDevMS)
	}
}

func TestAnalyzeRingCenterInsideRingFails(t *testing.T) {
	cfg := Config{Closure: ClosureOriginal, MaxWavenumber: 1, MaxDataGapDeg: []float64{360, 180}}
	samples := axisymmetricSamples(5, 0, 20, 10, 24)

	res := AnalyzeRing(5, 0, 20, 0, samples, cfg)
	if !res.Failed {
		t.Fatalf("expected failure when ring radius exceeds center distance")
	}
	for _, c := range res.Coefficients {
		if !c.IsDefault() {
			t.Errorf("expected sentinel coefficient %v, got %v", c.Parameter, c.Value)
		}
	}
}

func TestAnalyzeRingSparseDataFails(t *testing.T) {
	cfg := Config{Closure: ClosureOriginal, MaxWavenumber: 2, MaxDataGapDeg: []float64{10, 10, 10}}
	// Two samples clustered together leave most of the ring's azimuth
	// range unobserved, well beyond a 10 degree gap tolerance.
	samples := []Sample{
		{AzimuthDeg: 10, Velocity: 5},
		{AzimuthDeg: 15, Velocity: 6},
	}

	res := AnalyzeRing(80, 0, 20, 0, samples, cfg)
	if !res.Failed {
		t.Fatalf("expected failure on sparse, clustered azimuth coverage")
	}
	if res.StdDevMS != -999 {
		t.Errorf("expected sentinel std dev on failure, got %v", res.StdDevMS)
	}
}

func TestAnalyzeRingMissingSamplesExcluded(t *testing.T) {
	cfg := Config{Closure: ClosureOriginal, MaxWavenumber: 2, MaxDataGapDeg: []float64{360, 180, 90}}
	samples := axisymmetricSamples(80, 0, 20, 35, 36)
	samples[0].Velocity = -999
	samples[10].Velocity = -999

	res := AnalyzeRing(80, 0, 20, 0, samples, cfg)
	if res.Failed {
		t.Fatalf("expected ring to still fit with a few dropped samples")
	}
}
