package volume

import (
	"math"
	"testing"

	"github.com/vortrac/analysis/internal/geo"
	"github.com/vortrac/analysis/internal/model"
)

func buildTestVolume() *GriddedVolume {
	radar := geo.Origin{Lat: 0, Lon: 0, AltKM: 0}
	vol := New(radar, 1, 1, 1, Dims{I: 41, J: 41, K: 1})
	vol.GridOriginX = -20
	vol.GridOriginY = -20
	vol.GridOriginZ = 2
	for j := 0; j < 41; j++ {
		for i := 0; i < 41; i++ {
			vol.Set("velocity", i, j, 0, 7.0)
		}
	}
	return vol
}

func TestSetAbsoluteReferencePointInBounds(t *testing.T) {
	vol := buildTestVolume()
	vol.SetAbsoluteReferencePoint(0, 0, 2)
	if vol.RefPointI() < 0 {
		t.Fatalf("expected the grid center to be in bounds")
	}
	x, y := vol.CartesianRefPoint()
	if math.Abs(x) > 1e-6 || math.Abs(y) > 1e-6 {
		t.Errorf("CartesianRefPoint = (%v, %v), want near (0, 0)", x, y)
	}
}

func TestSetAbsoluteReferencePointOutOfBounds(t *testing.T) {
	vol := buildTestVolume()
	vol.SetAbsoluteReferencePoint(10, 10, 2)
	if vol.RefPointI() != -1 || vol.RefPointJ() != -1 || vol.RefPointK() != -1 {
		t.Errorf("expected -1 indices for an out-of-bounds reference point")
	}
	if n := vol.CylindricalAzimuthLength("velocity", 5, 2); n != 0 {
		t.Errorf("expected no ring data with an invalid reference point, got %d cells", n)
	}
}

func TestCylindricalAzimuthDataCoversFullRing(t *testing.T) {
	vol := buildTestVolume()
	vol.SetAbsoluteReferencePoint(0, 0, 2)

	n := vol.CylindricalAzimuthLength("velocity", 10, 2)
	if n == 0 {
		t.Fatalf("expected nonzero ring cell count at radius 10")
	}

	values := make([]float64, n)
	azimuths := make([]float64, n)
	vol.CylindricalAzimuthData("velocity", 10, 2, values, azimuths)

	for i, v := range values {
		if v != 7.0 {
			t.Errorf("cell %d value = %v, want 7.0", i, v)
		}
		if azimuths[i] < 0 || azimuths[i] >= 360 {
			t.Errorf("azimuth %v out of [0, 360) range", azimuths[i])
		}
	}
}

func TestFieldDefaultsToSentinel(t *testing.T) {
	vol := buildTestVolume()
	if got := vol.Get("reflectivity", 0, 0, 0); got != model.Sentinel {
		t.Errorf("Get on an unset field = %v, want sentinel", got)
	}
}

func TestIndexOfHeightRounds(t *testing.T) {
	vol := buildTestVolume()
	if k := vol.IndexOfHeight(2.4); k != 0 {
		t.Errorf("IndexOfHeight(2.4) = %d, want 0", k)
	}
}
