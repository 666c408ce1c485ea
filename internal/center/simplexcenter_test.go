package center

import (
	"math"
	"testing"

	"github.com/vortrac/analysis/internal/geo"
	"github.com/vortrac/analysis/internal/numeric"
	"github.com/vortrac/analysis/internal/volume/testsupport"
	"github.com/vortrac/analysis/internal/vtd"
)

func TestFindCenterLocatesRankineVortex(t *testing.T) {
	radar := geo.Origin{Lat: 0, Lon: 0, AltKM: 0}
	params := testsupport.RankineParams{
		CenterLat: 0.5, CenterLon: 0.3, CenterHeightKM: 2,
		RMWKM: 25, VMaxMS: 40,
		Levels: []float64{2},
	}
	vol := testsupport.BuildVolume(params)

	cfg := Config{
		VTDConfig: vtd.Config{
			Closure:       vtd.ClosureOriginal,
			MaxWavenumber: 1,
			MaxDataGapDeg: []float64{360, 180},
		},
		FirstRingKM:   10,
		LastRingKM:    40,
		RingWidthKM:   10,
		VelocityField: "velocity",
		SimplexStep:   5,
		Simplex:       numeric.DefaultSimplexConfig(),
	}

	res := FindCenter(vol, radar, 2, 0.4, 0.2, cfg)

	trueCenter := radar.ToCartesian(params.CenterLat, params.CenterLon, 2)
	found := radar.ToCartesian(res.Lat, res.Lon, 2)
	dist := math.Hypot(found.X-trueCenter.X, found.Y-trueCenter.Y)

	if dist > 5 {
		t.Errorf("found center %.3f km from true center (%v,%v), want within 5 km", dist, res.Lat, res.Lon)
	}
	if res.OutOfBounds {
		t.Errorf("expected center to stay within grid bounds")
	}
	if res.RMWKM < 15 || res.RMWKM > 35 {
		t.Errorf("RMW = %v km, want near %v km", res.RMWKM, params.RMWKM)
	}
}
