// Package testsupport builds synthetic GriddedVolume fixtures for the
// analysis core's tests: an axisymmetric Rankine vortex with a known
// tangential wind profile, for exercising the ring solver and center finder.
package testsupport

import (
	"math"

	"github.com/vortrac/analysis/internal/geo"
	"github.com/vortrac/analysis/internal/model"
	"github.com/vortrac/analysis/internal/volume"
)

// RankineParams describes an axisymmetric Rankine vortex: tangential
// wind increases linearly from the center to RMW, then decays as 1/r.
type RankineParams struct {
	CenterLat, CenterLon float64
	CenterHeightKM       float64
	RMWKM                float64
	VMaxMS               float64
	Levels               []float64 // heights in km to populate
}

// TangentialWind returns the Rankine vortex's tangential wind speed at
// radius rKM.
func (p RankineParams) TangentialWind(rKM float64) float64 {
	if rKM <= 0 {
		return 0
	}
	if rKM <= p.RMWKM {
		return p.VMaxMS * rKM / p.RMWKM
	}
	return p.VMaxMS * p.RMWKM / rKM
}

// BuildVolume renders a Rankine vortex onto a 200x200 1 km grid with a
// radar at the origin.
func BuildVolume(p RankineParams) *volume.GriddedVolume {
	radar := geo.Origin{Lat: 0, Lon: 0, AltKM: 0}
	dims := volume.Dims{I: 200, J: 200, K: len(p.Levels)}
	vol := volume.New(radar, 1, 1, 1, dims)

	centerCart := radar.ToCartesian(p.CenterLat, p.CenterLon, p.CenterHeightKM)
	// Grid index (100,100) sits at the vortex center cartesian offset.
	vol.GridOriginX = centerCart.X - 100*vol.DX
	vol.GridOriginY = centerCart.Y - 100*vol.DY
	vol.GridOriginZ = p.Levels[0]

	for k := range p.Levels {
		for j := 0; j < dims.J; j++ {
			for i := 0; i < dims.I; i++ {
				cell := vol.CartesianOf(i, j, k)
				dx, dy := cell.X-centerCart.X, cell.Y-centerCart.Y
				r := math.Hypot(dx, dy)
				if r == 0 {
					vol.Set("velocity", i, j, k, 0)
					continue
				}
				vt := p.TangentialWind(r)
				// Tangential unit vector (CCW): (-dy/r, dx/r). Radial
				// velocity toward the radar is the projection of the
				// wind vector onto the unit vector from the cell to
				// the radar origin.
				tx, ty := -dy/r, dx/r
				radarDX, radarDY := -cell.X, -cell.Y
				radarR := math.Hypot(radarDX, radarDY)
				var radial float64
				if radarR > 0 {
					ux, uy := radarDX/radarR, radarDY/radarR
					radial = -(vt*tx*ux + vt*ty*uy)
				}
				vol.Set("velocity", i, j, k, radial)
				vol.Set("reflectivity", i, j, k, 20)
			}
		}
	}
	_ = model.Sentinel
	return vol
}
