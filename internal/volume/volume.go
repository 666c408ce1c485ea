// Package volume implements the GriddedVolume adapter: cylindrical
// sampling around a reference point on a dense 3-D Cartesian grid, per
// the radar.
package volume

import (
	"math"

	"github.com/vortrac/analysis/internal/geo"
	"github.com/vortrac/analysis/internal/model"
)

// Dims is the (I, J, K) shape of a GriddedVolume.
type Dims struct{ I, J, K int }

// GriddedVolume is a rectangular 3-D field on axis-aligned spacing,
// storing at least reflectivity and radial-velocity scalars per cell.
// A GriddedVolume is owned exclusively by the caller for the lifetime
// of one volume's analysis; it must not be retained past that scope by
// any component that borrows it.
type GriddedVolume struct {
	Radar geo.Origin // the frame's origin

	DX, DY, DZ float64 // km
	Dims       Dims

	// GridOrigin is the cartesian offset of grid index (0,0,0) from the
	// radar, km.
	GridOriginX, GridOriginY, GridOriginZ float64

	fields map[string][]float64 // flattened i + j*I + k*I*J

	refI, refJ, refK int
	refX, refY       float64 // cartesian offset of the reference point from the radar
	refValid         bool
}

// New allocates a GriddedVolume with the given dimensions and spacing,
// with all cells defaulted to the missing-value sentinel.
func New(radar geo.Origin, dx, dy, dz float64, dims Dims) *GriddedVolume {
	return &GriddedVolume{
		Radar:  radar,
		DX:     dx,
		DY:     dy,
		DZ:     dz,
		Dims:   dims,
		fields: make(map[string][]float64),
	}
}

// Field returns the dense backing slice for a field, allocating it
// (sentinel-filled) on first use.
func (g *GriddedVolume) Field(name string) []float64 {
	f, ok := g.fields[name]
	if !ok {
		n := g.Dims.I * g.Dims.J * g.Dims.K
		f = make([]float64, n)
		for i := range f {
			f[i] = model.Sentinel
		}
		g.fields[name] = f
	}
	return f
}

func (g *GriddedVolume) index(i, j, k int) int {
	return i + j*g.Dims.I + k*g.Dims.I*g.Dims.J
}

// InBounds reports whether (i, j, k) addresses a real cell.
func (g *GriddedVolume) InBounds(i, j, k int) bool {
	return i >= 0 && i < g.Dims.I && j >= 0 && j < g.Dims.J && k >= 0 && k < g.Dims.K
}

// Set stores a value for the named field at (i, j, k).
func (g *GriddedVolume) Set(name string, i, j, k int, value float64) {
	g.Field(name)[g.index(i, j, k)] = value
}

// Get reads a value for the named field at (i, j, k).
func (g *GriddedVolume) Get(name string, i, j, k int) float64 {
	if !g.InBounds(i, j, k) {
		return model.Sentinel
	}
	return g.Field(name)[g.index(i, j, k)]
}

// CartesianOf returns the cell-center cartesian offset from the radar
// for grid index (i, j, k).
func (g *GriddedVolume) CartesianOf(i, j, k int) geo.Point {
	return geo.Point{
		X: g.GridOriginX + float64(i)*g.DX,
		Y: g.GridOriginY + float64(j)*g.DY,
		Z: g.GridOriginZ + float64(k)*g.DZ,
	}
}

// IndexOfHeight returns the level index whose cell-center Z is closest
// to heightKM.
func (g *GriddedVolume) IndexOfHeight(heightKM float64) int {
	k := int(math.Round((heightKM - g.GridOriginZ) / g.DZ))
	return k
}

// SetAbsoluteReferencePoint sets the sampling reference point from a
// geodetic position, recording its cartesian offset from the radar and
// its nearest grid index. If the resulting index falls outside the
// grid, RefPointI/J/K report -1 and the volume is left unsampled there.
func (g *GriddedVolume) SetAbsoluteReferencePoint(lat, lon, heightKM float64) {
	p := g.Radar.ToCartesian(lat, lon, heightKM)
	g.refX, g.refY = p.X, p.Y

	i := int(math.Round((p.X - g.GridOriginX) / g.DX))
	j := int(math.Round((p.Y - g.GridOriginY) / g.DY))
	k := g.IndexOfHeight(heightKM)

	if g.InBounds(i, j, k) {
		g.refI, g.refJ, g.refK = i, j, k
		g.refValid = true
	} else {
		g.refI, g.refJ, g.refK = -1, -1, -1
		g.refValid = false
	}
}

// RefPointI, RefPointJ, RefPointK report the reference point's nearest
// grid indices, or -1 if the last SetAbsoluteReferencePoint call was
// out of bounds.
func (g *GriddedVolume) RefPointI() int { return g.refI }
func (g *GriddedVolume) RefPointJ() int { return g.refJ }
func (g *GriddedVolume) RefPointK() int { return g.refK }

// CartesianRefPoint returns the reference point's exact cartesian
// offset from the radar (not snapped to the grid), the xCenter/yCenter
// GBVTD's ring geometry uses.
func (g *GriddedVolume) CartesianRefPoint() (x, y float64) { return g.refX, g.refY }

// ringCell is one grid cell captured by a cylindrical sample.
type ringCell struct {
	azimuthDeg float64 // meteorological convention, degrees CW from north
	value      float64
}

// cylindricalCells returns, in a deterministic scan order, every cell
// at level H whose horizontal distance from the reference point falls
// in [R-0.5, R+0.5).
func (g *GriddedVolume) cylindricalCells(field string, radiusKM, heightKM float64) []ringCell {
	if !g.refValid {
		return nil
	}
	k := g.IndexOfHeight(heightKM)
	if k < 0 || k >= g.Dims.K {
		return nil
	}

	lo, hi := radiusKM-0.5, radiusKM+0.5
	data := g.Field(field)

	var cells []ringCell
	for j := 0; j < g.Dims.J; j++ {
		for i := 0; i < g.Dims.I; i++ {
			p := g.CartesianOf(i, j, k)
			dx, dy := p.X-g.refX, p.Y-g.refY
			r := math.Hypot(dx, dy)
			if r < lo || r >= hi {
				continue
			}
			// The azimuth is measured at the reference point the ring
			// is centered on: GBVTD's ring geometry places each sample
			// at center + R*(cos, sin) of this angle before applying
			// its thetaT correction.
			mathAngle := math.Atan2(dy, dx)
			azimuth := geo.MathToMeteorologicalAngle(mathAngle)
			cells = append(cells, ringCell{azimuthDeg: azimuth, value: data[g.index(i, j, k)]})
		}
	}
	return cells
}

// CylindricalAzimuthLength returns n(R, H): the count of grid cells on
// the ring at radius R, height H.
func (g *GriddedVolume) CylindricalAzimuthLength(field string, radiusKM, heightKM float64) int {
	return len(g.cylindricalCells(field, radiusKM, heightKM))
}

// CylindricalAzimuthData fills values with the ring's data values and
// azimuths with the corresponding meteorological-convention azimuths
// (degrees CW from north), in the same order. Both slices must have
// length CylindricalAzimuthLength(field, radiusKM, heightKM).
func (g *GriddedVolume) CylindricalAzimuthData(field string, radiusKM, heightKM float64, values, azimuths []float64) {
	cells := g.cylindricalCells(field, radiusKM, heightKM)
	for idx, c := range cells {
		values[idx] = c.value
		azimuths[idx] = c.azimuthDeg
	}
}

// RadialSector returns, in a deterministic scan order, the (range, value)
// pairs of every non-sentinel cell at level H whose radar-relative
// azimuth falls within sectorWidthDeg/2 of azimuthCenterDeg (both
// meteorological convention) and whose range from the radar falls in
// [minRangeKM, maxRangeKM]. This is the cross-beam sector HVVP regresses
// radial velocity against range over.
func (g *GriddedVolume) RadialSector(field string, azimuthCenterDeg, sectorWidthDeg, heightKM, minRangeKM, maxRangeKM float64) (ranges, values []float64) {
	k := g.IndexOfHeight(heightKM)
	if k < 0 || k >= g.Dims.K {
		return nil, nil
	}
	data := g.Field(field)
	half := sectorWidthDeg / 2

	for j := 0; j < g.Dims.J; j++ {
		for i := 0; i < g.Dims.I; i++ {
			p := g.CartesianOf(i, j, k)
			r := math.Hypot(p.X, p.Y)
			if r < minRangeKM || r > maxRangeKM {
				continue
			}
			v := data[g.index(i, j, k)]
			if v == model.Sentinel {
				continue
			}
			az := geo.MathToMeteorologicalAngle(math.Atan2(p.Y, p.X))
			diff := math.Abs(geo.Wrap((az - azimuthCenterDeg) * geo.Deg2Rad))
			if diff*geo.Rad2Deg > half {
				continue
			}
			ranges = append(ranges, r)
			values = append(values, v)
		}
	}
	return ranges, values
}
