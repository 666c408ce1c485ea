// Package hvvp implements the cross-beam environmental wind estimator:
// a sector fit of radial velocity against range that recovers the
// storm-relative environmental wind VortexThread's calcHVVP delegates
// to, used either as a diagnostic or to correct the GBVTD wavenumber-1
// tangential coefficient under the "original+hvvp" closure.
package hvvp

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/vortrac/analysis/internal/geo"
	"github.com/vortrac/analysis/internal/numeric"
)

// Source samples a radar-relative sector of radial velocity.
type Source interface {
	RadialSector(field string, azimuthCenterDeg, sectorWidthDeg, heightKM, minRangeKM, maxRangeKM float64) (ranges, values []float64)
}

// Config controls the sector fit.
type Config struct {
	Field        string
	SectorWidthDeg float64
	MinRangeKM   float64
	MaxRangeKM   float64
	MinSamples   int
}

// Result is the environmental wind estimate at one height and downwind
// azimuth.
type Result struct {
	MeanMS       float64 // the along-sector environmental wind component
	DirectionDeg float64 // the sector's center azimuth
	Slope        float64 // d(radial velocity)/d(range), diagnostic
	SampleCount  int
	Valid        bool
}

// Estimate regresses radial velocity against range within a sector
// centered on azimuthCenterDeg (typically the storm's downwind
// direction) and returns the sector's mean environmental wind.
func Estimate(src Source, azimuthCenterDeg, heightKM float64, cfg Config) (Result, error) {
	ranges, values := src.RadialSector(cfg.Field, azimuthCenterDeg, cfg.SectorWidthDeg, heightKM, cfg.MinRangeKM, cfg.MaxRangeKM)
	n := len(ranges)
	if n < cfg.MinSamples {
		return Result{DirectionDeg: azimuthCenterDeg}, fmt.Errorf("hvvp: %d samples in sector, need at least %d", n, cfg.MinSamples)
	}

	x := make([][]float64, n)
	for i, r := range ranges {
		x[i] = []float64{1, r}
	}

	fit, err := numeric.WeightedLLS(x, values, nil)
	if err != nil {
		return Result{DirectionDeg: azimuthCenterDeg}, fmt.Errorf("hvvp: %w", err)
	}

	mean, err := stats.Mean(stats.Float64Data(values))
	if err != nil {
		return Result{DirectionDeg: azimuthCenterDeg}, fmt.Errorf("hvvp: %w", err)
	}

	return Result{
		MeanMS:       mean,
		DirectionDeg: azimuthCenterDeg,
		Slope:        fit.Beta[1],
		SampleCount:  n,
		Valid:        true,
	}, nil
}

// DownwindAzimuth returns the azimuth pointing from the storm center
// toward the radar's downwind side, the direction VortexThread's
// calcHVVP aims the sector along: directly away from the radar's
// bearing to the storm, rotated 180 degrees.
func DownwindAzimuth(radarBearingToCenterDeg float64) float64 {
	az := radarBearingToCenterDeg + 180
	for az >= 360 {
		az -= 360
	}
	for az < 0 {
		az += 360
	}
	return az
}

// BearingDeg returns the meteorological bearing from the radar to a
// cartesian point.
func BearingDeg(p geo.Point) float64 {
	return geo.MathToMeteorologicalAngle(math.Atan2(p.Y, p.X))
}
