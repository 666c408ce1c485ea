// Package center implements the circulation center finder: a
// Nelder-Mead search over candidate centers that maximizes the mean
// axisymmetric tangential wind GBVTD recovers on a band of rings,
// the simplex approach VORTRAC's SimplexCenterFinder/VTD coordinator
// uses to locate the storm center at each analysis level.
package center

import (
	"math"

	"github.com/vortrac/analysis/internal/geo"
	"github.com/vortrac/analysis/internal/model"
	"github.com/vortrac/analysis/internal/numeric"
	"github.com/vortrac/analysis/internal/vtd"
	"github.com/vortrac/analysis/internal/volume"
)

// RingSource samples the radial-velocity field around a candidate
// center so the center finder can stay independent of GriddedVolume's
// concrete storage. A *volume.GriddedVolume with a reference point set
// at the candidate satisfies this directly.
type RingSource interface {
	CylindricalAzimuthLength(field string, radiusKM, heightKM float64) int
	CylindricalAzimuthData(field string, radiusKM, heightKM float64, values, azimuths []float64)
}

// Config controls one level's center search.
type Config struct {
	VTDConfig    vtd.Config
	FirstRingKM  float64
	LastRingKM   float64
	RingWidthKM  float64
	VelocityField string
	SimplexStep  float64 // km, initial simplex edge length
	Simplex      numeric.SimplexConfig
}

// Result is one level's center-finding outcome.
type Result struct {
	Lat, Lon    float64
	HeightKM    float64
	RMWKM       float64
	CenterStdKM float64
	OutOfBounds bool
	MeanVTC0    float64
	Iterations  int
}

// volumeAt abstracts the part of GriddedVolume the search mutates:
// moving the reference point to each candidate center it tries.
type volumeAt interface {
	RingSource
	SetAbsoluteReferencePoint(lat, lon, heightKM float64)
	RefPointI() int
	CartesianRefPoint() (x, y float64)
}

// FindCenter searches for the circulation center at heightKM, seeded at
// (seedLat, seedLon), within vol.
func FindCenter(vol *volume.GriddedVolume, radar geo.Origin, heightKM, seedLat, seedLon float64, cfg Config) Result {
	return findCenter(vol, radar, heightKM, seedLat, seedLon, cfg)
}

func findCenter(vol volumeAt, radar geo.Origin, heightKM, seedLat, seedLon float64, cfg Config) Result {
	seed := radar.ToCartesian(seedLat, seedLon, heightKM)

	var lastRMW, lastMean float64
	var lastOOB bool

	objective := func(x, y float64) float64 {
		lat, lon := radar.ToGeodetic(geo.Point{X: x, Y: y, Z: heightKM})
		vol.SetAbsoluteReferencePoint(lat, lon, heightKM)

		if vol.RefPointI() < 0 {
			lastOOB = true
			return 1e9
		}
		lastOOB = false

		sum, n := 0.0, 0
		bestRadius, bestWind := 0.0, -1.0
		for r := cfg.FirstRingKM; r <= cfg.LastRingKM; r += cfg.RingWidthKM {
			ringLen := vol.CylindricalAzimuthLength(cfg.VelocityField, r, heightKM)
			if ringLen < 4 {
				continue
			}
			values := make([]float64, ringLen)
			azimuths := make([]float64, ringLen)
			vol.CylindricalAzimuthData(cfg.VelocityField, r, heightKM, values, azimuths)

			samples := make([]vtd.Sample, ringLen)
			for i := range values {
				samples[i] = vtd.Sample{AzimuthDeg: azimuths[i], Velocity: values[i]}
			}

			xc, yc := vol.CartesianRefPoint()
			ring := vtd.AnalyzeRing(xc, yc, r, 0, samples, cfg.VTDConfig)
			if ring.Failed {
				continue
			}
			vtc0 := ring.Coefficients[0].Value
			sum += math.Abs(vtc0)
			n++
			if math.Abs(vtc0) > bestWind {
				bestWind = math.Abs(vtc0)
				bestRadius = r
			}
		}

		if n == 0 {
			return 1e9
		}
		mean := sum / float64(n)
		lastMean, lastRMW = mean, bestRadius
		return -mean
	}

	res := numeric.MinimizeSimplex(objective, seed.X, seed.Y, cfg.SimplexStep, cfg.Simplex)

	// Re-evaluate once at the winning vertex so lastMean/lastRMW/lastOOB
	// reflect the reported center, not whichever vertex the search last
	// visited.
	objective(res.X, res.Y)

	lat, lon := radar.ToGeodetic(geo.Point{X: res.X, Y: res.Y, Z: heightKM})
	return Result{
		Lat:         lat,
		Lon:         lon,
		HeightKM:    heightKM,
		RMWKM:       lastRMW,
		CenterStdKM: res.Spread,
		OutOfBounds: lastOOB,
		MeanVTC0:    lastMean,
		Iterations:  res.Iterations,
	}
}

// ToLevelCenter adapts a Result into the model's per-level record.
func (r Result) ToLevelCenter() model.LevelCenter {
	return model.LevelCenter{
		HeightKM:    r.HeightKM,
		Lat:         r.Lat,
		Lon:         r.Lon,
		RMWKM:       r.RMWKM,
		CenterStdKM: r.CenterStdKM,
		OutOfBounds: r.OutOfBounds,
	}
}
