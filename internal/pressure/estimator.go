package pressure

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	gostats "github.com/GaryBoone/GoStats/stats"
	"golang.org/x/sync/errgroup"

	"github.com/vortrac/analysis/internal/geo"
	"github.com/vortrac/analysis/internal/model"
)

// EstimatorConfig carries the anchor-selection limits and perturbation
// floor, mirroring VortexThread's pressure.maxobstime/maxobsdist keys.
type EstimatorConfig struct {
	MaxObsAge        time.Duration
	MaxObsDistKM     float64 // maxObRadius
	CenterStdFloorKM float64
}

// Anchor is a surface pressure observation accepted by SelectAnchors.
type Anchor struct {
	Obs        model.PressureObservation
	DistanceKM float64
	AgeSeconds float64
}

// SelectAnchors keeps observations strictly in the past of at and within
// [rmwKM, cfg.MaxObsDistKM] of (centerLat, centerLon), mirroring
// VortexThread::calcCentralPressure's anchor loop: an ob exactly at or
// after the analysis time, or outside the RMW/maxObRadius annulus, is
// rejected.
func SelectAnchors(obs []model.PressureObservation, radar geo.Origin, centerLat, centerLon, rmwKM float64, at time.Time, cfg EstimatorConfig) []Anchor {
	center := radar.ToCartesian(centerLat, centerLon, 0)

	var anchors []Anchor
	for _, o := range obs {
		age := at.Sub(o.Time)
		if age <= 0 || age > cfg.MaxObsAge {
			continue
		}
		p := radar.ToCartesian(o.Lat, o.Lon, 0)
		dist := math.Hypot(p.X-center.X, p.Y-center.Y)
		if dist < rmwKM || dist > cfg.MaxObsDistKM {
			continue
		}
		anchors = append(anchors, Anchor{Obs: o, DistanceKM: dist, AgeSeconds: age.Seconds()})
	}
	return anchors
}

// CentralPressureEstimate is the outcome of combining a radial pressure
// deficit profile with zero, one, or many surface pressure anchors.
type CentralPressureEstimate struct {
	PressureHPa    float64
	UncertaintyHPa float64 // fixed 5 hPa below two anchors; weighted variance at two or more
	DeficitHPa     float64 // p'(lastRing) - p'(firstRing), hPa
}

// EstimateCentralPressure combines anchors with profile's gradient-wind
// deficit into a central pressure, mirroring
// VortexThread::calcCentralPressure. Each anchor's own estimate is
//
//	cp_i = pressure_i - (p'(min(R_i,lastRing)) - p'(firstRing))
//
// weighted by
//
//	w_i = 1/2 * ((maxobstime-dt_i)/maxobstime + (maxObRadius-R_i)/maxObRadius)
//
// Two or more anchors combine to a weighted mean with the weighted
// variance Sum(w_i*(cp_i-cp)^2) / (wbar*(n-1)) as uncertainty; exactly
// one anchor reduces the weighted mean to that anchor's own estimate
// with a fixed 5 hPa uncertainty; zero anchors fall back to the
// standard 1013 hPa environment, also with 5 hPa uncertainty.
func EstimateCentralPressure(anchors []Anchor, profile RadialProfile, latDeg float64, cfg EstimatorConfig) (CentralPressureEstimate, error) {
	cum, err := IntegrateCumulativePa(profile, latDeg)
	if err != nil {
		return CentralPressureEstimate{}, err
	}
	firstRing := profile.RadiiKM[0]
	lastRing := profile.RadiiKM[len(profile.RadiiKM)-1]
	deficitHPa := (cum[len(cum)-1] - cum[0]) / 100

	deficitAtHPa := func(radiusKM float64) float64 {
		r := radiusKM
		if r > lastRing {
			r = lastRing
		}
		if r <= firstRing {
			return 0
		}
		return (interpolateCum(profile.RadiiKM, cum, r) - cum[0]) / 100
	}

	if len(anchors) == 0 {
		return CentralPressureEstimate{
			PressureHPa:    1013 - deficitHPa,
			UncertaintyHPa: 5,
			DeficitHPa:     deficitHPa,
		}, nil
	}

	maxObsTimeSeconds := cfg.MaxObsAge.Seconds()
	maxObRadius := cfg.MaxObsDistKM

	type weightedEstimate struct{ cp, weight float64 }
	samples := make([]weightedEstimate, 0, len(anchors))
	var pressWeight, pressSum float64
	for _, a := range anchors {
		cp := a.Obs.PressureHPa - deficitAtHPa(a.DistanceKM)
		timeTerm := (maxObsTimeSeconds - a.AgeSeconds) / maxObsTimeSeconds
		distTerm := (maxObRadius - a.DistanceKM) / maxObRadius
		w := 0.5 * (timeTerm + distTerm)
		samples = append(samples, weightedEstimate{cp: cp, weight: w})
		pressWeight += w
		pressSum += w * cp
	}
	avgPressure := pressSum / pressWeight

	if len(samples) == 1 {
		return CentralPressureEstimate{
			PressureHPa:    avgPressure,
			UncertaintyHPa: 5,
			DeficitHPa:     deficitHPa,
		}, nil
	}

	avgWeight := pressWeight / float64(len(samples))
	var sumSq float64
	for _, s := range samples {
		d := s.cp - avgPressure
		sumSq += s.weight * d * d
	}
	variance := sumSq / (avgWeight * float64(len(samples)-1))

	return CentralPressureEstimate{
		PressureHPa:    avgPressure,
		UncertaintyHPa: variance,
		DeficitHPa:     deficitHPa,
	}, nil
}

// interpolateCum linearly interpolates cum at radiusKM against the
// non-decreasing radii slice, clamping to the nearest sample outside
// radii's range.
func interpolateCum(radii, cum []float64, radiusKM float64) float64 {
	if radiusKM <= radii[0] {
		return cum[0]
	}
	for i := 1; i < len(radii); i++ {
		if radiusKM <= radii[i] {
			r0, r1 := radii[i-1], radii[i]
			if r1 == r0 {
				return cum[i]
			}
			frac := (radiusKM - r0) / (r1 - r0)
			return cum[i-1] + frac*(cum[i]-cum[i-1])
		}
	}
	return cum[len(cum)-1]
}

// ErrPerturbationFailed is returned when every one of the four
// center-perturbation samples failed to compute.
var ErrPerturbationFailed = fmt.Errorf("pressure: all perturbation samples failed")

// EstimateUncertainty refines nominalHPa by recomputing the central
// pressure at four points offset by the fit's center-position standard
// deviation along each cartesian axis, following
// VortexThread::calcPressureUncertainty. When limited is true the
// offset is floored at cfg.CenterStdFloorKM, the "CenterStdPresErr"
// pass; when false the raw center standard deviation is used
// unfloored, the "FlatPresErr" pass. The returned uncertainty is
// |mean(perturbed cp) - nominalHPa|. The four offsets are independent
// of each other, so computeAtOffset is fanned out concurrently.
func EstimateUncertainty(ctx context.Context, nominalHPa, centerStdKM float64, limited bool, cfg EstimatorConfig, computeAtOffset func(dxKM, dyKM float64) (float64, error)) (float64, error) {
	std := centerStdKM
	if limited && std < cfg.CenterStdFloorKM {
		std = cfg.CenterStdFloorKM
	}

	offsets := [4][2]float64{{std, 0}, {-std, 0}, {0, std}, {0, -std}}

	var mu sync.Mutex
	var acc gostats.Stats
	g, _ := errgroup.WithContext(ctx)
	for _, o := range offsets {
		g.Go(func() error {
			v, err := computeAtOffset(o[0], o[1])
			if err != nil {
				return nil
			}
			mu.Lock()
			acc.Update(v)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if acc.Count() == 0 {
		return 0, ErrPerturbationFailed
	}
	return math.Abs(acc.Mean() - nominalHPa), nil
}
