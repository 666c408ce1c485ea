// Package pressure implements the gradient-wind pressure integrator and
// central pressure estimator, grounded on VortexThread::getPressureDeficit
// and VortexThread::calcCentralPressure from the classic VORTRAC pressure
// module.
package pressure

import (
	"fmt"

	"github.com/vortrac/analysis/internal/geo"
)

// densityTable is VortexThread's rhoBar table (Pa/m), indexed by
// integer height in km, 0 through 15: not standard-atmosphere air
// density, but the pre-tabulated gradient-wind scaling constant the
// legacy pressure integrator was calibrated against.
var densityTable = [16]float64{
	10.672, 9.703, 8.792, 7.955, 7.183, 6.467, 5.817, 5.227,
	4.689, 4.207, 3.8, 3.3, 2.9, 2.6, 2.2, 1.8,
}

// DensityAt interpolates densityTable at heightKM, clamping to the
// table's [0, 15] km range.
func DensityAt(heightKM float64) float64 {
	if heightKM <= 0 {
		return densityTable[0]
	}
	if heightKM >= 15 {
		return densityTable[15]
	}
	lo := int(heightKM)
	frac := heightKM - float64(lo)
	return densityTable[lo]*(1-frac) + densityTable[lo+1]*frac
}

// RadialProfile is one analysis level's tangential wind, sampled at an
// increasing sequence of radii starting near the center.
type RadialProfile struct {
	HeightKM     float64
	RadiiKM      []float64
	TangentialMS []float64 // parallel to RadiiKM, radial-mean |VTC0| at each radius
}

// IntegrateCumulativePa trapezoidally integrates the gradient-wind
// relation dP/dr = rho*(Vt^2/r + f*Vt) outward from the first radius in
// the profile, returning the running pressure rise (Pa) at each radius.
// cum[0] is always 0; cum is non-decreasing whenever TangentialMS is
// non-negative and latDeg >= 0, since the integrand is then
// non-negative everywhere (south of the equator f < 0 and a weak wind
// can make it negative).
func IntegrateCumulativePa(p RadialProfile, latDeg float64) ([]float64, error) {
	if len(p.RadiiKM) != len(p.TangentialMS) {
		return nil, fmt.Errorf("pressure: radii and tangential wind length mismatch (%d vs %d)", len(p.RadiiKM), len(p.TangentialMS))
	}
	if len(p.RadiiKM) < 2 {
		return nil, fmt.Errorf("pressure: need at least 2 radii to integrate, got %d", len(p.RadiiKM))
	}

	f := geo.CoriolisParameter(latDeg)
	rho := DensityAt(p.HeightKM)

	integrand := func(i int) float64 {
		rM := p.RadiiKM[i] * 1000
		v := p.TangentialMS[i]
		if rM <= 0 {
			return 0
		}
		return rho * (v*v/rM + f*v)
	}

	cum := make([]float64, len(p.RadiiKM))
	for i := 1; i < len(p.RadiiKM); i++ {
		drM := (p.RadiiKM[i] - p.RadiiKM[i-1]) * 1000
		if drM < 0 {
			return nil, fmt.Errorf("pressure: radii must be non-decreasing, got %v before %v", p.RadiiKM[i-1], p.RadiiKM[i])
		}
		avg := (integrand(i) + integrand(i-1)) / 2
		cum[i] = cum[i-1] + avg*drM
	}
	return cum, nil
}

// IntegrateDeficitPa returns the total pressure rise (Pa) from the
// profile's innermost to outermost radius.
func IntegrateDeficitPa(p RadialProfile, latDeg float64) (float64, error) {
	cum, err := IntegrateCumulativePa(p, latDeg)
	if err != nil {
		return 0, err
	}
	return cum[len(cum)-1], nil
}
