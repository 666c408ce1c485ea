package pressure

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vortrac/analysis/internal/geo"
	"github.com/vortrac/analysis/internal/model"
)

func TestSelectAnchorsFiltersByRMWDistanceAndAge(t *testing.T) {
	radar := geo.Origin{Lat: 25, Lon: -80, AltKM: 0}
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	obs := []model.PressureObservation{
		{StationID: "near-fresh", Lat: 25.1, Lon: -80.1, PressureHPa: 990, Time: now.Add(-10 * time.Minute)},
		{StationID: "inside-rmw", Lat: 25.01, Lon: -80.01, PressureHPa: 1000, Time: now.Add(-10 * time.Minute)},
		{StationID: "far", Lat: 27, Lon: -82, PressureHPa: 1005, Time: now.Add(-10 * time.Minute)},
		{StationID: "stale", Lat: 25.1, Lon: -80.1, PressureHPa: 995, Time: now.Add(-3 * time.Hour)},
		{StationID: "future", Lat: 25.1, Lon: -80.1, PressureHPa: 995, Time: now.Add(10 * time.Minute)},
	}

	cfg := EstimatorConfig{MaxObsAge: 30 * time.Minute, MaxObsDistKM: 50}
	anchors := SelectAnchors(obs, radar, 25, -80, 5, now, cfg)

	if len(anchors) != 1 || anchors[0].Obs.StationID != "near-fresh" {
		t.Fatalf("expected exactly the near-fresh anchor, got %+v", anchors)
	}
}

func profileFor(t *testing.T) RadialProfile {
	t.Helper()
	return RadialProfile{
		HeightKM:     2,
		RadiiKM:      []float64{10, 20, 30},
		TangentialMS: []float64{20, 40, 26.6667},
	}
}

func TestEstimateCentralPressureNoAnchorsUsesStandardEnvironment(t *testing.T) {
	profile := profileFor(t)
	cfg := EstimatorConfig{MaxObsAge: time.Hour, MaxObsDistKM: 30}

	got, err := EstimateCentralPressure(nil, profile, 0, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 1013 - got.DeficitHPa
	if got.PressureHPa != want {
		t.Errorf("PressureHPa = %v, want 1013 - deficit (%v)", got.PressureHPa, want)
	}
	if got.UncertaintyHPa != 5 {
		t.Errorf("UncertaintyHPa = %v, want 5", got.UncertaintyHPa)
	}
}

func TestEstimateCentralPressureSingleAnchorFixedUncertainty(t *testing.T) {
	profile := profileFor(t)
	cfg := EstimatorConfig{MaxObsAge: time.Hour, MaxObsDistKM: 30}
	anchors := []Anchor{{Obs: model.PressureObservation{PressureHPa: 1013}, DistanceKM: 30, AgeSeconds: 600}}

	got, err := EstimateCentralPressure(anchors, profile, 0, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 1013 - got.DeficitHPa
	if diff := got.PressureHPa - want; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("PressureHPa = %v, want %v", got.PressureHPa, want)
	}
	if got.UncertaintyHPa != 5 {
		t.Errorf("UncertaintyHPa = %v, want 5", got.UncertaintyHPa)
	}
}

func TestEstimateCentralPressureTwoAnchorsWeightedMeanAndVariance(t *testing.T) {
	profile := profileFor(t)
	cfg := EstimatorConfig{MaxObsAge: time.Hour, MaxObsDistKM: 30}
	anchors := []Anchor{
		{Obs: model.PressureObservation{PressureHPa: 1010}, DistanceKM: 30, AgeSeconds: 600},
		{Obs: model.PressureObservation{PressureHPa: 1012}, DistanceKM: 30, AgeSeconds: 3000},
	}

	got, err := EstimateCentralPressure(anchors, profile, 0, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PressureHPa <= 1010-got.DeficitHPa || got.PressureHPa >= 1012-got.DeficitHPa {
		t.Errorf("weighted mean %v should fall strictly between the two anchor estimates", got.PressureHPa)
	}
	if got.UncertaintyHPa <= 0 {
		t.Errorf("expected a positive weighted variance with two diverging anchors, got %v", got.UncertaintyHPa)
	}
}

func TestEstimateCentralPressureRejectsMismatchedProfile(t *testing.T) {
	profile := RadialProfile{RadiiKM: []float64{10, 20}, TangentialMS: []float64{1}}
	if _, err := EstimateCentralPressure(nil, profile, 0, EstimatorConfig{MaxObsDistKM: 30}); err == nil {
		t.Fatalf("expected error for mismatched profile slices")
	}
}

func TestEstimateUncertaintyZeroWhenComputeConstant(t *testing.T) {
	compute := func(dxKM, dyKM float64) (float64, error) { return 985.0, nil }
	got, err := EstimateUncertainty(context.Background(), 985.0, 2, true, EstimatorConfig{CenterStdFloorKM: 1.5}, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("uncertainty = %v, want 0 when every perturbed sample equals the nominal pressure", got)
	}
}

func TestEstimateUncertaintyIsAbsoluteDifferenceFromNominal(t *testing.T) {
	compute := func(dxKM, dyKM float64) (float64, error) { return 985.0 + dxKM + dyKM, nil }
	got, err := EstimateUncertainty(context.Background(), 985.0, 2, true, EstimatorConfig{CenterStdFloorKM: 1.5}, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Offsets are +-std along each axis, so the perturbed mean equals the
	// nominal value and the uncertainty collapses to zero.
	if got != 0 {
		t.Errorf("uncertainty = %v, want 0 for symmetric offsets", got)
	}
}

func TestEstimateUncertaintyLimitedAppliesFloor(t *testing.T) {
	var mu sync.Mutex
	var sawStd float64
	compute := func(dxKM, dyKM float64) (float64, error) {
		if dxKM != 0 {
			abs := dxKM
			if abs < 0 {
				abs = -abs
			}
			mu.Lock()
			sawStd = abs
			mu.Unlock()
		}
		return 985.0, nil
	}
	if _, err := EstimateUncertainty(context.Background(), 985.0, 0.2, true, EstimatorConfig{CenterStdFloorKM: 1.5}, compute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if sawStd != 1.5 {
		t.Errorf("expected the 1.5 km floor to apply when centerStd=0.2, saw offset %v", sawStd)
	}
}

func TestEstimateUncertaintyUnlimitedSkipsFloor(t *testing.T) {
	var mu sync.Mutex
	var sawStd float64
	compute := func(dxKM, dyKM float64) (float64, error) {
		if dxKM != 0 {
			abs := dxKM
			if abs < 0 {
				abs = -abs
			}
			mu.Lock()
			sawStd = abs
			mu.Unlock()
		}
		return 985.0, nil
	}
	if _, err := EstimateUncertainty(context.Background(), 985.0, 0.2, false, EstimatorConfig{CenterStdFloorKM: 1.5}, compute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if sawStd != 0.2 {
		t.Errorf("expected the unfloored 0.2 km offset, saw %v", sawStd)
	}
}

func TestEstimateUncertaintyAllFailuresError(t *testing.T) {
	compute := func(dxKM, dyKM float64) (float64, error) { return 0, fmt.Errorf("boom") }
	if _, err := EstimateUncertainty(context.Background(), 985.0, 2, true, EstimatorConfig{CenterStdFloorKM: 1.5}, compute); err == nil {
		t.Fatalf("expected error when every perturbation sample fails")
	}
}
