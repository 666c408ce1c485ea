package model

import (
	"testing"
	"time"
)

func TestVortexSeriesAppendRejectsNonMonotonic(t *testing.T) {
	var s VortexSeries
	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s.Append(VortexRecord{Time: t0})

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic appending an earlier timestamp")
		}
	}()
	s.Append(VortexRecord{Time: t0.Add(-time.Minute)})
}

func TestVortexSeriesLastAndLen(t *testing.T) {
	var s VortexSeries
	if _, ok := s.Last(); ok {
		t.Fatalf("expected Last to report false on an empty series")
	}

	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s.Append(VortexRecord{Time: t0, PressureHPa: 990})
	s.Append(VortexRecord{Time: t0.Add(time.Minute), PressureHPa: 985})

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	last, ok := s.Last()
	if !ok || last.PressureHPa != 985 {
		t.Fatalf("Last() = %+v, %v; want PressureHPa 985, true", last, ok)
	}
}

func TestLevelWindsLookup(t *testing.T) {
	lw := LevelWinds{
		FirstRingKM: 10,
		RingWidthKM: 10,
		Coeffs: [][]Coefficient{
			{{Level: 0, RadiusKM: 10, Parameter: ParamVTC0, Value: 25}},
			{{Level: 0, RadiusKM: 20, Parameter: ParamVTC0, Value: 30}},
		},
	}

	c, ok := lw.Lookup(20, ParamVTC0)
	if !ok || c.Value != 30 {
		t.Fatalf("Lookup(20, VTC0) = %+v, %v; want Value 30, true", c, ok)
	}

	if _, ok := lw.Lookup(20, ParamVRC0); ok {
		t.Fatalf("expected no VRC0 coefficient at radius 20")
	}
	if _, ok := lw.Lookup(100, ParamVTC0); ok {
		t.Fatalf("expected lookup beyond the tensor to report false")
	}
}

func TestWavenumberParamNaming(t *testing.T) {
	if got := WavenumberCosParam(3); got != "VTC3" {
		t.Errorf("WavenumberCosParam(3) = %v, want VTC3", got)
	}
	if got := WavenumberSinParam(4); got != "VTS4" {
		t.Errorf("WavenumberSinParam(4) = %v, want VTS4", got)
	}
}

func TestCoefficientIsDefault(t *testing.T) {
	c := NewDefaultCoefficient(0, 10, ParamVTC0)
	if !c.IsDefault() {
		t.Errorf("expected a freshly defaulted coefficient to report IsDefault")
	}
	c.Value = 5
	if c.IsDefault() {
		t.Errorf("expected a coefficient with a real value to not report IsDefault")
	}
}
