package pressure

import "testing"

func TestIntegrateCumulativeMonotonicNonDecreasing(t *testing.T) {
	profile := RadialProfile{
		HeightKM:     3,
		RadiiKM:      []float64{5, 10, 15, 20, 25, 30, 40, 50},
		TangentialMS: []float64{0, 15, 35, 40, 32, 20, 10, 4},
	}

	cum, err := IntegrateCumulativePa(profile, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(cum); i++ {
		if cum[i] < cum[i-1] {
			t.Errorf("cumulative deficit decreased at index %d: %v -> %v", i, cum[i-1], cum[i])
		}
	}
	if cum[0] != 0 {
		t.Errorf("cum[0] = %v, want 0", cum[0])
	}
}

func TestIntegrateDeficitZeroWindIsZero(t *testing.T) {
	profile := RadialProfile{
		HeightKM:     2,
		RadiiKM:      []float64{5, 10, 20, 40},
		TangentialMS: []float64{0, 0, 0, 0},
	}
	deficit, err := IntegrateDeficitPa(profile, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deficit != 0 {
		t.Errorf("deficit = %v, want 0 for zero tangential wind everywhere", deficit)
	}
}

func TestIntegrateCumulativeRejectsMismatchedLengths(t *testing.T) {
	profile := RadialProfile{RadiiKM: []float64{1, 2}, TangentialMS: []float64{1}}
	if _, err := IntegrateCumulativePa(profile, 20); err == nil {
		t.Fatalf("expected error for mismatched slice lengths")
	}
}

func TestDensityAtClampsAndInterpolates(t *testing.T) {
	if DensityAt(-5) != densityTable[0] {
		t.Errorf("DensityAt(-5) should clamp to surface value")
	}
	if DensityAt(20) != densityTable[15] {
		t.Errorf("DensityAt(20) should clamp to table top")
	}
	mid := DensityAt(0.5)
	if mid >= densityTable[0] || mid <= densityTable[1] {
		t.Errorf("DensityAt(0.5) = %v, want strictly between table[0] and table[1]", mid)
	}
}
