// Package model holds the data types shared across the analysis core:
// Coefficient, VortexRecord, VortexSeries, and PressureObservation, per
// the analysis data model.
package model

import "time"

// Sentinel is the missing-value marker used at the dense numeric layer.
// It must never be produced by a valid measurement; callers check for
// it explicitly rather than treating zero as absent.
const Sentinel = -999.0

// Param names a wind coefficient slot. The set is open-ended for
// wavenumbers above 2 (VTCk/VTSk), so Param is a string rather than a
// closed enum.
type Param string

const (
	ParamVTC0 Param = "VTC0"
	ParamVRC0 Param = "VRC0"
	ParamVMC0 Param = "VMC0"
	ParamVTS1 Param = "VTS1"
	ParamVTC1 Param = "VTC1"
	ParamVTS2 Param = "VTS2"
	ParamVTC2 Param = "VTC2"
)

// WavenumberCosParam and WavenumberSinParam return the VTCk and VTSk
// parameter names for wavenumber k >= 2.
func WavenumberCosParam(k int) Param { return Param(paramName("VTC", k)) }
func WavenumberSinParam(k int) Param { return Param(paramName("VTS", k)) }

func paramName(prefix string, k int) string {
	return prefix + itoa(k)
}

func itoa(k int) string {
	if k == 0 {
		return "0"
	}
	neg := k < 0
	if neg {
		k = -k
	}
	var buf [8]byte
	i := len(buf)
	for k > 0 {
		i--
		buf[i] = byte('0' + k%10)
		k /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Coefficient is a single (level, radius, parameter) wind value.
// Equality is by all fields. The default coefficient is the one
// NewDefaultCoefficient returns, with Value set to Sentinel; the Go zero
// value has Value 0 and is not the default.
type Coefficient struct {
	Level     int // analysis level index, not height in km
	RadiusKM  float64
	Parameter Param
	Value     float64
}

// NewDefaultCoefficient returns a Coefficient whose Value is the sentinel.
func NewDefaultCoefficient(level int, radiusKM float64, parameter Param) Coefficient {
	return Coefficient{Level: level, RadiusKM: radiusKM, Parameter: parameter, Value: Sentinel}
}

// IsDefault reports whether the coefficient carries the sentinel value.
func (c Coefficient) IsDefault() bool { return c.Value == Sentinel }

// LevelWinds is the dense (ring, slot) tensor of coefficients for one
// analysis level, plus a named lookup alongside the dense storage.
type LevelWinds struct {
	FirstRingKM int
	RingWidthKM int
	// Coeffs[ring][slot] is the dense tensor, indexed by
	// (radius-FirstRingKM)/RingWidthKM and a caller-defined slot order.
	Coeffs [][]Coefficient
}

// Lookup returns the named coefficient at the given radius, scanning the
// dense tensor. It is the "named lookup for persistence and UI" design
// for callers that want a parameter by name instead of by slot index.
func (lw LevelWinds) Lookup(radiusKM float64, parameter Param) (Coefficient, bool) {
	ring := int(radiusKM) - lw.FirstRingKM
	if lw.RingWidthKM > 0 {
		ring /= lw.RingWidthKM
	}
	if ring < 0 || ring >= len(lw.Coeffs) {
		return Coefficient{}, false
	}
	for _, c := range lw.Coeffs[ring] {
		if c.Parameter == parameter {
			return c, true
		}
	}
	return Coefficient{}, false
}

// LevelCenter is the circulation center and fit quality at one analysis level.
type LevelCenter struct {
	HeightKM     float64
	Lat, Lon     float64
	RMWKM        float64
	CenterStdKM  float64
	OutOfBounds  bool
}

// VortexRecord is one timestamped analysis result.
type VortexRecord struct {
	Time time.Time

	Levels []LevelCenter
	Winds  []LevelWinds // parallel to Levels

	PressureHPa        float64
	PressureUncertHPa  float64
	PressureDeficitHPa float64
}

// VortexSeries is an append-only, timestamp-monotonic sequence of
// VortexRecord. It has no internal locking; callers serialize
// mutations.
type VortexSeries struct {
	records []VortexRecord
}

// Append adds a record. It panics if the record's timestamp would
// violate the monotonic-timestamp invariant; callers are expected to
// guard this themselves, since a panic here indicates a programming
// error in the writer, not bad input data.
func (s *VortexSeries) Append(r VortexRecord) {
	if n := len(s.records); n > 0 && r.Time.Before(s.records[n-1].Time) {
		panic("model: VortexSeries append violates monotonic timestamp order")
	}
	s.records = append(s.records, r)
}

// Len returns the number of published records.
func (s *VortexSeries) Len() int { return len(s.records) }

// At returns the record at index i.
func (s *VortexSeries) At(i int) VortexRecord { return s.records[i] }

// Last returns the most recently appended record and true, or the zero
// value and false if the series is empty.
func (s *VortexSeries) Last() (VortexRecord, bool) {
	if len(s.records) == 0 {
		return VortexRecord{}, false
	}
	return s.records[len(s.records)-1], true
}

// PressureObservation is an external surface pressure anchor.
type PressureObservation struct {
	StationID   string
	Lat, Lon    float64
	PressureHPa float64
	Time        time.Time
}
