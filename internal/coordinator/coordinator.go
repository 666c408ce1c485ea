// Package coordinator implements the analysis coordinator: the
// single-writer state machine that drives one radar volume through
// center finding, ring fitting, and pressure estimation, publishing the
// resulting VortexRecord. A run is a single call driven by the caller's
// context.Context, which AnalyzeVolume checks between levels; the
// Coordinator itself holds no context, cancel function or goroutines.
package coordinator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vortrac/analysis/internal/center"
	"github.com/vortrac/analysis/internal/config"
	"github.com/vortrac/analysis/internal/geo"
	"github.com/vortrac/analysis/internal/hvvp"
	"github.com/vortrac/analysis/internal/logchannel"
	"github.com/vortrac/analysis/internal/model"
	"github.com/vortrac/analysis/internal/numeric"
	"github.com/vortrac/analysis/internal/pressure"
	"github.com/vortrac/analysis/internal/storage/sqlite"
	"github.com/vortrac/analysis/internal/telemetry"
	"github.com/vortrac/analysis/internal/volume"
	"github.com/vortrac/analysis/internal/vtd"
	"github.com/vortrac/analysis/pkg/logger"
)

// State is a run's position in the analysis pipeline.
type State int

const (
	StateIdle State = iota
	StateLoaded
	StateCenterFound
	StateWindsFound
	StatePressureFound
	StatePublished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StateCenterFound:
		return "center_found"
	case StateWindsFound:
		return "winds_found"
	case StatePressureFound:
		return "pressure_found"
	case StatePublished:
		return "published"
	default:
		return "unknown"
	}
}

// Coordinator drives a single radar volume through the full analysis
// pipeline. It is safe to call AnalyzeVolume from only one goroutine at
// a time; State is safe to read concurrently.
type Coordinator struct {
	cfg     *config.Config
	radar   geo.Origin
	logger  *logger.Logger
	metrics *telemetry.Metrics
	logCh   *logchannel.Broadcaster
	series  *sqlite.SeriesStorage
	perturbations *sqlite.PerturbationStorage

	mu    sync.RWMutex
	state State
}

// New constructs a Coordinator. series and perturbations may be nil to
// run without persistence (e.g. in tests).
func New(cfg *config.Config, radar geo.Origin, log *logger.Logger, metrics *telemetry.Metrics, logCh *logchannel.Broadcaster, series *sqlite.SeriesStorage, perturbations *sqlite.PerturbationStorage) *Coordinator {
	return &Coordinator{
		cfg:           cfg,
		radar:         radar,
		logger:        log.Named("coordinator"),
		metrics:       metrics,
		logCh:         logCh,
		series:        series,
		perturbations: perturbations,
		state:         StateIdle,
	}
}

// State returns the coordinator's current state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.CoordinatorState.Set(float64(s))
	}
}

func (c *Coordinator) publish(text string, color logchannel.StopLightColor, signal logchannel.StormSignalStatus) {
	c.logger.Info(text)
	if c.logCh != nil {
		c.logCh.Publish(&logchannel.Message{Time: time.Now(), Text: text, Color: color, Signal: signal})
	}
}

func vtdClosure(c string) vtd.Closure {
	if c == string(vtd.ClosureOriginalHVVP) {
		return vtd.ClosureOriginalHVVP
	}
	return vtd.ClosureOriginal
}

// levelResult bundles one level's center and wind fit for reuse across
// the pressure integration step.
type levelResult struct {
	center     model.LevelCenter
	winds      model.LevelWinds
	radiiKM    []float64
	tangential []float64
	centerX, centerY float64
	hvvpMeanMS float64
}

// AnalyzeVolume runs center finding, ring fitting, and pressure
// estimation over vol, and publishes the resulting VortexRecord. It
// returns ctx.Err() without publishing anything if ctx is canceled
// between levels, so a long multi-level run can be aborted cleanly; a
// ring or level that fails internally is recorded with sentinel values
// instead of aborting the whole run.
func (c *Coordinator) AnalyzeVolume(ctx context.Context, runID string, vol *volume.GriddedVolume, at time.Time, seedLat, seedLon float64, obs []model.PressureObservation) (model.VortexRecord, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	c.setState(StateLoaded)
	c.publish(fmt.Sprintf("run %s: volume loaded at %s", runID, at.Format(time.RFC3339)), logchannel.ColorGreen, logchannel.SignalOK)

	vtdCfg := vtd.Config{
		Closure:       vtdClosure(c.cfg.VTD.Closure),
		MaxWavenumber: c.cfg.VTD.MaxWavenumber,
		MaxDataGapDeg: c.cfg.VTD.MaxDataGapDeg,
	}
	centerCfg := center.Config{
		VTDConfig:     vtdCfg,
		FirstRingKM:   c.cfg.VTD.InnerRadiusKM,
		LastRingKM:    c.cfg.VTD.OuterRadiusKM,
		RingWidthKM:   c.cfg.VTD.RingWidthKM,
		VelocityField: c.cfg.VTD.Velocity,
		SimplexStep:   5,
		Simplex:       numeric.DefaultSimplexConfig(),
	}

	var levels []levelResult
	lat, lon := seedLat, seedLon

	for h := c.cfg.VTD.BottomLevelKM; h <= c.cfg.VTD.TopLevelKM; h += 1.0 {
		select {
		case <-ctx.Done():
			return model.VortexRecord{}, ctx.Err()
		default:
		}

		res := center.FindCenter(vol, c.radar, h, lat, lon, centerCfg)
		lat, lon = res.Lat, res.Lon // seed the next level from this one

		levelVTDCfg := vtdCfg
		if vtdCfg.Closure == vtd.ClosureOriginalHVVP && c.cfg.HVVP.Enabled {
			if estimate, ok := c.estimateHVVP(vol, res, h); ok {
				levelVTDCfg = hvvpCorrectedClosure(vtdCfg, estimate)
			}
		}

		lvl := c.analyzeLevel(vol, h, res, levelVTDCfg)
		levels = append(levels, lvl)

		if c.metrics != nil {
			c.metrics.CenterSearchIterations.Observe(float64(res.Iterations))
		}
	}
	c.setState(StateCenterFound)
	c.setState(StateWindsFound)

	record := model.VortexRecord{Time: at}
	for _, lvl := range levels {
		record.Levels = append(record.Levels, lvl.center)
		record.Winds = append(record.Winds, lvl.winds)
	}

	if len(levels) > 0 {
		base := levels[0]
		c.estimatePressure(ctx, &record, base, obs, at, runID)
	}
	c.setState(StatePressureFound)

	if c.series != nil {
		if _, err := c.series.Append(runID, record); err != nil {
			c.logger.Error("failed to persist vortex record", logger.Error(err))
		}
	}
	c.setState(StatePublished)

	signal := logchannel.SignalOK
	color := logchannel.ColorGreen
	if record.PressureDeficitHPa > 20 {
		signal = logchannel.SignalRapidIncrease
		color = logchannel.ColorRed
	}
	c.publish(fmt.Sprintf("run %s: published record, central pressure %.1f hPa", runID, record.PressureHPa), color, signal)

	c.setState(StateIdle)
	return record, nil
}

// estimateHVVP runs the cross-beam sector fit downwind of the radar's
// bearing to the level's center, for folding into the "original+hvvp"
// closure's wavenumber-1 correction.
func (c *Coordinator) estimateHVVP(vol *volume.GriddedVolume, centerRes center.Result, heightKM float64) (hvvp.Result, bool) {
	centerCart := c.radar.ToCartesian(centerRes.Lat, centerRes.Lon, heightKM)
	bearing := hvvp.BearingDeg(centerCart)
	downwind := hvvp.DownwindAzimuth(bearing)

	estimate, err := hvvp.Estimate(vol, downwind, heightKM, hvvp.Config{
		Field:          c.cfg.VTD.Velocity,
		SectorWidthDeg: c.cfg.HVVP.SectorWidth,
		MinRangeKM:     c.cfg.HVVP.MinRangeKM,
		MaxRangeKM:     c.cfg.HVVP.MaxRangeKM,
		MinSamples:     10,
	})
	if err != nil {
		c.logger.Debug("hvvp estimate unavailable", logger.Error(err))
		return hvvp.Result{}, false
	}
	return estimate, true
}

// analyzeLevel fits every ring at one height around the center already
// found for it, returning sentinel-filled coefficients for rings GBVTD
// could not fit.
func (c *Coordinator) analyzeLevel(vol *volume.GriddedVolume, heightKM float64, centerRes center.Result, vtdCfg vtd.Config) levelResult {
	vol.SetAbsoluteReferencePoint(centerRes.Lat, centerRes.Lon, heightKM)
	xc, yc := vol.CartesianRefPoint()

	var coeffsByRing [][]model.Coefficient
	var radii, tangential []float64

	ringIdx := 0
	for r := c.cfg.VTD.InnerRadiusKM; r <= c.cfg.VTD.OuterRadiusKM; r += c.cfg.VTD.RingWidthKM {
		n := vol.CylindricalAzimuthLength(c.cfg.VTD.Velocity, r, heightKM)
		samples := make([]vtd.Sample, n)
		if n > 0 {
			values := make([]float64, n)
			azimuths := make([]float64, n)
			vol.CylindricalAzimuthData(c.cfg.VTD.Velocity, r, heightKM, values, azimuths)
			for i := range values {
				samples[i] = vtd.Sample{AzimuthDeg: azimuths[i], Velocity: values[i]}
			}
		}

		ring := vtd.AnalyzeRing(xc, yc, r, ringIdx, samples, vtdCfg)
		coeffsByRing = append(coeffsByRing, ring.Coefficients)

		if c.metrics != nil {
			if ring.Failed {
				c.metrics.RingFitsTotal.WithLabelValues("failed").Inc()
			} else {
				c.metrics.RingFitsTotal.WithLabelValues("ok").Inc()
			}
		}

		if !ring.Failed {
			radii = append(radii, r)
			tangential = append(tangential, math.Abs(ring.Coefficients[0].Value))
		}
		ringIdx++
	}

	return levelResult{
		center: centerRes.ToLevelCenter(),
		winds: model.LevelWinds{
			FirstRingKM: int(c.cfg.VTD.InnerRadiusKM),
			RingWidthKM: int(c.cfg.VTD.RingWidthKM),
			Coeffs:      coeffsByRing,
		},
		radiiKM:    radii,
		tangential: tangential,
		centerX:    xc,
		centerY:    yc,
	}
}

// estimatePressure integrates the gradient-wind pressure deficit from
// the lowest level's ring fits, combines it with nearby surface
// observations, and perturbs the center by its fit uncertainty to
// estimate the central pressure's uncertainty.
func (c *Coordinator) estimatePressure(ctx context.Context, record *model.VortexRecord, base levelResult, obs []model.PressureObservation, at time.Time, runID string) {
	if ctx.Err() != nil {
		return
	}
	if len(base.radiiKM) < 2 {
		record.PressureHPa = model.Sentinel
		record.PressureUncertHPa = model.Sentinel
		record.PressureDeficitHPa = model.Sentinel
		return
	}

	profile := pressure.RadialProfile{HeightKM: base.center.HeightKM, RadiiKM: base.radiiKM, TangentialMS: base.tangential}

	pressureCfg := pressure.EstimatorConfig{
		MaxObsAge:        time.Duration(c.cfg.Pressure.MaxObsTimeMinutes * float64(time.Minute)),
		MaxObsDistKM:     c.cfg.Pressure.MaxObsDistKM,
		CenterStdFloorKM: c.cfg.Pressure.CenterStdFloorKM,
	}
	anchors := pressure.SelectAnchors(obs, c.radar, base.center.Lat, base.center.Lon, base.center.RMWKM, at, pressureCfg)
	if len(anchors) == 0 {
		c.logger.Info("no surface pressure anchor available, falling back to standard environment")
	}

	estimate, err := pressure.EstimateCentralPressure(anchors, profile, base.center.Lat, pressureCfg)
	if err != nil {
		c.logger.Warn("pressure deficit integration failed", logger.Error(err))
		record.PressureHPa = model.Sentinel
		record.PressureUncertHPa = model.Sentinel
		record.PressureDeficitHPa = model.Sentinel
		return
	}

	record.PressureHPa = estimate.PressureHPa
	record.PressureDeficitHPa = estimate.DeficitHPa

	// Below two anchors the central pressure can't be refined by
	// perturbing the center (NoAnchors falls back to a fixed
	// environment; a single anchor has nothing to average against), so
	// VortexThread::calcCentralPressure's fixed 5 hPa stands as-is.
	if len(anchors) < 2 {
		record.PressureUncertHPa = estimate.UncertaintyHPa
		return
	}

	computeAtOffset := func(dxKM, dyKM float64) (float64, error) {
		// A shifted center changes the latitude the Coriolis term in the
		// gradient-wind integration uses (dyKM only) and the anchor set
		// and anchor distances SelectAnchors sees (both dxKM and dyKM).
		perturbedLat := base.center.Lat + dyKM/geo.EarthRadiusKM*geo.Rad2Deg
		perturbedAnchors := pressure.SelectAnchors(obs, c.radar, base.center.Lat+dyKM/geo.EarthRadiusKM*geo.Rad2Deg, base.center.Lon+dxKM/geo.EarthRadiusKM*geo.Rad2Deg, base.center.RMWKM, at, pressureCfg)
		perturbed, err := pressure.EstimateCentralPressure(perturbedAnchors, profile, perturbedLat, pressureCfg)
		if err != nil {
			return 0, err
		}

		if c.perturbations != nil {
			_, _ = c.perturbations.Store(sqlite.PerturbationRecord{
				RunID:              runID,
				Label:              sqlite.SeriesName(offsetLabel(dxKM, dyKM), at),
				RecordTime:         at,
				OffsetXKM:          dxKM,
				OffsetYKM:          dyKM,
				CentralPressureHPa: perturbed.PressureHPa,
			})
		}
		return perturbed.PressureHPa, nil
	}

	limited, err := pressure.EstimateUncertainty(ctx, estimate.PressureHPa, base.center.CenterStdKM, true, pressureCfg, computeAtOffset)
	if err != nil {
		record.PressureUncertHPa = model.Sentinel
		return
	}
	record.PressureUncertHPa = limited

	flatComputeAtOffset := func(dxKM, dyKM float64) (float64, error) {
		perturbedLat := base.center.Lat + dyKM/geo.EarthRadiusKM*geo.Rad2Deg
		perturbedAnchors := pressure.SelectAnchors(obs, c.radar, perturbedLat, base.center.Lon+dxKM/geo.EarthRadiusKM*geo.Rad2Deg, base.center.RMWKM, at, pressureCfg)
		perturbed, err := pressure.EstimateCentralPressure(perturbedAnchors, profile, perturbedLat, pressureCfg)
		if err != nil {
			return 0, err
		}
		if c.perturbations != nil {
			_, _ = c.perturbations.Store(sqlite.PerturbationRecord{
				RunID:              runID,
				Label:              sqlite.SeriesName("flat"+offsetLabel(dxKM, dyKM), at),
				RecordTime:         at,
				OffsetXKM:          dxKM,
				OffsetYKM:          dyKM,
				CentralPressureHPa: perturbed.PressureHPa,
			})
		}
		return perturbed.PressureHPa, nil
	}
	if _, err := pressure.EstimateUncertainty(ctx, estimate.PressureHPa, base.center.CenterStdKM, false, pressureCfg, flatComputeAtOffset); err != nil {
		c.logger.Debug("unfloored pressure uncertainty pass unavailable", logger.Error(err))
	}
}

// offsetLabel names a perturbation sample by which axis and direction it
// displaced the center along.
func offsetLabel(dxKM, dyKM float64) string {
	switch {
	case dxKM > 0:
		return "+x"
	case dxKM < 0:
		return "-x"
	case dyKM > 0:
		return "+y"
	default:
		return "-y"
	}
}

// hvvpCorrectedClosure returns a copy of base set to the "original+hvvp"
// closure with the HVVP-estimated cross-beam wind as HVVPMeanMS, for the
// level's ring fits to fold into VTC0.
func hvvpCorrectedClosure(base vtd.Config, estimate hvvp.Result) vtd.Config {
	cfg := base
	cfg.Closure = vtd.ClosureOriginalHVVP
	cfg.HVVPMeanMS = estimate.MeanMS
	return cfg
}
