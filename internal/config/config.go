// Package config loads and validates the analysis core's TOML
// configuration, the vtd.*/pressure.*/radar.* settings an
// AnalysisCoordinator run needs.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration structure.
type Config struct {
	Radar    RadarConfig    `toml:"radar"`
	VTD      VTDConfig      `toml:"vtd"`
	HVVP     HVVPConfig     `toml:"hvvp"`
	Pressure PressureConfig `toml:"pressure"`
	Storage  StorageConfig  `toml:"storage"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// RadarConfig places the radar that defines the analysis's local frame.
type RadarConfig struct {
	StationID string  `toml:"station_id"`
	Lat       float64 `toml:"lat"`
	Lon       float64 `toml:"lon"`
	AltKM     float64 `toml:"alt_km"`
}

// VTDConfig controls the GBVTD ring solver and the volume's analysis
// geometry, mirroring VortexThread's vtd.* configuration keys.
type VTDConfig struct {
	Geometry      string    `toml:"geometry"`       // "GBVTD" (the only geometry implemented)
	Closure       string    `toml:"closure"`        // "original" or "original+hvvp"
	Reflectivity  string    `toml:"reflectivity"`   // field name sampled for data-availability checks
	Velocity      string    `toml:"velocity"`       // field name sampled for radial velocity
	BottomLevelKM float64   `toml:"bottom_level"`
	TopLevelKM    float64   `toml:"top_level"`
	InnerRadiusKM float64   `toml:"inner_radius"`
	OuterRadiusKM float64   `toml:"outer_radius"`
	RingWidthKM   float64   `toml:"ring_width"`
	MaxWavenumber int       `toml:"max_wavenumber"`
	MaxDataGapDeg []float64 `toml:"max_data_gap"` // indexed by wavenumber, length max_wavenumber+1
}

// HVVPConfig controls the cross-beam environmental wind estimator.
type HVVPConfig struct {
	Enabled      bool    `toml:"enabled"`
	SectorWidth  float64 `toml:"sector_width_deg"`
	MinRangeKM   float64 `toml:"min_range_km"`
	MaxRangeKM   float64 `toml:"max_range_km"`
}

// PressureConfig controls the central pressure estimator.
type PressureConfig struct {
	MaxObsTimeMinutes float64 `toml:"max_obs_time"`
	MaxObsDistKM      float64 `toml:"max_obs_dist"`
	CenterStdFloorKM  float64 `toml:"center_std_floor_km"`
}

// StorageConfig points at the SQLite database backing series persistence.
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// LoggingConfig controls the zap-backed structured logger.
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // json or console
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// Load reads and decodes a TOML config file at path.
func Load(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads the configuration, checking multiple locations
// in order of preference when preferredPath is empty or missing.
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,
		"configs/config.toml",
		"config.toml",
	}

	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			cfg, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return cfg, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if err := c.validateRadar(); err != nil {
		return err
	}
	if err := c.validateVTD(); err != nil {
		return err
	}
	if err := c.validateHVVP(); err != nil {
		return err
	}
	if err := c.validatePressure(); err != nil {
		return err
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	return nil
}

func (c *Config) validateRadar() error {
	if c.Radar.Lat < -90 || c.Radar.Lat > 90 {
		return fmt.Errorf("radar.lat must be in [-90, 90], got %v", c.Radar.Lat)
	}
	if c.Radar.Lon < -180 || c.Radar.Lon > 180 {
		return fmt.Errorf("radar.lon must be in [-180, 180], got %v", c.Radar.Lon)
	}
	return nil
}

func (c *Config) validateVTD() error {
	v := c.VTD
	if v.Geometry != "" && v.Geometry != "GBVTD" {
		return fmt.Errorf("vtd.geometry %q is not supported", v.Geometry)
	}
	switch v.Closure {
	case "original", "original+hvvp", "":
	default:
		return fmt.Errorf("vtd.closure %q must be \"original\" or \"original+hvvp\"", v.Closure)
	}
	if v.BottomLevelKM < 0 || v.TopLevelKM <= v.BottomLevelKM {
		return fmt.Errorf("vtd.top_level must exceed vtd.bottom_level (bottom=%v top=%v)", v.BottomLevelKM, v.TopLevelKM)
	}
	if v.OuterRadiusKM <= v.InnerRadiusKM {
		return fmt.Errorf("vtd.outer_radius must exceed vtd.inner_radius (inner=%v outer=%v)", v.InnerRadiusKM, v.OuterRadiusKM)
	}
	if v.RingWidthKM <= 0 {
		return fmt.Errorf("vtd.ring_width must be positive, got %v", v.RingWidthKM)
	}
	if v.MaxWavenumber < 0 || v.MaxWavenumber > 4 {
		return fmt.Errorf("vtd.max_wavenumber must be in [0, 4], got %v", v.MaxWavenumber)
	}
	if len(v.MaxDataGapDeg) != v.MaxWavenumber+1 {
		return fmt.Errorf("vtd.max_data_gap must have %d entries (one per wavenumber 0..%d), got %d",
			v.MaxWavenumber+1, v.MaxWavenumber, len(v.MaxDataGapDeg))
	}
	return nil
}

func (c *Config) validateHVVP() error {
	if !c.HVVP.Enabled {
		return nil
	}
	if c.HVVP.SectorWidth <= 0 || c.HVVP.SectorWidth > 180 {
		return fmt.Errorf("hvvp.sector_width_deg must be in (0, 180], got %v", c.HVVP.SectorWidth)
	}
	if c.HVVP.MaxRangeKM <= c.HVVP.MinRangeKM {
		return fmt.Errorf("hvvp.max_range_km must exceed hvvp.min_range_km")
	}
	return nil
}

func (c *Config) validatePressure() error {
	p := c.Pressure
	if p.MaxObsDistKM <= 0 {
		return fmt.Errorf("pressure.max_obs_dist must be positive, got %v", p.MaxObsDistKM)
	}
	if p.MaxObsTimeMinutes <= 0 {
		return fmt.Errorf("pressure.max_obs_time must be positive, got %v", p.MaxObsTimeMinutes)
	}
	return nil
}
