package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vortrac/analysis/pkg/logger"
)

// PerturbationRecord is one sample of the central-pressure perturbation
// series used to compute uncertainty: VortexThread's calcPressureUncertainty
// names each perturbed run "pError_<label>_<timestamp>"; PerturbationStorage
// keeps that sibling series alongside the primary run instead of discarding it.
type PerturbationRecord struct {
	ID             int64
	RunID          string
	Label          string // series name, e.g. "pError_+x_20260801T000000" or "pError_flat-y_20260801T000000"
	RecordTime     time.Time
	OffsetXKM      float64
	OffsetYKM      float64
	CentralPressureHPa float64
}

// PerturbationStorage persists the four-point center-perturbation samples
// behind each published record's pressure uncertainty.
type PerturbationStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewPerturbationStorage wraps db, creating the perturbations table if needed.
func NewPerturbationStorage(db *sql.DB, log *logger.Logger) (*PerturbationStorage, error) {
	s := &PerturbationStorage{db: db, logger: log.Named("sqlite-perturbations")}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PerturbationStorage) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS pressure_perturbations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			label TEXT NOT NULL,
			record_time TIMESTAMP NOT NULL,
			offset_x_km REAL NOT NULL,
			offset_y_km REAL NOT NULL,
			central_pressure_hpa REAL NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create pressure_perturbations table: %w", err)
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_perturbations_run_time ON pressure_perturbations(run_id, record_time)`)
	if err != nil {
		return fmt.Errorf("failed to create run/time index: %w", err)
	}
	return nil
}

// SeriesName builds the "pError_<label>_<timestamp>" identifier
// VortexThread uses for a perturbed run.
func SeriesName(label string, at time.Time) string {
	return fmt.Sprintf("pError_%s_%s", label, at.Format("20060102T150405"))
}

// Store records one perturbation sample.
func (s *PerturbationStorage) Store(r PerturbationRecord) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO pressure_perturbations
		(run_id, label, record_time, offset_x_km, offset_y_km, central_pressure_hpa)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Label, r.RecordTime.Format(time.RFC3339Nano), r.OffsetXKM, r.OffsetYKM, r.CentralPressureHPa,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert perturbation record: %w", err)
	}
	return result.LastInsertId()
}

// LoadForRun returns every perturbation sample recorded for runID.
func (s *PerturbationStorage) LoadForRun(runID string) ([]PerturbationRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, label, record_time, offset_x_km, offset_y_km, central_pressure_hpa
		FROM pressure_perturbations WHERE run_id = ? ORDER BY record_time ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query perturbation records: %w", err)
	}
	defer rows.Close()

	var records []PerturbationRecord
	for rows.Next() {
		var r PerturbationRecord
		var recordTime string
		if err := rows.Scan(&r.ID, &r.RunID, &r.Label, &recordTime, &r.OffsetXKM, &r.OffsetYKM, &r.CentralPressureHPa); err != nil {
			return nil, fmt.Errorf("failed to scan perturbation record: %w", err)
		}
		r.RecordTime, err = time.Parse(time.RFC3339Nano, recordTime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse record_time: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
