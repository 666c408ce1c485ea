// Package sqlite persists published VortexRecord series and their
// pressure-perturbation siblings, built on the same WAL-mode
// pragma/schema-migration layer as the rest of the analysis core's
// storage.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vortrac/analysis/internal/model"
	"github.com/vortrac/analysis/pkg/logger"
)

// Open opens the analysis database at path, applying the pragmas a
// single-writer WAL-mode SQLite database needs.
func Open(path string, log *logger.Logger) (*sql.DB, error) {
	log.Info("opening analysis database", logger.String("path", path))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=10000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return db, nil
}

// SeriesStorage persists VortexRecord series, one row per record, with
// the record's levels and winds serialized as JSON: the coefficient
// tensor's shape varies run to run with the configured wavenumber and
// ring width, so a fixed relational schema would need a migration per
// configuration change.
type SeriesStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewSeriesStorage wraps db, creating the series table if needed.
func NewSeriesStorage(db *sql.DB, log *logger.Logger) (*SeriesStorage, error) {
	s := &SeriesStorage{db: db, logger: log.Named("sqlite-series")}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SeriesStorage) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS vortex_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			record_time TIMESTAMP NOT NULL,
			pressure_hpa REAL,
			pressure_uncert_hpa REAL,
			pressure_deficit_hpa REAL,
			levels_json TEXT NOT NULL,
			winds_json TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create vortex_records table: %w", err)
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_vortex_records_run_time ON vortex_records(run_id, record_time)`)
	if err != nil {
		return fmt.Errorf("failed to create run/time index: %w", err)
	}
	return nil
}

// Append stores one record of a run's series.
func (s *SeriesStorage) Append(runID string, r model.VortexRecord) (int64, error) {
	levelsJSON, err := json.Marshal(r.Levels)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal levels: %w", err)
	}
	windsJSON, err := json.Marshal(r.Winds)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal winds: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO vortex_records
		(run_id, record_time, pressure_hpa, pressure_uncert_hpa, pressure_deficit_hpa, levels_json, winds_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, r.Time.Format(time.RFC3339Nano), r.PressureHPa, r.PressureUncertHPa, r.PressureDeficitHPa,
		string(levelsJSON), string(windsJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert vortex record: %w", err)
	}
	return result.LastInsertId()
}

// LoadSeries returns every record for runID in ascending time order.
func (s *SeriesStorage) LoadSeries(runID string) (*model.VortexSeries, error) {
	rows, err := s.db.Query(
		`SELECT record_time, pressure_hpa, pressure_uncert_hpa, pressure_deficit_hpa, levels_json, winds_json
		FROM vortex_records WHERE run_id = ? ORDER BY record_time ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query vortex records: %w", err)
	}
	defer rows.Close()

	series := &model.VortexSeries{}
	for rows.Next() {
		var r model.VortexRecord
		var recordTime, levelsJSON, windsJSON string

		if err := rows.Scan(&recordTime, &r.PressureHPa, &r.PressureUncertHPa, &r.PressureDeficitHPa, &levelsJSON, &windsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan vortex record: %w", err)
		}
		r.Time, err = time.Parse(time.RFC3339Nano, recordTime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse record_time: %w", err)
		}
		if err := json.Unmarshal([]byte(levelsJSON), &r.Levels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal levels: %w", err)
		}
		if err := json.Unmarshal([]byte(windsJSON), &r.Winds); err != nil {
			return nil, fmt.Errorf("failed to unmarshal winds: %w", err)
		}
		series.Append(r)
	}
	return series, rows.Err()
}
