// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package store keeps a record of the enrichment runs in DuckDB.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jcodagnone/cinemap/atlas"
	"github.com/jcodagnone/cinemap/enrich"
	"github.com/jcodagnone/cinemap/spatial"
)

// ErrNoRuns is returned when the database holds no run yet.
var ErrNoRuns = errors.New("no runs stored")

// Run describes one execution of the pipeline.
type Run struct {
	ID         int64
	Source     string // member name or film list path
	StartedAt  time.Time
	FinishedAt time.Time
	Metrics    enrich.Metrics
}

// RunRepository defines the interface for database operations.
type RunRepository interface {
	// CreateSchema creates the database schema.
	CreateSchema() error
	// SaveRun stores the run, its records and its places, assigning run.ID.
	SaveRun(run *Run, records []enrich.Record, places []atlas.PlaceOutput) error
	// LatestRun returns the most recent run.
	LatestRun() (*Run, error)
	// ListPlaces returns the places of a run in first-seen order.
	ListPlaces(runID int64) ([]atlas.PlaceOutput, error)
}

type sqlRunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a repository backed by db.
func NewRunRepository(db *sql.DB) RunRepository {
	return &sqlRunRepository{db: db}
}

func (r *sqlRunRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS runs_seq START 1;

		CREATE TABLE IF NOT EXISTS runs (
			id BIGINT PRIMARY KEY DEFAULT nextval('runs_seq'),
			source VARCHAR NOT NULL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL,
			films INTEGER NOT NULL,
			enriched INTEGER NOT NULL,
			search_failed INTEGER NOT NULL,
			director_failed INTEGER NOT NULL,
			birthplace_missing INTEGER NOT NULL,
			geocode_failed INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS enrichments (
			run_id BIGINT NOT NULL,
			position INTEGER NOT NULL,
			film_title VARCHAR NOT NULL,
			director_name VARCHAR NOT NULL,
			birthplace VARCHAR NOT NULL,
			address VARCHAR NOT NULL,
			lat DOUBLE NOT NULL,
			lng DOUBLE NOT NULL,
			PRIMARY KEY (run_id, position)
		);

		CREATE TABLE IF NOT EXISTS places (
			run_id BIGINT NOT NULL,
			position INTEGER NOT NULL,
			address VARCHAR NOT NULL,
			lat DOUBLE NOT NULL,
			lng DOUBLE NOT NULL,
			popup_html VARCHAR NOT NULL,
			directors VARCHAR NOT NULL,
			h3_res1 BIGINT,
			h3_res2 BIGINT,
			h3_res3 BIGINT,
			h3_res4 BIGINT,
			h3_res5 BIGINT,
			h3_res6 BIGINT,
			h3_res7 BIGINT,
			h3_res8 BIGINT,
			PRIMARY KEY (run_id, position)
		);
	`)

	return err
}

func rollback(tx *sql.Tx, err error) error {
	if rErr := tx.Rollback(); rErr != nil {
		return errors.Join(err, rErr)
	}

	return err
}

func (r *sqlRunRepository) SaveRun(run *Run, records []enrich.Record, places []atlas.PlaceOutput) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	m := run.Metrics

	err = tx.QueryRow(`
		INSERT INTO runs(
			source,
			started_at,
			finished_at,
			films,
			enriched,
			search_failed,
			director_failed,
			birthplace_missing,
			geocode_failed
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`,
		run.Source,
		run.StartedAt,
		run.FinishedAt,
		m.Total,
		m.Enriched,
		m.SearchFailed,
		m.DirectorFailed,
		m.BirthplaceMissing,
		m.GeocodeFailed,
	).Scan(&run.ID)
	if err != nil {
		return rollback(tx, fmt.Errorf("inserting run: %w", err))
	}

	if err := insertRecords(tx, run.ID, records); err != nil {
		return rollback(tx, err)
	}

	if err := insertPlaces(tx, run.ID, places); err != nil {
		return rollback(tx, err)
	}

	return tx.Commit()
}

func insertRecords(tx *sql.Tx, runID int64, records []enrich.Record) error {
	stmt, err := tx.Prepare(`
		INSERT INTO enrichments(
			run_id,
			position,
			film_title,
			director_name,
			birthplace,
			address,
			lat,
			lng
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing enrichments insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.Exec(
			runID,
			i,
			rec.FilmTitle,
			rec.DirectorName,
			rec.Birthplace,
			rec.Address,
			rec.Point.Lat,
			rec.Point.Lng,
		); err != nil {
			return fmt.Errorf("inserting enrichment %q: %w", rec.FilmTitle, err)
		}
	}

	return nil
}

func insertPlaces(tx *sql.Tx, runID int64, places []atlas.PlaceOutput) error {
	stmt, err := tx.Prepare(`
		INSERT INTO places(
			run_id,
			position,
			address,
			lat,
			lng,
			popup_html,
			directors,
			h3_res1,
			h3_res2,
			h3_res3,
			h3_res4,
			h3_res5,
			h3_res6,
			h3_res7,
			h3_res8
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing places insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range places {
		directors, err := json.Marshal(p.Directors)
		if err != nil {
			return fmt.Errorf("marshaling directors of %q: %w", p.PlaceName, err)
		}

		cells, err := spatial.Point{Lat: p.Lat, Lng: p.Lon}.H3Cells()
		if err != nil {
			return fmt.Errorf("computing cells of %q: %w", p.PlaceName, err)
		}

		args := []any{runID, i, p.PlaceName, p.Lat, p.Lon, p.PopupHTML, string(directors)}
		for _, c := range cells {
			args = append(args, c)
		}

		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("inserting place %q: %w", p.PlaceName, err)
		}
	}

	return nil
}

func (r *sqlRunRepository) LatestRun() (*Run, error) {
	var run Run

	err := r.db.QueryRow(`
		SELECT
			id,
			source,
			started_at,
			finished_at,
			films,
			enriched,
			search_failed,
			director_failed,
			birthplace_missing,
			geocode_failed
		FROM runs
		ORDER BY id DESC
		LIMIT 1
	`).Scan(
		&run.ID,
		&run.Source,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Metrics.Total,
		&run.Metrics.Enriched,
		&run.Metrics.SearchFailed,
		&run.Metrics.DirectorFailed,
		&run.Metrics.BirthplaceMissing,
		&run.Metrics.GeocodeFailed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}

	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}

	return &run, nil
}

func (r *sqlRunRepository) ListPlaces(runID int64) ([]atlas.PlaceOutput, error) {
	rows, err := r.db.Query(`
		SELECT address, lat, lng, popup_html, directors
		FROM places
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying places: %w", err)
	}
	defer rows.Close()

	ret := []atlas.PlaceOutput{}

	for rows.Next() {
		var (
			p         atlas.PlaceOutput
			directors string
		)

		if err := rows.Scan(&p.PlaceName, &p.Lat, &p.Lon, &p.PopupHTML, &directors); err != nil {
			return nil, fmt.Errorf("scanning place: %w", err)
		}

		if err := json.Unmarshal([]byte(directors), &p.Directors); err != nil {
			return nil, fmt.Errorf("unmarshaling directors of %q: %w", p.PlaceName, err)
		}

		ret = append(ret, p)
	}

	return ret, rows.Err()
}
