// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/jcodagnone/cinemap/atlas"
	"github.com/jcodagnone/cinemap/config"
	"github.com/jcodagnone/cinemap/enrich"
	"github.com/jcodagnone/cinemap/geocode"
	"github.com/jcodagnone/cinemap/letterboxd"
	"github.com/jcodagnone/cinemap/store"
	"github.com/jcodagnone/cinemap/tmdb"
	"github.com/jcodagnone/cinemap/utils/textutils"
)

type enrichOptions struct {
	Input      string
	Output     string
	DbPath     string
	NoProgress bool
}

var enrichOpts = &enrichOptions{}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Finds the director birthplace of every film of a film list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		films, err := letterboxd.ReadFilmList(enrichOpts.Input)
		if err != nil {
			return fmt.Errorf("reading film list: %w", err)
		}

		return enrichFilms(cmd.Context(), cfg, enrichOpts, enrichOpts.Input, films)
	},
}

func newGeocoder(ctx context.Context, cfg *config.Config) (geocode.Geocoder, error) {
	switch cfg.Geocoder.Provider {
	case config.ProviderGoogle:
		apiKey := cfg.Geocoder.GoogleAPIKey
		if apiKey == "" {
			log.Println("GOOGLE_MAPS_API_KEY is not set. Attempting to retrieve via ADC...")

			var err error

			apiKey, err = geocode.GoogleAPIKeyFromADC(ctx, cfg.Geocoder.GoogleKeyName)
			if err != nil {
				return nil, fmt.Errorf("retrieving Google Maps API key via ADC: %w", err)
			}

			log.Println("✅ Successfully retrieved Google Maps API Key via ADC")
		}

		fmt.Println("📍 Geocoding: Google Maps")

		return geocode.NewGoogleMapsGeocoder(apiKey, cfg.Geocoder.BaseURL, httpClient(cfg, userAgent(cfg))), nil
	case config.ProviderNominatim:
		fmt.Println("📍 Geocoding: OpenStreetMap Nominatim")

		return geocode.NewNominatimGeocoder(cfg.Geocoder.BaseURL, httpClient(cfg, cfg.Geocoder.UserAgent)), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrBadProvider, cfg.Geocoder.Provider)
	}
}

// enrichFilms runs the pipeline over films and writes the assembled places.
// When interrupted, the places found so far are still written.
func enrichFilms(ctx context.Context, cfg *config.Config, opts *enrichOptions, source string, films []letterboxd.Film) error {
	lookup, err := tmdb.NewClient(&tmdb.ClientOptions{
		APIKey:  cfg.TMDB.APIKey,
		BaseURL: cfg.TMDB.BaseURL,
	}, httpClient(cfg, userAgent(cfg)))
	if err != nil {
		return err
	}

	g, err := newGeocoder(ctx, cfg)
	if err != nil {
		return err
	}

	cache := geocode.NewCache(g, cfg.Geocoder.MinInterval)
	pipeline := enrich.New(lookup, cache, &enrich.Options{
		Pause:    cfg.TMDB.Pause,
		Progress: !opts.NoProgress,
	})

	var records []enrich.Record

	a := atlas.New()
	started := time.Now()

	runErr := pipeline.Run(ctx, films, func(r enrich.Record) {
		records = append(records, r)
		a.Fold(r)
	})
	if runErr != nil {
		log.Printf("⚠️ Interrupted after %d of %d films: %s", pipeline.Metrics.Total, len(films), runErr)
	}

	m := pipeline.Metrics
	stats := cache.Stats()

	log.Printf(
		"Successfully enriched %s out of %s films",
		textutils.FormatInt(int64(m.Enriched)),
		textutils.FormatInt(int64(m.Total)),
	)
	log.Printf(
		"Failures - %d search, %d director, %d birthplace, %d geocode",
		m.SearchFailed,
		m.DirectorFailed,
		m.BirthplaceMissing,
		m.GeocodeFailed,
	)
	log.Printf(
		"Geocode cache - %d hits, %d lookups, %d failed (%d rate limited)",
		stats.Hits,
		stats.Misses,
		stats.Failures,
		stats.RateLimited,
	)

	places := a.Assemble()
	if err := atlas.WriteFile(opts.Output, places); err != nil {
		return fmt.Errorf("writing %s: %w", opts.Output, err)
	}

	log.Printf("✅ Wrote %d places to %s", len(places), opts.Output)

	if opts.DbPath != "" {
		run := &store.Run{
			Source:     source,
			StartedAt:  started,
			FinishedAt: time.Now(),
			Metrics:    m,
		}
		if err := saveRun(opts.DbPath, run, records, places); err != nil {
			return errors.Join(runErr, err)
		}

		log.Printf("✅ Stored run %d in %s", run.ID, opts.DbPath)
	}

	return runErr
}

func openStore(path string) (*sql.DB, store.RunRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repo := store.NewRunRepository(db)
	if err := repo.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("creating tables: %w", err)
	}

	return db, repo, nil
}

func saveRun(path string, run *store.Run, records []enrich.Record, places []atlas.PlaceOutput) error {
	db, repo, err := openStore(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repo.SaveRun(run, records, places); err != nil {
		return fmt.Errorf("storing run: %w", err)
	}

	return nil
}

func addEnrichFlags(cmd *cobra.Command, opts *enrichOptions) {
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "places.json", "Places document to write")
	cmd.Flags().StringVar(&opts.DbPath, "db", "", "DuckDB file where the run is recorded (e.g. db/cinemap.duckdb)")
	cmd.Flags().BoolVar(&opts.NoProgress, "no-progress", false, "Log every film instead of displaying a progress bar")
	cmd.Flags().String("provider", "", "Geocoder: nominatim or google")
	cmd.Flags().Duration("min-interval", 0, "Minimum spacing between geocoding calls (default 1s)")
	cmd.Flags().Duration("pause", 0, "Pause between the lookups of one film (default 300ms)")
}

func init() {
	rootCmd.AddCommand(enrichCmd)
	enrichCmd.Flags().StringVarP(&enrichOpts.Input, "input", "i", "films.txt", "Film list to read (.csv or text)")
	addEnrichFlags(enrichCmd, enrichOpts)
}
