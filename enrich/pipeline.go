// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package enrich chains, film by film, the TMDB lookups and the birthplace
// geocoding into enrichment records.
package enrich

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jcodagnone/cinemap/geocode"
	"github.com/jcodagnone/cinemap/letterboxd"
	"github.com/jcodagnone/cinemap/spatial"
	"github.com/jcodagnone/cinemap/tmdb"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// DefaultPause is the delay between two dependent lookups of the same film.
const DefaultPause = 300 * time.Millisecond

// MovieLookup finds a film's director and birthplace.
type MovieLookup interface {
	SearchMovieID(ctx context.Context, title, year string) (int64, bool)
	Director(ctx context.Context, movieID int64) (tmdb.DirectorInfo, bool)
}

// PlaceResolver geocodes a free-text place.
type PlaceResolver interface {
	Resolve(ctx context.Context, place string) (geocode.Result, bool)
}

// Record is a fully enriched film. Records are never partial.
type Record struct {
	FilmTitle    string        `json:"film_title"`
	DirectorName string        `json:"director_name"`
	Birthplace   string        `json:"birthplace"` // as listed by TMDB
	Address      string        `json:"address"`    // canonical address from the geocoder
	Point        spatial.Point `json:"point"`
}

// Stage identifies where the enrichment of a film stopped.
type Stage int

const (
	// StageDone the film was enriched.
	StageDone Stage = iota
	// StageSearch the search returned no movie.
	StageSearch
	// StageDirector no director could be retrieved.
	StageDirector
	// StageBirthplace the director has no listed birthplace.
	StageBirthplace
	// StageGeocode the birthplace could not be geocoded.
	StageGeocode
	// StageCancelled the run was interrupted.
	StageCancelled
)

func (s Stage) String() string {
	switch s {
	case StageDone:
		return "done"
	case StageSearch:
		return "movie not found"
	case StageDirector:
		return "director not found"
	case StageBirthplace:
		return "birthplace not listed"
	case StageGeocode:
		return "birthplace not geocoded"
	case StageCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Metrics tracks the outcome of the films processed.
type Metrics struct {
	Total             int // films attempted
	Enriched          int // records emitted
	SearchFailed      int
	DirectorFailed    int
	BirthplaceMissing int
	GeocodeFailed     int
}

// Merge combines two Metrics.
func (m *Metrics) Merge(o *Metrics) *Metrics {
	m.Total += o.Total
	m.Enriched += o.Enriched
	m.SearchFailed += o.SearchFailed
	m.DirectorFailed += o.DirectorFailed
	m.BirthplaceMissing += o.BirthplaceMissing
	m.GeocodeFailed += o.GeocodeFailed

	return m
}

func (m *Metrics) add(stage Stage) {
	m.Total++

	switch stage {
	case StageDone:
		m.Enriched++
	case StageSearch:
		m.SearchFailed++
	case StageDirector:
		m.DirectorFailed++
	case StageBirthplace:
		m.BirthplaceMissing++
	case StageGeocode:
		m.GeocodeFailed++
	case StageCancelled:
		m.Total--
	}
}

// Options configuration for Pipeline.
type Options struct {
	// Pause between the dependent lookups of a film
	Pause time.Duration

	// Display a progress bar when stderr is a terminal
	Progress bool
}

// Pipeline enriches films one at a time. It is stateless between films except
// through the PlaceResolver it was given.
type Pipeline struct {
	lookup   MovieLookup
	resolver PlaceResolver
	options  Options
	sleep    func(context.Context, time.Duration) error
	Metrics  Metrics
}

// New creates a new pipeline. A nil options means DefaultPause and no
// progress bar.
func New(lookup MovieLookup, resolver PlaceResolver, options *Options) *Pipeline {
	opts := Options{Pause: DefaultPause}
	if options != nil {
		opts = *options
	}

	return &Pipeline{
		lookup:   lookup,
		resolver: resolver,
		options:  opts,
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// EnrichOne runs the lookup chain for film. It returns false as soon as a
// stage comes back empty.
func (p *Pipeline) EnrichOne(ctx context.Context, film letterboxd.Film) (*Record, bool) {
	r, stage := p.enrich(ctx, film)

	return r, stage == StageDone
}

func (p *Pipeline) enrich(ctx context.Context, film letterboxd.Film) (*Record, Stage) {
	movieID, ok := p.lookup.SearchMovieID(ctx, film.Title, film.Year)
	if !ok {
		return nil, p.failed(ctx, StageSearch)
	}

	if err := p.sleep(ctx, p.options.Pause); err != nil {
		return nil, StageCancelled
	}

	director, ok := p.lookup.Director(ctx, movieID)
	if !ok || director.Name == "" {
		return nil, p.failed(ctx, StageDirector)
	}

	if director.Birthplace == "" {
		return nil, StageBirthplace
	}

	if err := p.sleep(ctx, p.options.Pause); err != nil {
		return nil, StageCancelled
	}

	geo, ok := p.resolver.Resolve(ctx, director.Birthplace)
	if !ok {
		return nil, p.failed(ctx, StageGeocode)
	}

	return &Record{
		FilmTitle:    film.Title,
		DirectorName: director.Name,
		Birthplace:   director.Birthplace,
		Address:      geo.Address,
		Point:        geo.Point,
	}, StageDone
}

// failed reports stage unless the failure was caused by an interruption.
func (p *Pipeline) failed(ctx context.Context, stage Stage) Stage {
	if ctx.Err() != nil {
		return StageCancelled
	}

	return stage
}

// Run enriches films sequentially, in order, handing every record to fold.
// It stops early, returning the context error, when ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, films []letterboxd.Film, fold func(Record)) error {
	n := len(films)

	var bar *progressbar.ProgressBar
	if p.options.Progress && isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(n,
			progressbar.OptionSetDescription("Enriching"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for i, film := range films {
		if err := ctx.Err(); err != nil {
			return err
		}

		r, stage := p.enrich(ctx, film)
		p.Metrics.add(stage)

		if stage == StageCancelled {
			return ctx.Err()
		}

		var line string
		if stage == StageDone {
			line = fmt.Sprintf("[%d/%d] %s -> %s (%s)", i+1, n, film, r.DirectorName, r.Address)

			fold(*r)
		} else {
			line = fmt.Sprintf("[%d/%d] %s -> FAILED: %s", i+1, n, film, stage)
		}

		if bar == nil {
			log.Println(line)
		} else {
			bar.Describe(line)

			if err := bar.Add(1); err != nil {
				log.Printf("updating progress bar: %s", err)
			}
		}
	}

	return nil
}
