// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMinInterval is the minimum spacing between two geocoding calls.
const DefaultMinInterval = time.Second

// Entry is a cached lookup. Found is false for places the geocoder could not
// resolve; such entries are served from the cache like any other.
type Entry struct {
	Result Result
	Found  bool
}

// Stats tracks cache and provider activity during a run.
type Stats struct {
	Hits        int // lookups served from the cache
	Misses      int // lookups that reached the geocoder
	Failures    int // misses that did not resolve
	RateLimited int // failures caused by provider throttling
}

// Cache memoizes a Geocoder by the exact place string queried and spaces the
// network calls it lets through. It is not safe for concurrent use.
type Cache struct {
	geocoder Geocoder
	limiter  *rate.Limiter
	entries  map[string]Entry
	stats    Stats

	// Clean rewrites the place before it is sent to the geocoder. The cache
	// key is always the place as given.
	Clean func(string) string
}

// NewCache wraps g so that network calls are at least minInterval apart.
// A non-positive minInterval disables the spacing.
func NewCache(g Geocoder, minInterval time.Duration) *Cache {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}

	return &Cache{
		geocoder: g,
		limiter:  rate.NewLimiter(limit, 1),
		entries:  make(map[string]Entry),
		Clean:    CleanQuery,
	}
}

// Resolve returns the coordinates and canonical address of place. Each
// distinct place reaches the geocoder at most once; failures are cached too.
// A lookup interrupted by ctx is reported as absent and not cached.
func (c *Cache) Resolve(ctx context.Context, place string) (Result, bool) {
	if place == "" {
		return Result{}, false
	}

	if e, ok := c.entries[place]; ok {
		c.stats.Hits++

		return e.Result, e.Found
	}

	query := place
	if c.Clean != nil {
		query = c.Clean(place)
	}

	if query == "" {
		c.stats.Misses++
		c.stats.Failures++
		c.entries[place] = Entry{}

		return Result{}, false
	}

	if err := c.limiter.Wait(ctx); err != nil {
		log.Printf("geocode: waiting to resolve %q: %s", place, err)

		return Result{}, false
	}

	c.stats.Misses++

	res, err := c.geocoder.Geocode(ctx, query)
	if err != nil || res == nil {
		if ctx.Err() != nil {
			return Result{}, false
		}

		c.stats.Failures++

		switch {
		case err == nil, errors.Is(err, ErrNotFound):
		case IsRateLimitError(err), IsQuotaExceededError(err):
			c.stats.RateLimited++
			log.Printf("⚠️  geocode: provider is throttling requests (%q): %s", place, err)
		default:
			log.Printf("geocode: resolving %q: %s", place, err)
		}

		c.entries[place] = Entry{}

		return Result{}, false
	}

	c.entries[place] = Entry{Result: *res, Found: true}

	return *res, true
}

// Lookup returns the cached entry for place without resolving it.
func (c *Cache) Lookup(place string) (Entry, bool) {
	e, ok := c.entries[place]

	return e, ok
}

// Len returns the number of cached places.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Stats returns the activity counters.
func (c *Cache) Stats() Stats {
	return c.stats
}

var (
	bracketsRegex = regexp.MustCompile(`\[.*?\]`)
	spacesRegex   = regexp.MustCompile(`\s+`)
	// historical states geocoders do not know about
	defunctStates = strings.NewReplacer(
		"West Germany", "Germany",
		"East Germany", "Germany",
		"Ukrainian SSR", "",
		"Russian SFSR", "",
		"Soviet Union", "",
		"USSR", "",
	)
)

// CleanQuery strips annotations and defunct country names that make
// birthplaces listed by TMDB unresolvable, e.g.
// "Kyiv, Ukrainian SSR, USSR [now Ukraine]" becomes "Kyiv".
func CleanQuery(place string) string {
	s := bracketsRegex.ReplaceAllString(place, "")
	s = defunctStates.Replace(s)

	parts := strings.Split(s, ",")
	kept := parts[:0]

	for _, p := range parts {
		p = strings.TrimSpace(spacesRegex.ReplaceAllString(p, " "))
		if p != "" {
			kept = append(kept, p)
		}
	}

	return strings.Join(kept, ", ")
}
