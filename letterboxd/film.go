// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package letterboxd builds the ordered list of films a Letterboxd member has
// watched, either by scraping the profile or from a film list file.
package letterboxd

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Film is a watched film. Year is a 4-digit string, or empty when unknown.
type Film struct {
	Title string `json:"title"`
	Year  string `json:"year,omitempty"`
}

// String returns "Title (Year)", or the bare title when the year is unknown.
func (f Film) String() string {
	if f.Year == "" {
		return f.Title
	}

	return fmt.Sprintf("%s (%s)", f.Title, f.Year)
}

// first year with a released film.
const minYear = 1870

var slugYearRegex = regexp.MustCompile(`-(\d{4})$`)

// validYear reports whether year is a plausible release year.
func validYear(year string, now time.Time) bool {
	if len(year) != 4 {
		return false
	}

	y, err := strconv.Atoi(year)
	if err != nil {
		return false
	}

	return y >= minYear && y <= now.Year()+1
}

// YearFromSlug extracts the disambiguating year suffix Letterboxd appends to
// some slugs ("dune-2021"). Suffixes that cannot be release years, like the
// one in "blade-runner-2049", are ignored.
func YearFromSlug(slug string, now time.Time) string {
	m := slugYearRegex.FindStringSubmatch(slug)
	if m == nil || !validYear(m[1], now) {
		return ""
	}

	return m[1]
}
