// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode resolves free-text place names into coordinates and a
// canonical address.
package geocode

import (
	"context"
	"errors"

	"github.com/jcodagnone/cinemap/spatial"
)

// ErrNotFound is returned by a Geocoder when the query has no match.
var ErrNotFound = errors.New("geocode: no results")

// Result represents a geocoding result from any provider.
type Result struct {
	Point    spatial.Point
	Address  string // canonical address as returned by the provider
	Provider string
}

// Geocoder interface for different geocoding providers.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*Result, error)
}
