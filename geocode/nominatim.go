// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jcodagnone/cinemap/spatial"
)

// DefaultNominatimURL is the public OpenStreetMap search endpoint. Its usage
// policy allows at most one request per second.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// NominatimGeocoder uses the OpenStreetMap Nominatim search API.
type NominatimGeocoder struct {
	baseURL    string
	httpClient *http.Client
}

// NewNominatimGeocoder creates a new Nominatim geocoder. The http client is
// expected to send a meaningful User-Agent, which Nominatim requires.
func NewNominatimGeocoder(baseURL string, httpClient *http.Client) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &NominatimGeocoder{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// nominatimResponse mirrors the relevant parts of the OSM search payload.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (_ *Result, err error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating geocoding request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}

	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing resp.Body: %w", cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode)
	}

	var raw []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNotFound, query)
	}

	lat, err := strconv.ParseFloat(raw[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing latitude %q: %w", raw[0].Lat, err)
	}

	lng, err := strconv.ParseFloat(raw[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing longitude %q: %w", raw[0].Lon, err)
	}

	point := spatial.Point{Lat: lat, Lng: lng}
	if !point.Valid() {
		return nil, fmt.Errorf("out of range coordinates %s for %q", point, query)
	}

	address := raw[0].DisplayName
	if address == "" {
		address = query
	}

	return &Result{
		Point:    point,
		Address:  address,
		Provider: "nominatim",
	}, nil
}
