// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleMapsGeocoder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		switch r.URL.Query().Get("address") {
		case "Seoul":
			_, _ = w.Write([]byte(`{"status":"OK","results":[{
				"formatted_address":"Seoul, South Korea",
				"geometry":{"location":{"lat":37.57,"lng":126.98},"location_type":"APPROXIMATE"}
			}]}`))
		case "Nowhere":
			_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
		case "Limit":
			_, _ = w.Write([]byte(`{"status":"OVER_QUERY_LIMIT","results":[]}`))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	g := NewGoogleMapsGeocoder("test-key", srv.URL, srv.Client())
	ctx := context.Background()

	res, err := g.Geocode(ctx, "Seoul")
	require.NoError(t, err)
	assert.Equal(t, "Seoul, South Korea", res.Address)
	assert.InDelta(t, 37.57, res.Point.Lat, 1e-9)
	assert.InDelta(t, 126.98, res.Point.Lng, 1e-9)
	assert.Equal(t, "google_maps", res.Provider)

	_, err = g.Geocode(ctx, "Nowhere")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = g.Geocode(ctx, "Limit")
	assert.True(t, IsQuotaExceededError(err))

	_, err = g.Geocode(ctx, "Denied")
	assert.True(t, IsQuotaExceededError(err))
}
