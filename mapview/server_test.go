// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package mapview

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcodagnone/cinemap/atlas"
	"github.com/jcodagnone/cinemap/enrich"
	"github.com/jcodagnone/cinemap/spatial"
)

func setupServerTest(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	a := atlas.New()
	a.Fold(enrich.Record{
		FilmTitle:    "Amélie",
		DirectorName: "Jean-Pierre Jeunet",
		Address:      "Roanne, Loire, France",
		Point:        spatial.Point{Lat: 46.0367, Lng: 4.0683},
	})
	a.Fold(enrich.Record{
		FilmTitle:    "Whisky",
		DirectorName: "Juan Pablo Rebella",
		Address:      "Montevideo, Uruguay",
		Point:        spatial.Point{Lat: -34.9011, Lng: -56.1645},
	})
	a.Fold(enrich.Record{
		FilmTitle:    "25 Watts",
		DirectorName: "Juan Pablo Rebella",
		Address:      "Montevideo, Uruguay",
		Point:        spatial.Point{Lat: -34.9011, Lng: -56.1645},
	})
	a.Fold(enrich.Record{
		FilmTitle:    "El Baño del Papa",
		DirectorName: "César Charlone",
		Address:      "Montevideo, Uruguay",
		Point:        spatial.Point{Lat: -34.9011, Lng: -56.1645},
	})

	return NewServer(a.Assemble()).Handler()
}

func get(t *testing.T, router *gin.Engine, target string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	router.ServeHTTP(w, req)

	return w
}

func decodePlaces(t *testing.T, w *httptest.ResponseRecorder) []PlaceMatch {
	t.Helper()

	var ret []PlaceMatch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ret))

	return ret
}

func TestIndex(t *testing.T) {
	router := setupServerTest(t)

	w := get(t, router, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "radiusForZoom")
}

func TestListPlaces(t *testing.T) {
	router := setupServerTest(t)

	w := get(t, router, "/api/places")
	require.Equal(t, http.StatusOK, w.Code)

	places := decodePlaces(t, w)
	require.Len(t, places, 2)
	assert.Equal(t, 0, places[0].Index)
	assert.Equal(t, "Roanne, Loire, France", places[0].PlaceName)
	assert.Equal(t, []string{"Juan Pablo Rebella", "César Charlone"}, places[1].Directors.Names())
	assert.Equal(t, []string{"Whisky", "25 Watts"}, places[1].Directors.Films("Juan Pablo Rebella"))
}

func TestListPlaces_Query(t *testing.T) {
	router := setupServerTest(t)

	tests := []struct {
		q    string
		want []int
	}{
		{"amelie", []int{0}},
		{"CESAR", []int{1}},
		{"bano+del", []int{1}},
		{"montevideo", []int{1}},
		{"nobody", nil},
	}

	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			w := get(t, router, "/api/places?q="+tt.q)
			require.Equal(t, http.StatusOK, w.Code)

			var got []int
			for _, p := range decodePlaces(t, w) {
				got = append(got, p.Index)
			}

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListPlaces_Near(t *testing.T) {
	router := setupServerTest(t)

	// Buenos Aires is ~200km from Montevideo
	w := get(t, router, "/api/places?near=-34.6037,-58.3816&radius=300")
	require.Equal(t, http.StatusOK, w.Code)

	places := decodePlaces(t, w)
	require.Len(t, places, 1)
	assert.Equal(t, 1, places[0].Index)

	w = get(t, router, "/api/places?near=-34.6037,-58.3816&radius=50")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodePlaces(t, w))

	w = get(t, router, "/api/places?near=foo")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, router, "/api/places?near=1,2&radius=-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPlace(t *testing.T) {
	router := setupServerTest(t)

	w := get(t, router, "/api/places/1")
	require.Equal(t, http.StatusOK, w.Code)

	var p PlaceMatch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, 1, p.Index)
	assert.Equal(t, "Montevideo, Uruguay", p.PlaceName)
	assert.Contains(t, p.PopupHTML, "<b>Juan Pablo Rebella</b>: Whisky, 25 Watts")

	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/places/2").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/places/x").Code)
}
