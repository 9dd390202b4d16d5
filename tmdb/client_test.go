// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTMDB serves a fixed catalog with Parasite and a few broken entries.
func fakeTMDB(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/search/movie", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))

		switch r.URL.Query().Get("query") {
		case "Parasite":
			if r.URL.Query().Get("year") == "2019" {
				_, _ = w.Write([]byte(`{"results":[{"id":496243},{"id":1}]}`))
			} else {
				_, _ = w.Write([]byte(`{"results":[{"id":1}]}`))
			}
		case "Broken":
			w.WriteHeader(http.StatusInternalServerError)
		case "Garbage":
			_, _ = w.Write([]byte(`{"results":`))
		case "Headless":
			_, _ = w.Write([]byte(`{"results":[{"id":7}]}`))
		case "Homeless":
			_, _ = w.Write([]byte(`{"results":[{"id":8}]}`))
		default:
			_, _ = w.Write([]byte(`{"results":[]}`))
		}
	})
	mux.HandleFunc("/movie/496243/credits", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"crew":[
			{"id":99,"name":"Hong Kyung-pyo","job":"Director of Photography"},
			{"id":21684,"name":"Bong Joon Ho","job":"Director"},
			{"id":5,"name":"Someone Else","job":"Director"}
		]}`))
	})
	mux.HandleFunc("/movie/7/credits", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"crew":[{"id":3,"name":"Writer","job":"Screenplay"}]}`))
	})
	mux.HandleFunc("/movie/8/credits", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"crew":[{"id":404,"name":"Nobody","job":"Director"}]}`))
	})
	mux.HandleFunc("/person/21684", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"name":"Bong Joon Ho","place_of_birth":"Seoul, South Korea"}`))
	})
	mux.HandleFunc("/person/404", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	c, err := NewClient(&ClientOptions{APIKey: "secret", BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	return c
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	_, err := NewClient(&ClientOptions{}, nil)
	require.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewClient(nil, nil)
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestSearchMovieID(t *testing.T) {
	var calls atomic.Int32

	c := newTestClient(t, fakeTMDB(t, &calls))
	ctx := context.Background()

	tests := []struct {
		title, year string
		id          int64
		ok          bool
	}{
		{"Parasite", "2019", 496243, true},
		{"Parasite", "", 1, true},
		{"Parasite", "19", 1, true},   // invalid year is not sent
		{"Parasite", "abcd", 1, true}, // same
		{"Unknown", "", 0, false},
		{"Broken", "", 0, false},
		{"Garbage", "", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.title+"/"+tc.year, func(t *testing.T) {
			id, ok := c.SearchMovieID(ctx, tc.title, tc.year)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.id, id)
		})
	}

	assert.Equal(t, int32(len(tests)), calls.Load(), "no retries")
}

func TestDirector(t *testing.T) {
	var calls atomic.Int32

	c := newTestClient(t, fakeTMDB(t, &calls))
	ctx := context.Background()

	info, ok := c.Director(ctx, 496243)
	require.True(t, ok)
	assert.Equal(t, DirectorInfo{PersonID: 21684, Name: "Bong Joon Ho", Birthplace: "Seoul, South Korea"}, info)

	_, ok = c.Director(ctx, 7)
	assert.False(t, ok, "no director credited")

	_, ok = c.Director(ctx, 8)
	assert.False(t, ok, "person lookup fails")

	_, ok = c.Director(ctx, 12345)
	assert.False(t, ok, "credits not found")
}

func TestDirector_TransportError(t *testing.T) {
	var calls atomic.Int32

	srv := fakeTMDB(t, &calls)
	c := newTestClient(t, srv)
	srv.Close()

	_, ok := c.Director(context.Background(), 496243)
	assert.False(t, ok)

	_, ok = c.SearchMovieID(context.Background(), "Parasite", "2019")
	assert.False(t, ok)
}
