// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package tmdb queries The Movie Database for the director of a film and the
// director's place of birth.
//
// Every lookup is independently failable. Failures (transport errors, non-2xx
// statuses, malformed payloads, empty results) are logged and reported as an
// absent result; they never escape the package as errors.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
)

// DefaultBaseURL is the v3 API root.
const DefaultBaseURL = "https://api.themoviedb.org/3"

// DirectorJob is the crew job that identifies a film's director.
const DirectorJob = "Director"

// ErrMissingAPIKey is returned when the client is built without credentials.
var ErrMissingAPIKey = errors.New("tmdb: api key is not set")

var yearRegex = regexp.MustCompile(`^\d{4}$`)

// DirectorInfo is the director credited for a film. An empty Birthplace means
// TMDB does not list one.
type DirectorInfo struct {
	PersonID   int64
	Name       string
	Birthplace string
}

// ClientOptions configuration for Client.
type ClientOptions struct {
	// APIKey for the v3 API (required)
	APIKey string

	// BaseURL overrides DefaultBaseURL
	BaseURL string
}

// Client performs the search, credits and person lookups. It holds no state
// between calls.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a new TMDB client. A nil httpClient means http.DefaultClient.
func NewClient(options *ClientOptions, httpClient *http.Client) (*Client, error) {
	if options == nil || options.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := DefaultBaseURL
	if options.BaseURL != "" {
		baseURL = options.BaseURL
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		apiKey:  options.APIKey,
		baseURL: baseURL,
		client:  httpClient,
	}, nil
}

type searchResponse struct {
	Results []struct {
		ID int64 `json:"id"`
	} `json:"results"`
}

type creditsResponse struct {
	Crew []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Job  string `json:"job"`
	} `json:"crew"`
}

type personResponse struct {
	Name         string `json:"name"`
	PlaceOfBirth string `json:"place_of_birth"`
}

// getJSON issues a GET against path and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) (err error) {
	if params == nil {
		params = url.Values{}
	}

	params.Set("api_key", c.apiKey)

	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}

	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing resp.Body: %w", cerr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	return nil
}

// SearchMovieID returns the id of the first search result for title. The year
// narrows the search only when it is a 4-digit string.
func (c *Client) SearchMovieID(ctx context.Context, title, year string) (int64, bool) {
	params := url.Values{}
	params.Set("query", title)

	if yearRegex.MatchString(year) {
		params.Set("year", year)
	}

	var sr searchResponse
	if err := c.getJSON(ctx, "/search/movie", params, &sr); err != nil {
		log.Printf("tmdb: searching %q: %s", title, err)

		return 0, false
	}

	if len(sr.Results) == 0 || sr.Results[0].ID == 0 {
		return 0, false
	}

	return sr.Results[0].ID, true
}

// Director returns the first crew member credited as Director of the movie
// together with their place of birth.
func (c *Client) Director(ctx context.Context, movieID int64) (DirectorInfo, bool) {
	var cr creditsResponse

	creditsPath := "/movie/" + strconv.FormatInt(movieID, 10) + "/credits"
	if err := c.getJSON(ctx, creditsPath, nil, &cr); err != nil {
		log.Printf("tmdb: credits for movie %d: %s", movieID, err)

		return DirectorInfo{}, false
	}

	var info DirectorInfo

	for _, member := range cr.Crew {
		if member.Job == DirectorJob {
			info.PersonID = member.ID
			info.Name = member.Name

			break
		}
	}

	if info.PersonID == 0 || info.Name == "" {
		return DirectorInfo{}, false
	}

	var pr personResponse

	personPath := "/person/" + strconv.FormatInt(info.PersonID, 10)
	if err := c.getJSON(ctx, personPath, nil, &pr); err != nil {
		log.Printf("tmdb: person %d (%s): %s", info.PersonID, info.Name, err)

		return DirectorInfo{}, false
	}

	info.Birthplace = pr.PlaceOfBirth

	return info, true
}
