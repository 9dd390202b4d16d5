// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"github.com/jcodagnone/cinemap/spatial"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
)

// DefaultGoogleMapsURL is the Geocoding API endpoint.
const DefaultGoogleMapsURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleMapsGeocoder uses Google Maps Geocoding API.
type GoogleMapsGeocoder struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGoogleMapsGeocoder creates a new Google Maps geocoder.
func NewGoogleMapsGeocoder(apiKey, baseURL string, httpClient *http.Client) *GoogleMapsGeocoder {
	if baseURL == "" {
		baseURL = DefaultGoogleMapsURL
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &GoogleMapsGeocoder{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

type googleMapsResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
	Status       string `json:"status"` // OK, ZERO_RESULTS, OVER_QUERY_LIMIT, etc.
	ErrorMessage string `json:"error_message"`
}

func (g *GoogleMapsGeocoder) Geocode(ctx context.Context, query string) (_ *Result, err error) {
	params := url.Values{}
	params.Set("address", query)
	params.Set("key", g.apiKey)

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

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	switch gmResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, fmt.Errorf("%w for %q", ErrNotFound, query)
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return nil, &Error{Type: ErrorTypeQuotaExceeded, Message: "google maps status: " + gmResp.Status}
	case "INVALID_REQUEST":
		return nil, &Error{Type: ErrorTypeInvalidRequest, Message: "google maps status: " + gmResp.Status}
	default:
		return nil, fmt.Errorf("google maps status: %s %s", gmResp.Status, gmResp.ErrorMessage)
	}

	if len(gmResp.Results) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNotFound, query)
	}

	result := gmResp.Results[0]

	return &Result{
		Point: spatial.Point{
			Lat: result.Geometry.Location.Lat,
			Lng: result.Geometry.Location.Lng,
		},
		Address:  result.FormattedAddress,
		Provider: "google_maps",
	}, nil
}

// GoogleAPIKeyFromADC looks up, through Application Default Credentials, the
// API key of the project whose display name is displayName and returns its
// secret.
func GoogleAPIKeyFromADC(ctx context.Context, displayName string) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return "", fmt.Errorf("finding default credentials: %w", err)
	}

	projectID := creds.ProjectID
	if projectID == "" {
		return "", errors.New("no project id found in default credentials")
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	it := client.ListKeys(ctx, &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	})

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.DisplayName != displayName {
			continue
		}

		// ListKeys redacts the KeyString
		log.Printf("Found key resource '%s', retrieving secret...", key.Name)

		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.Name})
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.KeyString == "" {
			return "", fmt.Errorf("key '%s' found but KeyString is empty", displayName)
		}

		return resp.KeyString, nil
	}

	return "", fmt.Errorf("key with display name '%s' not found in project %s", displayName, projectID)
}
