// Package geocode resolves coordinates to display addresses through the
// Google Geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkordes/mileage-tracker/internal/domain"
)

// DefaultBaseURL is the Google Geocoding JSON endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// NoAddressFound is returned, without an error, when the coordinates resolve
// to no result at all (open sea, for example).
const NoAddressFound = "No address found"

// Client performs reverse-geocoding requests.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient constructs a Client. The API key is required.
func NewClient(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("geocode.NewClient: api key is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
}

// Resolve returns the formatted address of the first result for lat/lng.
// Transport and API failures wrap domain.ErrAddressResolution.
func (c *Client) Resolve(ctx context.Context, lat, lng float64) (string, error) {
	q := url.Values{}
	q.Set("latlng", strconv.FormatFloat(lat, 'f', -1, 64)+","+strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("geocode.Client.Resolve: %w: %v", domain.ErrAddressResolution, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode.Client.Resolve: %w: %v", domain.ErrAddressResolution, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocode.Client.Resolve: %w: http status %d", domain.ErrAddressResolution, resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("geocode.Client.Resolve: %w: decode: %v", domain.ErrAddressResolution, err)
	}

	switch body.Status {
	case "OK":
		if len(body.Results) == 0 {
			return NoAddressFound, nil
		}
		return body.Results[0].FormattedAddress, nil
	case "ZERO_RESULTS":
		return NoAddressFound, nil
	default:
		return "", fmt.Errorf("geocode.Client.Resolve: %w: status %s %s", domain.ErrAddressResolution, body.Status, body.ErrorMessage)
	}
}
