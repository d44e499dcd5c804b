// Package geocode resolves postal addresses to coordinates with the Google
// Geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"donneur-go/internal/models"
	"donneur-go/internal/transport"

	"github.com/juju/errors"
	"go.uber.org/zap"
)

const (
	ErrNoAPIKey    = errors.ConstError("geocoder api key not configured")
	ErrNoResults   = errors.ConstError("address not found")
	ErrBadResponse = errors.ConstError("unexpected geocoder response")
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func NewClient(cfg models.GeocoderConfig) (*Client, error) {
	httpClient, err := transport.NewHTTPClient(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}
	return &Client{httpClient: httpClient, baseURL: cfg.BaseURL, apiKey: cfg.APIKey}, nil
}

// Coordinates returns the latitude and longitude of the first match for address.
func (c *Client) Coordinates(ctx context.Context, address string) (float64, float64, error) {
	if c.apiKey == "" {
		return 0, 0, ErrNoAPIKey
	}

	query := url.Values{}
	query.Set("address", address)
	query.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to build geocode request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("%w: http status %d", ErrBadResponse, resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return 0, 0, fmt.Errorf("%w: %s", ErrNoResults, address)
	default:
		return 0, 0, fmt.Errorf("%w: status %s %s", ErrBadResponse, body.Status, body.ErrorMessage)
	}
	if len(body.Results) == 0 {
		return 0, 0, fmt.Errorf("%w: %s", ErrNoResults, address)
	}

	location := body.Results[0].Geometry.Location
	zap.L().Debug("Address geocoded",
		zap.String("address", address),
		zap.Float64("lat", location.Lat),
		zap.Float64("lng", location.Lng))
	return location.Lat, location.Lng, nil
}
