// Package geo looks up IP geolocation through an ip2location.io-style API.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Location describes where an IP address appears to be. A zero Location means
// the lookup failed or returned nothing; callers proceed with it regardless.
type Location struct {
	City        string
	Region      string
	CountryCode string
	CountryName string
	ZipCode     string
	Latitude    float64
	Longitude   float64
}

// Client queries the geolocation API over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a geolocation client for the given API endpoint and key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Lookup resolves the location of ip. Network and API failures are returned
// as errors; callers are expected to log them and continue with a zero
// Location rather than failing the request they are serving.
func (c *Client) Lookup(ctx context.Context, ip string) (Location, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("ip", ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Location{}, fmt.Errorf("build geolocation request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geolocation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Location{}, fmt.Errorf("geolocation API returned status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		City        string  `json:"city_name"`
		Region      string  `json:"region_name"`
		CountryCode string  `json:"country_code"`
		CountryName string  `json:"country_name"`
		ZipCode     string  `json:"zip_code"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Location{}, fmt.Errorf("decode geolocation response: %w", err)
	}

	return Location{
		City:        payload.City,
		Region:      payload.Region,
		CountryCode: payload.CountryCode,
		CountryName: payload.CountryName,
		ZipCode:     payload.ZipCode,
		Latitude:    payload.Latitude,
		Longitude:   payload.Longitude,
	}, nil
}
