package nav

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultNominatimBase is the public Nominatim geocoding endpoint.
const DefaultNominatimBase = "https://nominatim.openstreetmap.org"

// NominatimGeocoder resolves destinations through a Nominatim-compatible
// search endpoint.
type NominatimGeocoder struct {
	base   string
	client *http.Client
}

// NewNominatimGeocoder creates a geocoder for the given base URL. An empty
// base falls back to the public endpoint.
func NewNominatimGeocoder(base string) *NominatimGeocoder {
	if base == "" {
		base = DefaultNominatimBase
	}
	return &NominatimGeocoder{
		base:   base,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Geocode resolves a free-text query to a coordinate. A query with no
// results maps to ErrNoRoute since there is nothing to navigate to.
func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (Point, error) {
	u := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", g.base, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Point{}, err
	}
	// Nominatim usage policy requires an identifying agent.
	req.Header.Set("User-Agent", "drishti-assistive-vision")

	resp, err := g.client.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Point{}, &APIError{Service: "geocoding", Status: resp.StatusCode}
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Point{}, fmt.Errorf("parse geocode response: %w", err)
	}
	if len(results) == 0 {
		return Point{}, fmt.Errorf("%w: destination %q not found", ErrNoRoute, query)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Point{}, fmt.Errorf("parse geocode latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Point{}, fmt.Errorf("parse geocode longitude: %w", err)
	}

	return Point{Lat: lat, Lon: lon}, nil
}
