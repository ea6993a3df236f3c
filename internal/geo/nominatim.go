// Package geo implements the pricing package's Geocoder and Router
// ports against the public OSM stack: Nominatim for geocoding and OSRM
// for driving distance. Both speak plain REST with JSON bodies.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/brutusburger/brutabot/internal/pricing"
)

// DefaultNominatimURL is the public Nominatim endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// NominatimGeocoder resolves addresses via a Nominatim server.
type NominatimGeocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NominatimOption configures a NominatimGeocoder.
type NominatimOption func(*NominatimGeocoder)

// WithNominatimURL points the geocoder at a different server.
func WithNominatimURL(baseURL string) NominatimOption {
	return func(g *NominatimGeocoder) { g.baseURL = baseURL }
}

// WithNominatimClient sets the HTTP client.
func WithNominatimClient(client *http.Client) NominatimOption {
	return func(g *NominatimGeocoder) { g.client = client }
}

// NewNominatimGeocoder creates a geocoder against the public endpoint.
// The user agent identifies the shop, as Nominatim's usage policy
// requires.
func NewNominatimGeocoder(userAgent string, opts ...NominatimOption) *NominatimGeocoder {
	g := &NominatimGeocoder{
		baseURL:   DefaultNominatimURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Search resolves a free-text address to its best match.
func (g *NominatimGeocoder) Search(ctx context.Context, query string) (pricing.Place, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("q", query)

	var results []nominatimResult
	if err := g.getJSON(ctx, "/search?"+q.Encode(), &results); err != nil {
		return pricing.Place{}, err
	}
	if len(results) == 0 {
		return pricing.Place{}, pricing.ErrNoResult
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return pricing.Place{}, fmt.Errorf("geocode: bad latitude %q: %w", results[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return pricing.Place{}, fmt.Errorf("geocode: bad longitude %q: %w", results[0].Lon, err)
	}
	return pricing.Place{
		Coord: pricing.Coord{Lat: lat, Lng: lng},
		Label: results[0].DisplayName,
	}, nil
}

// Reverse returns the display name for a point.
func (g *NominatimGeocoder) Reverse(ctx context.Context, c pricing.Coord) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.Lng, 'f', -1, 64))

	var result nominatimResult
	if err := g.getJSON(ctx, "/reverse?"+q.Encode(), &result); err != nil {
		return "", err
	}
	if result.DisplayName == "" {
		return "", pricing.ErrNoResult
	}
	return result.DisplayName, nil
}

func (g *NominatimGeocoder) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("geocode: build request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("geocode: decode response: %w", err)
	}
	return nil
}
