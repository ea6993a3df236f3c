package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/brutusburger/brutabot/internal/pricing"
)

// DefaultOSRMURL is the public OSRM demo endpoint.
const DefaultOSRMURL = "https://router.project-osrm.org"

// OSRMRouter computes driving distance via an OSRM server.
type OSRMRouter struct {
	baseURL string
	client  *http.Client
}

// OSRMOption configures an OSRMRouter.
type OSRMOption func(*OSRMRouter)

// WithOSRMURL points the router at a different server.
func WithOSRMURL(baseURL string) OSRMOption {
	return func(r *OSRMRouter) { r.baseURL = baseURL }
}

// WithOSRMClient sets the HTTP client.
func WithOSRMClient(client *http.Client) OSRMOption {
	return func(r *OSRMRouter) { r.client = client }
}

// NewOSRMRouter creates a router against the public endpoint.
func NewOSRMRouter(opts ...OSRMOption) *OSRMRouter {
	r := &OSRMRouter{
		baseURL: DefaultOSRMURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"` // meters
	} `json:"routes"`
}

// DistanceKm returns the driving distance of the best route.
func (r *OSRMRouter) DistanceKm(ctx context.Context, from, to pricing.Coord) (float64, error) {
	// OSRM takes lng,lat pairs.
	path := fmt.Sprintf("/route/v1/driving/%f,%f;%f,%f?overview=false",
		from.Lng, from.Lat, to.Lng, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("route: build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("route: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("route: unexpected status %d", resp.StatusCode)
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("route: decode response: %w", err)
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return 0, fmt.Errorf("route: no route (code %q)", body.Code)
	}
	return body.Routes[0].Distance / 1000, nil
}
