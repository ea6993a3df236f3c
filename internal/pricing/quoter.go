package pricing

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/brutusburger/brutabot/internal/textnorm"
)

// Coord is a WGS84 point.
type Coord struct {
	Lat float64
	Lng float64
}

// Place is a geocoding result.
type Place struct {
	Coord Coord
	Label string
}

// ErrNoResult is returned by a Geocoder when a query matches nothing.
var ErrNoResult = errors.New("pricing: no geocoding result")

// Geocoder turns addresses into coordinates and back.
type Geocoder interface {
	// Search resolves a free-text address. Returns ErrNoResult when the
	// query matches nothing.
	Search(ctx context.Context, query string) (Place, error)
	// Reverse returns a human-readable label for a point.
	Reverse(ctx context.Context, c Coord) (string, error)
}

// Router computes driving distance between two points.
type Router interface {
	DistanceKm(ctx context.Context, from, to Coord) (float64, error)
}

// Quote is the outcome of pricing one destination.
type Quote struct {
	// Found is false when a free-text address could not be geocoded.
	Found bool
	// InArea is false when the destination is outside the delivery area.
	InArea bool
	Coord      Coord
	Label      string
	DistanceKm float64
	Fee        float64
}

// Quoter prices destinations against the shop's origin.
type Quoter struct {
	router    Router
	geocoder  Geocoder
	origin    Coord
	policy    Policy
	geoPolicy GeoPolicy
	logger    *slog.Logger
}

// QuoterOption configures a Quoter.
type QuoterOption func(*Quoter)

// WithPolicy overrides the fee schedule.
func WithPolicy(p Policy) QuoterOption {
	return func(q *Quoter) { q.policy = p }
}

// WithGeoPolicy overrides area validation.
func WithGeoPolicy(p GeoPolicy) QuoterOption {
	return func(q *Quoter) { q.geoPolicy = p }
}

// WithQuoterLogger sets the logger for degradation diagnostics.
func WithQuoterLogger(logger *slog.Logger) QuoterOption {
	return func(q *Quoter) { q.logger = logger }
}

// NewQuoter creates a quoter for the shop at origin.
func NewQuoter(router Router, geocoder Geocoder, origin Coord, opts ...QuoterOption) *Quoter {
	q := &Quoter{
		router:    router,
		geocoder:  geocoder,
		origin:    origin,
		policy:    DefaultPolicy(),
		geoPolicy: GeoPolicy{FailOpen: true},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Policy returns the active fee schedule.
func (q *Quoter) Policy() Policy {
	return q.policy
}

// QuoteCoords prices a destination given as raw coordinates (a shared
// location). Area membership is checked by reverse geocoding; a reverse
// failure follows the fail-open policy. A routing failure degrades to
// the base fee.
func (q *Quoter) QuoteCoords(ctx context.Context, c Coord) Quote {
	quote := Quote{Found: true, Coord: c}

	label, err := q.geocoder.Reverse(ctx, c)
	switch {
	case err != nil:
		quote.InArea = q.geoPolicy.FailOpen
		q.logger.Warn("reverse geocode failed",
			"lat", c.Lat, "lng", c.Lng, "fail_open", q.geoPolicy.FailOpen, "error", err)
	default:
		quote.Label = label
		quote.InArea = q.inArea(label)
	}
	if !quote.InArea {
		return quote
	}

	quote.DistanceKm, quote.Fee = q.priceRoute(ctx, c)
	return quote
}

// QuoteAddress prices a free-text address. The area token is appended to
// the query to bias the geocoder toward the delivery area; a result
// whose label lacks the token is rejected as out of area.
func (q *Quoter) QuoteAddress(ctx context.Context, address string) Quote {
	query := address
	if q.geoPolicy.AreaToken != "" {
		query += ", " + q.geoPolicy.AreaToken
	}

	place, err := q.geocoder.Search(ctx, query)
	if err != nil {
		if !errors.Is(err, ErrNoResult) {
			q.logger.Warn("geocode failed", "query", query, "error", err)
		}
		return Quote{}
	}

	quote := Quote{Found: true, Coord: place.Coord, Label: place.Label}
	quote.InArea = q.inArea(place.Label)
	if !quote.InArea {
		return quote
	}

	quote.DistanceKm, quote.Fee = q.priceRoute(ctx, place.Coord)
	return quote
}

func (q *Quoter) priceRoute(ctx context.Context, to Coord) (distanceKm, fee float64) {
	d, err := q.router.DistanceKm(ctx, q.origin, to)
	if err != nil {
		q.logger.Warn("route distance failed, charging base fee", "error", err)
		return 0, q.policy.BaseFee
	}
	return d, q.policy.Fee(d)
}

func (q *Quoter) inArea(label string) bool {
	if q.geoPolicy.AreaToken == "" {
		return true
	}
	return strings.Contains(textnorm.Normalize(label), textnorm.Normalize(q.geoPolicy.AreaToken))
}
