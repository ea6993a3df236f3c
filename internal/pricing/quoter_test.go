package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeGeocoder struct {
	place      Place
	searchErr  error
	label      string
	reverseErr error
}

func (f *fakeGeocoder) Search(ctx context.Context, query string) (Place, error) {
	if f.searchErr != nil {
		return Place{}, f.searchErr
	}
	return f.place, nil
}

func (f *fakeGeocoder) Reverse(ctx context.Context, c Coord) (string, error) {
	if f.reverseErr != nil {
		return "", f.reverseErr
	}
	return f.label, nil
}

type fakeRouter struct {
	distanceKm float64
	err        error
}

func (f *fakeRouter) DistanceKm(ctx context.Context, from, to Coord) (float64, error) {
	return f.distanceKm, f.err
}

var origin = Coord{Lat: -25.23, Lng: -50.60}

func newTestQuoter(r Router, g Geocoder, failOpen bool) *Quoter {
	return NewQuoter(r, g, origin,
		WithGeoPolicy(GeoPolicy{AreaToken: "Imbituva", FailOpen: failOpen}))
}

func TestQuoteCoordsInArea(t *testing.T) {
	q := newTestQuoter(
		&fakeRouter{distanceKm: 5},
		&fakeGeocoder{label: "Rua das Flores, Imbituva - PR, Brasil"},
		true)

	quote := q.QuoteCoords(context.Background(), Coord{Lat: -25.2, Lng: -50.6})
	assert.True(t, quote.Found)
	assert.True(t, quote.InArea)
	assert.Equal(t, 5.0, quote.DistanceKm)
	assert.Equal(t, 9.0, quote.Fee)
}

func TestQuoteCoordsOutOfArea(t *testing.T) {
	q := newTestQuoter(
		&fakeRouter{distanceKm: 5},
		&fakeGeocoder{label: "Centro, Ponta Grossa - PR, Brasil"},
		true)

	quote := q.QuoteCoords(context.Background(), Coord{})
	assert.True(t, quote.Found)
	assert.False(t, quote.InArea)
	assert.Zero(t, quote.Fee, "out of area is never priced")
}

func TestQuoteCoordsReverseFailureFailOpen(t *testing.T) {
	q := newTestQuoter(
		&fakeRouter{distanceKm: 3},
		&fakeGeocoder{reverseErr: errors.New("timeout")},
		true)

	quote := q.QuoteCoords(context.Background(), Coord{})
	assert.True(t, quote.InArea, "fail-open accepts the destination")
	assert.Equal(t, 7.0, quote.Fee)
}

func TestQuoteCoordsReverseFailureFailClosed(t *testing.T) {
	q := newTestQuoter(
		&fakeRouter{distanceKm: 3},
		&fakeGeocoder{reverseErr: errors.New("timeout")},
		false)

	quote := q.QuoteCoords(context.Background(), Coord{})
	assert.False(t, quote.InArea)
}

func TestQuoteCoordsRouterFailureChargesBaseFee(t *testing.T) {
	q := newTestQuoter(
		&fakeRouter{err: errors.New("osrm down")},
		&fakeGeocoder{label: "Imbituva - PR"},
		true)

	quote := q.QuoteCoords(context.Background(), Coord{})
	assert.True(t, quote.InArea)
	assert.Equal(t, 7.0, quote.Fee)
	assert.Zero(t, quote.DistanceKm)
}

func TestQuoteAddressFound(t *testing.T) {
	geo := &fakeGeocoder{place: Place{
		Coord: Coord{Lat: -25.2, Lng: -50.6},
		Label: "Rua das Flores, 100, Imbituva - PR",
	}}
	q := newTestQuoter(&fakeRouter{distanceKm: 2}, geo, true)

	quote := q.QuoteAddress(context.Background(), "rua das flores 100")
	assert.True(t, quote.Found)
	assert.True(t, quote.InArea)
	assert.Equal(t, 7.0, quote.Fee)
}

func TestQuoteAddressNotFound(t *testing.T) {
	q := newTestQuoter(&fakeRouter{}, &fakeGeocoder{searchErr: ErrNoResult}, true)

	quote := q.QuoteAddress(context.Background(), "xyzzy")
	assert.False(t, quote.Found)
}

func TestQuoteAddressAreaTokenMatchIgnoresCase(t *testing.T) {
	geo := &fakeGeocoder{place: Place{Label: "Centro, IMBITUVA, Paraná"}}
	q := newTestQuoter(&fakeRouter{distanceKm: 1}, geo, true)

	quote := q.QuoteAddress(context.Background(), "centro")
	assert.True(t, quote.InArea)
}
