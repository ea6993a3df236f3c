package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brutusburger/brutabot/internal/pricing"
)

func TestNominatimSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "rua das flores, imbituva", r.URL.Query().Get("q"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(`[{"lat":"-25.2","lon":"-50.6","display_name":"Rua das Flores, Imbituva - PR"}]`))
	}))
	defer srv.Close()

	g := NewNominatimGeocoder("brutabot-test", WithNominatimURL(srv.URL))
	place, err := g.Search(context.Background(), "rua das flores, imbituva")
	require.NoError(t, err)
	assert.Equal(t, -25.2, place.Coord.Lat)
	assert.Equal(t, -50.6, place.Coord.Lng)
	assert.Equal(t, "Rua das Flores, Imbituva - PR", place.Label)
}

func TestNominatimSearchNoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewNominatimGeocoder("brutabot-test", WithNominatimURL(srv.URL))
	_, err := g.Search(context.Background(), "xyzzy")
	assert.ErrorIs(t, err, pricing.ErrNoResult)
}

func TestNominatimReverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		w.Write([]byte(`{"lat":"-25.2","lon":"-50.6","display_name":"Centro, Imbituva - PR"}`))
	}))
	defer srv.Close()

	g := NewNominatimGeocoder("brutabot-test", WithNominatimURL(srv.URL))
	label, err := g.Reverse(context.Background(), pricing.Coord{Lat: -25.2, Lng: -50.6})
	require.NoError(t, err)
	assert.Equal(t, "Centro, Imbituva - PR", label)
}

func TestNominatimServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewNominatimGeocoder("brutabot-test", WithNominatimURL(srv.URL))
	_, err := g.Search(context.Background(), "anything")
	assert.Error(t, err)
}

func TestOSRMDistance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/route/v1/driving/")
		w.Write([]byte(`{"code":"Ok","routes":[{"distance":5230.4}]}`))
	}))
	defer srv.Close()

	r := NewOSRMRouter(WithOSRMURL(srv.URL))
	km, err := r.DistanceKm(context.Background(),
		pricing.Coord{Lat: -25.23, Lng: -50.6},
		pricing.Coord{Lat: -25.2, Lng: -50.6})
	require.NoError(t, err)
	assert.InDelta(t, 5.2304, km, 1e-9)
}

func TestOSRMNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"NoRoute","routes":[]}`))
	}))
	defer srv.Close()

	r := NewOSRMRouter(WithOSRMURL(srv.URL))
	_, err := r.DistanceKm(context.Background(), pricing.Coord{}, pricing.Coord{})
	assert.Error(t, err)
}
