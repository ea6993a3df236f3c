package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMinimal(t *testing.T) {
	cfg, err := Parse([]byte(`
store:
  name: Brutus Burger
  lat: -25.2302
  lng: -50.6043
`))
	require.NoError(t, err)

	// everything else keeps defaults
	assert.Equal(t, 7.0, cfg.Pricing.BaseFee)
	assert.Equal(t, 2.0, cfg.Pricing.PerKmFee)
	assert.Equal(t, 4.0, cfg.Pricing.BaseRadiusKm)
	assert.Equal(t, 65.0, cfg.Pricing.CeilingFee)
	assert.True(t, cfg.Pricing.ClampToBase)
	assert.True(t, cfg.Geo.FailOpen)
	assert.True(t, cfg.Checkout.PickupEnabled)
	assert.Equal(t, 10*time.Minute, cfg.Checkout.FollowupDelay)
	assert.Equal(t, "catalog.db", cfg.Databases.Catalog)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
store:
  lat: -25.2302
  lng: -50.6043
pricing:
  base_fee: 5
  ceiling_fee: 50
geo:
  area_token: imbituva
  fail_open: false
checkout:
  pickup_enabled: false
  pix_key: "chave@pix"
  followup_delay: 5m
databases:
  orders: /tmp/orders.db
`))
	require.NoError(t, err)

	assert.Equal(t, 5.0, cfg.Pricing.BaseFee)
	assert.Equal(t, 50.0, cfg.Pricing.CeilingFee)
	assert.Equal(t, "imbituva", cfg.Geo.AreaToken)
	assert.False(t, cfg.Geo.FailOpen)
	assert.False(t, cfg.Checkout.PickupEnabled)
	assert.Equal(t, "chave@pix", cfg.Checkout.PixKey)
	assert.Equal(t, 5*time.Minute, cfg.Checkout.FollowupDelay)
	assert.Equal(t, "/tmp/orders.db", cfg.Databases.Orders)
	// unset db paths keep defaults
	assert.Equal(t, "catalog.db", cfg.Databases.Catalog)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing coordinates",
			yaml: `pricing: {base_fee: 7}`,
			want: "store coordinates",
		},
		{
			name: "negative fee",
			yaml: "store: {lat: -25, lng: -50}\npricing: {base_fee: -1}",
			want: "must not be negative",
		},
		{
			name: "ceiling below base",
			yaml: "store: {lat: -25, lng: -50}\npricing: {base_fee: 10, ceiling_fee: 5}",
			want: "below base fee",
		},
		{
			name: "empty db path",
			yaml: "store: {lat: -25, lng: -50}\ndatabases: {catalog: \"\"}",
			want: "database path is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("store: [not a map"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  lat: -25.2302
  lng: -50.6043
geo:
  area_token: imbituva
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, -25.2302, cfg.Store.Lat)
	assert.Equal(t, "imbituva", cfg.Geo.AreaToken)

	policy := cfg.Policy()
	assert.Equal(t, 7.0, policy.BaseFee)
	geo := cfg.GeoPolicy()
	assert.Equal(t, "imbituva", geo.AreaToken)
	origin := cfg.Origin()
	assert.Equal(t, -25.2302, origin.Lat)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
