// Package config loads the shop configuration from a YAML file.
//
// Everything an operator tunes lives here: the store location, the
// fee schedule, the delivery-area token, timers, and the paths of the
// SQLite databases. Fields left out of the file keep their defaults,
// so a minimal config only needs the store coordinates.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brutusburger/brutabot/internal/pricing"
)

// Config is the full shop configuration.
type Config struct {
	// Store is the origin for route distance calculations.
	Store StoreConfig `yaml:"store"`

	// Pricing holds the delivery fee schedule.
	Pricing PricingConfig `yaml:"pricing"`

	// Geo controls geocoding and area validation.
	Geo GeoConfig `yaml:"geo"`

	// Checkout tunes the conversation flow.
	Checkout CheckoutConfig `yaml:"checkout"`

	// Databases holds the SQLite file paths.
	Databases DatabaseConfig `yaml:"databases"`
}

// StoreConfig locates the shop.
type StoreConfig struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lng  float64 `yaml:"lng"`
}

// PricingConfig mirrors the fee schedule fields.
type PricingConfig struct {
	BaseFee      float64 `yaml:"base_fee"`
	PerKmFee     float64 `yaml:"per_km_fee"`
	BaseRadiusKm float64 `yaml:"base_radius_km"`
	CeilingFee   float64 `yaml:"ceiling_fee"`
	ClampToBase  bool    `yaml:"clamp_to_base"`
	MaxRouteKm   float64 `yaml:"max_route_km"`
}

// GeoConfig configures the external geocoding and routing services.
type GeoConfig struct {
	// AreaToken must appear in geocoded labels for in-area delivery.
	AreaToken string `yaml:"area_token"`
	// FailOpen accepts destinations when reverse geocoding fails.
	FailOpen bool `yaml:"fail_open"`
	// NominatimURL overrides the geocoder endpoint.
	NominatimURL string `yaml:"nominatim_url"`
	// OSRMURL overrides the routing endpoint.
	OSRMURL string `yaml:"osrm_url"`
	// UserAgent identifies the bot to Nominatim. Required by their
	// usage policy when using the public instance.
	UserAgent string `yaml:"user_agent"`
}

// CheckoutConfig tunes the conversation flow.
type CheckoutConfig struct {
	// PickupEnabled adds the delivery-or-pickup question.
	PickupEnabled bool `yaml:"pickup_enabled"`
	// PixKey is quoted when the customer picks pix.
	PixKey string `yaml:"pix_key"`
	// FollowupDelay is the idle time before the nudge message.
	FollowupDelay time.Duration `yaml:"followup_delay"`
}

// DatabaseConfig holds the SQLite file paths.
type DatabaseConfig struct {
	Catalog  string `yaml:"catalog"`
	Orders   string `yaml:"orders"`
	Messages string `yaml:"messages"`
}

// Default returns a config with the shop's standard settings. The
// store coordinates are zero and must come from the file.
func Default() Config {
	p := pricing.DefaultPolicy()
	return Config{
		Pricing: PricingConfig{
			BaseFee:      p.BaseFee,
			PerKmFee:     p.PerKmFee,
			BaseRadiusKm: p.BaseRadiusKm,
			CeilingFee:   p.CeilingFee,
			ClampToBase:  p.ClampToBase,
			MaxRouteKm:   p.MaxRouteKm,
		},
		Geo: GeoConfig{
			FailOpen:  true,
			UserAgent: "brutabot",
		},
		Checkout: CheckoutConfig{
			PickupEnabled: true,
			FollowupDelay: 10 * time.Minute,
		},
		Databases: DatabaseConfig{
			Catalog:  "catalog.db",
			Orders:   "orders.db",
			Messages: "messages.db",
		},
	}
}

// Load reads and validates a config file. Missing fields keep their
// defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first configuration error found.
func (c Config) Validate() error {
	if c.Store.Lat == 0 && c.Store.Lng == 0 {
		return fmt.Errorf("store coordinates are required")
	}
	if c.Pricing.BaseFee < 0 || c.Pricing.PerKmFee < 0 {
		return fmt.Errorf("fees must not be negative")
	}
	if c.Pricing.BaseRadiusKm < 0 {
		return fmt.Errorf("base radius must not be negative")
	}
	if c.Pricing.CeilingFee > 0 && c.Pricing.CeilingFee < c.Pricing.BaseFee {
		return fmt.Errorf("ceiling fee %.2f is below base fee %.2f", c.Pricing.CeilingFee, c.Pricing.BaseFee)
	}
	if c.Checkout.FollowupDelay < 0 {
		return fmt.Errorf("followup delay must not be negative")
	}
	for name, path := range map[string]string{
		"catalog":  c.Databases.Catalog,
		"orders":   c.Databases.Orders,
		"messages": c.Databases.Messages,
	} {
		if path == "" {
			return fmt.Errorf("%s database path is required", name)
		}
	}
	return nil
}

// Policy converts the pricing section to the fee schedule type.
func (c Config) Policy() pricing.Policy {
	return pricing.Policy{
		BaseFee:      c.Pricing.BaseFee,
		PerKmFee:     c.Pricing.PerKmFee,
		BaseRadiusKm: c.Pricing.BaseRadiusKm,
		CeilingFee:   c.Pricing.CeilingFee,
		ClampToBase:  c.Pricing.ClampToBase,
		MaxRouteKm:   c.Pricing.MaxRouteKm,
	}
}

// GeoPolicy converts the geo section to the area-validation type.
func (c Config) GeoPolicy() pricing.GeoPolicy {
	return pricing.GeoPolicy{
		AreaToken: c.Geo.AreaToken,
		FailOpen:  c.Geo.FailOpen,
	}
}

// Origin returns the store coordinates.
func (c Config) Origin() pricing.Coord {
	return pricing.Coord{Lat: c.Store.Lat, Lng: c.Store.Lng}
}
