// Package pricing computes delivery fees from route distance and
// validates that a destination sits inside the delivery area.
//
// External dependencies (the routing engine and the geocoder) are
// accepted as interfaces; failures on either side degrade toward the
// base fee rather than blocking the order, matching how the shop
// actually operates: a wrong fee is fixable at the door, a stuck
// checkout is a lost sale.
package pricing

import "math"

// Policy holds the fee schedule.
type Policy struct {
	// BaseFee is charged for any route within BaseRadiusKm.
	BaseFee float64
	// PerKmFee is charged per kilometer beyond BaseRadiusKm.
	PerKmFee float64
	// BaseRadiusKm is the flat-fee radius.
	BaseRadiusKm float64
	// CeilingFee caps the computed fee. Zero disables the check.
	CeilingFee float64
	// ClampToBase controls what happens above the ceiling: true drops
	// the fee back to BaseFee (operator quotes by hand), false caps at
	// CeilingFee.
	ClampToBase bool
	// MaxRouteKm marks a route as implausible (bad geocode). Distances
	// beyond it get the base fee. Zero disables the check.
	MaxRouteKm float64
}

// DefaultPolicy is the shop's fee schedule.
func DefaultPolicy() Policy {
	return Policy{
		BaseFee:      7,
		PerKmFee:     2,
		BaseRadiusKm: 4,
		CeilingFee:   65,
		ClampToBase:  true,
		MaxRouteKm:   70,
	}
}

// Fee computes the delivery fee for a route distance. Fees beyond the
// flat radius are rounded to whole currency units.
func (p Policy) Fee(distanceKm float64) float64 {
	if distanceKm <= p.BaseRadiusKm {
		return p.BaseFee
	}
	if p.MaxRouteKm > 0 && distanceKm > p.MaxRouteKm {
		return p.BaseFee
	}
	fee := math.Round(p.BaseFee + (distanceKm-p.BaseRadiusKm)*p.PerKmFee)
	if p.CeilingFee > 0 && fee > p.CeilingFee {
		if p.ClampToBase {
			return p.BaseFee
		}
		return p.CeilingFee
	}
	return fee
}

// GeoPolicy controls delivery-area validation.
type GeoPolicy struct {
	// AreaToken must appear in the geocoded label (compared in
	// normalized form) for a destination to count as in-area.
	AreaToken string
	// FailOpen accepts the destination when reverse geocoding errors
	// out. The order proceeds and the operator eyeballs the address.
	FailOpen bool
}
