package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyFee(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name       string
		distanceKm float64
		want       float64
	}{
		{name: "inside flat radius", distanceKm: 2, want: 7},
		{name: "exactly at radius", distanceKm: 4, want: 7},
		{name: "one km past radius", distanceKm: 5, want: 9},
		{name: "fraction rounds to nearest", distanceKm: 5.2, want: 9},
		{name: "fraction rounds up", distanceKm: 5.8, want: 11},
		{name: "far but under ceiling", distanceKm: 30, want: 59},
		{name: "over ceiling clamps to base", distanceKm: 40, want: 7},
		{name: "implausible route gets base fee", distanceKm: 120, want: 7},
		{name: "zero distance", distanceKm: 0, want: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Fee(tt.distanceKm))
		})
	}
}

func TestPolicyFeeCapAtCeiling(t *testing.T) {
	p := DefaultPolicy()
	p.ClampToBase = false

	assert.Equal(t, 65.0, p.Fee(40), "without clamp the fee caps at the ceiling")
}

func TestPolicyFeeNoCeiling(t *testing.T) {
	p := DefaultPolicy()
	p.CeilingFee = 0
	p.MaxRouteKm = 0

	assert.Equal(t, 79.0, p.Fee(40))
}
