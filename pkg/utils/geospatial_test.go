package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	// Downtown Cairo to Giza is roughly 8km
	distance := HaversineDistance(30.0444, 31.2357, 29.9870, 31.2118)
	assert.InDelta(t, 6.8, distance, 1.5)

	// Zero distance for the same point
	assert.Zero(t, HaversineDistance(30.04, 31.23, 30.04, 31.23))
}

func TestIsWithinRadius(t *testing.T) {
	assert.True(t, IsWithinRadius(30.0444, 31.2357, 30.0500, 31.2400, 2))
	assert.False(t, IsWithinRadius(30.0444, 31.2357, 29.9870, 31.2118, 2))
}

func TestCalculateETA(t *testing.T) {
	assert.Equal(t, 20, CalculateETA(10, 30))
	// Zero speed falls back to the city default
	assert.Equal(t, 20, CalculateETA(10, 0))
	// Never reports less than a minute
	assert.Equal(t, 1, CalculateETA(0.1, 60))
}

func TestValidCoordinates(t *testing.T) {
	tests := []struct {
		name  string
		lat   float64
		lng   float64
		valid bool
	}{
		{"origin", 0, 0, true},
		{"cairo", 30.0444, 31.2357, true},
		{"lat bounds", 90, 180, true},
		{"lat too high", 90.1, 0, false},
		{"lat too low", -90.1, 0, false},
		{"lng too high", 0, 180.1, false},
		{"lng too low", 0, -180.1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidCoordinates(tt.lat, tt.lng))
		})
	}
}
