package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	// Lausanne to Bern, roughly 78km.
	distance := HaversineKm(46.52, 6.63, 46.95, 7.44)
	assert.InDelta(t, 78, distance, 3)

	// Same point.
	assert.Zero(t, HaversineKm(46.52, 6.63, 46.52, 6.63))

	// Symmetry.
	assert.InDelta(t,
		HaversineKm(46.52, 6.63, 48.85, 2.35),
		HaversineKm(48.85, 2.35, 46.52, 6.63),
		0.001,
	)
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(46.52, 6.63))
	assert.True(t, ValidCoordinates(-90, 180))
	assert.False(t, ValidCoordinates(90.1, 0))
	assert.False(t, ValidCoordinates(0, -180.5))
}
