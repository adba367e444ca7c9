package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	t.Run("identical points", func(t *testing.T) {
		assert.Equal(t, 0.0, DistanceMeters(6.5244, 3.3792, 6.5244, 3.3792))
	})

	t.Run("symmetric", func(t *testing.T) {
		ab := DistanceMeters(6.5244, 3.3792, 6.4550, 3.3841)
		ba := DistanceMeters(6.4550, 3.3841, 6.5244, 3.3792)
		assert.InDelta(t, ab, ba, 1e-9)
	})

	t.Run("non-negative", func(t *testing.T) {
		assert.GreaterOrEqual(t, DistanceMeters(-33.8688, 151.2093, 51.5074, -0.1278), 0.0)
	})

	t.Run("known distance", func(t *testing.T) {
		// One degree of latitude on the equator is ~111.19 km for R=6371000.
		d := DistanceMeters(0, 0, 1, 0)
		assert.InDelta(t, 111194.9, d, 10)
	})

	t.Run("short range", func(t *testing.T) {
		// ~0.000225 degrees latitude ≈ 25 m, the default geofence radius.
		d := DistanceMeters(6.5244, 3.3792, 6.5244+0.000225, 3.3792)
		assert.InDelta(t, 25, d, 0.5)
	})
}

func TestBetween(t *testing.T) {
	a := Coordinates{Latitude: 6.5244, Longitude: 3.3792}
	b := Coordinates{Latitude: 6.5250, Longitude: 3.3800}
	assert.Equal(t, DistanceMeters(a.Latitude, a.Longitude, b.Latitude, b.Longitude), Between(a, b))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		want     Status
	}{
		{"well inside", 5, StatusInside},
		{"near edge", 23, StatusBorder},
		{"on the radius", 25, StatusBorder},
		{"just outside", 25.01, StatusOutside},
		{"far outside", 100, StatusOutside},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.distance, 25, 3))
		})
	}
}
