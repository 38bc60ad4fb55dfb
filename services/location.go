package services

import (
	"fmt"
	"math"

	"studysync/models"
)

const earthRadiusKm = 6371.0

// NearbyRadiusKm is the distance under which two users count as nearby
const NearbyRadiusKm = 10.0

// DistanceKm returns the haversine distance between two coordinates.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

// UserDistanceKm returns the distance between two users, or false if either lacks coordinates.
func UserDistanceKm(a, b *models.User) (float64, bool) {
	if !a.HasCoordinates() || !b.HasCoordinates() {
		return 0, false
	}
	return DistanceKm(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude), true
}

// DescribeDistance renders a distance for display.
func DescribeDistance(km float64, known bool) string {
	switch {
	case !known:
		return "Location not available"
	case km < 0.5:
		return "Very close (less than 0.5 km)"
	case km < 10:
		return fmt.Sprintf("%.1f km away", km)
	default:
		return fmt.Sprintf("%.0f km away", km)
	}
}
