package utils

import (
	"math"

	models "github.com/phillip/food-rescue-go/models"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// CalculateDistance returns the great-circle distance in kilometres using the Haversine formula
func CalculateDistance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Distance is CalculateDistance over two coordinate pairs.
func Distance(a, b models.Coordinates) float64 {
	return CalculateDistance(a.Lat, a.Lng, b.Lat, b.Lng)
}
