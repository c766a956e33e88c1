package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Point builds an orb point from latitude/longitude order.
func Point(lat, lng float64) orb.Point {
	return orb.Point{lng, lat}
}

// DistanceM is the great-circle distance in meters.
func DistanceM(a, b orb.Point) float64 {
	return orbgeo.DistanceHaversine(a, b)
}

func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	return DistanceM(Point(lat1, lng1), Point(lat2, lng2)) / 1000
}

// ValidCoordinate reports whether lat/lng are finite and inside WGS-84 bounds.
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// OffsetNorth moves p by meters along its meridian.
func OffsetNorth(p orb.Point, meters float64) orb.Point {
	return orb.Point{p.Lon(), p.Lat() + meters/orb.EarthRadius*180/math.Pi}
}
