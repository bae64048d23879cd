// Package geo provides great-circle distance and bounding-box helpers for
// candidate generation over report coordinates.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used for haversine distances.
const EarthRadiusKm = 6371.0

// kmPerDegreeLat is the approximate north-south span of one degree of
// latitude. Good enough for bounding-box prefiltering; exact distances come
// from DistanceKm afterwards.
const kmPerDegreeLat = 111.0

// DistanceKm returns the haversine great-circle distance in kilometers
// between two latitude/longitude pairs.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// BoundingBox is a latitude/longitude rectangle.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// BoxAround returns a bounding box extending radiusKm in each direction from
// the given point. Longitude degrees shrink with cos(latitude); near the
// poles the correction is clamped so the box stays finite.
func BoxAround(lat, lng, radiusKm float64) BoundingBox {
	latDelta := radiusKm / kmPerDegreeLat

	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lngDelta := radiusKm / (kmPerDegreeLat * cosLat)

	return BoundingBox{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLng: lng - lngDelta,
		MaxLng: lng + lngDelta,
	}
}
