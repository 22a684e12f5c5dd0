// Package geo provides the lon/lat geometry used by the core: geodesic
// distance, polygon validation, point-in-polygon containment, area
// measurement and conversion to go-geom types for GeoJSON and EWKB exchange.
package geo

import (
	"math"

	"github.com/citystrata/citystrata/internal/model"
)

// EarthRadiusMeters is the IUGG mean Earth radius.
const EarthRadiusMeters = 6371008.8

const degToRad = math.Pi / 180

// Distance returns the great-circle (haversine) distance in meters between
// a and b.
func Distance(a, b model.Point) float64 {
	lat1 := a.Lat * degToRad
	lat2 := b.Lat * degToRad
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * degToRad

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// CapBounds returns the lon/lat box enclosing every point within meters of
// p. ok is false when the cap reaches a pole or crosses the antimeridian, in
// which case no useful box exists.
func CapBounds(p model.Point, meters float64) (b model.Bounds, ok bool) {
	delta := meters / EarthRadiusMeters
	dLat := delta / degToRad
	if p.Lat+dLat >= 90 || p.Lat-dLat <= -90 {
		return b, false
	}
	cosLat := math.Cos(p.Lat * degToRad)
	s := math.Sin(delta) / cosLat
	if s >= 1 {
		return b, false
	}
	dLon := math.Asin(s) / degToRad
	if p.Lon-dLon < -180 || p.Lon+dLon > 180 {
		return b, false
	}
	return model.Bounds{
		MinLon: p.Lon - dLon,
		MinLat: p.Lat - dLat,
		MaxLon: p.Lon + dLon,
		MaxLat: p.Lat + dLat,
	}, true
}
