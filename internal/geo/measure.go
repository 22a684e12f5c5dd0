package geo

import (
	"math"

	"github.com/citystrata/citystrata/internal/model"
)

// SphericalArea returns the area of mp in square meters on the sphere, with
// holes subtracted.
func SphericalArea(mp model.MultiPolygon) float64 {
	var total float64
	for _, poly := range mp {
		for i, ring := range poly {
			a := math.Abs(ringSphericalArea(NormalizeRing(ring)))
			if i == 0 {
				total += a
			} else {
				total -= a
			}
		}
	}
	return total
}

// ringSphericalArea follows Chamberlain & Duquette, "Some Algorithms for
// Polygons on a Sphere" (JPL 2007).
func ringSphericalArea(r model.Ring) float64 {
	n := len(r)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		p1 := r[i]
		p2 := r[(i+1)%n]
		sum += (p2.Lon - p1.Lon) * degToRad * (2 + math.Sin(p1.Lat*degToRad) + math.Sin(p2.Lat*degToRad))
	}
	return sum * EarthRadiusMeters * EarthRadiusMeters / 2
}

// Centroid returns the area-weighted planar centroid of mp in lon/lat.
// Degenerate input falls back to the mean vertex.
func Centroid(mp model.MultiPolygon) model.Point {
	var wsum, cx, cy float64
	var n int
	var mx, my float64
	for _, poly := range mp {
		for i, ring := range poly {
			r := NormalizeRing(ring)
			for _, p := range r {
				mx += p.Lon
				my += p.Lat
				n++
			}
			a, c := ringCentroid(r)
			if i > 0 {
				a = -a
			}
			wsum += a
			cx += a * c.Lon
			cy += a * c.Lat
		}
	}
	if wsum == 0 {
		if n == 0 {
			return model.Point{}
		}
		return model.Point{Lon: mx / float64(n), Lat: my / float64(n)}
	}
	return model.Point{Lon: cx / wsum, Lat: cy / wsum}
}

// ringCentroid returns the absolute planar area and centroid of r.
func ringCentroid(r model.Ring) (float64, model.Point) {
	n := len(r)
	if n < 3 {
		return 0, model.Point{}
	}
	var a, cx, cy float64
	for i := 0; i < n; i++ {
		p := r[i]
		q := r[(i+1)%n]
		cross := p.Lon*q.Lat - q.Lon*p.Lat
		a += cross
		cx += (p.Lon + q.Lon) * cross
		cy += (p.Lat + q.Lat) * cross
	}
	if a == 0 {
		return 0, model.Point{}
	}
	a /= 2
	c := model.Point{Lon: cx / (6 * a), Lat: cy / (6 * a)}
	return math.Abs(a), c
}
