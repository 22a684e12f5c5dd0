package geo

import (
	"math"

	"github.com/citystrata/citystrata/internal/model"
)

// boundaryTolerance is the cross-product magnitude (square degrees) under
// which a point is treated as lying on an edge.
const boundaryTolerance = 1e-12

// Contains reports whether p lies inside mp. Polygons are closed: a point on
// an exterior or hole boundary is inside.
func Contains(mp model.MultiPolygon, p model.Point) bool {
	for _, poly := range mp {
		if polygonContains(poly, p) {
			return true
		}
	}
	return false
}

func polygonContains(poly model.Polygon, p model.Point) bool {
	if len(poly) == 0 {
		return false
	}
	in, edge := ringContains(poly[0], p)
	if edge {
		return true
	}
	if !in {
		return false
	}
	for _, hole := range poly[1:] {
		hin, hedge := ringContains(hole, p)
		if hedge {
			return true
		}
		if hin {
			return false
		}
	}
	return true
}

// ringContains runs an even-odd ray cast from p towards +lon. edge is true
// when p lies on one of the ring's edges, in which case inside is undefined.
func ringContains(r model.Ring, p model.Point) (inside, edge bool) {
	n := len(r)
	if n == 0 {
		return false, false
	}
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := r[j], r[i]
		if onSegment(a, b, p) {
			return false, true
		}
		if (b.Lat > p.Lat) != (a.Lat > p.Lat) {
			x := (a.Lon-b.Lon)*(p.Lat-b.Lat)/(a.Lat-b.Lat) + b.Lon
			if p.Lon < x {
				inside = !inside
			}
		}
	}
	return inside, false
}

func onSegment(a, b, p model.Point) bool {
	if !within(a, b, p) {
		return false
	}
	return math.Abs(orient(a, b, p)) <= boundaryTolerance
}
