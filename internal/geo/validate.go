package geo

import (
	"github.com/rotisserie/eris"

	"github.com/citystrata/citystrata/internal/model"
)

// NormalizeRing drops consecutive duplicate vertices and the closing vertex,
// returning the distinct vertices of r in order.
func NormalizeRing(r model.Ring) model.Ring {
	out := make(model.Ring, 0, len(r))
	for _, p := range r {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

// SignedArea returns the planar shoelace area of r in square degrees.
// Positive means counter-clockwise.
func SignedArea(r model.Ring) float64 {
	n := len(r)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		a := r[i]
		b := r[(i+1)%n]
		sum += a.Lon*b.Lat - b.Lon*a.Lat
	}
	return sum / 2
}

// ValidateMultiPolygon checks that every ring of mp has at least three
// distinct vertices inside the lon/lat range, is not degenerate, does not
// intersect itself, and that holes wind opposite to their exterior ring.
// Failures wrap model.ErrGeometry.
func ValidateMultiPolygon(mp model.MultiPolygon) error {
	if len(mp) == 0 {
		return eris.Wrap(model.ErrGeometry, "geo: empty geometry")
	}
	for pi, poly := range mp {
		if len(poly) == 0 {
			return eris.Wrapf(model.ErrGeometry, "geo: polygon %d has no rings", pi)
		}
		var exteriorSign float64
		for ri, ring := range poly {
			r := NormalizeRing(ring)
			if err := validateRing(r); err != nil {
				return eris.Wrapf(err, "geo: polygon %d ring %d", pi, ri)
			}
			area := SignedArea(r)
			if ri == 0 {
				exteriorSign = area
				continue
			}
			if (area > 0) == (exteriorSign > 0) {
				return eris.Wrapf(model.ErrGeometry, "geo: polygon %d hole %d winds the same way as its exterior", pi, ri)
			}
		}
	}
	return nil
}

func validateRing(r model.Ring) error {
	if len(r) < 3 {
		return eris.Wrapf(model.ErrGeometry, "ring has %d distinct vertices, need at least 3", len(r))
	}
	for _, p := range r {
		if !p.Valid() {
			return eris.Wrapf(model.ErrGeometry, "vertex (%g, %g) outside lon/lat range", p.Lon, p.Lat)
		}
	}
	if SignedArea(r) == 0 {
		return eris.Wrap(model.ErrGeometry, "ring has zero area")
	}
	if i, j, ok := selfIntersection(r); ok {
		return eris.Wrapf(model.ErrGeometry, "ring self-intersects between edges %d and %d", i, j)
	}
	return nil
}

// selfIntersection reports the first pair of edges of r that touch or
// cross, other than the shared vertex of neighbouring edges. A neighbouring
// pair that folds back onto itself also counts.
func selfIntersection(r model.Ring) (int, int, bool) {
	n := len(r)
	for i := 0; i < n; i++ {
		a1, a2 := r[i], r[(i+1)%n]

		// Spike: the next edge doubles back along this one.
		a3 := r[(i+2)%n]
		if orient(a1, a2, a3) == 0 && dot(a1, a2, a3) > 0 {
			return i, (i + 1) % n, true
		}

		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue // neighbours through the closing vertex
			}
			b1, b2 := r[j], r[(j+1)%n]
			if segmentsIntersect(a1, a2, b1, b2) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// orient is the cross product of (b-a) and (c-a).
func orient(a, b, c model.Point) float64 {
	return (b.Lon-a.Lon)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lon-a.Lon)
}

// dot is the dot product of (a-b) and (c-b); positive when a and c lie on
// the same side of b.
func dot(a, b, c model.Point) float64 {
	return (a.Lon-b.Lon)*(c.Lon-b.Lon) + (a.Lat-b.Lat)*(c.Lat-b.Lat)
}

// within reports whether c lies in the bounding box of segment ab.
func within(a, b, c model.Point) bool {
	return c.Lon >= min(a.Lon, b.Lon) && c.Lon <= max(a.Lon, b.Lon) &&
		c.Lat >= min(a.Lat, b.Lat) && c.Lat <= max(a.Lat, b.Lat)
}

func segmentsIntersect(p1, p2, q1, q2 model.Point) bool {
	d1 := orient(q1, q2, p1)
	d2 := orient(q1, q2, p2)
	d3 := orient(p1, p2, q1)
	d4 := orient(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	switch {
	case d1 == 0 && within(q1, q2, p1):
		return true
	case d2 == 0 && within(q1, q2, p2):
		return true
	case d3 == 0 && within(p1, p2, q1):
		return true
	case d4 == 0 && within(p1, p2, q2):
		return true
	}
	return false
}
