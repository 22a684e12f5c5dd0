package model

import "math"

// Point is a geographic position. Coordinates are always degrees in
// [longitude, latitude] order (EPSG:4326), never projected meters.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Valid reports whether p is a finite lon/lat pair inside the WGS84 range.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) || math.IsInf(p.Lon, 0) || math.IsInf(p.Lat, 0) {
		return false
	}
	return p.Lon >= -180 && p.Lon <= 180 && p.Lat >= -90 && p.Lat <= 90
}

// Ring is an ordered sequence of vertices. The closing vertex may or may not
// repeat the first one.
type Ring []Point

// Polygon is an exterior ring followed by zero or more holes.
type Polygon []Ring

// MultiPolygon is the geometry of a statistical area. Single polygons are
// stored as a one-element MultiPolygon.
type MultiPolygon []Polygon

// Bounds is an axis-aligned lon/lat bounding box.
type Bounds struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// EmptyBounds returns bounds that contain nothing and grow on Extend.
func EmptyBounds() Bounds {
	return Bounds{
		MinLon: math.Inf(1), MinLat: math.Inf(1),
		MaxLon: math.Inf(-1), MaxLat: math.Inf(-1),
	}
}

// Extend grows b to include p.
func (b *Bounds) Extend(p Point) {
	b.MinLon = math.Min(b.MinLon, p.Lon)
	b.MinLat = math.Min(b.MinLat, p.Lat)
	b.MaxLon = math.Max(b.MaxLon, p.Lon)
	b.MaxLat = math.Max(b.MaxLat, p.Lat)
}

// Union grows b to include o.
func (b *Bounds) Union(o Bounds) {
	b.MinLon = math.Min(b.MinLon, o.MinLon)
	b.MinLat = math.Min(b.MinLat, o.MinLat)
	b.MaxLon = math.Max(b.MaxLon, o.MaxLon)
	b.MaxLat = math.Max(b.MaxLat, o.MaxLat)
}

// Empty reports whether b has never been extended.
func (b Bounds) Empty() bool {
	return b.MinLon > b.MaxLon || b.MinLat > b.MaxLat
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon && p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

// BoundsOf returns the bounding box of every vertex in mp.
func BoundsOf(mp MultiPolygon) Bounds {
	b := EmptyBounds()
	for _, poly := range mp {
		for _, ring := range poly {
			for _, p := range ring {
				b.Extend(p)
			}
		}
	}
	return b
}
