package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/citystrata/citystrata/internal/model"
)

// SRID of every geometry the core handles.
const SRID = 4326

// ToGeom converts mp to a go-geom MultiPolygon with closed rings.
func ToGeom(mp model.MultiPolygon) (*geom.MultiPolygon, error) {
	g := geom.NewMultiPolygon(geom.XY).SetSRID(SRID)
	for pi, poly := range mp {
		p := geom.NewPolygon(geom.XY)
		for ri, ring := range poly {
			lr := geom.NewLinearRingFlat(geom.XY, closedFlatCoords(ring))
			if err := p.Push(lr); err != nil {
				return nil, eris.Wrapf(err, "geo: polygon %d ring %d", pi, ri)
			}
		}
		if err := g.Push(p); err != nil {
			return nil, eris.Wrapf(err, "geo: polygon %d", pi)
		}
	}
	return g, nil
}

// FromGeom converts a go-geom Polygon or MultiPolygon to the model type.
// Other geometry types fail with model.ErrGeometry.
func FromGeom(g geom.T) (model.MultiPolygon, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		return model.MultiPolygon{polygonFromGeom(t)}, nil
	case *geom.MultiPolygon:
		mp := make(model.MultiPolygon, 0, t.NumPolygons())
		for i := 0; i < t.NumPolygons(); i++ {
			mp = append(mp, polygonFromGeom(t.Polygon(i)))
		}
		return mp, nil
	default:
		return nil, eris.Wrapf(model.ErrGeometry, "geo: unsupported geometry type %T", g)
	}
}

func polygonFromGeom(p *geom.Polygon) model.Polygon {
	poly := make(model.Polygon, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		coords := p.LinearRing(i).Coords()
		ring := make(model.Ring, 0, len(coords))
		for _, c := range coords {
			ring = append(ring, model.Point{Lon: c.X(), Lat: c.Y()})
		}
		poly = append(poly, ring)
	}
	return poly
}

// PointGeom converts p to a go-geom Point.
func PointGeom(p model.Point) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}).SetSRID(SRID)
}

// EncodeEWKB encodes mp as little-endian EWKB with SRID 4326.
func EncodeEWKB(mp model.MultiPolygon) ([]byte, error) {
	g, err := ToGeom(mp)
	if err != nil {
		return nil, err
	}
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode EWKB")
	}
	return data, nil
}

// DecodeEWKB decodes an EWKB Polygon or MultiPolygon.
func DecodeEWKB(data []byte) (model.MultiPolygon, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "geo: decode EWKB")
	}
	return FromGeom(g)
}

// EncodeGeoJSON encodes mp as a GeoJSON MultiPolygon geometry.
func EncodeGeoJSON(mp model.MultiPolygon) ([]byte, error) {
	g, err := ToGeom(mp)
	if err != nil {
		return nil, err
	}
	data, err := geojson.Marshal(g)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode GeoJSON")
	}
	return data, nil
}

// DecodeGeoJSON decodes a GeoJSON Polygon or MultiPolygon geometry.
func DecodeGeoJSON(data []byte) (model.MultiPolygon, error) {
	var g geom.T
	if err := geojson.Unmarshal(data, &g); err != nil {
		return nil, eris.Wrap(err, "geo: decode GeoJSON")
	}
	return FromGeom(g)
}

// closedFlatCoords flattens r to x,y pairs, repeating the first vertex at
// the end when r is open.
func closedFlatCoords(r model.Ring) []float64 {
	flat := make([]float64, 0, (len(r)+1)*2)
	for _, p := range r {
		flat = append(flat, p.Lon, p.Lat)
	}
	if len(r) > 0 && r[0] != r[len(r)-1] {
		flat = append(flat, r[0].Lon, r[0].Lat)
	}
	return flat
}
