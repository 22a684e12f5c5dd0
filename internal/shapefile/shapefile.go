// Package shapefile reads statistical-area polygons from ESRI shapefiles.
package shapefile

import (
	"math"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/citystrata/citystrata/internal/geo"
	"github.com/citystrata/citystrata/internal/model"
)

// Default attribute names of the national statistical-areas layer.
const (
	DefaultCityField = "SEMEL_YISH"
	DefaultAreaField = "STAT_2022"
)

// Options selects the rows to read.
type Options struct {
	CityCode  int
	CityField string // default DefaultCityField
	AreaField string // default DefaultAreaField
}

func (o Options) withDefaults() Options {
	if o.CityField == "" {
		o.CityField = DefaultCityField
	}
	if o.AreaField == "" {
		o.AreaField = DefaultAreaField
	}
	return o
}

// ReadAreas reads the polygons of opts.CityCode from the shapefile at path.
// Coordinates must already be WGS84 lon/lat. Every attribute is copied into
// Properties, numeric fields as float64. AreaM2 and Centroid are computed.
func ReadAreas(path string, opts Options) ([]model.StatisticalArea, error) {
	opts = opts.withDefaults()
	log := zap.L().With(zap.String("component", "shapefile"), zap.String("path", path))

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	numeric := make([]bool, len(fields))
	cityIdx, areaIdx := -1, -1
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
		numeric[i] = f.Fieldtype == 'N' || f.Fieldtype == 'F'
		switch {
		case strings.EqualFold(names[i], opts.CityField):
			cityIdx = i
		case strings.EqualFold(names[i], opts.AreaField):
			areaIdx = i
		}
	}
	if cityIdx < 0 {
		return nil, eris.Wrapf(model.ErrInvalidParameter, "shapefile: column %q not found", opts.CityField)
	}
	if areaIdx < 0 {
		return nil, eris.Wrapf(model.ErrInvalidParameter, "shapefile: column %q not found", opts.AreaField)
	}

	var areas []model.StatisticalArea
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()

		city, ok := intAttr(reader.Attribute(cityIdx))
		if !ok || city != opts.CityCode {
			continue
		}
		code, ok := intAttr(reader.Attribute(areaIdx))
		if !ok {
			return nil, eris.Wrapf(model.ErrInvalidParameter, "shapefile: record %d has invalid %s %q", n, opts.AreaField, reader.Attribute(areaIdx))
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil || poly.NumParts == 0 {
			skipped++
			continue
		}
		mp, err := MultiPolygon(poly)
		if err != nil {
			return nil, eris.Wrapf(err, "shapefile: area %d", code)
		}

		props := make(map[string]any, len(fields))
		for i := range fields {
			props[names[i]] = attrValue(reader.Attribute(i), numeric[i])
		}

		areaM2 := geo.SphericalArea(mp)
		centroid := geo.Centroid(mp)
		areas = append(areas, model.StatisticalArea{
			AreaCode:   code,
			CityCode:   city,
			Geometry:   mp,
			AreaM2:     &areaM2,
			Centroid:   &centroid,
			Properties: props,
			Source:     "shapefile",
		})
	}

	if skipped > 0 {
		log.Debug("shapefile: skipped records without polygon geometry", zap.Int("skipped", skipped))
	}
	if len(areas) == 0 {
		return nil, eris.Wrapf(model.ErrNotFound, "shapefile: no rows for %s=%d", opts.CityField, opts.CityCode)
	}
	log.Info("read statistical areas", zap.Int("areas", len(areas)), zap.Int("city_code", opts.CityCode))
	return areas, nil
}

// MultiPolygon converts a shapefile polygon into the model geometry. Parts
// are grouped by orientation: clockwise rings are exteriors and each
// counter-clockwise ring becomes a hole of the exterior that contains it.
// Coordinates outside the lon/lat range fail with model.ErrGeometry.
func MultiPolygon(p *shp.Polygon) (model.MultiPolygon, error) {
	rings := make([]model.Ring, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if start < 0 || start > end || end > int32(len(p.Points)) {
			return nil, eris.Wrapf(model.ErrGeometry, "shapefile: part %d has invalid bounds", i)
		}
		ring := make(model.Ring, 0, end-start)
		for _, pt := range p.Points[start:end] {
			q := model.Point{Lon: pt.X, Lat: pt.Y}
			if !q.Valid() {
				return nil, eris.Wrapf(model.ErrGeometry, "shapefile: coordinate (%g, %g) is not lon/lat", pt.X, pt.Y)
			}
			ring = append(ring, q)
		}
		rings = append(rings, ring)
	}
	return groupRings(rings), nil
}

// groupRings assembles polygons from rings in shapefile order. Each hole
// belongs to the smallest exterior containing it, so islands nested inside
// a hole keep their own holes. When no ring is clockwise every ring is taken
// as an exterior.
func groupRings(rings []model.Ring) model.MultiPolygon {
	var exteriors, holes []model.Ring
	for _, r := range rings {
		if geo.SignedArea(geo.NormalizeRing(r)) < 0 {
			exteriors = append(exteriors, r)
		} else {
			holes = append(holes, r)
		}
	}
	if len(exteriors) == 0 {
		mp := make(model.MultiPolygon, len(holes))
		for i, r := range holes {
			mp[i] = model.Polygon{r}
		}
		return mp
	}

	mp := make(model.MultiPolygon, len(exteriors))
	sizes := make([]float64, len(exteriors))
	for i, r := range exteriors {
		mp[i] = model.Polygon{r}
		sizes[i] = math.Abs(geo.SignedArea(geo.NormalizeRing(r)))
	}
	for _, h := range holes {
		owner := -1
		for i, ext := range exteriors {
			if len(h) == 0 || !geo.Contains(model.MultiPolygon{{ext}}, h[0]) {
				continue
			}
			if owner < 0 || sizes[i] < sizes[owner] {
				owner = i
			}
		}
		if owner < 0 {
			// An orphan hole is an island drawn the other way round.
			mp = append(mp, model.Polygon{reverse(h)})
			continue
		}
		mp[owner] = append(mp[owner], h)
	}
	return mp
}

func reverse(r model.Ring) model.Ring {
	out := make(model.Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

func intAttr(s string) (int, bool) {
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func attrValue(s string, numeric bool) any {
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	if s == "" {
		return nil
	}
	if numeric {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}
