package registry

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/citystrata/citystrata/internal/geo"
	"github.com/citystrata/citystrata/internal/model"
)

// areaCodeKeys are the feature properties that may carry the area code, in
// lookup order.
var areaCodeKeys = []string{"area_code", "stat_2022", "STAT_2022"}

// LoadAreasFromFile reads a GeoJSON FeatureCollection of statistical-area
// polygons from path. Features without an area code property fail; missing
// area_m2 and centroid are computed from the geometry.
func LoadAreasFromFile(path string, cityCode int) ([]model.StatisticalArea, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read areas fixture")
	}
	return ParseAreasGeoJSON(data, cityCode)
}

// ParseAreasGeoJSON decodes a FeatureCollection into areas of cityCode.
func ParseAreasGeoJSON(data []byte, cityCode int) ([]model.StatisticalArea, error) {
	var fc geojson.FeatureCollection
	if err := fc.UnmarshalJSON(data); err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal areas fixture")
	}

	areas := make([]model.StatisticalArea, 0, len(fc.Features))
	for i, f := range fc.Features {
		code, ok := areaCode(f.Properties)
		if !ok {
			return nil, eris.Wrapf(model.ErrInvalidParameter, "registry: feature %d has no area code", i)
		}
		mp, err := geo.FromGeom(f.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "registry: feature %d (area %d)", i, code)
		}

		a := model.StatisticalArea{
			AreaCode:   code,
			CityCode:   cityCode,
			Geometry:   mp,
			Properties: f.Properties,
			Source:     "geojson",
		}
		if v, ok := number(f.Properties["area_m2"]); ok {
			a.AreaM2 = &v
		} else {
			m2 := geo.SphericalArea(mp)
			a.AreaM2 = &m2
		}
		c := geo.Centroid(mp)
		a.Centroid = &c
		areas = append(areas, a)
	}
	return areas, nil
}

func areaCode(props map[string]any) (int, bool) {
	for _, k := range areaCodeKeys {
		v, ok := props[k]
		if !ok {
			continue
		}
		if f, ok := number(v); ok {
			return int(f), true
		}
	}
	return 0, false
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	case nil:
		return 0, false
	default:
		f, err := strconv.ParseFloat(fmt.Sprint(t), 64)
		return f, err == nil
	}
}
