package geo

import (
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/citystrata/citystrata/internal/model"
)

// AreaFeature renders a as a GeoJSON Feature. Stored attributes come first
// and the fixed area fields override them.
func AreaFeature(a model.StatisticalArea) (*geojson.Feature, error) {
	g, err := ToGeom(a.Geometry)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: area %d", a.AreaCode)
	}
	props := make(map[string]any, len(a.Properties)+5)
	for k, v := range a.Properties {
		props[k] = v
	}
	props["area_code"] = a.AreaCode
	props["city_code"] = a.CityCode
	if a.AreaM2 != nil {
		props["area_m2"] = *a.AreaM2
	}
	if a.Centroid != nil {
		props["centroid"] = []float64{a.Centroid.Lon, a.Centroid.Lat}
	}
	if a.Source != "" {
		props["source"] = a.Source
	}
	return &geojson.Feature{
		ID:         strconv.Itoa(a.AreaCode),
		Geometry:   g,
		Properties: props,
	}, nil
}

// ResourceFeature renders r as a GeoJSON Point Feature whose properties are
// r's JSON fields without the location, plus kind and extra.
func ResourceFeature(r model.Resource, extra map[string]any) (*geojson.Feature, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode resource")
	}
	props := map[string]any{}
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, eris.Wrap(err, "geo: decode resource")
	}
	delete(props, "location")
	props["kind"] = string(r.Kind())
	for k, v := range extra {
		props[k] = v
	}
	base := r.Base()
	return &geojson.Feature{
		ID:         base.ID,
		Geometry:   PointGeom(base.Location),
		Properties: props,
	}, nil
}

// NewFeatureCollection wraps fs; an empty input yields an empty, non-null
// features array.
func NewFeatureCollection(fs []*geojson.Feature) *geojson.FeatureCollection {
	if fs == nil {
		fs = []*geojson.Feature{}
	}
	return &geojson.FeatureCollection{Features: fs}
}
