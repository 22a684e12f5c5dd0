package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citystrata/citystrata/internal/fixture"
	"github.com/citystrata/citystrata/internal/model"
)

const areasGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"stat_2022": 12, "name": "North Beach"},
      "geometry": {"type": "Polygon", "coordinates": [[[34.94,29.54],[34.95,29.54],[34.95,29.55],[34.94,29.55],[34.94,29.54]]]}
    },
    {
      "type": "Feature",
      "properties": {"area_code": "11", "area_m2": 1000},
      "geometry": {"type": "MultiPolygon", "coordinates": [[[[34.93,29.54],[34.94,29.54],[34.94,29.55],[34.93,29.55],[34.93,29.54]]]]}
    }
  ]
}`

func TestLoadAreasFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "areas.geojson")
	require.NoError(t, os.WriteFile(path, []byte(areasGeoJSON), 0o600))

	areas, err := LoadAreasFromFile(path, fixture.CityCode)
	require.NoError(t, err)
	require.Len(t, areas, 2)

	assert.Equal(t, 12, areas[0].AreaCode)
	assert.Equal(t, fixture.CityCode, areas[0].CityCode)
	assert.Equal(t, "North Beach", areas[0].Properties["name"])
	require.NotNil(t, areas[0].AreaM2)
	assert.InDelta(t, 1.07e6, *areas[0].AreaM2, 0.05e6)
	require.NotNil(t, areas[0].Centroid)
	assert.InDelta(t, 34.945, areas[0].Centroid.Lon, 1e-9)

	assert.Equal(t, 11, areas[1].AreaCode)
	require.NotNil(t, areas[1].AreaM2)
	assert.InDelta(t, 1000, *areas[1].AreaM2, 1e-9)

	r, err := New(fixture.CityCode, areas)
	require.NoError(t, err)
	assert.Equal(t, []int{11, 12}, r.Codes())
}

func TestLoadAreasFromFile_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadAreasFromFile(filepath.Join(t.TempDir(), "missing.geojson"), fixture.CityCode)
	require.Error(t, err)

	_, err = ParseAreasGeoJSON([]byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"name":"x"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}
	]}`), fixture.CityCode)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidParameter))

	_, err = ParseAreasGeoJSON([]byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"area_code":1},"geometry":{"type":"Point","coordinates":[0,0]}}
	]}`), fixture.CityCode)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrGeometry))

	_, err = ParseAreasGeoJSON([]byte(`not json`), fixture.CityCode)
	require.Error(t, err)
}
