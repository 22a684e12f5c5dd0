package shapefile

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citystrata/citystrata/internal/geo"
	"github.com/citystrata/citystrata/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// cwSquare returns a closed clockwise square, the shapefile exterior order.
func cwSquare(x, y, size float64) []shp.Point {
	return []shp.Point{{X: x, Y: y}, {X: x, Y: y + size}, {X: x + size, Y: y + size}, {X: x + size, Y: y}, {X: x, Y: y}}
}

// ccwSquare returns a closed counter-clockwise square, the hole order.
func ccwSquare(x, y, size float64) []shp.Point {
	return []shp.Point{{X: x, Y: y}, {X: x + size, Y: y}, {X: x + size, Y: y + size}, {X: x, Y: y + size}, {X: x, Y: y}}
}

type record struct {
	parts [][]shp.Point
	city  int
	area  int
	name  string
}

func writeShapefile(t *testing.T, records []record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "areas.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.SetFields([]shp.Field{ //nolint:errcheck
		shp.NumberField("SEMEL_YISH", 10),
		shp.NumberField("STAT_2022", 10),
		shp.StringField("SHEM", 20),
	})
	for i, r := range records {
		poly := shp.Polygon(*shp.NewPolyLine(r.parts))
		w.Write(&poly)
		require.NoError(t, w.WriteAttribute(i, 0, r.city))
		require.NoError(t, w.WriteAttribute(i, 1, r.area))
		require.NoError(t, w.WriteAttribute(i, 2, r.name))
	}
	w.Close()
	return path
}

func TestReadAreas(t *testing.T) {
	path := writeShapefile(t, []record{
		{parts: [][]shp.Point{cwSquare(34.93, 29.54, 0.01), ccwSquare(34.933, 29.543, 0.002)}, city: 2600, area: 11, name: "North"},
		{parts: [][]shp.Point{cwSquare(34.94, 29.54, 0.01)}, city: 2600, area: 12, name: "Center"},
		{parts: [][]shp.Point{cwSquare(34.78, 32.08, 0.01)}, city: 5000, area: 1, name: "Elsewhere"},
	})

	areas, err := ReadAreas(path, Options{CityCode: 2600})
	require.NoError(t, err)
	require.Len(t, areas, 2)

	a := areas[0]
	assert.Equal(t, 11, a.AreaCode)
	assert.Equal(t, 2600, a.CityCode)
	assert.Equal(t, "shapefile", a.Source)
	require.Len(t, a.Geometry, 1)
	assert.Len(t, a.Geometry[0], 2, "hole attached to its exterior")
	assert.NoError(t, geo.ValidateMultiPolygon(a.Geometry))
	require.NotNil(t, a.AreaM2)
	assert.Greater(t, *a.AreaM2, 0.0)
	assert.InDelta(t, geo.SphericalArea(a.Geometry), *a.AreaM2, 1e-6)
	require.NotNil(t, a.Centroid)
	assert.Equal(t, "North", a.Properties["SHEM"])
	assert.Equal(t, 11.0, a.Properties["STAT_2022"])

	assert.False(t, geo.Contains(a.Geometry, model.Point{Lon: 34.934, Lat: 29.544}), "point in hole")
	assert.True(t, geo.Contains(a.Geometry, model.Point{Lon: 34.931, Lat: 29.541}))
	assert.Equal(t, 12, areas[1].AreaCode)
}

func TestReadAreas_NoRowsForCity(t *testing.T) {
	path := writeShapefile(t, []record{
		{parts: [][]shp.Point{cwSquare(34.93, 29.54, 0.01)}, city: 2600, area: 11},
	})

	_, err := ReadAreas(path, Options{CityCode: 70})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))
}

func TestReadAreas_MissingColumn(t *testing.T) {
	path := writeShapefile(t, []record{
		{parts: [][]shp.Point{cwSquare(34.93, 29.54, 0.01)}, city: 2600, area: 11},
	})

	_, err := ReadAreas(path, Options{CityCode: 2600, AreaField: "STAT_2011"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidParameter))
}

func TestReadAreas_ProjectedCoordinates(t *testing.T) {
	path := writeShapefile(t, []record{
		{parts: [][]shp.Point{cwSquare(194000, 385000, 1000)}, city: 2600, area: 11},
	})

	_, err := ReadAreas(path, Options{CityCode: 2600})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrGeometry))
}

func TestReadAreas_MissingFile(t *testing.T) {
	_, err := ReadAreas(filepath.Join(t.TempDir(), "nope.shp"), Options{CityCode: 2600})
	assert.Error(t, err)
}

func TestGroupRings(t *testing.T) {
	toRing := func(pts []shp.Point) model.Ring {
		r := make(model.Ring, len(pts))
		for i, p := range pts {
			r[i] = model.Point{Lon: p.X, Lat: p.Y}
		}
		return r
	}

	tests := []struct {
		name  string
		rings []model.Ring
		want  []int // rings per polygon
	}{
		{"single exterior", []model.Ring{toRing(cwSquare(0, 0, 1))}, []int{1}},
		{"exterior with hole", []model.Ring{toRing(cwSquare(0, 0, 1)), toRing(ccwSquare(0.2, 0.2, 0.1))}, []int{2}},
		{"two exteriors, hole in second", []model.Ring{
			toRing(cwSquare(0, 0, 1)), toRing(cwSquare(5, 5, 1)), toRing(ccwSquare(5.2, 5.2, 0.1)),
		}, []int{1, 2}},
		{"only counter-clockwise", []model.Ring{toRing(ccwSquare(0, 0, 1)), toRing(ccwSquare(5, 5, 1))}, []int{1, 1}},
		{"orphan hole becomes island", []model.Ring{toRing(cwSquare(0, 0, 1)), toRing(ccwSquare(3, 3, 1))}, []int{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mp := groupRings(tt.rings)
			var got []int
			for _, p := range mp {
				got = append(got, len(p))
			}
			assert.Equal(t, tt.want, got)
			assert.NoError(t, geo.ValidateMultiPolygon(mp))
		})
	}
}

func TestGroupRings_NestedIsland(t *testing.T) {
	toRing := func(pts []shp.Point) model.Ring {
		r := make(model.Ring, len(pts))
		for i, p := range pts {
			r[i] = model.Point{Lon: p.X, Lat: p.Y}
		}
		return r
	}

	outer := toRing(cwSquare(0, 0, 10))
	lake := toRing(ccwSquare(1, 1, 8))
	island := toRing(cwSquare(2, 2, 6))
	pond := toRing(ccwSquare(3, 3, 1))

	mp := groupRings([]model.Ring{outer, lake, island, pond})
	require.Len(t, mp, 2)
	assert.Equal(t, model.Polygon{outer, lake}, mp[0])
	assert.Equal(t, model.Polygon{island, pond}, mp[1], "hole goes to the innermost exterior")
	assert.NoError(t, geo.ValidateMultiPolygon(mp))
}

func TestIntAttr(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"2600", 2600, true},
		{" 11 ", 11, true},
		{"11.0", 11, true},
		{"11.5", 0, false},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := intAttr(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
