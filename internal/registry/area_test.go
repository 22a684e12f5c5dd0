package registry

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citystrata/citystrata/internal/fixture"
	"github.com/citystrata/citystrata/internal/model"
)

func newFixtureRegistry(t *testing.T) *AreaRegistry {
	t.Helper()
	r, err := New(fixture.CityCode, fixture.Areas())
	require.NoError(t, err)
	return r
}

func TestNew_SortsAndIndexes(t *testing.T) {
	t.Parallel()

	areas := fixture.Areas()
	// Reverse input order; the registry sorts by code.
	areas[0], areas[2] = areas[2], areas[0]

	r, err := New(fixture.CityCode, areas)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []int{11, 12, 13}, r.Codes())
	assert.Equal(t, fixture.CityCode, r.CityCode())
	assert.True(t, r.Has(12))
	assert.False(t, r.Has(99))

	b := r.Bounds()
	assert.InDelta(t, 34.93, b.MinLon, 1e-9)
	assert.InDelta(t, 34.96, b.MaxLon, 1e-9)
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	t.Run("negative city code", func(t *testing.T) {
		_, err := New(-1, nil)
		require.Error(t, err)
		assert.True(t, eris.Is(err, model.ErrInvariant))
	})

	t.Run("city code mismatch", func(t *testing.T) {
		a := fixture.Area(11, fixture.Square(34.93, 29.54, 0.01))
		a.CityCode = 5000
		_, err := New(fixture.CityCode, []model.StatisticalArea{a})
		require.Error(t, err)
		assert.True(t, eris.Is(err, model.ErrInvariant))
	})

	t.Run("duplicate area code", func(t *testing.T) {
		areas := append(fixture.Areas(), fixture.Area(11, fixture.Square(35, 29, 0.01)))
		_, err := New(fixture.CityCode, areas)
		require.Error(t, err)
		assert.True(t, eris.Is(err, model.ErrInvalidParameter))
	})

	t.Run("malformed polygon", func(t *testing.T) {
		bad := fixture.Area(14, model.Ring{{Lon: 34.9, Lat: 29.5}, {Lon: 34.91, Lat: 29.5}})
		_, err := New(fixture.CityCode, append(fixture.Areas(), bad))
		require.Error(t, err)
		assert.True(t, eris.Is(err, model.ErrGeometry))
		assert.Contains(t, err.Error(), "area 14")
	})

	t.Run("self intersecting", func(t *testing.T) {
		bowtie := fixture.Area(15, model.Ring{
			{Lon: 34.90, Lat: 29.50}, {Lon: 34.92, Lat: 29.52},
			{Lon: 34.92, Lat: 29.50}, {Lon: 34.90, Lat: 29.53},
		})
		_, err := New(fixture.CityCode, []model.StatisticalArea{bowtie})
		require.Error(t, err)
		assert.True(t, eris.Is(err, model.ErrGeometry))
	})
}

func TestLookup(t *testing.T) {
	t.Parallel()

	r := newFixtureRegistry(t)

	a, err := r.Lookup(12)
	require.NoError(t, err)
	assert.Equal(t, 12, a.AreaCode)
	assert.Equal(t, fixture.CityCode, a.CityCode)

	_, err = r.Lookup(404)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))
}

func TestContainingArea(t *testing.T) {
	t.Parallel()

	r := newFixtureRegistry(t)

	for _, code := range []int{11, 12, 13} {
		got, ok := r.ContainingArea(fixture.Center(code))
		require.True(t, ok, "area %d", code)
		assert.Equal(t, code, got)
	}

	_, ok := r.ContainingArea(model.Point{Lon: 34.5, Lat: 29.545})
	assert.False(t, ok, "point west of every area")

	_, ok = r.ContainingArea(model.Point{Lon: 34.945, Lat: 29.6})
	assert.False(t, ok, "point north of every area")

	_, ok = r.ContainingArea(model.Point{Lon: 400, Lat: 0})
	assert.False(t, ok, "invalid point")
}

func TestContainingArea_SharedEdgeLowestCodeWins(t *testing.T) {
	t.Parallel()

	r := newFixtureRegistry(t)

	// lon 34.95 is the edge between 12 and 13.
	p := model.Point{Lon: 34.95, Lat: 29.545}
	assert.Equal(t, []int{12, 13}, r.ContainingAreas(p))

	got, ok := r.ContainingArea(p)
	require.True(t, ok)
	assert.Equal(t, 12, got)
}

func TestContainingArea_OverlapLowestCodeWins(t *testing.T) {
	t.Parallel()

	big := fixture.Area(30, fixture.Square(34.90, 29.50, 0.2))
	small := fixture.Area(20, fixture.Square(34.95, 29.55, 0.01))
	r, err := New(fixture.CityCode, []model.StatisticalArea{big, small})
	require.NoError(t, err)

	p := model.Point{Lon: 34.955, Lat: 29.555}
	assert.Equal(t, []int{20, 30}, r.ContainingAreas(p))
	got, ok := r.ContainingArea(p)
	require.True(t, ok)
	assert.Equal(t, 20, got)

	got, ok = r.ContainingArea(model.Point{Lon: 34.91, Lat: 29.51})
	require.True(t, ok)
	assert.Equal(t, 30, got)
}

func TestAreas_ReturnsCopy(t *testing.T) {
	t.Parallel()

	r := newFixtureRegistry(t)
	areas := r.Areas()
	areas[0].AreaCode = 999

	a, err := r.Lookup(11)
	require.NoError(t, err)
	assert.Equal(t, 11, a.AreaCode)
}
