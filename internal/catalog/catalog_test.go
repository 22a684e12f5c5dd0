package catalog

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citystrata/citystrata/internal/fixture"
	"github.com/citystrata/citystrata/internal/model"
)

func ids(rs []model.Resource) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Base().ID
	}
	return out
}

func buildCatalog(t *testing.T, rs ...model.Resource) *Catalog {
	t.Helper()
	b := NewBuilder(fixture.CityCode)
	for _, r := range rs {
		require.NoError(t, b.Add(r))
	}
	return b.Build()
}

func TestBuilder_Add(t *testing.T) {
	t.Parallel()

	b := NewBuilder(fixture.CityCode)
	require.NoError(t, b.Add(fixture.Lodging("l1", 11, 4)))
	// Same id in another kind is fine.
	require.NoError(t, b.Add(fixture.Institution("l1", 11)))

	err := b.Add(fixture.Lodging("l1", 12, 2))
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidParameter))

	err = b.Add(fixture.Lodging("", 12, 2))
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidParameter))

	other := fixture.Lodging("l9", 11, 2)
	other.CityCode = 5000
	err = b.Add(other)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvariant))

	bad := fixture.Lodging("l8", 11, 2)
	bad.Location = model.Point{Lon: 181, Lat: 0}
	err = b.Add(bad)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidParameter))

	err = b.Add(nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidParameter))

	var nilPtr *model.Facility
	err = b.Add(nilPtr)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidParameter))
}

func TestBuilder_PointersStoredByValue(t *testing.T) {
	t.Parallel()

	l := fixture.Lodging("l1", 11, 4)
	c := buildCatalog(t, &l)

	r, err := c.Get(model.KindLodging, "l1")
	require.NoError(t, err)
	_, ok := r.(model.Lodging)
	assert.True(t, ok)
}

func TestCatalog_Accessors(t *testing.T) {
	t.Parallel()

	unassigned := fixture.Lodging("l3", 0, 5)
	unassigned.Location = model.Point{Lon: 34.0, Lat: 29.0}

	c := buildCatalog(t,
		fixture.Lodging("l2", 11, 6),
		fixture.Lodging("l1", 11, 4),
		unassigned,
		fixture.Lodging("l4", 12, 80),
		fixture.Facility("f1", 11, "shelter"),
		fixture.Facility("f2", 12, "hospital"),
		fixture.Facility("f3", 13, "shelter"),
	)

	assert.Equal(t, fixture.CityCode, c.CityCode())
	assert.Equal(t, 4, c.Len(model.KindLodging))
	assert.Equal(t, 3, c.Assigned(model.KindLodging))
	assert.Zero(t, c.Len(model.KindInstitution))
	assert.Zero(t, c.Len(model.Kind("bogus")))

	assert.Equal(t, []string{"l1", "l2", "l3", "l4"}, ids(c.Resources(model.KindLodging)))
	assert.Equal(t, []string{"l1", "l2"}, ids(c.InArea(model.KindLodging, 11)))
	assert.Empty(t, c.InArea(model.KindLodging, 13))
	assert.Empty(t, c.InArea(model.KindInstitution, 11))

	r, err := c.Get(model.KindLodging, "l4")
	require.NoError(t, err)
	assert.Equal(t, 80, r.(model.Lodging).Capacity())

	_, err = c.Get(model.KindLodging, "nope")
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))

	_, err = c.Get(model.Kind("bogus"), "l1")
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidParameter))

	assert.Equal(t, []string{"hospital", "shelter"}, c.FacilityTypes())
}

func TestCatalog_ResourcesReturnsCopy(t *testing.T) {
	t.Parallel()

	c := buildCatalog(t, fixture.Lodging("l1", 11, 4), fixture.Lodging("l2", 11, 4))
	rs := c.Resources(model.KindLodging)
	rs[0] = nil
	assert.Equal(t, []string{"l1", "l2"}, ids(c.Resources(model.KindLodging)))
}
