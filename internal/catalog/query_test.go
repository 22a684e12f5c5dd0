package catalog

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citystrata/citystrata/internal/fixture"
	"github.com/citystrata/citystrata/internal/model"
)

func queryCatalog(t *testing.T) *Catalog {
	t.Helper()

	cheap := fixture.Lodging("l1", 11, 2)
	cheap.Name = "Beach Flat"
	cheap.PricePerNight = fixture.Float(300)
	cheap.Rating = fixture.Float(4.2)

	big := fixture.Lodging("l2", 11, 8)
	big.Name = "Villa"
	big.PricePerNight = fixture.Float(1200)
	big.Rating = fixture.Float(4.9)

	hotel := fixture.Lodging("l3", 12, -1)
	hotel.Name = "Astral"
	hotel.LodgingType = "hotel"
	hotel.Rating = fixture.Float(3.8)

	pizza := fixture.FoodVenue("r1", 11, false, false)
	pizza.Name = "Pizza"
	pizza.Score = fixture.Float(4.5)

	closed := fixture.FoodVenue("r2", 11, false, true)
	closed.Name = "Closed Grill"
	closed.Score = fixture.Float(4.8)

	cafe := fixture.FoodVenue("r3", 12, true, false)
	cafe.Name = "Aroma"
	cafe.Category = "Cafe"
	cafe.VenueType = "coffee_shop"

	school := fixture.Institution("i1", 11)
	school.Name = "Ofarim"
	school.TypeOfEducation = "state"
	kinder := fixture.Institution("i2", 11)
	kinder.Name = "Gan"
	kinder.EducationPhase = "kindergarten"

	matnas := fixture.CommunityCenter("m1", 12)
	matnas.FacilityAreaM2 = model.IntPtr(900)
	matnas.Occupancy = model.IntPtr(250)
	small := fixture.CommunityCenter("m2", 13)
	small.FacilityAreaM2 = model.IntPtr(100)

	return buildCatalog(t,
		cheap, big, hotel,
		pizza, closed, cafe,
		school, kinder,
		matnas, small,
		fixture.Facility("f1", 11, "shelter"),
		fixture.Facility("f2", 12, "hospital"),
		fixture.Facility("f3", 13, "pharmacy"),
	)
}

func TestList(t *testing.T) {
	t.Parallel()

	c := queryCatalog(t)

	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"all lodging by name", Query{Kind: model.KindLodging}, []string{"l3", "l1", "l2"}},
		{"lodging in area", Query{Kind: model.KindLodging, AreaCode: model.IntPtr(11)}, []string{"l1", "l2"}},
		{"min capacity skips unset", Query{Kind: model.KindLodging, MinCapacity: model.IntPtr(1)}, []string{"l1", "l2"}},
		{"max price", Query{Kind: model.KindLodging, MaxPrice: fixture.Float(500)}, []string{"l1"}},
		{"min rating", Query{Kind: model.KindLodging, MinRating: fixture.Float(4.0)}, []string{"l1", "l2"}},
		{"lodging type", Query{Kind: model.KindLodging, LodgingType: "hotel"}, []string{"l3"}},
		{"limit", Query{Kind: model.KindLodging, Limit: 2}, []string{"l3", "l1"}},
		{"food excludes permanently closed", Query{Kind: model.KindFoodVenue}, []string{"r3", "r1"}},
		{"food include closed", Query{Kind: model.KindFoodVenue, IncludeClosed: true}, []string{"r3", "r2", "r1"}},
		{"food category", Query{Kind: model.KindFoodVenue, Category: "Cafe"}, []string{"r3"}},
		{"food min score", Query{Kind: model.KindFoodVenue, MinScore: fixture.Float(4.0)}, []string{"r1"}},
		{"institution phase", Query{Kind: model.KindInstitution, EducationPhase: "kindergarten"}, []string{"i2"}},
		{"institution type", Query{Kind: model.KindInstitution, TypeOfEducation: "state"}, []string{"i1"}},
		{"community min area", Query{Kind: model.KindCommunityCenter, MinFacilityArea: model.IntPtr(500)}, []string{"m1"}},
		{"community min occupancy", Query{Kind: model.KindCommunityCenter, MinOccupancy: model.IntPtr(1)}, []string{"m1"}},
		{"facility types", Query{Kind: model.KindFacility, FacilityTypes: []string{"shelter", "pharmacy"}}, []string{"f1", "f3"}},
		{"empty area", Query{Kind: model.KindFacility, AreaCode: model.IntPtr(99)}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.List(tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestList_RejectsBadQueries(t *testing.T) {
	t.Parallel()

	c := queryCatalog(t)

	tests := []struct {
		name string
		q    Query
	}{
		{"empty kind", Query{}},
		{"unknown kind", Query{Kind: "spaceship"}},
		{"negative limit", Query{Kind: model.KindLodging, Limit: -1}},
		{"score on lodging", Query{Kind: model.KindLodging, MinScore: fixture.Float(1)}},
		{"capacity on food", Query{Kind: model.KindFoodVenue, MinCapacity: model.IntPtr(1)}},
		{"phase on facility", Query{Kind: model.KindFacility, EducationPhase: "primary"}},
		{"facility types on lodging", Query{Kind: model.KindLodging, FacilityTypes: []string{"x"}}},
		{"occupancy on institution", Query{Kind: model.KindInstitution, MinOccupancy: model.IntPtr(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.List(tt.q)
			require.Error(t, err)
			assert.True(t, eris.Is(err, model.ErrInvalidParameter))
		})
	}
}
