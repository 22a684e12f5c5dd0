// Package geospatial persists statistical areas and evacuation resources in
// PostGIS or SQLite and reads them back as model values.
package geospatial

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/citystrata/citystrata/internal/model"
	"github.com/citystrata/citystrata/internal/spatial"
)

// Reader loads the snapshot inputs for one city.
type Reader interface {
	// ListAreas returns every statistical area of cityCode by ascending code.
	ListAreas(ctx context.Context, cityCode int) ([]model.StatisticalArea, error)

	// ListResources returns every resource of kind in cityCode by id.
	ListResources(ctx context.Context, cityCode int, kind model.Kind) ([]model.Resource, error)
}

// Store is a Reader that the ingestion commands can also write through.
type Store interface {
	Reader

	// UpsertAreas inserts or replaces areas by (city_code, area_code).
	UpsertAreas(ctx context.Context, areas []model.StatisticalArea) (int64, error)

	// UpsertResources inserts or replaces resources of kind by id. Every
	// resource must be of kind.
	UpsertResources(ctx context.Context, kind model.Kind, rs []model.Resource) (int64, error)

	// UpdateAssignments stores recomputed area codes for resources of kind.
	UpdateAssignments(ctx context.Context, kind model.Kind, as []spatial.Assignment) (int64, error)

	// Migrate creates or upgrades the schema.
	Migrate(ctx context.Context) error

	Close() error
}

// field is a kind-specific resource column.
type field struct {
	name   string
	pgType string
	// text columns are read through COALESCE so NULL scans as "".
	text bool
}

func (f field) selectExpr() string {
	if f.text {
		return "COALESCE(" + f.name + ", '')"
	}
	return f.name
}

// resourceTable maps one kind onto its table.
type resourceTable struct {
	table  string
	fields []field
	values func(model.Resource) []any
}

var resourceTables = map[model.Kind]resourceTable{
	model.KindLodging: {
		table: "lodging",
		fields: []field{
			{name: "person_capacity", pgType: "integer"},
			{name: "price_per_night", pgType: "double precision"},
			{name: "rating", pgType: "double precision"},
			{name: "lodging_type", pgType: "text", text: true},
			{name: "url", pgType: "text", text: true},
		},
		values: func(r model.Resource) []any {
			l := r.(model.Lodging)
			return []any{l.PersonCapacity, l.PricePerNight, l.Rating, l.LodgingType, l.URL}
		},
	},
	model.KindInstitution: {
		table: "institutions",
		fields: []field{
			{name: "institution_code", pgType: "text", text: true},
			{name: "education_phase", pgType: "text", text: true},
			{name: "type_of_education", pgType: "text", text: true},
			{name: "address", pgType: "text", text: true},
		},
		values: func(r model.Resource) []any {
			i := r.(model.Institution)
			return []any{i.InstitutionCode, i.EducationPhase, i.TypeOfEducation, i.Address}
		},
	},
	model.KindFoodVenue: {
		table: "food_venues",
		fields: []field{
			{name: "category", pgType: "text", text: true},
			{name: "score", pgType: "double precision"},
			{name: "temporarily_closed", pgType: "boolean"},
			{name: "permanently_closed", pgType: "boolean"},
			{name: "venue_type", pgType: "text", text: true},
			{name: "url", pgType: "text", text: true},
		},
		values: func(r model.Resource) []any {
			f := r.(model.FoodVenue)
			return []any{f.Category, f.Score, f.TemporarilyClosed, f.PermanentlyClosed, f.VenueType, f.URL}
		},
	},
	model.KindCommunityCenter: {
		table: "community_centers",
		fields: []field{
			{name: "facility_area_m2", pgType: "integer"},
			{name: "occupancy", pgType: "integer"},
			{name: "address", pgType: "text", text: true},
			{name: "activity_days", pgType: "text", text: true},
		},
		values: func(r model.Resource) []any {
			c := r.(model.CommunityCenter)
			return []any{c.FacilityAreaM2, c.Occupancy, c.Address, c.ActivityDays}
		},
	},
	model.KindFacility: {
		table: "facilities",
		fields: []field{
			{name: "facility_type", pgType: "text", text: true},
		},
		values: func(r model.Resource) []any {
			return []any{r.(model.Facility).FacilityType}
		},
	},
}

func tableFor(kind model.Kind) (resourceTable, error) {
	t, ok := resourceTables[kind]
	if !ok {
		return resourceTable{}, eris.Wrapf(model.ErrInvalidParameter, "geo: unknown resource kind %q", kind)
	}
	return t, nil
}

// rowTarget holds scan destinations for one resource row.
type rowTarget struct {
	base   *model.ResourceBase
	extra  []any
	finish func() model.Resource
}

// dest returns scan destinations in the common column order (id, city_code,
// name, lon, lat, assigned_area_code) followed by the kind's fields.
func (rt rowTarget) dest() []any {
	d := []any{
		&rt.base.ID, &rt.base.CityCode, &rt.base.Name,
		&rt.base.Location.Lon, &rt.base.Location.Lat, &rt.base.AreaCode,
	}
	return append(d, rt.extra...)
}

func newRowTarget(kind model.Kind) rowTarget {
	switch kind {
	case model.KindLodging:
		var l model.Lodging
		return rowTarget{&l.ResourceBase, []any{&l.PersonCapacity, &l.PricePerNight, &l.Rating, &l.LodgingType, &l.URL}, func() model.Resource { return l }}
	case model.KindInstitution:
		var i model.Institution
		return rowTarget{&i.ResourceBase, []any{&i.InstitutionCode, &i.EducationPhase, &i.TypeOfEducation, &i.Address}, func() model.Resource { return i }}
	case model.KindFoodVenue:
		var f model.FoodVenue
		return rowTarget{&f.ResourceBase, []any{&f.Category, &f.Score, &f.TemporarilyClosed, &f.PermanentlyClosed, &f.VenueType, &f.URL}, func() model.Resource { return f }}
	case model.KindCommunityCenter:
		var c model.CommunityCenter
		return rowTarget{&c.ResourceBase, []any{&c.FacilityAreaM2, &c.Occupancy, &c.Address, &c.ActivityDays}, func() model.Resource { return c }}
	default:
		var f model.Facility
		return rowTarget{&f.ResourceBase, []any{&f.FacilityType}, func() model.Resource { return f }}
	}
}

// checkKinds rejects resources that are not of kind.
func checkKinds(kind model.Kind, rs []model.Resource) error {
	for _, r := range rs {
		if r == nil || r.Kind() != kind {
			return eris.Wrapf(model.ErrInvalidParameter, "geo: resource is not a %s", kind)
		}
	}
	return nil
}

// normalizeAll holds every resource by value so the per-kind value
// functions can assert concrete types.
func normalizeAll(rs []model.Resource) []model.Resource {
	out := make([]model.Resource, len(rs))
	for i, r := range rs {
		out[i] = model.Normalize(r)
	}
	return out
}

func assignmentRows(kind model.Kind, as []spatial.Assignment) ([][]any, error) {
	rows := make([][]any, 0, len(as))
	for _, a := range as {
		if a.Kind != kind {
			return nil, eris.Wrapf(model.ErrInvalidParameter, "geo: assignment for %s %s passed as %s", a.Kind, a.ID, kind)
		}
		rows = append(rows, []any{a.ID, a.AreaCode})
	}
	return rows, nil
}
