package catalog

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/citystrata/citystrata/internal/model"
)

// Query filters one resource kind. Zero values mean "no filter". Filters
// that do not apply to Kind are rejected by List.
type Query struct {
	Kind     model.Kind
	AreaCode *int
	Limit    int

	// Food venues.
	Category      string
	MinScore      *float64
	IncludeClosed bool

	// Lodging.
	MinCapacity *int
	MinRating   *float64
	MaxPrice    *float64
	LodgingType string

	// Institutions.
	EducationPhase  string
	TypeOfEducation string

	// Community centers.
	MinFacilityArea *int
	MinOccupancy    *int

	// Generic facilities.
	FacilityTypes []string
}

// Validate rejects unknown kinds, negative limits and filters that do not
// apply to q.Kind with model.ErrInvalidParameter.
func (q Query) Validate() error {
	if !q.Kind.Valid() {
		return eris.Wrapf(model.ErrInvalidParameter, "catalog: unknown resource kind %q", q.Kind)
	}
	if q.Limit < 0 {
		return eris.Wrapf(model.ErrInvalidParameter, "catalog: negative limit %d", q.Limit)
	}

	used := map[model.Kind][]string{}
	mark := func(k model.Kind, name string, set bool) {
		if set {
			used[k] = append(used[k], name)
		}
	}
	mark(model.KindFoodVenue, "category", q.Category != "")
	mark(model.KindFoodVenue, "min_score", q.MinScore != nil)
	mark(model.KindFoodVenue, "include_closed", q.IncludeClosed)
	mark(model.KindLodging, "min_capacity", q.MinCapacity != nil)
	mark(model.KindLodging, "min_rating", q.MinRating != nil)
	mark(model.KindLodging, "max_price", q.MaxPrice != nil)
	mark(model.KindLodging, "lodging_type", q.LodgingType != "")
	mark(model.KindInstitution, "phase", q.EducationPhase != "")
	mark(model.KindInstitution, "type", q.TypeOfEducation != "")
	mark(model.KindCommunityCenter, "min_facility_area", q.MinFacilityArea != nil)
	mark(model.KindCommunityCenter, "min_occupancy", q.MinOccupancy != nil)
	mark(model.KindFacility, "facility_types", len(q.FacilityTypes) > 0)

	for k, names := range used {
		if k != q.Kind {
			return eris.Wrapf(model.ErrInvalidParameter, "catalog: filter %s does not apply to %s", strings.Join(names, ","), q.Kind)
		}
	}
	return nil
}

// List returns the resources matching q ordered by name then id. Numeric
// minimum and maximum filters exclude resources where the field is unset.
// Permanently closed food venues are dropped unless IncludeClosed is set.
func (c *Catalog) List(q Query) ([]model.Resource, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var candidates []model.Resource
	if q.AreaCode != nil {
		candidates = c.InArea(q.Kind, *q.AreaCode)
	} else {
		candidates = c.Resources(q.Kind)
	}

	types := make(map[string]bool, len(q.FacilityTypes))
	for _, t := range q.FacilityTypes {
		types[t] = true
	}

	out := make([]model.Resource, 0, len(candidates))
	for _, r := range candidates {
		if q.matches(r, types) {
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Base(), out[j].Base()
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (q Query) matches(r model.Resource, types map[string]bool) bool {
	switch t := r.(type) {
	case model.Lodging:
		return atLeastInt(t.PersonCapacity, q.MinCapacity) &&
			atLeastFloat(t.Rating, q.MinRating) &&
			atMostFloat(t.PricePerNight, q.MaxPrice) &&
			(q.LodgingType == "" || t.LodgingType == q.LodgingType)
	case model.Institution:
		return (q.EducationPhase == "" || t.EducationPhase == q.EducationPhase) &&
			(q.TypeOfEducation == "" || t.TypeOfEducation == q.TypeOfEducation)
	case model.FoodVenue:
		if t.PermanentlyClosed && !q.IncludeClosed {
			return false
		}
		return (q.Category == "" || t.Category == q.Category) &&
			atLeastFloat(t.Score, q.MinScore)
	case model.CommunityCenter:
		return atLeastInt(t.FacilityAreaM2, q.MinFacilityArea) &&
			atLeastInt(t.Occupancy, q.MinOccupancy)
	case model.Facility:
		return len(types) == 0 || types[t.FacilityType]
	}
	return false
}

func atLeastInt(v, lo *int) bool {
	return lo == nil || (v != nil && *v >= *lo)
}

func atLeastFloat(v, lo *float64) bool {
	return lo == nil || (v != nil && *v >= *lo)
}

func atMostFloat(v, hi *float64) bool {
	return hi == nil || (v != nil && *v <= *hi)
}
