// Package aggregate derives per-area resource summaries from a registry and
// catalog snapshot. Results are recomputed on every call.
package aggregate

import (
	"github.com/citystrata/citystrata/internal/catalog"
	"github.com/citystrata/citystrata/internal/model"
	"github.com/citystrata/citystrata/internal/registry"
)

// Summarize counts the resources stored against area code. Unknown codes
// fail with model.ErrNotFound. Lodging without a capacity counts as zero
// beds; permanently closed food venues are not counted, temporarily closed
// ones are.
func Summarize(reg *registry.AreaRegistry, cat *catalog.Catalog, code int) (model.AreaSummary, error) {
	area, err := reg.Lookup(code)
	if err != nil {
		return model.AreaSummary{}, err
	}
	return summarize(area, cat), nil
}

// SummarizeAll summarizes every area in ascending code order.
func SummarizeAll(reg *registry.AreaRegistry, cat *catalog.Catalog) []model.AreaSummary {
	areas := reg.Areas()
	out := make([]model.AreaSummary, len(areas))
	for i, a := range areas {
		out[i] = summarize(a, cat)
	}
	return out
}

func summarize(area model.StatisticalArea, cat *catalog.Catalog) model.AreaSummary {
	s := model.AreaSummary{AreaCode: area.AreaCode}
	if area.AreaM2 != nil {
		s.AreaM2 = *area.AreaM2
	}
	if cat == nil {
		return s
	}
	for _, k := range model.Kinds {
		for _, r := range cat.InArea(k, area.AreaCode) {
			add(&s, r)
		}
	}
	return s
}

func add(s *model.AreaSummary, r model.Resource) {
	switch t := r.(type) {
	case model.Lodging:
		s.LodgingCount++
		s.LodgingTotalCapacity += t.Capacity()
	case model.Institution:
		s.InstitutionsCount++
	case model.FoodVenue:
		if !t.PermanentlyClosed {
			s.FoodVenueCount++
		}
	case model.CommunityCenter:
		s.CommunityCenterCount++
	case model.Facility:
		s.FacilityCount++
	default:
		panic("aggregate: unhandled resource type")
	}
}
