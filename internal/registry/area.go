// Package registry holds the immutable set of statistical areas of one city
// and answers lookup and containment queries against it.
package registry

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/citystrata/citystrata/internal/geo"
	"github.com/citystrata/citystrata/internal/model"
)

// AreaRegistry is an immutable, validated set of statistical areas.
// It is safe for concurrent use.
type AreaRegistry struct {
	cityCode int
	// entries are sorted by ascending area code.
	entries []entry
	byCode  map[int]int
	bounds  model.Bounds
}

type entry struct {
	area   model.StatisticalArea
	bounds model.Bounds
}

// New validates areas and builds a registry for cityCode. Malformed
// polygons fail with model.ErrGeometry, duplicate area codes with
// model.ErrInvalidParameter, and a negative or mismatched city code with
// model.ErrInvariant.
func New(cityCode int, areas []model.StatisticalArea) (*AreaRegistry, error) {
	if cityCode < 0 {
		return nil, eris.Wrapf(model.ErrInvariant, "registry: negative city code %d", cityCode)
	}

	r := &AreaRegistry{
		cityCode: cityCode,
		entries:  make([]entry, 0, len(areas)),
		byCode:   make(map[int]int, len(areas)),
		bounds:   model.EmptyBounds(),
	}

	seen := make(map[int]bool, len(areas))
	for _, a := range areas {
		if a.CityCode != cityCode {
			return nil, eris.Wrapf(model.ErrInvariant, "registry: area %d has city code %d, want %d", a.AreaCode, a.CityCode, cityCode)
		}
		if seen[a.AreaCode] {
			return nil, eris.Wrapf(model.ErrInvalidParameter, "registry: duplicate area code %d", a.AreaCode)
		}
		seen[a.AreaCode] = true

		if err := geo.ValidateMultiPolygon(a.Geometry); err != nil {
			return nil, eris.Wrapf(err, "registry: area %d", a.AreaCode)
		}
		b := model.BoundsOf(a.Geometry)
		r.bounds.Union(b)
		r.entries = append(r.entries, entry{area: a, bounds: b})
	}

	sort.Slice(r.entries, func(i, j int) bool {
		return r.entries[i].area.AreaCode < r.entries[j].area.AreaCode
	})
	for i, e := range r.entries {
		r.byCode[e.area.AreaCode] = i
	}
	return r, nil
}

// CityCode returns the city the registry was built for.
func (r *AreaRegistry) CityCode() int { return r.cityCode }

// Len returns the number of areas.
func (r *AreaRegistry) Len() int { return len(r.entries) }

// Bounds returns the bounding box of every area. It is empty when the
// registry has no areas.
func (r *AreaRegistry) Bounds() model.Bounds { return r.bounds }

// Lookup returns the area with the given code or model.ErrNotFound.
func (r *AreaRegistry) Lookup(code int) (model.StatisticalArea, error) {
	i, ok := r.byCode[code]
	if !ok {
		return model.StatisticalArea{}, eris.Wrapf(model.ErrNotFound, "registry: statistical area %d", code)
	}
	return r.entries[i].area, nil
}

// Has reports whether code is a known area.
func (r *AreaRegistry) Has(code int) bool {
	_, ok := r.byCode[code]
	return ok
}

// Codes returns every area code in ascending order.
func (r *AreaRegistry) Codes() []int {
	codes := make([]int, len(r.entries))
	for i, e := range r.entries {
		codes[i] = e.area.AreaCode
	}
	return codes
}

// Areas returns every area in ascending code order.
func (r *AreaRegistry) Areas() []model.StatisticalArea {
	out := make([]model.StatisticalArea, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.area
	}
	return out
}

// ContainingArea returns the code of the area whose polygon contains p.
// Boundaries belong to the polygon. If several polygons claim p (a shared
// edge, or overlapping input) the lowest area code wins; this is a
// defensive tie-break, not a business rule.
func (r *AreaRegistry) ContainingArea(p model.Point) (int, bool) {
	if !p.Valid() {
		return 0, false
	}
	for _, e := range r.entries {
		if e.bounds.Contains(p) && geo.Contains(e.area.Geometry, p) {
			return e.area.AreaCode, true
		}
	}
	return 0, false
}

// ContainingAreas returns every area claiming p, ascending. More than one
// code means overlapping polygons or a point on a shared boundary.
func (r *AreaRegistry) ContainingAreas(p model.Point) []int {
	if !p.Valid() {
		return nil
	}
	var codes []int
	for _, e := range r.entries {
		if e.bounds.Contains(p) && geo.Contains(e.area.Geometry, p) {
			codes = append(codes, e.area.AreaCode)
		}
	}
	return codes
}
