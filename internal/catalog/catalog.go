// Package catalog holds immutable, per-kind collections of evacuation
// resources for one city.
package catalog

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/citystrata/citystrata/internal/model"
)

// Catalog is a read-only set of resources grouped by kind. Every accessor
// returns fresh slices; the catalog itself never changes after Build.
type Catalog struct {
	cityCode    int
	collections map[model.Kind]*collection
}

type collection struct {
	// items are sorted by id.
	items  []model.Resource
	byID   map[string]int
	byArea map[int][]int
	// assigned counts items with a non-nil stored area code.
	assigned int
}

// Builder accumulates resources before freezing them into a Catalog.
type Builder struct {
	cityCode int
	items    map[model.Kind][]model.Resource
	ids      map[model.Kind]map[string]bool
}

// NewBuilder returns a builder for resources of cityCode.
func NewBuilder(cityCode int) *Builder {
	b := &Builder{
		cityCode: cityCode,
		items:    make(map[model.Kind][]model.Resource, len(model.Kinds)),
		ids:      make(map[model.Kind]map[string]bool, len(model.Kinds)),
	}
	for _, k := range model.Kinds {
		b.ids[k] = make(map[string]bool)
	}
	return b
}

// Add stages r. A duplicate id within a kind, an empty id or an invalid
// location fails with model.ErrInvalidParameter; a resource of another city
// fails with model.ErrInvariant.
func (b *Builder) Add(r model.Resource) error {
	r = model.Normalize(r)
	if r == nil {
		return eris.Wrap(model.ErrInvalidParameter, "catalog: nil resource")
	}
	base := r.Base()
	kind := r.Kind()
	if base.ID == "" {
		return eris.Wrapf(model.ErrInvalidParameter, "catalog: %s with empty id", kind)
	}
	if base.CityCode != b.cityCode {
		return eris.Wrapf(model.ErrInvariant, "catalog: %s %s has city code %d, want %d", kind, base.ID, base.CityCode, b.cityCode)
	}
	if !base.Location.Valid() {
		return eris.Wrapf(model.ErrInvalidParameter, "catalog: %s %s has invalid location", kind, base.ID)
	}
	if b.ids[kind][base.ID] {
		return eris.Wrapf(model.ErrInvalidParameter, "catalog: duplicate %s id %s", kind, base.ID)
	}
	b.ids[kind][base.ID] = true
	b.items[kind] = append(b.items[kind], r)
	return nil
}

// Build freezes the staged resources. The builder must not be reused.
func (b *Builder) Build() *Catalog {
	c := &Catalog{
		cityCode:    b.cityCode,
		collections: make(map[model.Kind]*collection, len(model.Kinds)),
	}
	for _, k := range model.Kinds {
		items := b.items[k]
		sort.Slice(items, func(i, j int) bool { return items[i].Base().ID < items[j].Base().ID })

		col := &collection{
			items:  items,
			byID:   make(map[string]int, len(items)),
			byArea: make(map[int][]int),
		}
		for i, r := range items {
			base := r.Base()
			col.byID[base.ID] = i
			if base.AreaCode != nil {
				col.byArea[*base.AreaCode] = append(col.byArea[*base.AreaCode], i)
				col.assigned++
			}
		}
		c.collections[k] = col
	}
	b.items = nil
	b.ids = nil
	return c
}

// CityCode returns the city the catalog was built for.
func (c *Catalog) CityCode() int { return c.cityCode }

// Len returns the number of resources of kind.
func (c *Catalog) Len(kind model.Kind) int {
	col, ok := c.collections[kind]
	if !ok {
		return 0
	}
	return len(col.items)
}

// Assigned returns the number of resources of kind with a stored area code.
func (c *Catalog) Assigned(kind model.Kind) int {
	col, ok := c.collections[kind]
	if !ok {
		return 0
	}
	return col.assigned
}

// Resources returns every resource of kind ordered by id.
func (c *Catalog) Resources(kind model.Kind) []model.Resource {
	col, ok := c.collections[kind]
	if !ok {
		return nil
	}
	out := make([]model.Resource, len(col.items))
	copy(out, col.items)
	return out
}

// Get returns the resource of kind with id. Unknown kinds fail with
// model.ErrInvalidParameter, unknown ids with model.ErrNotFound.
func (c *Catalog) Get(kind model.Kind, id string) (model.Resource, error) {
	col, ok := c.collections[kind]
	if !ok {
		return nil, eris.Wrapf(model.ErrInvalidParameter, "catalog: unknown resource kind %q", kind)
	}
	i, ok := col.byID[id]
	if !ok {
		return nil, eris.Wrapf(model.ErrNotFound, "catalog: %s %s", kind, id)
	}
	return col.items[i], nil
}

// InArea returns the resources of kind whose stored area code is code,
// ordered by id.
func (c *Catalog) InArea(kind model.Kind, code int) []model.Resource {
	col, ok := c.collections[kind]
	if !ok {
		return nil
	}
	idx := col.byArea[code]
	out := make([]model.Resource, len(idx))
	for i, j := range idx {
		out[i] = col.items[j]
	}
	return out
}

// FacilityTypes returns the distinct generic facility types, sorted.
func (c *Catalog) FacilityTypes() []string {
	seen := make(map[string]bool)
	var types []string
	for _, r := range c.collections[model.KindFacility].items {
		f, ok := r.(model.Facility)
		if !ok || f.FacilityType == "" || seen[f.FacilityType] {
			continue
		}
		seen[f.FacilityType] = true
		types = append(types, f.FacilityType)
	}
	sort.Strings(types)
	return types
}
