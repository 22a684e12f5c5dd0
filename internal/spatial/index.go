// Package spatial assigns points to statistical areas and answers
// radius-bounded nearest-resource queries over a catalog snapshot.
package spatial

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/citystrata/citystrata/internal/catalog"
	"github.com/citystrata/citystrata/internal/geo"
	"github.com/citystrata/citystrata/internal/model"
	"github.com/citystrata/citystrata/internal/registry"
)

// DefaultCellDegrees is the grid cell size used when none is configured.
const DefaultCellDegrees = 0.01

// cellPad widens the candidate box so float rounding at a cell edge never
// drops a resource that is within the radius.
const cellPad = 1e-9

// Index buckets every resource of a catalog into a coarse lon/lat grid.
// It is immutable and safe for concurrent use.
type Index struct {
	reg   *registry.AreaRegistry
	cat   *catalog.Catalog
	cell  float64
	grids map[model.Kind]map[cellKey][]model.Resource
}

type cellKey struct{ x, y int }

// NewIndex builds an index over cat. A non-positive cellDegrees selects
// DefaultCellDegrees. cat may be nil when only Assign is needed.
func NewIndex(reg *registry.AreaRegistry, cat *catalog.Catalog, cellDegrees float64) *Index {
	if !(cellDegrees > 0) || math.IsInf(cellDegrees, 0) {
		cellDegrees = DefaultCellDegrees
	}
	ix := &Index{
		reg:   reg,
		cat:   cat,
		cell:  cellDegrees,
		grids: make(map[model.Kind]map[cellKey][]model.Resource, len(model.Kinds)),
	}
	for _, k := range model.Kinds {
		grid := make(map[cellKey][]model.Resource)
		if cat != nil {
			for _, r := range cat.Resources(k) {
				key := ix.key(r.Base().Location)
				grid[key] = append(grid[key], r)
			}
		}
		ix.grids[k] = grid
	}
	return ix
}


func (ix *Index) key(p model.Point) cellKey {
	return cellKey{x: int(math.Floor(p.Lon / ix.cell)), y: int(math.Floor(p.Lat / ix.cell))}
}

// Assign returns the area containing p. It needs no catalog and has no side
// effects.
func (ix *Index) Assign(p model.Point) (int, bool) {
	if ix.reg == nil {
		return 0, false
	}
	return ix.reg.ContainingArea(p)
}

// RadiusSearchOptions selects what RadiusSearch returns.
type RadiusSearchOptions struct {
	RadiusMeters float64
	Kind         model.Kind
	// Limit truncates the result when positive.
	Limit int
	// ExcludePermanentlyClosed drops permanently closed food venues.
	ExcludePermanentlyClosed bool
}

// Validate rejects a non-positive or non-finite radius, an unknown kind and
// a negative limit with model.ErrInvalidParameter.
func (o RadiusSearchOptions) Validate() error {
	if !(o.RadiusMeters > 0) || math.IsInf(o.RadiusMeters, 0) {
		return eris.Wrapf(model.ErrInvalidParameter, "spatial: radius must be positive, got %v", o.RadiusMeters)
	}
	if !o.Kind.Valid() {
		return eris.Wrapf(model.ErrInvalidParameter, "spatial: unknown resource kind %q", o.Kind)
	}
	if o.Limit < 0 {
		return eris.Wrapf(model.ErrInvalidParameter, "spatial: negative limit %d", o.Limit)
	}
	return nil
}

// Hit is one radius search result.
type Hit struct {
	Resource       model.Resource `json:"resource"`
	DistanceMeters float64        `json:"distance_meters"`
}

// RadiusSearch returns every resource of opts.Kind within opts.RadiusMeters
// great-circle distance of p, nearest first with ties broken by id.
func (ix *Index) RadiusSearch(p model.Point, opts RadiusSearchOptions) ([]Hit, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !p.Valid() {
		return nil, eris.Wrapf(model.ErrInvalidParameter, "spatial: invalid point (%v, %v)", p.Lon, p.Lat)
	}

	var hits []Hit
	for _, r := range ix.candidates(p, opts) {
		if opts.ExcludePermanentlyClosed {
			if fv, ok := r.(model.FoodVenue); ok && fv.PermanentlyClosed {
				continue
			}
		}
		d := geo.Distance(p, r.Base().Location)
		if d <= opts.RadiusMeters {
			hits = append(hits, Hit{Resource: r, DistanceMeters: d})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].DistanceMeters != hits[j].DistanceMeters {
			return hits[i].DistanceMeters < hits[j].DistanceMeters
		}
		return hits[i].Resource.Base().ID < hits[j].Resource.Base().ID
	})
	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits, nil
}

// candidates returns the resources in grid cells overlapping the cap of
// radius around p, or every resource of the kind when the cap cannot be
// boxed.
func (ix *Index) candidates(p model.Point, opts RadiusSearchOptions) []model.Resource {
	grid := ix.grids[opts.Kind]
	b, ok := geo.CapBounds(p, opts.RadiusMeters)
	if !ok {
		var all []model.Resource
		for _, rs := range grid {
			all = append(all, rs...)
		}
		return all
	}

	lo := ix.key(model.Point{Lon: b.MinLon - cellPad, Lat: b.MinLat - cellPad})
	hi := ix.key(model.Point{Lon: b.MaxLon + cellPad, Lat: b.MaxLat + cellPad})

	var out []model.Resource
	cells := (hi.x - lo.x + 1) * (hi.y - lo.y + 1)
	if cells > len(grid) {
		for k, rs := range grid {
			if k.x >= lo.x && k.x <= hi.x && k.y >= lo.y && k.y <= hi.y {
				out = append(out, rs...)
			}
		}
		return out
	}
	for x := lo.x; x <= hi.x; x++ {
		for y := lo.y; y <= hi.y; y++ {
			out = append(out, grid[cellKey{x, y}]...)
		}
	}
	return out
}
