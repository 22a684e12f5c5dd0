package spatial

import (
	"github.com/citystrata/citystrata/internal/model"
)

// Assignment is the recomputed area of one resource. AreaCode is nil when
// the location is outside every area.
type Assignment struct {
	Kind     model.Kind `json:"kind"`
	ID       string     `json:"id"`
	AreaCode *int       `json:"area_code"`
}

// Inconsistency is a resource whose stored area code disagrees with the
// recomputed one. Stale assignments are expected after polygon edits.
type Inconsistency struct {
	Kind     model.Kind `json:"kind"`
	ID       string     `json:"id"`
	Stored   *int       `json:"stored_area_code"`
	Computed *int       `json:"computed_area_code"`
}

// Overlap is a resource location claimed by more than one area.
type Overlap struct {
	Kind      model.Kind `json:"kind"`
	ID        string     `json:"id"`
	AreaCodes []int      `json:"area_codes"`
}

// Report is the result of Verify.
type Report struct {
	Checked         int             `json:"checked"`
	Inconsistencies []Inconsistency `json:"inconsistencies"`
	Overlaps        []Overlap       `json:"overlaps"`
}

// Consistent reports whether every stored assignment matched.
func (r Report) Consistent() bool { return len(r.Inconsistencies) == 0 }

// AssignAll recomputes the area of every catalog resource, kind by kind in
// model.Kinds order and by id within a kind. The caller persists the result.
func (ix *Index) AssignAll() []Assignment {
	var out []Assignment
	ix.each(func(k model.Kind, r model.Resource, codes []int) {
		out = append(out, Assignment{Kind: k, ID: r.Base().ID, AreaCode: first(codes)})
	})
	return out
}

// Verify compares every stored area code with the recomputed one. Mismatches
// are reported, never returned as errors.
func (ix *Index) Verify() Report {
	rep := Report{Inconsistencies: []Inconsistency{}, Overlaps: []Overlap{}}
	ix.each(func(k model.Kind, r model.Resource, codes []int) {
		rep.Checked++
		base := r.Base()
		computed := first(codes)
		if !sameCode(base.AreaCode, computed) {
			rep.Inconsistencies = append(rep.Inconsistencies, Inconsistency{
				Kind: k, ID: base.ID, Stored: base.AreaCode, Computed: computed,
			})
		}
		if len(codes) > 1 {
			rep.Overlaps = append(rep.Overlaps, Overlap{Kind: k, ID: base.ID, AreaCodes: codes})
		}
	})
	return rep
}

// GroupByKind splits assignments per kind, keeping their order.
func GroupByKind(as []Assignment) map[model.Kind][]Assignment {
	out := make(map[model.Kind][]Assignment)
	for _, a := range as {
		out[a.Kind] = append(out[a.Kind], a)
	}
	return out
}

func (ix *Index) each(fn func(model.Kind, model.Resource, []int)) {
	if ix.cat == nil || ix.reg == nil {
		return
	}
	for _, k := range model.Kinds {
		for _, r := range ix.cat.Resources(k) {
			fn(k, r, ix.reg.ContainingAreas(r.Base().Location))
		}
	}
}

// first returns the lowest claiming code, which is the one ContainingArea
// picks.
func first(codes []int) *int {
	if len(codes) == 0 {
		return nil
	}
	return model.IntPtr(codes[0])
}

func sameCode(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
