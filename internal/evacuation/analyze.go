// Package evacuation compares lodging capacity against the estimated
// population of areas being evacuated.
package evacuation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/citystrata/citystrata/internal/aggregate"
	"github.com/citystrata/citystrata/internal/catalog"
	"github.com/citystrata/citystrata/internal/model"
	"github.com/citystrata/citystrata/internal/registry"
)

// Population estimated per educational institution. A fixed linear model,
// not derived from enrollment data.
const (
	ChildrenPerInstitution = 30
	StaffPerInstitution    = 5
	PeoplePerInstitution   = ChildrenPerInstitution + StaffPerInstitution
)

// DefaultScenario is echoed back when a request names none.
const DefaultScenario = "emergency"

// Request selects the areas to evacuate and, optionally, the donor areas
// whose lodging absorbs them.
type Request struct {
	EvacuateAreas []int  `json:"evacuate_areas" yaml:"evacuate_areas"`
	ResourceAreas []int  `json:"resource_areas,omitempty" yaml:"resource_areas,omitempty"`
	Scenario      string `json:"scenario,omitempty" yaml:"scenario,omitempty"`
}

// Analyze estimates need from institutions in the evacuated areas and
// capacity from lodging in the resource areas, or in the evacuated areas
// themselves when no resource areas are given. An empty evacuation set or an
// unknown area code fails with model.ErrInvalidParameter. Duplicate codes are
// collapsed and every list in the result is ascending.
func Analyze(reg *registry.AreaRegistry, cat *catalog.Catalog, req Request) (*model.EvacuationAnalysis, error) {
	evacuate := dedupe(req.EvacuateAreas)
	if len(evacuate) == 0 {
		return nil, eris.Wrap(model.ErrInvalidParameter, "evacuation: at least one area must be specified for evacuation")
	}
	resources := dedupe(req.ResourceAreas)
	if err := checkKnown(reg, evacuate, "evacuate"); err != nil {
		return nil, err
	}
	if err := checkKnown(reg, resources, "resource"); err != nil {
		return nil, err
	}

	scenario := strings.TrimSpace(req.Scenario)
	if scenario == "" {
		scenario = DefaultScenario
	}

	out := &model.EvacuationAnalysis{
		EvacuateAreas:  evacuate,
		ResourceAreas:  resources,
		Scenario:       scenario,
		NeedByArea:     make([]model.AreaNeed, 0, len(evacuate)),
		CapacityByArea: []model.AreaCapacity{},
	}

	for _, code := range evacuate {
		s, err := aggregate.Summarize(reg, cat, code)
		if err != nil {
			return nil, err
		}
		need := model.AreaNeed{
			AreaCode:                 code,
			InstitutionsCount:        s.InstitutionsCount,
			EstimatedChildren:        s.InstitutionsCount * ChildrenPerInstitution,
			EstimatedStaff:           s.InstitutionsCount * StaffPerInstitution,
			TotalEstimatedPopulation: s.InstitutionsCount * PeoplePerInstitution,
		}
		out.NeedByArea = append(out.NeedByArea, need)
		out.TotalNeed += need.TotalEstimatedPopulation
	}

	donors := evacuate
	if len(resources) > 0 {
		donors = resources
	}
	for _, code := range donors {
		s, err := aggregate.Summarize(reg, cat, code)
		if err != nil {
			return nil, err
		}
		c := model.AreaCapacity{
			AreaCode:        code,
			LodgingCount:    s.LodgingCount,
			LodgingCapacity: s.LodgingTotalCapacity,
			TotalCapacity:   s.LodgingTotalCapacity,
		}
		out.CapacityByArea = append(out.CapacityByArea, c)
		out.TotalCapacity += c.TotalCapacity
	}

	out.CapacityDeficit = out.TotalCapacity - out.TotalNeed
	out.Recommendations = Recommendations(out.CapacityDeficit, out.TotalNeed, resources)
	return out, nil
}

// Recommendations renders the advice for an analysis. Only the sign of the
// deficit selects the message; the quoted number is always its magnitude.
func Recommendations(deficit, totalNeed int, resourceAreas []int) []string {
	var recs []string
	if deficit < 0 {
		recs = append(recs, fmt.Sprintf("WARNING: Capacity deficit of %d people. Need to find additional accommodation.", -deficit))
	} else {
		recs = append(recs, fmt.Sprintf("Sufficient capacity available: %d surplus spaces.", deficit))
	}
	if len(resourceAreas) > 0 {
		codes := make([]string, len(resourceAreas))
		for i, c := range resourceAreas {
			codes[i] = strconv.Itoa(c)
		}
		recs = append(recs, fmt.Sprintf("Capacity drawn from resource areas: %s.", strings.Join(codes, ", ")))
	}
	if totalNeed == 0 {
		recs = append(recs, "No educational institutions found in specified areas.")
	}
	return recs
}

func checkKnown(reg *registry.AreaRegistry, codes []int, role string) error {
	for _, c := range codes {
		if !reg.Has(c) {
			return eris.Wrapf(model.ErrInvalidParameter, "evacuation: unknown %s area %d", role, c)
		}
	}
	return nil
}

// dedupe returns the distinct codes ascending, or nil for an empty input.
func dedupe(codes []int) []int {
	if len(codes) == 0 {
		return nil
	}
	out := append([]int(nil), codes...)
	sort.Ints(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
