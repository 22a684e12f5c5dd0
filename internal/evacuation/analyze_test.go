package evacuation

import (
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citystrata/citystrata/internal/catalog"
	"github.com/citystrata/citystrata/internal/fixture"
	"github.com/citystrata/citystrata/internal/model"
	"github.com/citystrata/citystrata/internal/registry"
)

// newCity builds area 11 with two institutions and lodging capacities 4
// and 6, and area 12 with lodging capacity 80.
func newCity(t *testing.T) (*registry.AreaRegistry, *catalog.Catalog) {
	t.Helper()
	reg, err := registry.New(fixture.CityCode, fixture.Areas())
	require.NoError(t, err)

	b := catalog.NewBuilder(fixture.CityCode)
	for _, r := range []model.Resource{
		fixture.Institution("i1", 11),
		fixture.Institution("i2", 11),
		fixture.Lodging("l1", 11, 4),
		fixture.Lodging("l2", 11, 6),
		fixture.Lodging("l3", 12, 50),
		fixture.Lodging("l4", 12, 30),
		fixture.Lodging("l5", 12, -1),
	} {
		require.NoError(t, b.Add(r))
	}
	return reg, b.Build()
}

func TestAnalyze_DeficitFromOwnCapacity(t *testing.T) {
	t.Parallel()

	reg, cat := newCity(t)
	got, err := Analyze(reg, cat, Request{EvacuateAreas: []int{11}})
	require.NoError(t, err)

	assert.Equal(t, &model.EvacuationAnalysis{
		EvacuateAreas:   []int{11},
		Scenario:        "emergency",
		TotalNeed:       70,
		TotalCapacity:   10,
		CapacityDeficit: -60,
		NeedByArea: []model.AreaNeed{{
			AreaCode: 11, InstitutionsCount: 2, EstimatedChildren: 60, EstimatedStaff: 10, TotalEstimatedPopulation: 70,
		}},
		CapacityByArea: []model.AreaCapacity{{
			AreaCode: 11, LodgingCount: 2, LodgingCapacity: 10, TotalCapacity: 10,
		}},
		Recommendations: []string{
			"WARNING: Capacity deficit of 60 people. Need to find additional accommodation.",
		},
	}, got)
}

func TestAnalyze_SurplusFromResourceAreas(t *testing.T) {
	t.Parallel()

	reg, cat := newCity(t)
	got, err := Analyze(reg, cat, Request{EvacuateAreas: []int{11}, ResourceAreas: []int{12}, Scenario: "planned"})
	require.NoError(t, err)

	assert.Equal(t, 70, got.TotalNeed)
	assert.Equal(t, 80, got.TotalCapacity)
	assert.Equal(t, 10, got.CapacityDeficit)
	assert.Equal(t, "planned", got.Scenario)
	assert.Equal(t, []int{12}, got.ResourceAreas)
	assert.Equal(t, []model.AreaCapacity{{AreaCode: 12, LodgingCount: 3, LodgingCapacity: 80, TotalCapacity: 80}}, got.CapacityByArea)
	assert.Equal(t, []string{
		"Sufficient capacity available: 10 surplus spaces.",
		"Capacity drawn from resource areas: 12.",
	}, got.Recommendations)
}

func TestAnalyze_NoInstitutions(t *testing.T) {
	t.Parallel()

	reg, cat := newCity(t)
	got, err := Analyze(reg, cat, Request{EvacuateAreas: []int{13, 12, 13}, ResourceAreas: []int{}})
	require.NoError(t, err)

	assert.Equal(t, []int{12, 13}, got.EvacuateAreas)
	assert.Nil(t, got.ResourceAreas)
	assert.Zero(t, got.TotalNeed)
	assert.Equal(t, 80, got.TotalCapacity)
	assert.Len(t, got.NeedByArea, 2)
	assert.Equal(t, []string{
		"Sufficient capacity available: 80 surplus spaces.",
		"No educational institutions found in specified areas.",
	}, got.Recommendations)
}

func TestAnalyze_InvalidRequests(t *testing.T) {
	t.Parallel()

	reg, cat := newCity(t)

	tests := []struct {
		name string
		req  Request
	}{
		{"nil evacuate", Request{}},
		{"empty evacuate", Request{EvacuateAreas: []int{}}},
		{"unknown evacuate", Request{EvacuateAreas: []int{11, 99}}},
		{"unknown resource", Request{EvacuateAreas: []int{11}, ResourceAreas: []int{12, 77}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Analyze(reg, cat, tt.req)
			require.Error(t, err)
			assert.True(t, eris.Is(err, model.ErrInvalidParameter))
		})
	}
}

func TestAnalyze_IdempotentAndConcurrent(t *testing.T) {
	t.Parallel()

	reg, cat := newCity(t)
	req := Request{EvacuateAreas: []int{11, 12}, ResourceAreas: []int{13, 12}}
	want, err := Analyze(reg, cat, req)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*model.EvacuationAnalysis, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Analyze(reg, cat, req)
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestRecommendations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		deficit   int
		need      int
		resources []int
		want      []string
	}{
		{"breakeven", 0, 35, nil, []string{"Sufficient capacity available: 0 surplus spaces."}},
		{"shortage", -1, 35, nil, []string{"WARNING: Capacity deficit of 1 people. Need to find additional accommodation."}},
		{"multiple donors", 5, 35, []int{12, 13}, []string{
			"Sufficient capacity available: 5 surplus spaces.",
			"Capacity drawn from resource areas: 12, 13.",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Recommendations(tt.deficit, tt.need, tt.resources))
		})
	}
}
