package model

import "time"

// StatisticalArea is an administrative statistical-area polygon of a city.
// (CityCode, AreaCode) is globally unique.
type StatisticalArea struct {
	AreaCode   int            `json:"area_code"`
	CityCode   int            `json:"city_code"`
	Geometry   MultiPolygon   `json:"-"`
	AreaM2     *float64       `json:"area_m2,omitempty"`
	Centroid   *Point         `json:"centroid,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Source     string         `json:"source,omitempty"`
	ImportedAt time.Time      `json:"imported_at,omitempty"`
}

// AreaSummary holds per-area resource counts. It is derived on every call
// and never stored.
type AreaSummary struct {
	AreaCode             int     `json:"area_code"`
	AreaM2               float64 `json:"area_m2"`
	InstitutionsCount    int     `json:"institutions_count"`
	LodgingCount         int     `json:"lodging_count"`
	LodgingTotalCapacity int     `json:"lodging_total_capacity"`
	FoodVenueCount       int     `json:"food_venue_count"`
	CommunityCenterCount int     `json:"community_center_count"`
	FacilityCount        int     `json:"facility_count"`
}

// AreaNeed is the estimated evacuee population of one area.
type AreaNeed struct {
	AreaCode                 int `json:"area_code"`
	InstitutionsCount        int `json:"institutions_count"`
	EstimatedChildren        int `json:"estimated_children"`
	EstimatedStaff           int `json:"estimated_staff"`
	TotalEstimatedPopulation int `json:"total_estimated_population"`
}

// AreaCapacity is the lodging capacity one area can offer.
type AreaCapacity struct {
	AreaCode        int `json:"area_code"`
	LodgingCount    int `json:"lodging_count"`
	LodgingCapacity int `json:"lodging_capacity"`
	TotalCapacity   int `json:"total_capacity"`
}

// EvacuationAnalysis compares lodging capacity against estimated need for a
// set of evacuated areas. CapacityDeficit is negative on shortage.
type EvacuationAnalysis struct {
	EvacuateAreas   []int          `json:"evacuate_areas"`
	ResourceAreas   []int          `json:"resource_areas,omitempty"`
	Scenario        string         `json:"scenario"`
	TotalNeed       int            `json:"total_need"`
	TotalCapacity   int            `json:"total_capacity"`
	CapacityDeficit int            `json:"capacity_deficit"`
	NeedByArea      []AreaNeed     `json:"need_by_area"`
	CapacityByArea  []AreaCapacity `json:"capacity_by_area"`
	Recommendations []string       `json:"recommendations"`
}
