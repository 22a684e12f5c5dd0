package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Kind identifies one of the fixed resource collections.
type Kind string

// Resource kinds.
const (
	KindLodging         Kind = "lodging"
	KindInstitution     Kind = "institution"
	KindFoodVenue       Kind = "food_venue"
	KindCommunityCenter Kind = "community_center"
	KindFacility        Kind = "facility"
)

// Kinds lists every resource kind in a stable order.
var Kinds = []Kind{KindLodging, KindInstitution, KindFoodVenue, KindCommunityCenter, KindFacility}

// kindAliases maps the resource type names used by the map front end and
// the source datasets onto kinds.
var kindAliases = map[string]Kind{
	"lodging":          KindLodging,
	"airbnb":           KindLodging,
	"hotel":            KindLodging,
	"institution":      KindInstitution,
	"education":        KindInstitution,
	"food_venue":       KindFoodVenue,
	"restaurant":       KindFoodVenue,
	"coffee_shop":      KindFoodVenue,
	"cafe":             KindFoodVenue,
	"community_center": KindCommunityCenter,
	"matnas":           KindCommunityCenter,
	"facility":         KindFacility,
	"osm_facility":     KindFacility,
}

// ParseKind resolves a kind name or alias. Unknown names fail with
// ErrInvalidParameter.
func ParseKind(s string) (Kind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", eris.Wrapf(ErrInvalidParameter, "unknown resource kind %q", s)
	}
	return k, nil
}

// Valid reports whether k is one of Kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindLodging, KindInstitution, KindFoodVenue, KindCommunityCenter, KindFacility:
		return true
	}
	return false
}

// ResourceBase holds the fields shared by every resource kind.
// AreaCode is the persisted assignment; nil when the location falls outside
// every known area.
type ResourceBase struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Location Point  `json:"location"`
	AreaCode *int   `json:"area_code"`
	CityCode int    `json:"city_code"`
}

// Base returns the shared fields.
func (b ResourceBase) Base() ResourceBase { return b }

// Resource is the closed set of resource kinds. Only the types in this file
// implement it.
type Resource interface {
	Base() ResourceBase
	Kind() Kind
	isResource()
}

// Lodging is an accommodation listing (short-term rental or hotel).
type Lodging struct {
	ResourceBase
	PersonCapacity *int     `json:"person_capacity"`
	PricePerNight  *float64 `json:"price_per_night,omitempty"`
	Rating         *float64 `json:"rating,omitempty"`
	LodgingType    string   `json:"lodging_type,omitempty"`
	URL            string   `json:"url,omitempty"`
}

// Institution is an educational institution. It has no capacity field;
// population is estimated per institution.
type Institution struct {
	ResourceBase
	InstitutionCode string `json:"institution_code,omitempty"`
	EducationPhase  string `json:"education_phase,omitempty"`
	TypeOfEducation string `json:"type_of_education,omitempty"`
	Address         string `json:"address,omitempty"`
}

// FoodVenue is a restaurant or café.
type FoodVenue struct {
	ResourceBase
	Category          string   `json:"category,omitempty"`
	Score             *float64 `json:"score,omitempty"`
	TemporarilyClosed bool     `json:"temporarily_closed"`
	PermanentlyClosed bool     `json:"permanently_closed"`
	VenueType         string   `json:"venue_type,omitempty"`
	URL               string   `json:"url,omitempty"`
}

// CommunityCenter is a neighbourhood community center.
type CommunityCenter struct {
	ResourceBase
	FacilityAreaM2 *int   `json:"facility_area_m2,omitempty"`
	Occupancy      *int   `json:"occupancy,omitempty"`
	Address        string `json:"address,omitempty"`
	ActivityDays   string `json:"activity_days,omitempty"`
}

// Facility is a generic facility with an open type taxonomy.
type Facility struct {
	ResourceBase
	FacilityType string `json:"facility_type"`
}

func (Lodging) Kind() Kind         { return KindLodging }
func (Institution) Kind() Kind     { return KindInstitution }
func (FoodVenue) Kind() Kind       { return KindFoodVenue }
func (CommunityCenter) Kind() Kind { return KindCommunityCenter }
func (Facility) Kind() Kind        { return KindFacility }

func (Lodging) isResource()         {}
func (Institution) isResource()     {}
func (FoodVenue) isResource()       {}
func (CommunityCenter) isResource() {}
func (Facility) isResource()        {}

// Normalize returns r held by value, or nil for a nil resource or nil
// pointer. Type switches elsewhere only match the value types.
func Normalize(r Resource) Resource {
	switch t := r.(type) {
	case *Lodging:
		if t != nil {
			return *t
		}
	case *Institution:
		if t != nil {
			return *t
		}
	case *FoodVenue:
		if t != nil {
			return *t
		}
	case *CommunityCenter:
		if t != nil {
			return *t
		}
	case *Facility:
		if t != nil {
			return *t
		}
	default:
		return r
	}
	return nil
}

// WithAreaCode returns a copy of r with its stored area code replaced.
func WithAreaCode(r Resource, code *int) Resource {
	switch t := Normalize(r).(type) {
	case Lodging:
		t.AreaCode = code
		return t
	case Institution:
		t.AreaCode = code
		return t
	case FoodVenue:
		t.AreaCode = code
		return t
	case CommunityCenter:
		t.AreaCode = code
		return t
	case Facility:
		t.AreaCode = code
		return t
	}
	return nil
}

// Capacity returns the lodging's person capacity with nil read as 0.
func (l Lodging) Capacity() int {
	if l.PersonCapacity == nil {
		return 0
	}
	return *l.PersonCapacity
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
