// Package fixture builds small synthetic cities for tests: a row of square
// statistical areas near Eilat and constructors for each resource kind.
package fixture

import (
	"math"

	"github.com/citystrata/citystrata/internal/model"
)

// CityCode is the municipality code used by every fixture (Eilat).
const CityCode = 2600

// Size of each fixture area in degrees.
const Size = 0.01

// Origin is the south-west corner of area 11.
var Origin = model.Point{Lon: 34.93, Lat: 29.54}

// Square returns a counter-clockwise square ring with its south-west corner
// at (lon, lat).
func Square(lon, lat, size float64) model.Ring {
	return model.Ring{
		{Lon: lon, Lat: lat},
		{Lon: lon + size, Lat: lat},
		{Lon: lon + size, Lat: lat + size},
		{Lon: lon, Lat: lat + size},
	}
}

// Area returns a single-polygon area of CityCode.
func Area(code int, ring model.Ring) model.StatisticalArea {
	return model.StatisticalArea{
		AreaCode: code,
		CityCode: CityCode,
		Geometry: model.MultiPolygon{{ring}},
		Source:   "fixture",
	}
}

// Areas returns areas 11, 12 and 13 as adjacent squares running east from
// Origin. Area 12 and 13 share the edge at lon 34.95.
func Areas() []model.StatisticalArea {
	return []model.StatisticalArea{
		Area(11, Square(Origin.Lon, Origin.Lat, Size)),
		Area(12, Square(Origin.Lon+Size, Origin.Lat, Size)),
		Area(13, Square(Origin.Lon+2*Size, Origin.Lat, Size)),
	}
}

// Center returns the centre point of the fixture area with the given code.
func Center(code int) model.Point {
	i := code - 11
	return model.Point{
		Lon: Origin.Lon + float64(i)*Size + Size/2,
		Lat: Origin.Lat + Size/2,
	}
}

// Base returns the shared resource fields. A zero area means unassigned.
func Base(id string, p model.Point, area int) model.ResourceBase {
	b := model.ResourceBase{ID: id, Name: id, Location: p, CityCode: CityCode}
	if area != 0 {
		b.AreaCode = model.IntPtr(area)
	}
	return b
}

// Lodging returns a lodging in the centre of area with the given capacity;
// a negative capacity leaves it unset.
func Lodging(id string, area, capacity int) model.Lodging {
	l := model.Lodging{ResourceBase: Base(id, Center(area), area), LodgingType: "airbnb"}
	if capacity >= 0 {
		l.PersonCapacity = model.IntPtr(capacity)
	}
	return l
}

// Institution returns an institution in the centre of area.
func Institution(id string, area int) model.Institution {
	return model.Institution{
		ResourceBase:   Base(id, Center(area), area),
		EducationPhase: "primary",
	}
}

// FoodVenue returns a restaurant in the centre of area.
func FoodVenue(id string, area int, temporarilyClosed, permanentlyClosed bool) model.FoodVenue {
	return model.FoodVenue{
		ResourceBase:      Base(id, Center(area), area),
		Category:          "Restaurant",
		VenueType:         "restaurant",
		TemporarilyClosed: temporarilyClosed,
		PermanentlyClosed: permanentlyClosed,
	}
}

// CommunityCenter returns a community center in the centre of area.
func CommunityCenter(id string, area int) model.CommunityCenter {
	return model.CommunityCenter{ResourceBase: Base(id, Center(area), area)}
}

// Facility returns a generic facility of the given type in the centre of
// area.
func Facility(id string, area int, facilityType string) model.Facility {
	return model.Facility{ResourceBase: Base(id, Center(area), area), FacilityType: facilityType}
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// earthRadiusMeters matches the radius used by the geo package.
const earthRadiusMeters = 6371008.8

// Offset returns the point reached by travelling meters from p along the
// initial bearing (degrees clockwise from north) on the sphere.
func Offset(p model.Point, bearingDeg, meters float64) model.Point {
	const rad = math.Pi / 180
	delta := meters / earthRadiusMeters
	theta := bearingDeg * rad
	lat1 := p.Lat * rad
	lon1 := p.Lon * rad

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lon2 := lon1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)
	lon := math.Mod(lon2/rad+540, 360) - 180
	return model.Point{Lon: lon, Lat: lat2 / rad}
}
