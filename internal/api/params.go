package api

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/citystrata/citystrata/internal/catalog"
	"github.com/citystrata/citystrata/internal/model"
)

func invalid(format string, args ...any) error {
	return eris.Wrapf(model.ErrInvalidParameter, format, args...)
}

func parseFloat(q url.Values, name string) (*float64, error) {
	s := strings.TrimSpace(q.Get(name))
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, invalid("%s must be a number, got %q", name, s)
	}
	return &f, nil
}

func parseInt(q url.Values, name string) (*int, error) {
	s := strings.TrimSpace(q.Get(name))
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, invalid("%s must be an integer, got %q", name, s)
	}
	return &n, nil
}

func parseBool(q url.Values, name string) (bool, error) {
	s := strings.TrimSpace(q.Get(name))
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, invalid("%s must be a boolean, got %q", name, s)
	}
	return b, nil
}

// parsePoint reads the required lat and lon parameters.
func parsePoint(q url.Values) (model.Point, error) {
	lat, err := parseFloat(q, "lat")
	if err != nil {
		return model.Point{}, err
	}
	lon, err := parseFloat(q, "lon")
	if err != nil {
		return model.Point{}, err
	}
	if lat == nil || lon == nil {
		return model.Point{}, invalid("lat and lon are required")
	}
	p := model.Point{Lon: *lon, Lat: *lat}
	if !p.Valid() {
		return model.Point{}, invalid("point (%g, %g) is outside lon [-180, 180] / lat [-90, 90]", p.Lon, p.Lat)
	}
	return p, nil
}

func parseAreaCode(s string) (int, error) {
	code, err := strconv.Atoi(s)
	if err != nil {
		return 0, invalid("area code must be an integer, got %q", s)
	}
	return code, nil
}

// parseResourceQuery maps the list filters onto a catalog.Query. Filters
// that do not apply to kind are rejected by Query.Validate.
func parseResourceQuery(kind model.Kind, q url.Values) (catalog.Query, error) {
	cq := catalog.Query{Kind: kind}
	var err error

	if cq.AreaCode, err = parseInt(q, "area"); err != nil {
		return cq, err
	}
	limit, err := parseInt(q, "limit")
	if err != nil {
		return cq, err
	}
	if limit != nil {
		cq.Limit = *limit
	}

	cq.Category = strings.TrimSpace(q.Get("category"))
	if cq.MinScore, err = parseFloat(q, "min_score"); err != nil {
		return cq, err
	}
	if cq.IncludeClosed, err = parseBool(q, "include_closed"); err != nil {
		return cq, err
	}

	if cq.MinCapacity, err = parseInt(q, "min_capacity"); err != nil {
		return cq, err
	}
	if cq.MinRating, err = parseFloat(q, "min_rating"); err != nil {
		return cq, err
	}
	if cq.MaxPrice, err = parseFloat(q, "max_price"); err != nil {
		return cq, err
	}
	cq.LodgingType = strings.TrimSpace(q.Get("lodging_type"))
	if cq.LodgingType == "" {
		cq.LodgingType = strings.TrimSpace(q.Get("hotel_type"))
	}

	cq.EducationPhase = strings.TrimSpace(q.Get("phase"))
	cq.TypeOfEducation = strings.TrimSpace(q.Get("type"))

	if cq.MinFacilityArea, err = parseInt(q, "min_facility_area"); err != nil {
		return cq, err
	}
	if cq.MinOccupancy, err = parseInt(q, "min_occupancy"); err != nil {
		return cq, err
	}

	if s := q.Get("facility_types"); s != "" {
		for _, t := range strings.Split(s, ",") {
			if t = strings.TrimSpace(t); t != "" {
				cq.FacilityTypes = append(cq.FacilityTypes, t)
			}
		}
	}
	return cq, cq.Validate()
}
