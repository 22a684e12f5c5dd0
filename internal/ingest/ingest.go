// Package ingest maps tabular resource exports (CSV or XLSX) onto model
// resources. Columns are matched case-insensitively against per-kind alias
// lists so the differently shaped source exports load without
// preprocessing.
package ingest

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/citystrata/citystrata/internal/model"
)

// idNamespace seeds ids derived for rows without an id column.
var idNamespace = uuid.MustParse("6f1c3d2e-8a4b-5c7d-9e0f-1a2b3c4d5e6f")

// Options selects how rows are read.
type Options struct {
	Kind     model.Kind
	CityCode int
	// Source tags lodging_type or venue_type when the row has none,
	// e.g. "airbnb", "hotel", "coffee_shop".
	Source string
	// Sheet names the XLSX sheet; empty selects the first.
	Sheet string
}

// Skip records a row left out and why.
type Skip struct {
	Row    int // 1-based, counting the header as row 1
	Reason string
}

// Result holds the resources read from one file.
type Result struct {
	Resources []model.Resource
	Skipped   []Skip
}

// ReadResources reads every row of the file at path as a resource of
// opts.Kind. Rows without a valid location, of another city, or missing a
// required value are skipped and reported. Missing location columns fail
// with model.ErrInvalidParameter.
func ReadResources(ctx context.Context, path string, opts Options) (*Result, error) {
	t, err := OpenTable(ctx, path, opts.Sheet)
	if err != nil {
		return nil, err
	}
	defer t.Close() //nolint:errcheck

	res, err := Map(t, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: %s", path)
	}
	zap.L().Info("ingest: read resources",
		zap.String("path", path),
		zap.String("kind", string(opts.Kind)),
		zap.Int("rows", len(res.Resources)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

// Map consumes t and builds resources.
func Map(t *Table, opts Options) (*Result, error) {
	if !opts.Kind.Valid() {
		return nil, eris.Wrapf(model.ErrInvalidParameter, "ingest: unknown kind %q", opts.Kind)
	}
	cols := newColumns(t.Header)
	if cols.idx(latAliases) < 0 || cols.idx(lonAliases) < 0 {
		return nil, eris.Wrapf(model.ErrInvalidParameter, "ingest: latitude/longitude columns not found in %v", t.Header)
	}

	res := &Result{}
	seen := make(map[string]bool)
	rowNum := 1
	for row := range t.Rows {
		rowNum++
		r := rowReader{cols: cols, row: row}
		rsc, reason := build(r, opts)
		if reason == "" {
			id := rsc.Base().ID
			if seen[id] {
				reason = "duplicate id " + id
			} else {
				seen[id] = true
			}
		}
		if reason != "" {
			res.Skipped = append(res.Skipped, Skip{Row: rowNum, Reason: reason})
			continue
		}
		res.Resources = append(res.Resources, rsc)
	}
	if err, ok := <-t.Errs; ok && err != nil {
		return nil, err
	}
	return res, nil
}

var (
	idAliases       = []string{"id", "cid", "hotelid", "institution code", "institution_code", "osm_id"}
	nameAliases     = []string{"name", "title", "institution name", "institution_name", "matnas_name"}
	latAliases      = []string{"lat", "latitude", "location/lat", "location_lat", "coordinates/latitude"}
	lonAliases      = []string{"lon", "lng", "longitude", "location/lng", "location_lng", "coordinates/longitude"}
	areaAliases     = []string{"stat_2022", "stat2022", "area_code"}
	cityAliases     = []string{"semel_yish", "city_code"}
	urlAliases      = []string{"url", "website"}
	addressAliases  = []string{"full_address", "address/full", "fulladdress", "address", "street"}
	capacityAliases = []string{"personcapacity", "person_capacity", "capacity"}
	priceAliases    = []string{"price_per_night", "price_numeric", "price"}
	ratingAliases   = []string{"rating/value", "rating"}
	typeAliases     = []string{"type", "lodging_type", "venue_type"}
)

// build returns the resource for one row, or a skip reason.
func build(r rowReader, opts Options) (model.Resource, string) {
	lat, okLat := r.float(latAliases)
	lon, okLon := r.float(lonAliases)
	if !okLat || !okLon {
		return nil, "missing or invalid latitude/longitude"
	}
	loc := model.Point{Lon: lon, Lat: lat}
	if !loc.Valid() {
		return nil, fmt.Sprintf("location (%g, %g) out of range", lon, lat)
	}
	if city, ok := r.int(cityAliases); ok && city != opts.CityCode {
		return nil, fmt.Sprintf("city code %d", city)
	}

	name := r.str(nameAliases)
	base := model.ResourceBase{
		ID:       r.id(opts.Kind, name, loc),
		Name:     name,
		Location: loc,
		CityCode: opts.CityCode,
	}
	if code, ok := r.int(areaAliases); ok {
		base.AreaCode = &code
	}

	switch opts.Kind {
	case model.KindLodging:
		l := model.Lodging{
			ResourceBase:  base,
			PricePerNight: r.floatPtr(priceAliases),
			Rating:        r.floatPtr(ratingAliases),
			LodgingType:   firstNonEmpty(r.str(typeAliases), opts.Source),
			URL:           r.str(urlAliases),
		}
		if c, ok := r.int(capacityAliases); ok {
			l.PersonCapacity = &c
		}
		return l, ""
	case model.KindInstitution:
		return model.Institution{
			ResourceBase:    base,
			InstitutionCode: r.str([]string{"institution code", "institution_code"}),
			EducationPhase:  r.str([]string{"education phase", "education_phase"}),
			TypeOfEducation: r.str([]string{"type of education", "type_of_education"}),
			Address:         r.str(addressAliases),
		}, ""
	case model.KindFoodVenue:
		return model.FoodVenue{
			ResourceBase:      base,
			Category:          r.str([]string{"categoryname", "category_name", "category"}),
			Score:             r.floatPtr([]string{"totalscore", "total_score", "score"}),
			TemporarilyClosed: r.bool([]string{"temporarilyclosed", "temporarily_closed"}),
			PermanentlyClosed: r.bool([]string{"permanentlyclosed", "permanently_closed"}),
			VenueType:         firstNonEmpty(r.str(typeAliases), opts.Source),
			URL:               r.str(urlAliases),
		}, ""
	case model.KindCommunityCenter:
		c := model.CommunityCenter{
			ResourceBase: base,
			Address:      r.str(addressAliases),
			ActivityDays: r.str([]string{"activity_days"}),
		}
		if v, ok := r.int([]string{"facility_area", "facility_area_m2"}); ok {
			c.FacilityAreaM2 = &v
		}
		if v, ok := r.int([]string{"occupancy"}); ok {
			c.Occupancy = &v
		}
		return c, ""
	default:
		ft := r.str([]string{"facility_type", "type"})
		if ft == "" {
			return nil, "missing facility type"
		}
		return model.Facility{ResourceBase: base, FacilityType: ft}, ""
	}
}

// columns maps lower-cased header names to their index.
type columns map[string]int

func newColumns(header []string) columns {
	c := make(columns, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := c[key]; !dup {
			c[key] = i
		}
	}
	return c
}

// idx returns the index of the first alias present, or -1.
func (c columns) idx(aliases []string) int {
	for _, a := range aliases {
		if i, ok := c[a]; ok {
			return i
		}
	}
	return -1
}

type rowReader struct {
	cols columns
	row  []string
}

func (r rowReader) str(aliases []string) string {
	i := r.cols.idx(aliases)
	if i < 0 || i >= len(r.row) {
		return ""
	}
	v := strings.TrimSpace(r.row[i])
	switch strings.ToLower(v) {
	case "nan", "null", "none":
		return ""
	}
	return v
}

func (r rowReader) float(aliases []string) (float64, bool) {
	s := r.str(aliases)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (r rowReader) floatPtr(aliases []string) *float64 {
	f, ok := r.float(aliases)
	if !ok {
		return nil
	}
	return &f
}

// int accepts integral floats such as "12.0", which spreadsheet exports
// produce for numeric columns.
func (r rowReader) int(aliases []string) (int, bool) {
	f, ok := r.float(aliases)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func (r rowReader) bool(aliases []string) bool {
	switch strings.ToLower(r.str(aliases)) {
	case "true", "1", "yes", "y", "t":
		return true
	}
	return false
}

// id returns the row's id column, normalized so "123.0" reads as "123", or
// a deterministic id derived from kind, name and location.
func (r rowReader) id(kind model.Kind, name string, loc model.Point) string {
	if s := r.str(idAliases); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return strconv.FormatInt(int64(f), 10)
		}
		return s
	}
	key := fmt.Sprintf("%s|%s|%.7f|%.7f", kind, name, loc.Lon, loc.Lat)
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
