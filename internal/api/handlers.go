package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/citystrata/citystrata/internal/aggregate"
	"github.com/citystrata/citystrata/internal/cache"
	"github.com/citystrata/citystrata/internal/evacuation"
	"github.com/citystrata/citystrata/internal/geo"
	"github.com/citystrata/citystrata/internal/model"
	"github.com/citystrata/citystrata/internal/spatial"
)

type healthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	LoadedAt string `json:"loaded_at,omitempty"`
	Areas    int    `json:"areas"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	snap := s.source.Current()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "loading"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Version:  snap.Version,
		LoadedAt: snap.LoadedAt.Format(time.RFC3339),
		Areas:    snap.Registry.Len(),
	})
}

func (s *Server) listAreas(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	areas := snap.Registry.Areas()
	features := make([]*geojson.Feature, 0, len(areas))
	for _, a := range areas {
		f, err := geo.AreaFeature(a)
		if err != nil {
			writeError(w, r, err)
			return
		}
		features = append(features, f)
	}
	writeGeoJSON(w, geo.NewFeatureCollection(features))
}

func (s *Server) getArea(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	code, err := parseAreaCode(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := snap.Registry.Lookup(code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := geo.AreaFeature(a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeGeoJSON(w, f)
}

func (s *Server) summarizeAll(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	key := cache.Key(snap.Registry.CityCode(), snap.Version, "summary", "all")
	out, err := cache.GetOrCompute(r.Context(), s.cache, key, func() ([]model.AreaSummary, error) {
		return aggregate.SummarizeAll(snap.Registry, snap.Catalog), nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) summarizeArea(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	code, err := parseAreaCode(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	key := cache.Key(snap.Registry.CityCode(), snap.Version, "summary", strconv.Itoa(code))
	out, err := cache.GetOrCompute(r.Context(), s.cache, key, func() (model.AreaSummary, error) {
		return aggregate.Summarize(snap.Registry, snap.Catalog, code)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type assignResponse struct {
	AreaCode *int `json:"area_code"`
}

func (s *Server) assign(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	p, err := parsePoint(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var resp assignResponse
	if code, ok := snap.Index.Assign(p); ok {
		resp.AreaCode = &code
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) nearby(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	q := r.URL.Query()
	p, err := parsePoint(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts, err := s.radiusOptions(q.Get("type"), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	hits, err := snap.Index.RadiusSearch(p, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	features := make([]*geojson.Feature, 0, len(hits))
	for _, h := range hits {
		f, err := geo.ResourceFeature(h.Resource, map[string]any{"distance_meters": h.DistanceMeters})
		if err != nil {
			writeError(w, r, err)
			return
		}
		features = append(features, f)
	}
	writeGeoJSON(w, geo.NewFeatureCollection(features))
}

// radiusOptions applies the configured default and bounds. The radius must
// lie in (0, max_radius_meters] and the limit in [0, max_results]; a zero
// limit means max_results.
func (s *Server) radiusOptions(kindName string, q url.Values) (spatial.RadiusSearchOptions, error) {
	var opts spatial.RadiusSearchOptions
	if strings.TrimSpace(kindName) == "" {
		return opts, invalid("type is required")
	}
	kind, err := model.ParseKind(kindName)
	if err != nil {
		return opts, err
	}
	opts.Kind = kind

	radius, err := parseFloat(q, "radius")
	if err != nil {
		return opts, err
	}
	opts.RadiusMeters = s.search.DefaultRadiusMeters
	if radius != nil {
		opts.RadiusMeters = *radius
	}
	if !(opts.RadiusMeters > 0) || opts.RadiusMeters > s.search.MaxRadiusMeters {
		return opts, invalid("radius must be in (0, %g], got %g", s.search.MaxRadiusMeters, opts.RadiusMeters)
	}

	limit, err := parseInt(q, "limit")
	if err != nil {
		return opts, err
	}
	opts.Limit = s.search.MaxResults
	if limit != nil {
		if *limit < 0 || (s.search.MaxResults > 0 && *limit > s.search.MaxResults) {
			return opts, invalid("limit must be in [0, %d], got %d", s.search.MaxResults, *limit)
		}
		if *limit > 0 {
			opts.Limit = *limit
		}
	}

	includeClosed, err := parseBool(q, "include_closed")
	if err != nil {
		return opts, err
	}
	opts.ExcludePermanentlyClosed = !includeClosed
	return opts, nil
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	var req evacuation.Request
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, invalid("invalid request body: %v", err))
		return
	}

	key := cache.Key(snap.Registry.CityCode(), snap.Version, "analyze", analysisKey(req))
	out, err := cache.GetOrCompute(r.Context(), s.cache, key, func() (*model.EvacuationAnalysis, error) {
		return evacuation.Analyze(snap.Registry, snap.Catalog, req)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// analysisKey canonicalizes req so equivalent requests share an entry.
func analysisKey(req evacuation.Request) string {
	scenario := req.Scenario
	if scenario == "" {
		scenario = evacuation.DefaultScenario
	}
	return fmt.Sprintf("e=%s;r=%s;s=%s", joinCodes(req.EvacuateAreas), joinCodes(req.ResourceAreas), scenario)
}

func joinCodes(codes []int) string {
	sorted := append([]int(nil), codes...)
	sort.Ints(sorted)
	parts := make([]string, 0, len(sorted))
	for i, c := range sorted {
		if i > 0 && c == sorted[i-1] {
			continue
		}
		parts = append(parts, strconv.Itoa(c))
	}
	return strings.Join(parts, ",")
}

func (s *Server) listResources(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	kind, err := model.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := parseResourceQuery(kind, r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	rs, err := snap.Catalog.List(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	features := make([]*geojson.Feature, 0, len(rs))
	for _, res := range rs {
		f, err := geo.ResourceFeature(res, nil)
		if err != nil {
			writeError(w, r, err)
			return
		}
		features = append(features, f)
	}
	writeGeoJSON(w, geo.NewFeatureCollection(features))
}

func (s *Server) getResource(w http.ResponseWriter, r *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	kind, err := model.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := snap.Catalog.Get(kind, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := geo.ResourceFeature(res, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeGeoJSON(w, f)
}

func (s *Server) facilityTypes(w http.ResponseWriter, _ *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	types := snap.Catalog.FacilityTypes()
	if types == nil {
		types = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"facility_types": types})
}

func (s *Server) verify(w http.ResponseWriter, _ *http.Request) {
	snap := s.current(w)
	if snap == nil {
		return
	}
	writeJSON(w, http.StatusOK, snap.Index.Verify())
}
