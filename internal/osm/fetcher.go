// Package osm fetches generic facilities from an Overpass API endpoint.
package osm

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/serjvanilla/go-overpass"
	"go.uber.org/zap"

	"github.com/citystrata/citystrata/internal/model"
)

// TagKeys are the OSM keys whose values name a facility type.
var TagKeys = []string{"amenity", "leisure", "emergency"}

// DefaultTypes are fetched when the caller names none.
var DefaultTypes = []string{
	"community_centre", "hospital", "clinic", "school", "kindergarten",
	"shelter", "assembly_point", "sports_centre", "place_of_worship",
}

var idNamespace = uuid.MustParse("0b5e7d1c-3f2a-5e4b-8c6d-7a9f0e1d2c3b")

var typePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

type querier interface {
	Query(query string) (overpass.Result, error)
}

// Fetcher queries Overpass for facilities inside a bounding box.
type Fetcher struct {
	client  querier
	timeout time.Duration
}

// NewFetcher returns a fetcher for endpoint. maxParallel bounds concurrent
// Overpass requests.
func NewFetcher(endpoint string, timeout time.Duration, maxParallel int) *Fetcher {
	if maxParallel < 1 {
		maxParallel = 1
	}
	client := overpass.NewWithSettings(endpoint, maxParallel, &http.Client{Timeout: timeout})
	return &Fetcher{client: &client, timeout: timeout}
}

// Facilities returns the nodes and ways inside bounds tagged with one of
// types under any of TagKeys, as facilities of cityCode ordered by id. A
// way is located at the mean of its nodes. Elements without a location
// are dropped.
func (f *Fetcher) Facilities(ctx context.Context, cityCode int, bounds model.Bounds, types []string) ([]model.Facility, error) {
	if bounds.Empty() {
		return nil, eris.Wrap(model.ErrInvalidParameter, "osm: empty bounds")
	}
	if len(types) == 0 {
		types = DefaultTypes
	}
	want := make(map[string]bool, len(types))
	for _, t := range types {
		if !typePattern.MatchString(t) {
			return nil, eris.Wrapf(model.ErrInvalidParameter, "osm: invalid facility type %q", t)
		}
		want[t] = true
	}

	query := BuildQuery(bounds, types, f.timeout)
	res, err := f.run(ctx, query)
	if err != nil {
		return nil, err
	}

	out := convert(res, cityCode, want)
	zap.L().Info("osm: fetched facilities",
		zap.Int("nodes", len(res.Nodes)),
		zap.Int("ways", len(res.Ways)),
		zap.Int("facilities", len(out)),
	)
	return out, nil
}

// run executes query, giving up when ctx ends. The client has no context
// support, so an abandoned query finishes in the background.
func (f *Fetcher) run(ctx context.Context, query string) (overpass.Result, error) {
	type reply struct {
		res overpass.Result
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		r, err := f.client.Query(query)
		ch <- reply{r, err}
	}()

	select {
	case <-ctx.Done():
		return overpass.Result{}, eris.Wrap(ctx.Err(), "osm: query cancelled")
	case r := <-ch:
		if r.err != nil {
			return overpass.Result{}, eris.Wrap(r.err, "osm: overpass query")
		}
		return r.res, nil
	}
}

// BuildQuery renders the Overpass QL for types inside bounds.
func BuildQuery(bounds model.Bounds, types []string, timeout time.Duration) string {
	bbox := fmt.Sprintf("%f,%f,%f,%f", bounds.MinLat, bounds.MinLon, bounds.MaxLat, bounds.MaxLon)
	values := "^(" + strings.Join(types, "|") + ")$"

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", int(timeout.Seconds()))
	for _, key := range TagKeys {
		fmt.Fprintf(&b, "  node[%q~%q](%s);\n", key, values, bbox)
		fmt.Fprintf(&b, "  way[%q~%q](%s);\n", key, values, bbox)
	}
	b.WriteString(");\nout body;\n>;\nout skel qt;\n")
	return b.String()
}

func convert(res overpass.Result, cityCode int, want map[string]bool) []model.Facility {
	var out []model.Facility
	for id, n := range res.Nodes {
		ft := facilityType(n.Tags, want)
		if ft == "" {
			continue
		}
		loc := model.Point{Lon: n.Lon, Lat: n.Lat}
		if !loc.Valid() {
			continue
		}
		out = append(out, facility(string(overpass.ElementTypeNode), id, n.Tags, ft, loc, cityCode))
	}
	for id, w := range res.Ways {
		ft := facilityType(w.Tags, want)
		if ft == "" {
			continue
		}
		loc, ok := meanLocation(w.Nodes)
		if !ok {
			continue
		}
		out = append(out, facility(string(overpass.ElementTypeWay), id, w.Tags, ft, loc, cityCode))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func facility(elemType string, id int64, tags map[string]string, ft string, loc model.Point, cityCode int) model.Facility {
	return model.Facility{
		ResourceBase: model.ResourceBase{
			ID:       ElementID(elemType, id),
			Name:     firstTag(tags, "name", "name:en", "name:he"),
			Location: loc,
			CityCode: cityCode,
		},
		FacilityType: ft,
	}
}

// ElementID derives the facility id for an OSM element.
func ElementID(elemType string, id int64) string {
	return uuid.NewSHA1(idNamespace, []byte(elemType+"/"+strconv.FormatInt(id, 10))).String()
}

func facilityType(tags map[string]string, want map[string]bool) string {
	for _, key := range TagKeys {
		if v := tags[key]; want[v] {
			return v
		}
	}
	return ""
}

func meanLocation(nodes []*overpass.Node) (model.Point, bool) {
	var lon, lat float64
	n := 0
	for _, node := range nodes {
		if node == nil || (node.Lon == 0 && node.Lat == 0) {
			continue
		}
		lon += node.Lon
		lat += node.Lat
		n++
	}
	if n == 0 {
		return model.Point{}, false
	}
	p := model.Point{Lon: lon / float64(n), Lat: lat / float64(n)}
	return p, p.Valid()
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(tags[k]); v != "" {
			return v
		}
	}
	return ""
}
