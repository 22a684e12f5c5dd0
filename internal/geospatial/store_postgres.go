package geospatial

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/citystrata/citystrata/internal/db"
	"github.com/citystrata/citystrata/internal/geo"
	"github.com/citystrata/citystrata/internal/model"
	"github.com/citystrata/citystrata/internal/spatial"
)

// Schema holds every CityStrata table in Postgres.
const Schema = "citystrata"

// PostgresStore implements Store on PostGIS. Polygons travel as EWKB,
// points as lon/lat pairs built and read with ST_MakePoint, ST_X and ST_Y.
type PostgresStore struct {
	pool db.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ListAreas implements Reader.
func (s *PostgresStore) ListAreas(ctx context.Context, cityCode int) ([]model.StatisticalArea, error) {
	sql := `
		SELECT area_code, city_code, ST_AsEWKB(geom), area_m2,
		       ST_X(centroid), ST_Y(centroid), properties,
		       COALESCE(source, ''), imported_at
		FROM citystrata.statistical_areas
		WHERE city_code = $1
		ORDER BY area_code
	`
	rows, err := s.pool.Query(ctx, sql, cityCode)
	if err != nil {
		return nil, eris.Wrap(err, "geo: list statistical areas")
	}
	defer rows.Close()

	var areas []model.StatisticalArea
	for rows.Next() {
		var (
			a          model.StatisticalArea
			ewkb       []byte
			cLon, cLat *float64
			importedAt *time.Time
		)
		if err := rows.Scan(
			&a.AreaCode, &a.CityCode, &ewkb, &a.AreaM2,
			&cLon, &cLat, &a.Properties,
			&a.Source, &importedAt,
		); err != nil {
			return nil, eris.Wrap(err, "geo: scan statistical area row")
		}
		mp, err := geo.DecodeEWKB(ewkb)
		if err != nil {
			return nil, eris.Wrapf(err, "geo: area %d geometry", a.AreaCode)
		}
		a.Geometry = mp
		if cLon != nil && cLat != nil {
			a.Centroid = &model.Point{Lon: *cLon, Lat: *cLat}
		}
		if importedAt != nil {
			a.ImportedAt = *importedAt
		}
		areas = append(areas, a)
	}
	return areas, eris.Wrap(rows.Err(), "geo: iterate statistical areas")
}

// ListResources implements Reader.
func (s *PostgresStore) ListResources(ctx context.Context, cityCode int, kind model.Kind) ([]model.Resource, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	cols := []string{"id", "city_code", "COALESCE(name, '')", "ST_X(location)", "ST_Y(location)", "assigned_area_code"}
	for _, f := range t.fields {
		cols = append(cols, f.selectExpr())
	}
	sql := fmt.Sprintf("SELECT %s FROM %s.%s WHERE city_code = $1 ORDER BY id", strings.Join(cols, ", "), Schema, t.table)

	rows, err := s.pool.Query(ctx, sql, cityCode)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: list %s", kind)
	}
	defer rows.Close()

	var out []model.Resource
	for rows.Next() {
		rt := newRowTarget(kind)
		if err := rows.Scan(rt.dest()...); err != nil {
			return nil, eris.Wrapf(err, "geo: scan %s row", kind)
		}
		out = append(out, rt.finish())
	}
	return out, eris.Wrapf(rows.Err(), "geo: iterate %s", kind)
}

// UpsertAreas implements Store.
func (s *PostgresStore) UpsertAreas(ctx context.Context, areas []model.StatisticalArea) (int64, error) {
	rows := make([][]any, 0, len(areas))
	for _, a := range areas {
		ewkb, err := geo.EncodeEWKB(a.Geometry)
		if err != nil {
			return 0, eris.Wrapf(err, "geo: encode area %d", a.AreaCode)
		}
		var cLon, cLat *float64
		if a.Centroid != nil {
			cLon, cLat = &a.Centroid.Lon, &a.Centroid.Lat
		}
		rows = append(rows, []any{
			a.AreaCode, a.CityCode, ewkb, a.AreaM2, cLon, cLat,
			normalizeProperties(a.Properties), a.Source,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: Schema + ".statistical_areas",
		Staging: []db.Column{
			{Name: "area_code", Type: "integer"},
			{Name: "city_code", Type: "integer"},
			{Name: "geom_ewkb", Type: "bytea"},
			{Name: "area_m2", Type: "double precision"},
			{Name: "centroid_lon", Type: "double precision"},
			{Name: "centroid_lat", Type: "double precision"},
			{Name: "properties", Type: "jsonb"},
			{Name: "source", Type: "text"},
		},
		Insert: []string{"area_code", "city_code", "geom", "area_m2", "centroid", "properties", "source", "imported_at"},
		Select: []string{
			"area_code", "city_code",
			"ST_Multi(ST_GeomFromEWKB(geom_ewkb))",
			"area_m2",
			"CASE WHEN centroid_lon IS NULL THEN NULL ELSE ST_SetSRID(ST_MakePoint(centroid_lon, centroid_lat), 4326) END",
			"properties", "source", "now()",
		},
		ConflictKeys: []string{"city_code", "area_code"},
	}, rows)
	return n, eris.Wrap(err, "geo: upsert statistical areas")
}

// UpsertResources implements Store.
func (s *PostgresStore) UpsertResources(ctx context.Context, kind model.Kind, rs []model.Resource) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	rs = normalizeAll(rs)
	if err := checkKinds(kind, rs); err != nil {
		return 0, err
	}

	staging := []db.Column{
		{Name: "id", Type: "text"},
		{Name: "city_code", Type: "integer"},
		{Name: "name", Type: "text"},
		{Name: "lon", Type: "double precision"},
		{Name: "lat", Type: "double precision"},
		{Name: "assigned_area_code", Type: "integer"},
	}
	insert := []string{"id", "city_code", "name", "location", "assigned_area_code"}
	selects := []string{"id", "city_code", "name", "ST_SetSRID(ST_MakePoint(lon, lat), 4326)", "assigned_area_code"}
	for _, f := range t.fields {
		staging = append(staging, db.Column{Name: f.name, Type: f.pgType})
		insert = append(insert, f.name)
		selects = append(selects, f.name)
	}
	insert = append(insert, "updated_at")
	selects = append(selects, "now()")

	rows := make([][]any, len(rs))
	for i, r := range rs {
		b := r.Base()
		rows[i] = append([]any{b.ID, b.CityCode, b.Name, b.Location.Lon, b.Location.Lat, b.AreaCode}, t.values(r)...)
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        Schema + "." + t.table,
		Staging:      staging,
		Insert:       insert,
		Select:       selects,
		ConflictKeys: []string{"id"},
	}, rows)
	return n, eris.Wrapf(err, "geo: upsert %s", kind)
}

// UpdateAssignments implements Store.
func (s *PostgresStore) UpdateAssignments(ctx context.Context, kind model.Kind, as []spatial.Assignment) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	rows, err := assignmentRows(kind, as)
	if err != nil {
		return 0, err
	}
	n, err := db.BulkUpdate(ctx, s.pool, db.UpdateConfig{
		Table:   Schema + "." + t.table,
		Staging: []db.Column{{Name: "id", Type: "text"}, {Name: "assigned_area_code", Type: "integer"}},
		Keys:    []string{"id"},
		Set:     []string{"assigned_area_code"},
	}, rows)
	return n, eris.Wrapf(err, "geo: update %s assignments", kind)
}

// Migrate implements Store.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return Migrate(ctx, s.pool)
}

// Close closes the pool when it is closable.
func (s *PostgresStore) Close() error {
	if c, ok := s.pool.(interface{ Close() }); ok {
		c.Close()
	}
	return nil
}

// normalizeProperties returns an empty map for nil so the jsonb column is
// never NULL.
func normalizeProperties(p map[string]any) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return p
}
