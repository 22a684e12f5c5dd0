package geospatial

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/citystrata/citystrata/internal/geo"
	"github.com/citystrata/citystrata/internal/model"
	"github.com/citystrata/citystrata/internal/spatial"
)

// SQLiteStore implements Store on modernc.org/sqlite for local runs without
// PostGIS. Polygons are stored as GeoJSON text and points as lon/lat columns.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS statistical_areas (
	city_code    INTEGER NOT NULL,
	area_code    INTEGER NOT NULL,
	geom_geojson TEXT NOT NULL,
	area_m2      REAL,
	centroid_lon REAL,
	centroid_lat REAL,
	properties   TEXT NOT NULL DEFAULT '{}',
	source       TEXT,
	imported_at  DATETIME NOT NULL,
	PRIMARY KEY (city_code, area_code)
);

CREATE TABLE IF NOT EXISTS lodging (
	id                 TEXT PRIMARY KEY,
	city_code          INTEGER NOT NULL,
	name               TEXT,
	lon                REAL NOT NULL,
	lat                REAL NOT NULL,
	assigned_area_code INTEGER,
	person_capacity    INTEGER,
	price_per_night    REAL,
	rating             REAL,
	lodging_type       TEXT,
	url                TEXT,
	updated_at         DATETIME
);

CREATE TABLE IF NOT EXISTS institutions (
	id                 TEXT PRIMARY KEY,
	city_code          INTEGER NOT NULL,
	name               TEXT,
	lon                REAL NOT NULL,
	lat                REAL NOT NULL,
	assigned_area_code INTEGER,
	institution_code   TEXT,
	education_phase    TEXT,
	type_of_education  TEXT,
	address            TEXT,
	updated_at         DATETIME
);

CREATE TABLE IF NOT EXISTS food_venues (
	id                 TEXT PRIMARY KEY,
	city_code          INTEGER NOT NULL,
	name               TEXT,
	lon                REAL NOT NULL,
	lat                REAL NOT NULL,
	assigned_area_code INTEGER,
	category           TEXT,
	score              REAL,
	temporarily_closed INTEGER NOT NULL DEFAULT 0,
	permanently_closed INTEGER NOT NULL DEFAULT 0,
	venue_type         TEXT,
	url                TEXT,
	updated_at         DATETIME
);

CREATE TABLE IF NOT EXISTS community_centers (
	id                 TEXT PRIMARY KEY,
	city_code          INTEGER NOT NULL,
	name               TEXT,
	lon                REAL NOT NULL,
	lat                REAL NOT NULL,
	assigned_area_code INTEGER,
	facility_area_m2   INTEGER,
	occupancy          INTEGER,
	address            TEXT,
	activity_days      TEXT,
	updated_at         DATETIME
);

CREATE TABLE IF NOT EXISTS facilities (
	id                 TEXT PRIMARY KEY,
	city_code          INTEGER NOT NULL,
	name               TEXT,
	lon                REAL NOT NULL,
	lat                REAL NOT NULL,
	assigned_area_code INTEGER,
	facility_type      TEXT,
	updated_at         DATETIME
);

CREATE INDEX IF NOT EXISTS idx_lodging_area ON lodging(city_code, assigned_area_code);
CREATE INDEX IF NOT EXISTS idx_institutions_area ON institutions(city_code, assigned_area_code);
CREATE INDEX IF NOT EXISTS idx_food_venues_area ON food_venues(city_code, assigned_area_code);
CREATE INDEX IF NOT EXISTS idx_community_centers_area ON community_centers(city_code, assigned_area_code);
CREATE INDEX IF NOT EXISTS idx_facilities_area ON facilities(city_code, assigned_area_code);
`

// Migrate implements Store.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListAreas implements Reader.
func (s *SQLiteStore) ListAreas(ctx context.Context, cityCode int) ([]model.StatisticalArea, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT area_code, city_code, geom_geojson, area_m2, centroid_lon, centroid_lat,
		       properties, COALESCE(source, ''), imported_at
		FROM statistical_areas
		WHERE city_code = ?
		ORDER BY area_code`, cityCode)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list statistical areas")
	}
	defer rows.Close() //nolint:errcheck

	var areas []model.StatisticalArea
	for rows.Next() {
		var (
			a          model.StatisticalArea
			geomJSON   string
			props      string
			cLon, cLat *float64
		)
		if err := rows.Scan(&a.AreaCode, &a.CityCode, &geomJSON, &a.AreaM2, &cLon, &cLat, &props, &a.Source, &a.ImportedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan statistical area row")
		}
		if a.Geometry, err = geo.DecodeGeoJSON([]byte(geomJSON)); err != nil {
			return nil, eris.Wrapf(err, "sqlite: area %d geometry", a.AreaCode)
		}
		if err := json.Unmarshal([]byte(props), &a.Properties); err != nil {
			return nil, eris.Wrapf(err, "sqlite: area %d properties", a.AreaCode)
		}
		if cLon != nil && cLat != nil {
			a.Centroid = &model.Point{Lon: *cLon, Lat: *cLat}
		}
		areas = append(areas, a)
	}
	return areas, eris.Wrap(rows.Err(), "sqlite: iterate statistical areas")
}

// ListResources implements Reader.
func (s *SQLiteStore) ListResources(ctx context.Context, cityCode int, kind model.Kind) ([]model.Resource, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	cols := []string{"id", "city_code", "COALESCE(name, '')", "lon", "lat", "assigned_area_code"}
	for _, f := range t.fields {
		cols = append(cols, f.selectExpr())
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE city_code = ? ORDER BY id", strings.Join(cols, ", "), t.table)

	rows, err := s.db.QueryContext(ctx, q, cityCode)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list %s", kind)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Resource
	for rows.Next() {
		rt := newRowTarget(kind)
		if err := rows.Scan(rt.dest()...); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s row", kind)
		}
		out = append(out, rt.finish())
	}
	return out, eris.Wrapf(rows.Err(), "sqlite: iterate %s", kind)
}

// UpsertAreas implements Store.
func (s *SQLiteStore) UpsertAreas(ctx context.Context, areas []model.StatisticalArea) (int64, error) {
	now := time.Now().UTC()
	var n int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO statistical_areas
				(city_code, area_code, geom_geojson, area_m2, centroid_lon, centroid_lat, properties, source, imported_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (city_code, area_code) DO UPDATE SET
				geom_geojson = excluded.geom_geojson,
				area_m2 = excluded.area_m2,
				centroid_lon = excluded.centroid_lon,
				centroid_lat = excluded.centroid_lat,
				properties = excluded.properties,
				source = excluded.source,
				imported_at = excluded.imported_at`)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare area upsert")
		}
		defer stmt.Close() //nolint:errcheck

		for _, a := range areas {
			geomJSON, err := geo.EncodeGeoJSON(a.Geometry)
			if err != nil {
				return eris.Wrapf(err, "sqlite: encode area %d", a.AreaCode)
			}
			props, err := json.Marshal(normalizeProperties(a.Properties))
			if err != nil {
				return eris.Wrapf(err, "sqlite: marshal area %d properties", a.AreaCode)
			}
			var cLon, cLat *float64
			if a.Centroid != nil {
				cLon, cLat = &a.Centroid.Lon, &a.Centroid.Lat
			}
			if _, err := stmt.ExecContext(ctx, a.CityCode, a.AreaCode, string(geomJSON), a.AreaM2, cLon, cLat, string(props), a.Source, now); err != nil {
				return eris.Wrapf(err, "sqlite: upsert area %d", a.AreaCode)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// UpsertResources implements Store.
func (s *SQLiteStore) UpsertResources(ctx context.Context, kind model.Kind, rs []model.Resource) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	rs = normalizeAll(rs)
	if err := checkKinds(kind, rs); err != nil {
		return 0, err
	}

	cols := []string{"id", "city_code", "name", "lon", "lat", "assigned_area_code"}
	for _, f := range t.fields {
		cols = append(cols, f.name)
	}
	cols = append(cols, "updated_at")
	set := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		set = append(set, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		t.table, strings.Join(cols, ", "), placeholders(len(cols)), strings.Join(set, ", "))

	now := time.Now().UTC()
	var n int64
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return eris.Wrapf(err, "sqlite: prepare %s upsert", kind)
		}
		defer stmt.Close() //nolint:errcheck

		for _, r := range rs {
			b := r.Base()
			args := append([]any{b.ID, b.CityCode, b.Name, b.Location.Lon, b.Location.Lat, b.AreaCode}, t.values(r)...)
			args = append(args, now)
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return eris.Wrapf(err, "sqlite: upsert %s %s", kind, b.ID)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// UpdateAssignments implements Store.
func (s *SQLiteStore) UpdateAssignments(ctx context.Context, kind model.Kind, as []spatial.Assignment) (int64, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	rows, err := assignmentRows(kind, as)
	if err != nil {
		return 0, err
	}

	var n int64
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("UPDATE %s SET assigned_area_code = ? WHERE id = ?", t.table))
		if err != nil {
			return eris.Wrapf(err, "sqlite: prepare %s assignment update", kind)
		}
		defer stmt.Close() //nolint:errcheck

		for _, row := range rows {
			res, err := stmt.ExecContext(ctx, row[1], row[0])
			if err != nil {
				return eris.Wrapf(err, "sqlite: update %s %v", kind, row[0])
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return eris.Wrap(err, "sqlite: rows affected")
			}
			n += affected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	if err := fn(tx); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
