package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/citystrata/citystrata/internal/db"
	"github.com/citystrata/citystrata/internal/geospatial"
	"github.com/citystrata/citystrata/internal/model"
	"github.com/citystrata/citystrata/internal/registry"
	"github.com/citystrata/citystrata/internal/snapshot"
)

const defaultSQLitePath = "citystrata.db"

func openStore(ctx context.Context) (geospatial.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		st, err := geospatial.NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("database URL is required (CITYSTRATA_STORE_DATABASE_URL or DATABASE_URL)")
		}
		pool, err := db.Connect(ctx, db.PoolConfig{
			URL:      cfg.Store.DatabaseURL,
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
		if err != nil {
			return nil, err
		}
		return geospatial.NewPostgresStore(pool), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// loadSnapshot builds a one-off snapshot from the configured store.
func loadSnapshot(ctx context.Context, st geospatial.Reader) (*snapshot.Snapshot, error) {
	return snapshot.NewLoader(st, cfg.City.Code, cfg.Search.GridCellDegrees).Load(ctx)
}

// loadRegistry builds the area registry alone, for ingestion commands that
// only need point assignment.
func loadRegistry(ctx context.Context, st geospatial.Reader) (*registry.AreaRegistry, error) {
	areas, err := st.ListAreas(ctx, cfg.City.Code)
	if err != nil {
		return nil, err
	}
	if len(areas) == 0 {
		return nil, eris.Wrapf(model.ErrNotFound, "no statistical areas stored for city %d; run load-areas first", cfg.City.Code)
	}
	return registry.New(cfg.City.Code, areas)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
