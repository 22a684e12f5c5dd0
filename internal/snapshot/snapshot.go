// Package snapshot loads an immutable view of one city's areas and
// resources and publishes it to concurrent readers.
package snapshot

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/citystrata/citystrata/internal/catalog"
	"github.com/citystrata/citystrata/internal/geospatial"
	"github.com/citystrata/citystrata/internal/model"
	"github.com/citystrata/citystrata/internal/registry"
	"github.com/citystrata/citystrata/internal/spatial"
)

// Snapshot is a consistent, read-only view used by every query. It is never
// mutated after New returns.
type Snapshot struct {
	Version  string
	LoadedAt time.Time
	Registry *registry.AreaRegistry
	Catalog  *catalog.Catalog
	Index    *spatial.Index
	// Skipped counts stored resources left out because they failed
	// validation, by kind.
	Skipped map[model.Kind]int
	// Detached counts stored resources whose area code is not in the
	// registry. They are loaded unassigned, by kind.
	Detached map[model.Kind]int
}

// New builds a snapshot with a fresh version.
func New(reg *registry.AreaRegistry, cat *catalog.Catalog, cellDegrees float64) *Snapshot {
	return &Snapshot{
		Version:  uuid.New().String(),
		LoadedAt: time.Now().UTC(),
		Registry: reg,
		Catalog:  cat,
		Index:    spatial.NewIndex(reg, cat, cellDegrees),
		Skipped:  map[model.Kind]int{},
		Detached: map[model.Kind]int{},
	}
}

// Source produces snapshots.
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// Loader builds snapshots from a geospatial.Reader.
type Loader struct {
	reader      geospatial.Reader
	cityCode    int
	cellDegrees float64
}

var _ Source = (*Loader)(nil)

// NewLoader creates a Loader for cityCode.
func NewLoader(r geospatial.Reader, cityCode int, cellDegrees float64) *Loader {
	return &Loader{reader: r, cityCode: cityCode, cellDegrees: cellDegrees}
}

// Load reads the areas and every resource kind concurrently and builds a
// snapshot. Resources that fail validation are skipped and counted; any
// model.ErrInvariant or geometry error fails the load.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	log := zap.L().With(zap.String("component", "snapshot.loader"), zap.Int("city_code", l.cityCode))
	start := time.Now()

	var (
		areas     []model.StatisticalArea
		mu        sync.Mutex
		resources = make(map[model.Kind][]model.Resource, len(model.Kinds))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		as, err := l.reader.ListAreas(gctx, l.cityCode)
		if err != nil {
			return eris.Wrap(err, "snapshot: list areas")
		}
		areas = as
		return nil
	})
	for _, kind := range model.Kinds {
		g.Go(func() error {
			rs, err := l.reader.ListResources(gctx, l.cityCode, kind)
			if err != nil {
				return eris.Wrapf(err, "snapshot: list %s", kind)
			}
			mu.Lock()
			resources[kind] = rs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reg, err := registry.New(l.cityCode, areas)
	if err != nil {
		return nil, eris.Wrap(err, "snapshot: build registry")
	}

	skipped := make(map[model.Kind]int)
	detached := make(map[model.Kind]int)
	b := catalog.NewBuilder(l.cityCode)
	for _, kind := range model.Kinds {
		for _, r := range resources[kind] {
			if code := r.Base().AreaCode; code != nil && !reg.Has(*code) {
				detached[kind]++
				log.Warn("clearing unknown stored area code",
					zap.String("kind", string(kind)),
					zap.String("id", r.Base().ID),
					zap.Int("area_code", *code))
				r = model.WithAreaCode(r, nil)
			}
			err := b.Add(r)
			switch {
			case err == nil:
			case eris.Is(err, model.ErrInvalidParameter):
				skipped[kind]++
				log.Warn("skipping invalid resource", zap.String("kind", string(kind)), zap.Error(err))
			default:
				return nil, eris.Wrap(err, "snapshot: build catalog")
			}
		}
	}

	s := New(reg, b.Build(), l.cellDegrees)
	s.Skipped = skipped
	s.Detached = detached

	fields := []zap.Field{
		zap.String("version", s.Version),
		zap.Int("areas", reg.Len()),
		zap.Duration("elapsed", time.Since(start)),
	}
	for _, kind := range model.Kinds {
		fields = append(fields, zap.Int(string(kind), s.Catalog.Len(kind)))
	}
	log.Info("snapshot loaded", fields...)
	return s, nil
}

// Holder publishes the current snapshot. Readers call Current once per
// request and use that pointer throughout, so a concurrent Swap never
// exposes a half-updated view.
type Holder struct {
	cur    atomic.Pointer[Snapshot]
	source Source
	// OnSwap, when set, is called after every successful publish.
	OnSwap func(*Snapshot)
	// OnError, when set, is called after every failed reload.
	OnError func(error)
}

// NewHolder creates a Holder that reloads from source.
func NewHolder(source Source) *Holder {
	return &Holder{source: source}
}

// Current returns the published snapshot, or nil before the first load.
func (h *Holder) Current() *Snapshot {
	return h.cur.Load()
}

// Swap publishes s and returns the previous snapshot.
func (h *Holder) Swap(s *Snapshot) *Snapshot {
	old := h.cur.Swap(s)
	if h.OnSwap != nil {
		h.OnSwap(s)
	}
	return old
}

// Reload loads a new snapshot and publishes it. On failure the current
// snapshot stays published.
func (h *Holder) Reload(ctx context.Context) error {
	s, err := h.source.Load(ctx)
	if err != nil {
		if h.OnError != nil {
			h.OnError(err)
		}
		return err
	}
	h.Swap(s)
	return nil
}

// Run reloads every interval until ctx is done. Failures are logged and the
// previous snapshot is kept.
func (h *Holder) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	log := zap.L().With(zap.String("component", "snapshot.holder"))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.Reload(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				fields := []zap.Field{zap.Error(err)}
				if cur := h.Current(); cur != nil {
					fields = append(fields, zap.String("kept_version", cur.Version))
				}
				log.Error("snapshot reload failed", fields...)
				continue
			}
			log.Debug("snapshot reloaded", zap.String("version", h.Current().Version))
		}
	}
}
