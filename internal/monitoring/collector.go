package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/citystrata/citystrata/internal/model"
	"github.com/citystrata/citystrata/internal/snapshot"
)

// MetricsSnapshot holds a point-in-time view of data health.
type MetricsSnapshot struct {
	Version    string    `json:"version"`
	LoadedAt   time.Time `json:"loaded_at"`
	AgeSeconds float64   `json:"age_seconds"`

	Areas     int                `json:"areas"`
	Resources map[model.Kind]int `json:"resources"`
	Skipped   map[model.Kind]int `json:"skipped"`

	// Assignment consistency of the published snapshot.
	Checked           int     `json:"checked"`
	Inconsistencies   int     `json:"inconsistencies"`
	InconsistencyRate float64 `json:"inconsistency_rate"`
	Overlaps          int     `json:"overlaps"`

	// Reload failures since the last successful publish.
	ReloadFailures  int    `json:"reload_failures"`
	LastReloadError string `json:"last_reload_error,omitempty"`

	CollectedAt time.Time `json:"collected_at"`
}

// SnapshotSource returns the published snapshot.
type SnapshotSource interface {
	Current() *snapshot.Snapshot
}

// Collector derives metrics from the published snapshot and the reload
// history reported through RecordSwap and RecordError.
type Collector struct {
	source SnapshotSource
	now    func() time.Time

	mu       sync.Mutex
	failures int
	lastErr  string
}

// NewCollector creates a new metrics collector.
func NewCollector(source SnapshotSource) *Collector {
	return &Collector{source: source, now: time.Now}
}

// RecordSwap notes a successful publish. It fits snapshot.Holder.OnSwap.
func (c *Collector) RecordSwap(s *snapshot.Snapshot) {
	SnapshotReloadsTotal.WithLabelValues("ok").Inc()
	c.mu.Lock()
	c.failures = 0
	c.lastErr = ""
	c.mu.Unlock()
	if s != nil {
		setSnapshotGauges(s)
	}
}

// RecordError notes a failed reload. It fits snapshot.Holder.OnError.
func (c *Collector) RecordError(err error) {
	SnapshotReloadsTotal.WithLabelValues("error").Inc()
	c.mu.Lock()
	c.failures++
	if err != nil {
		c.lastErr = err.Error()
	}
	c.mu.Unlock()
}

// Collect gathers a snapshot of data-health metrics and refreshes the
// snapshot gauges.
func (c *Collector) Collect(ctx context.Context) (*MetricsSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "monitoring: collect")
	}
	s := c.source.Current()
	if s == nil {
		return nil, eris.New("monitoring: no snapshot published")
	}

	now := c.now().UTC()
	m := &MetricsSnapshot{
		Version:     s.Version,
		LoadedAt:    s.LoadedAt,
		AgeSeconds:  now.Sub(s.LoadedAt).Seconds(),
		Areas:       s.Registry.Len(),
		Resources:   make(map[model.Kind]int, len(model.Kinds)),
		Skipped:     make(map[model.Kind]int, len(s.Skipped)),
		CollectedAt: now,
	}
	for _, k := range model.Kinds {
		m.Resources[k] = s.Catalog.Len(k)
	}
	for k, n := range s.Skipped {
		m.Skipped[k] = n
	}

	rep := s.Index.Verify()
	m.Checked = rep.Checked
	m.Inconsistencies = len(rep.Inconsistencies)
	m.Overlaps = len(rep.Overlaps)
	if rep.Checked > 0 {
		m.InconsistencyRate = float64(m.Inconsistencies) / float64(rep.Checked)
	}

	c.mu.Lock()
	m.ReloadFailures = c.failures
	m.LastReloadError = c.lastErr
	c.mu.Unlock()

	setSnapshotGauges(s)
	SnapshotInconsistencies.Set(float64(m.Inconsistencies))
	SnapshotAgeSeconds.Set(m.AgeSeconds)
	return m, nil
}

func setSnapshotGauges(s *snapshot.Snapshot) {
	SnapshotAreas.Set(float64(s.Registry.Len()))
	for _, k := range model.Kinds {
		SnapshotResources.WithLabelValues(string(k)).Set(float64(s.Catalog.Len(k)))
		SnapshotSkipped.WithLabelValues(string(k)).Set(float64(s.Skipped[k]))
	}
}
