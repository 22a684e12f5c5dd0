package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/citystrata/citystrata/internal/config"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type memBackend struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	setCall int
}

func newMemBackend() *memBackend {
	return &memBackend{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memBackend) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, errMiss
	}
	return v, nil
}

func (m *memBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCall++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memBackend) Ping(context.Context) error { return nil }
func (m *memBackend) Close() error               { return nil }

type payload struct {
	Code  int    `json:"code"`
	Label string `json:"label"`
}

func TestGetOrCompute_MissThenHit(t *testing.T) {
	mem := newMemBackend()
	c := &Cache{backend: mem, ttl: time.Minute}
	calls := 0
	compute := func() (payload, error) {
		calls++
		return payload{Code: 11, Label: "north"}, nil
	}

	key := Key(2600, "v1", "summary", "11")
	v, err := GetOrCompute(context.Background(), c, key, compute)
	require.NoError(t, err)
	assert.Equal(t, payload{Code: 11, Label: "north"}, v)
	assert.Equal(t, time.Minute, mem.ttls[key])

	v, err = GetOrCompute(context.Background(), c, key, compute)
	require.NoError(t, err)
	assert.Equal(t, payload{Code: 11, Label: "north"}, v)
	assert.Equal(t, 1, calls)
}

func TestGetOrCompute_VersionScoped(t *testing.T) {
	c := &Cache{backend: newMemBackend(), ttl: time.Minute}
	n := 0
	compute := func() (int, error) { n++; return n, nil }

	a, err := GetOrCompute(context.Background(), c, Key(2600, "v1", "summary"), compute)
	require.NoError(t, err)
	b, err := GetOrCompute(context.Background(), c, Key(2600, "v2", "summary"), compute)
	require.NoError(t, err)
	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestGetOrCompute_ComputeErrorNotCached(t *testing.T) {
	mem := newMemBackend()
	c := &Cache{backend: mem, ttl: time.Minute}

	_, err := GetOrCompute(context.Background(), c, "k", func() (int, error) { return 0, errors.New("boom") })
	require.Error(t, err)
	assert.Zero(t, mem.setCall)
}

func TestGetOrCompute_BackendErrorsFallBack(t *testing.T) {
	mem := newMemBackend()
	mem.getErr = errors.New("connection refused")
	mem.setErr = errors.New("connection refused")
	c := &Cache{backend: mem, ttl: time.Minute}

	v, err := GetOrCompute(context.Background(), c, "k", func() (string, error) { return "fresh", nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

func TestGetOrCompute_UndecodableEntry(t *testing.T) {
	mem := newMemBackend()
	mem.data["k"] = []byte("not json")
	c := &Cache{backend: mem, ttl: time.Minute}

	v, err := GetOrCompute(context.Background(), c, "k", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, []byte("7"), mem.data["k"])
}

func TestGetOrCompute_Disabled(t *testing.T) {
	var nilCache *Cache
	v, err := GetOrCompute(context.Background(), nilCache, "k", func() (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	c := New(config.CacheConfig{})
	assert.False(t, c.Enabled())
	assert.NoError(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
}

func TestNew_UnreachableRedisFallsBack(t *testing.T) {
	c := New(config.CacheConfig{RedisAddr: "127.0.0.1:1", TTLSecs: 0})
	defer c.Close() //nolint:errcheck
	require.True(t, c.Enabled())
	assert.Equal(t, 10*time.Minute, c.ttl)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, c.Ping(ctx))

	v, err := GetOrCompute(ctx, c, "k", func() (int, error) { return 5, nil })
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "citystrata:2600:v1", Key(2600, "v1"))
	assert.Equal(t, "citystrata:2600:v1:summary:11", Key(2600, "v1", "summary", "11"))
}
