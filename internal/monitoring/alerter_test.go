package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citystrata/citystrata/internal/config"
)

var testMonitoringConfig = config.MonitoringConfig{
	MaxSnapshotAgeSecs:     3600,
	InconsistencyThreshold: 0.05,
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(testMonitoringConfig)

	snap := &MetricsSnapshot{
		Version:           "v1",
		AgeSeconds:        120,
		Checked:           100,
		Inconsistencies:   2,
		InconsistencyRate: 0.02,
	}

	alerts := a.Evaluate(snap)
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate(t *testing.T) {
	tests := []struct {
		name string
		snap MetricsSnapshot
		want AlertType
		msg  string
	}{
		{
			name: "stale snapshot",
			snap: MetricsSnapshot{Version: "v1", AgeSeconds: 7200},
			want: AlertSnapshotStale,
			msg:  "7200s old",
		},
		{
			name: "reload failures",
			snap: MetricsSnapshot{Version: "v1", ReloadFailures: 3, LastReloadError: "db down"},
			want: AlertReloadFailure,
			msg:  "3 snapshot reload(s) failed",
		},
		{
			name: "inconsistent assignments",
			snap: MetricsSnapshot{Version: "v1", Checked: 20, Inconsistencies: 4, InconsistencyRate: 0.2},
			want: AlertDataInconsistency,
			msg:  "4 of 20 resources (20.0%)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := NewAlerter(testMonitoringConfig).Evaluate(&tt.snap)
			require.Len(t, alerts, 1)
			assert.Equal(t, tt.want, alerts[0].Type)
			assert.Contains(t, alerts[0].Message, tt.msg)
		})
	}
}

func TestAlerter_Evaluate_AgeCheckDisabled(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{MaxSnapshotAgeSecs: 0, InconsistencyThreshold: 1})
	alerts := a.Evaluate(&MetricsSnapshot{AgeSeconds: 1e9})
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_EmptyCatalog(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{InconsistencyThreshold: 0})
	alerts := a.Evaluate(&MetricsSnapshot{Checked: 0})
	assert.Empty(t, alerts)
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		err := json.NewDecoder(r.Body).Decode(&alert)
		require.NoError(t, err)
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{
		WebhookURL: ts.URL,
	})

	alerts := []Alert{
		{Type: AlertSnapshotStale, Severity: "high", Message: "test alert 1"},
		{Type: AlertReloadFailure, Severity: "medium", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		WebhookURL: "",
	})

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertSnapshotStale, Message: "test"},
	})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		WebhookURL: "http://example.com",
	})

	sent := a.SendAlerts(context.Background(), nil)
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{
		WebhookURL: ts.URL,
	})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertDataInconsistency, Message: "test"}})
	assert.Equal(t, 0, sent)
}

func TestHandler_ServesMetrics(t *testing.T) {
	CacheHitsTotal.Inc()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "citystrata_cache_hits_total")
}
