package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/citystrata/citystrata/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertSnapshotStale     AlertType = "snapshot_stale"
	AlertReloadFailure     AlertType = "snapshot_reload_failure"
	AlertDataInconsistency AlertType = "data_inconsistency"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	// A stale snapshot means reloads have stopped publishing.
	if a.cfg.MaxSnapshotAgeSecs > 0 && snap.AgeSeconds > float64(a.cfg.MaxSnapshotAgeSecs) {
		alerts = append(alerts, Alert{
			Type:     AlertSnapshotStale,
			Severity: "high",
			Message: fmt.Sprintf(
				"Snapshot %s is %.0fs old, exceeds %ds",
				snap.Version, snap.AgeSeconds, a.cfg.MaxSnapshotAgeSecs,
			),
			Details: map[string]any{
				"version":     snap.Version,
				"loaded_at":   snap.LoadedAt,
				"age_seconds": snap.AgeSeconds,
			},
			Timestamp: now,
		})
	}

	if snap.ReloadFailures > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertReloadFailure,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d snapshot reload(s) failed since the last publish; serving %s",
				snap.ReloadFailures, snap.Version,
			),
			Details: map[string]any{
				"failures":   snap.ReloadFailures,
				"last_error": snap.LastReloadError,
			},
			Timestamp: now,
		})
	}

	// Stale assignments are expected after polygon edits; alert only
	// past the threshold.
	if snap.Checked > 0 && snap.InconsistencyRate > a.cfg.InconsistencyThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertDataInconsistency,
			Severity: "low",
			Message: fmt.Sprintf(
				"%d of %d resources (%.1f%%) have a stored area code that disagrees with their location",
				snap.Inconsistencies, snap.Checked, snap.InconsistencyRate*100,
			),
			Details: map[string]any{
				"inconsistencies": snap.Inconsistencies,
				"checked":         snap.Checked,
				"threshold":       a.cfg.InconsistencyThreshold,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
