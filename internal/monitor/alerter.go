package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ethansammiq/deal-desk-sub004/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertStalledReviews AlertType = "stalled_reviews"
	AlertStalledRate    AlertType = "stalled_rate"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds and
// sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitorConfig
	client *http.Client
}

// NewAlerter creates an Alerter with the given monitor config.
func NewAlerter(cfg config.MonitorConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if a.cfg.BottleneckThreshold > 0 && snap.StalledTotal >= a.cfg.BottleneckThreshold {
		var worst string
		var worstCount int
		for _, b := range snap.Backlogs {
			if b.Stalled > worstCount {
				worstCount = b.Stalled
				worst = string(b.Department)
				if worst == "" {
					worst = string(b.Stage)
				}
			}
		}
		alerts = append(alerts, Alert{
			Type:     AlertStalledReviews,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d approval requirement(s) pending longer than %s",
				snap.StalledTotal, snap.Threshold,
			),
			Details: map[string]any{
				"stalled_total":      snap.StalledTotal,
				"pending_total":      snap.PendingTotal,
				"worst_queue":        worst,
				"oldest_pending_age": snap.OldestPendingAge.String(),
			},
			Timestamp: now,
		})
	}

	// Rate alert only fires with enough pending work to make the rate
	// meaningful.
	if a.cfg.StalledRateAlert > 0 && snap.PendingTotal >= 5 && snap.StalledRate > a.cfg.StalledRateAlert {
		alerts = append(alerts, Alert{
			Type:     AlertStalledRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%.1f%% of pending approvals are stalled (threshold %.1f%%)",
				snap.StalledRate*100, a.cfg.StalledRateAlert*100,
			),
			Details: map[string]any{
				"stalled_rate":  snap.StalledRate,
				"threshold":     a.cfg.StalledRateAlert,
				"stalled_total": snap.StalledTotal,
				"pending_total": snap.PendingTotal,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL. Returns the
// number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitor: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitor: alert sent",
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
		return eris.Wrap(err, "monitor: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitor: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitor: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitor: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
