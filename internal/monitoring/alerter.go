package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertErrorRate AlertType = "document_error_rate"
	AlertStalled   AlertType = "documents_stalled"
)

// minDocumentsForRate keeps a handful of documents from tripping the rate alert.
const minDocumentsForRate = 5

// Alert represents a single alert to be sent.
type Alert struct {
	ID        string         `json:"id"`
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds and sends
// alerts via webhook when thresholds are breached.
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
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if a.cfg.ErrorRateThreshold > 0 && snap.Total >= minDocumentsForRate && snap.ErrorRate > a.cfg.ErrorRateThreshold {
		alerts = append(alerts, Alert{
			ID:       uuid.NewString(),
			Type:     AlertErrorRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Document error rate %.1f%% exceeds threshold %.1f%% (%d errored / %d submitted in last %dh)",
				snap.ErrorRate*100, a.cfg.ErrorRateThreshold*100,
				snap.Errored, snap.Total, snap.LookbackHours,
			),
			Details: map[string]any{
				"error_rate": snap.ErrorRate,
				"threshold":  a.cfg.ErrorRateThreshold,
				"errored":    snap.Errored,
				"total":      snap.Total,
			},
			Timestamp: now,
		})
	}

	if a.cfg.StalledThreshold > 0 && snap.NotYet >= a.cfg.StalledThreshold {
		alerts = append(alerts, Alert{
			ID:       uuid.NewString(),
			Type:     AlertStalled,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d documents still waiting for a pipeline stage in last %dh",
				snap.NotYet, snap.LookbackHours,
			),
			Details: map[string]any{
				"not_yet":   snap.NotYet,
				"threshold": a.cfg.StalledThreshold,
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
		if err := postJSON(ctx, a.client, a.cfg.WebhookURL, alert); err != nil {
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

// postJSON posts a single payload to a webhook URL.
func postJSON(ctx context.Context, client *http.Client, url string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
