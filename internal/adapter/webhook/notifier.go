// Package webhook delivers alerts to a chat-bot style incoming webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/space-weather-etl/internal/domain"
)

// Notifier posts one JSON message per alert. It implements pipeline.AlertSink.
type Notifier struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewNotifier creates a webhook notifier with the given request timeout.
func NewNotifier(url string, timeout time.Duration, logger *slog.Logger) *Notifier {
	return &Notifier{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// message is the webhook payload. Most chat webhooks render "text" and ignore
// unknown fields, so the structured alert rides along.
type message struct {
	Text  string       `json:"text"`
	Alert domain.Alert `json:"alert"`
}

// Name identifies this sink in logs and metrics.
func (n *Notifier) Name() string {
	return "webhook"
}

// Publish posts each alert in order and stops at the first failure.
func (n *Notifier) Publish(ctx context.Context, alerts []domain.Alert) error {
	for _, a := range alerts {
		if err := n.post(ctx, a); err != nil {
			return fmt.Errorf("notify alert %s: %w", a.ID, err)
		}
	}
	return nil
}

func (n *Notifier) post(ctx context.Context, a domain.Alert) error {
	body, err := json.Marshal(message{Text: formatText(a), Alert: a})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	n.logger.Debug("alert delivered", "alert_id", a.ID, "severity", a.Severity)
	return nil
}

// formatText renders a one-line human summary.
func formatText(a domain.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s at %s", strings.ToUpper(a.Severity), a.Reason, a.Timestamp.UTC().Format("2006-01-02 15:04 UTC"))
	if a.EtaHours != nil {
		fmt.Fprintf(&b, ", ETA %.2fh", *a.EtaHours)
	}
	if a.Source != "" {
		fmt.Fprintf(&b, " (%s)", a.Source)
	}
	return b.String()
}
