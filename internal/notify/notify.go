// Package notify raises an alarm when a rate-limit window crosses the
// configured threshold, via macOS notification, webhook, or ntfy.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"time"

	"github.com/quotaglass/quotaglass/internal/usage"
)

// Config holds notification settings.
type Config struct {
	Enabled bool   `json:"enabled"`
	Webhook string `json:"webhook"`
	NtfyURL string `json:"ntfy"`
}

// Alert describes a window that crossed the alert threshold.
type Alert struct {
	Window  string // "5-hour" or "weekly"
	Percent float64
	ResetAt *time.Time
}

// Notifier fires system notifications and optional webhook POSTs.
type Notifier struct {
	cfg    Config
	logger *slog.Logger
}

// New returns a Notifier with the given config.
func New(cfg Config, logger *slog.Logger) *Notifier {
	return &Notifier{cfg: cfg, logger: logger}
}

// Notify sends a system notification and optional webhook POST for a window
// that crossed its alert threshold.
func (n *Notifier) Notify(a Alert) {
	if !n.cfg.Enabled {
		return
	}

	msg := fmt.Sprintf("Claude %s limit at %s", a.Window, usage.FormatUtilization(a.Percent))
	n.sendSystemNotification(msg)

	if n.cfg.Webhook != "" {
		n.sendWebhook(a)
	}
	if n.cfg.NtfyURL != "" {
		n.sendNtfy(a)
	}
}

func (n *Notifier) sendSystemNotification(msg string) {
	script := fmt.Sprintf(
		`display notification %q with title "quotaglass"`,
		msg,
	)
	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		n.logger.Debug("system notification failed", "err", err)
	}
}

type webhookPayload struct {
	Window    string `json:"window"`
	Percent   string `json:"percent"`
	ResetAt   string `json:"reset_at,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (n *Notifier) sendWebhook(a Alert) {
	payload := webhookPayload{
		Window:    a.Window,
		Percent:   usage.FormatUtilization(a.Percent),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if a.ResetAt != nil {
		payload.ResetAt = a.ResetAt.UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(n.cfg.Webhook, "application/json", bytes.NewReader(data))
	if err != nil {
		n.logger.Warn("webhook notification failed", "err", err)
		return
	}
	resp.Body.Close()
}

type ntfyPayload struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Priority int      `json:"priority"`
	Tags     []string `json:"tags"`
}

func (n *Notifier) sendNtfy(a Alert) {
	payload := ntfyPayload{
		Title:    fmt.Sprintf("Claude %s limit at %s", a.Window, usage.FormatUtilization(a.Percent)),
		Message:  resetMessage(a),
		Priority: 4,
		Tags:     []string{"rotating_light"},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(n.cfg.NtfyURL, "application/json", bytes.NewReader(data))
	if err != nil {
		n.logger.Warn("ntfy notification failed", "err", err)
		return
	}
	resp.Body.Close()
}

func resetMessage(a Alert) string {
	if a.ResetAt == nil {
		return "reset time unknown"
	}
	return "resets " + a.ResetAt.Local().Format("Mon 15:04")
}
