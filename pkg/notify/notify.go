package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Event names.
const (
	EventDosSucceeded          = "DOS_SUCCEEDED"
	EventUnauthorizedSucceeded = "UNAUTHORIZED_SUCCEEDED"
)

// NotificationPayload represents the JSON payload sent to the webhook.
type NotificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Event string `json:"event"`
	Time  string `json:"time"`
}

// Notifier posts attack alerts to a webhook. A Notifier without URL is a no-op.
type Notifier struct {
	webhookURL string
	client     *http.Client
	log        zerolog.Logger
}

// New returns a Notifier for webhookURL.
func New(webhookURL string, log zerolog.Logger) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// Enabled reports whether a webhook is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.webhookURL != ""
}

// AttackSucceeded sends an alert in the background. Failures are only logged.
func (n *Notifier) AttackSucceeded(event, message string) {
	if !n.Enabled() {
		return
	}

	payload := NotificationPayload{
		Title: "Simulated attack succeeded",
		Body:  message,
		Event: event,
		Time:  time.Now().Format(time.RFC3339),
	}

	go func() {
		if err := n.Send(context.Background(), payload); err != nil {
			n.log.Warn().Err(err).Str("event", event).Msg("failed to send attack alert")
			return
		}
		n.log.Info().Str("event", event).Msg("attack alert sent")
	}()
}

// Send posts payload to the webhook.
func (n *Notifier) Send(ctx context.Context, payload NotificationPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status code %d", resp.StatusCode)
	}

	return nil
}
