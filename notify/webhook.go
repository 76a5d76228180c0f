package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookPayload is the JSON body posted to the webhook endpoint.
type WebhookPayload struct {
	Event       string  `json:"event"`
	Message     string  `json:"message"`
	LoudnessDB  float64 `json:"loudness_db"`
	ThresholdDB float64 `json:"threshold_db"`
	RadiusMiles float64 `json:"radius_miles"`
	Timestamp   string  `json:"timestamp"`
}

type Webhook struct {
	URL    string
	Client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Notify(ctx context.Context, n Notice) error {
	event := "loud_sound_detected"
	if n.Test {
		event = "test"
	}
	body, err := json.Marshal(WebhookPayload{
		Event:       event,
		Message:     n.Body,
		LoudnessDB:  n.Loudness,
		ThresholdDB: n.Threshold,
		RadiusMiles: n.RadiusMiles,
		Timestamp:   n.At.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// TestNotice builds the notice sent by the doctor's notification check.
func TestNotice() Notice {
	return Notice{
		Test:  true,
		Title: "audioguard test",
		Body:  "This is a test notification from audioguard.",
		At:    time.Now(),
	}
}
